package repository

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/medgraph/patient-portal-go/internal/model"
)

// AuditRepository appends to the security audit trail. The trail is
// append-only; this interface deliberately exposes no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, params model.AppendAuditEventParams) error
	ListForIdentity(ctx context.Context, identityID string, limit int) ([]model.AuditEvent, error)
}

type auditRepo struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Append(ctx context.Context, params model.AppendAuditEventParams) error {
	var metadata []byte
	if params.Metadata != nil {
		var err error
		metadata, err = json.Marshal(params.Metadata)
		if err != nil {
			return err
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO portal_audit_events (
			id, identity_id, action, status, ip_address, user_agent, metadata
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)
	`, params.ID, params.IdentityID, params.Action, params.Status,
		params.IPAddress, params.UserAgent, metadata)
	return err
}

func (r *auditRepo) ListForIdentity(ctx context.Context, identityID string, limit int) ([]model.AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events := []model.AuditEvent{}
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM portal_audit_events
		WHERE identity_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, identityID, limit)
	if err != nil {
		return nil, err
	}
	return events, nil
}
