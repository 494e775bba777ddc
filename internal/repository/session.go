package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medgraph/patient-portal-go/internal/model"
)

// SessionRepository handles portal session data operations.
type SessionRepository interface {
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	// FindByTokenHash is the hot path behind every authenticated portal
	// request: a single indexed lookup joining the owning identity.
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, *model.PortalIdentity, error)
	Touch(ctx context.Context, id string, at time.Time) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) (identityID string, found bool, err error)
	Delete(ctx context.Context, id string) error
	DeleteAllForIdentity(ctx context.Context, identityID string) error
	DeleteExpired(ctx context.Context) (int64, error)
	CountForIdentity(ctx context.Context, identityID string) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO portal_sessions (
			id, identity_id, token_hash, ip_address, user_agent, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.ID, params.IdentityID, params.TokenHash,
		params.IPAddress, params.UserAgent, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// sessionIdentityRow flattens the session/identity join for scanning.
type sessionIdentityRow struct {
	model.Session
	IdentityRowID       string                `db:"i_id"`
	ExternalPatientRef  string                `db:"i_external_patient_ref"`
	OrgRef              string                `db:"i_org_ref"`
	Email               string                `db:"i_email"`
	PasswordHash        string                `db:"i_password_hash"`
	Status              model.IdentityStatus  `db:"i_status"`
	FailedLoginAttempts int                   `db:"i_failed_login_attempts"`
	LockedUntil         *time.Time            `db:"i_locked_until"`
	GrantedBy           string                `db:"i_granted_by"`
	GrantedAt           time.Time             `db:"i_granted_at"`
	LastLoginAt         *time.Time            `db:"i_last_login_at"`
	IdentityCreatedAt   time.Time             `db:"i_created_at"`
	IdentityUpdatedAt   time.Time             `db:"i_updated_at"`
}

func (r *sessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, *model.PortalIdentity, error) {
	var row sessionIdentityRow
	err := r.db.GetContext(ctx, &row, `
		SELECT s.*,
			i.id AS i_id,
			i.external_patient_ref AS i_external_patient_ref,
			i.org_ref AS i_org_ref,
			i.email AS i_email,
			i.password_hash AS i_password_hash,
			i.status AS i_status,
			i.failed_login_attempts AS i_failed_login_attempts,
			i.locked_until AS i_locked_until,
			i.granted_by AS i_granted_by,
			i.granted_at AS i_granted_at,
			i.last_login_at AS i_last_login_at,
			i.created_at AS i_created_at,
			i.updated_at AS i_updated_at
		FROM portal_sessions s
		JOIN portal_identities i ON i.id = s.identity_id
		WHERE s.token_hash = $1
	`, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	identity := model.PortalIdentity{
		ID:                  row.IdentityRowID,
		ExternalPatientRef:  row.ExternalPatientRef,
		OrgRef:              row.OrgRef,
		Email:               row.Email,
		PasswordHash:        row.PasswordHash,
		Status:              row.Status,
		FailedLoginAttempts: row.FailedLoginAttempts,
		LockedUntil:         row.LockedUntil,
		GrantedBy:           row.GrantedBy,
		GrantedAt:           row.GrantedAt,
		LastLoginAt:         row.LastLoginAt,
		CreatedAt:           row.IdentityCreatedAt,
		UpdatedAt:           row.IdentityUpdatedAt,
	}
	session := row.Session
	return &session, &identity, nil
}

func (r *sessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE portal_sessions
		SET last_activity_at = $2
		WHERE id = $1
	`, id, at)
	return err
}

func (r *sessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) (string, bool, error) {
	var identityID string
	err := r.db.GetContext(ctx, &identityID, `
		DELETE FROM portal_sessions
		WHERE token_hash = $1
		RETURNING identity_id
	`, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return identityID, true, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM portal_sessions WHERE id = $1
	`, id)
	return err
}

func (r *sessionRepo) DeleteAllForIdentity(ctx context.Context, identityID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM portal_sessions WHERE identity_id = $1
	`, identityID)
	return err
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM portal_sessions WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) CountForIdentity(ctx context.Context, identityID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM portal_sessions WHERE identity_id = $1
	`, identityID)
	if err != nil {
		return 0, err
	}
	return count, nil
}
