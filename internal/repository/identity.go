package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medgraph/patient-portal-go/internal/model"
)

// IdentityRepository handles portal identity data operations. All counter
// mutations are single conditional statements so concurrent logins against
// the same identity cannot under- or double-count.
type IdentityRepository interface {
	FindByID(ctx context.Context, id string) (*model.PortalIdentity, error)
	FindByEmail(ctx context.Context, email string) (*model.PortalIdentity, error)
	FindByExternalRef(ctx context.Context, ref string) (*model.PortalIdentity, error)
	Upsert(ctx context.Context, params model.UpsertIdentityParams) (*model.PortalIdentity, error)
	IncrementFailedAttempts(ctx context.Context, id string) (int, error)
	UpdateLockoutState(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
	SetStatus(ctx context.Context, id string, status model.IdentityStatus) error
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
	Stats(ctx context.Context, orgRef string) (*model.PortalStats, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) IdentityRepository
}

// identityDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type identityDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type identityRepo struct {
	db identityDB
}

func NewIdentityRepository(db *sqlx.DB) IdentityRepository {
	return &identityRepo{db: db}
}

func (r *identityRepo) WithTx(tx *sqlx.Tx) IdentityRepository {
	return &identityRepo{db: tx}
}

func (r *identityRepo) FindByID(ctx context.Context, id string) (*model.PortalIdentity, error) {
	var identity model.PortalIdentity
	err := r.db.GetContext(ctx, &identity, `
		SELECT * FROM portal_identities WHERE id = $1
	`, id)
	return HandleNotFound(&identity, err)
}

func (r *identityRepo) FindByEmail(ctx context.Context, email string) (*model.PortalIdentity, error) {
	var identity model.PortalIdentity
	err := r.db.GetContext(ctx, &identity, `
		SELECT * FROM portal_identities
		WHERE LOWER(email) = LOWER($1)
		LIMIT 1
	`, email)
	return HandleNotFound(&identity, err)
}

func (r *identityRepo) FindByExternalRef(ctx context.Context, ref string) (*model.PortalIdentity, error) {
	var identity model.PortalIdentity
	err := r.db.GetContext(ctx, &identity, `
		SELECT * FROM portal_identities WHERE external_patient_ref = $1
	`, ref)
	return HandleNotFound(&identity, err)
}

// Upsert creates a portal identity for the external patient reference, or
// reactivates the existing one with fresh credentials and cleared lockout
// state. external_patient_ref carries a unique constraint, so two concurrent
// grants converge on a single row.
func (r *identityRepo) Upsert(ctx context.Context, params model.UpsertIdentityParams) (*model.PortalIdentity, error) {
	var identity model.PortalIdentity
	err := r.db.GetContext(ctx, &identity, `
		INSERT INTO portal_identities (
			id, external_patient_ref, org_ref, email, password_hash,
			status, granted_by, granted_at
		) VALUES ($1, $2, $3, $4, $5, 'active', $6, NOW())
		ON CONFLICT (external_patient_ref) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			status = 'active',
			granted_by = EXCLUDED.granted_by,
			granted_at = NOW(),
			failed_login_attempts = 0,
			locked_until = NULL,
			updated_at = NOW()
		RETURNING *
	`, params.ID, params.ExternalPatientRef, params.OrgRef, params.Email,
		params.PasswordHash, params.GrantedBy)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// IncrementFailedAttempts bumps the failure counter atomically and returns
// the post-increment value.
func (r *identityRepo) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.GetContext(ctx, &attempts, `
		UPDATE portal_identities
		SET failed_login_attempts = failed_login_attempts + 1,
			updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts
	`, id)
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

func (r *identityRepo) UpdateLockoutState(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE portal_identities
		SET failed_login_attempts = $2,
			locked_until = $3,
			updated_at = NOW()
		WHERE id = $1
	`, id, failedAttempts, lockedUntil)
	return err
}

func (r *identityRepo) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE portal_identities
		SET last_login_at = $2,
			failed_login_attempts = 0,
			locked_until = NULL,
			updated_at = NOW()
		WHERE id = $1
	`, id, at)
	return err
}

func (r *identityRepo) SetStatus(ctx context.Context, id string, status model.IdentityStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE portal_identities
		SET status = $2,
			updated_at = NOW()
		WHERE id = $1
	`, id, status)
	return err
}

func (r *identityRepo) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE portal_identities
		SET password_hash = $2,
			updated_at = NOW()
		WHERE id = $1
	`, id, hash)
	return err
}

func (r *identityRepo) Stats(ctx context.Context, orgRef string) (*model.PortalStats, error) {
	var stats model.PortalStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_users,
			COUNT(*) FILTER (WHERE status = 'active') AS active_users,
			COUNT(*) FILTER (WHERE last_login_at IS NOT NULL) AS users_who_logged_in,
			COUNT(*) FILTER (WHERE last_login_at > NOW() - INTERVAL '30 days') AS active_last_30_days,
			COUNT(*) FILTER (WHERE last_login_at > NOW() - INTERVAL '7 days') AS active_last_7_days
		FROM portal_identities
		WHERE org_ref = $1
	`, orgRef)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
