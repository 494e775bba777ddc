package model

import (
	"time"
)

// PortalIdentity links a clinical patient record to portal login credentials.
// One row per patient that has ever been granted portal access; revocation
// flips Status to disabled rather than deleting, so audit rows keep a valid
// identity reference.
type PortalIdentity struct {
	ID                  string         `db:"id" json:"id"`
	ExternalPatientRef  string         `db:"external_patient_ref" json:"externalPatientRef"`
	OrgRef              string         `db:"org_ref" json:"orgRef"`
	Email               string         `db:"email" json:"email"`
	PasswordHash        string         `db:"password_hash" json:"-"`
	Status              IdentityStatus `db:"status" json:"status"`
	FailedLoginAttempts int            `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time     `db:"locked_until" json:"-"`
	GrantedBy           string         `db:"granted_by" json:"grantedBy"`
	GrantedAt           time.Time      `db:"granted_at" json:"grantedAt"`
	LastLoginAt         *time.Time     `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updatedAt"`
}

// UpsertIdentityParams contains parameters for granting portal access.
// Granting to an existing identity reactivates it with the new credentials.
type UpsertIdentityParams struct {
	ID                 string
	ExternalPatientRef string
	OrgRef             string
	Email              string
	PasswordHash       string
	GrantedBy          string
}

// IsActive reports whether the identity may authenticate.
func (i *PortalIdentity) IsActive() bool {
	return i.Status == IdentityStatusActive
}

// IsLocked reports whether the identity is under a lockout window at the
// given instant.
func (i *PortalIdentity) IsLocked(now time.Time) bool {
	return i.LockedUntil != nil && i.LockedUntil.After(now)
}
