package model

import (
	"time"
)

// Session backs one portal bearer token. The plaintext token is returned to
// the client exactly once at login; only its SHA-256 hash is persisted, and
// the hash is the lookup key for validation.
type Session struct {
	ID             string    `db:"id" json:"id"`
	IdentityID     string    `db:"identity_id" json:"identityId"`
	TokenHash      string    `db:"token_hash" json:"-"`
	IPAddress      string    `db:"ip_address" json:"ipAddress"`
	UserAgent      string    `db:"user_agent" json:"userAgent"`
	IssuedAt       time.Time `db:"issued_at" json:"issuedAt"`
	ExpiresAt      time.Time `db:"expires_at" json:"expiresAt"`
	LastActivityAt time.Time `db:"last_activity_at" json:"lastActivityAt"`
}

// CreateSessionParams contains parameters for persisting a new session.
type CreateSessionParams struct {
	ID         string
	IdentityID string
	TokenHash  string
	IPAddress  string
	UserAgent  string
	ExpiresAt  time.Time
}

// IsExpired checks whether the session has passed its fixed expiry.
// Expiry is set at issuance; last-activity bookkeeping does not extend it.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
