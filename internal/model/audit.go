package model

import (
	"encoding/json"
	"time"
)

// AuditEvent is one immutable row in the security audit trail. IdentityID is
// nullable: a failed login against an unknown email has no identity to point
// at. Rows are never updated or deleted by this subsystem.
type AuditEvent struct {
	ID         string           `db:"id" json:"id"`
	IdentityID *string          `db:"identity_id" json:"identityId,omitempty"`
	Action     AuditAction      `db:"action" json:"action"`
	Status     AuditStatus      `db:"status" json:"status"`
	IPAddress  *string          `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent  *string          `db:"user_agent" json:"userAgent,omitempty"`
	Metadata   *json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
}

// AppendAuditEventParams contains parameters for appending an audit event.
type AppendAuditEventParams struct {
	ID         string
	IdentityID *string
	Action     AuditAction
	Status     AuditStatus
	IPAddress  string
	UserAgent  string
	Metadata   map[string]any
}
