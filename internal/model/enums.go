package model

// IdentityStatus is the lifecycle state of a portal identity.
// Only active identities may authenticate.
type IdentityStatus string

const (
	IdentityStatusActive   IdentityStatus = "active"
	IdentityStatusDisabled IdentityStatus = "disabled"
)

// AuditAction enumerates the security-relevant actions recorded by this
// subsystem. The set is consumed by downstream compliance reporting and must
// stay exhaustive.
type AuditAction string

const (
	AuditActionAccessGranted   AuditAction = "portal_access_granted"
	AuditActionAccessUpdated   AuditAction = "portal_access_updated"
	AuditActionAccessRevoked   AuditAction = "portal_access_revoked"
	AuditActionLoginSuccess    AuditAction = "login_success"
	AuditActionLoginFailed     AuditAction = "login_failed"
	AuditActionLogout          AuditAction = "logout"
	AuditActionPasswordChanged AuditAction = "password_changed"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)
