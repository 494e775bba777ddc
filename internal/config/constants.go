package config

import "time"

// Lockout policy. Five consecutive failures lock the identity for fifteen
// minutes; a successful login clears both counter and lock.
const (
	LockoutThreshold = 5
	LockoutDuration  = 15 * time.Minute
)

// BcryptCost is the bcrypt work factor for portal passwords.
const BcryptCost = 12

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// StoreTimeout bounds every credential/session store call. A timeout is
// classified as "unavailable", never as a definitive auth outcome.
const StoreTimeout = 5 * time.Second

// AuditWriteTimeout bounds a single audit append. Audit writes run on a
// detached context so caller cancellation cannot drop them.
const AuditWriteTimeout = 10 * time.Second

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute
