package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port             int    `env:"PORT" envDefault:"8080"`
	DatabaseURL      string `env:"DATABASE_URL,required"`
	RedisURL         string `env:"REDIS_URL"`
	PortalJWTSecret  string `env:"PORTAL_JWT_SECRET,required"`
	StaffAPIToken    string `env:"STAFF_API_TOKEN,required"`
	SessionTTLDays   int    `env:"SESSION_TTL_DAYS" envDefault:"30"`
	LoginRatePerMin  int    `env:"LOGIN_RATE_LIMIT_PER_MIN" envDefault:"0"`
	AuditBufferSize  int    `env:"AUDIT_BUFFER_SIZE" envDefault:"256"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// LoginRateLimitEnabled reports whether per-IP login throttling is on.
// It requires both a configured limit and a redis connection.
func (c *Config) LoginRateLimitEnabled() bool {
	return c.LoginRatePerMin > 0 && c.RedisURL != ""
}

func (c *Config) Validate(isProduction bool) error {
	if c.SessionTTLDays <= 0 {
		return fmt.Errorf("SESSION_TTL_DAYS must be positive")
	}

	if isProduction {
		if err := validateSecret("PORTAL_JWT_SECRET", c.PortalJWTSecret); err != nil {
			return err
		}
		if err := validateSecret("STAFF_API_TOKEN", c.StaffAPIToken); err != nil {
			return err
		}
		if c.RedisURL != "" && strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.LoginRatePerMin == 0 {
			log.Warn().Msg("LOGIN_RATE_LIMIT_PER_MIN is 0 in production: per-IP login throttling disabled")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
