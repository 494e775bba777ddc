package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	loginLimitKeyPrefix = "loginlimit:"
	loginLimitWindow    = 60 * time.Second
)

// Sliding-window counter per source IP. Fails open: a redis outage must not
// block legitimate logins, since the per-identity lockout still applies.
var loginLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    return 0
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

return 1
`)

// LoginRateLimitMiddleware throttles login attempts per client IP across all
// emails, blunting distributed guessing that the per-identity lockout alone
// cannot see.
type LoginRateLimitMiddleware struct {
	client *redis.Client
	limit  int
}

func NewLoginRateLimitMiddleware(client *redis.Client, limitPerMin int) *LoginRateLimitMiddleware {
	return &LoginRateLimitMiddleware{client: client, limit: limitPerMin}
}

func (m *LoginRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)

		allowed, err := loginLimitScript.Run(
			r.Context(), m.client,
			[]string{loginLimitKeyPrefix + ip},
			time.Now().Unix(),
			int64(loginLimitWindow.Seconds()),
			m.limit,
		).Int64()
		if err != nil {
			log.Warn().Err(err).Str("ip", ip).Msg("login rate limit check failed, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if allowed != 1 {
			log.Warn().Str("ip", ip).Msg("login rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many login attempts. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP resolves the originating address, honoring proxy headers.
// X-Forwarded-For may carry a chain; the first hop is the client.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
