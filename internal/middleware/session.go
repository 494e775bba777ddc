package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/medgraph/patient-portal-go/internal/httputil"
	"github.com/medgraph/patient-portal-go/internal/model"
)

type contextKey string

const (
	IdentityContextKey contextKey = "portalIdentity"
	SessionContextKey  contextKey = "portalSession"
)

func GetIdentity(ctx context.Context) *model.PortalIdentity {
	if identity, ok := ctx.Value(IdentityContextKey).(*model.PortalIdentity); ok {
		return identity
	}
	return nil
}

func GetSession(ctx context.Context) *model.Session {
	if session, ok := ctx.Value(SessionContextKey).(*model.Session); ok {
		return session
	}
	return nil
}

// SessionValidator resolves a session token to its session and identity.
// Satisfied by *service.AuthService.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*model.Session, *model.PortalIdentity, error)
}

// SessionAuthMiddleware guards portal routes behind a valid session token.
// A store outage is surfaced as 503, never as "logged out".
type SessionAuthMiddleware struct {
	auth SessionValidator
}

func NewSessionAuthMiddleware(auth SessionValidator) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{auth: auth}
}

func (m *SessionAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractBearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing session token",
			})
			return
		}

		session, identity, err := m.auth.ValidateSession(r.Context(), token)
		if err != nil {
			log.Error().Err(err).Msg("session middleware: validation error")
			httputil.WriteError(w, err)
			return
		}

		if session == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid or expired session",
			})
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, SessionContextKey, session)
		ctx = context.WithValue(ctx, IdentityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractBearerToken pulls the session token from the Authorization header.
func ExtractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
