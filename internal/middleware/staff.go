package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/medgraph/patient-portal-go/internal/util"
)

// StaffAuthMiddleware protects the staff-facing access-management routes with
// a static bearer token. Provider-side identity is a separate system; this
// token only authenticates the calling service.
type StaffAuthMiddleware struct {
	token string
}

func NewStaffAuthMiddleware(token string) *StaffAuthMiddleware {
	return &StaffAuthMiddleware{token: token}
}

func (m *StaffAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.token == "" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "Staff API not configured",
			})
			return
		}

		presented := ExtractBearerToken(r)
		if presented == "" || !util.ConstantTimeEqual(presented, m.token) {
			log.Warn().Str("path", r.URL.Path).Msg("staff auth: invalid token attempt")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
