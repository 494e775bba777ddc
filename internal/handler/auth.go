package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/medgraph/patient-portal-go/internal/middleware"
	"github.com/medgraph/patient-portal-go/internal/service"
)

// AuthHandler exposes the patient-facing authentication routes. Handlers are
// thin: parse, call the orchestrator, translate the result.
type AuthHandler struct {
	auth       *service.AuthService
	sessionMW  *middleware.SessionAuthMiddleware
	loginLimit func(http.Handler) http.Handler
}

func NewAuthHandler(
	auth *service.AuthService,
	sessionMW *middleware.SessionAuthMiddleware,
	loginLimit func(http.Handler) http.Handler,
) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		sessionMW:  sessionMW,
		loginLimit: loginLimit,
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	if h.loginLimit != nil {
		r.With(h.loginLimit).Post("/login", h.Login)
	} else {
		r.Post("/login", h.Login)
	}
	r.Post("/logout", h.Logout)
	r.Get("/session", h.Session)

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMW.Handler)
		r.Post("/password", h.ChangePassword)
	})

	return r
}

// POST /portal/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	result, err := h.auth.Authenticate(r.Context(), service.AuthenticateParams{
		Email:     req.Email,
		Password:  req.Password,
		ClientIP:  middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":                 result.Identity.ID,
			"externalPatientRef": result.Identity.ExternalPatientRef,
			"email":              result.Identity.Email,
			"orgRef":             result.Identity.OrgRef,
			"userType":           "patient",
		},
		"token":            result.BearerToken,
		"sessionToken":     result.SessionToken,
		"sessionExpiresAt": result.SessionExpiresAt.Format(time.RFC3339),
	})
}

// POST /portal/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractBearerToken(r)
	if token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			log.Error().Err(err).Msg("logout failed")
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /portal/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractBearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}

	session, identity, err := h.auth.ValidateSession(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	if session == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
		"user": map[string]any{
			"id":                 identity.ID,
			"externalPatientRef": identity.ExternalPatientRef,
			"email":              identity.Email,
			"orgRef":             identity.OrgRef,
			"userType":           "patient",
		},
	})
}

// POST /portal/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if err := h.auth.ChangePassword(r.Context(), identity.ID, req.OldPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed successfully",
	})
}
