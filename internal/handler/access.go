package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medgraph/patient-portal-go/internal/service"
)

// AccessHandler exposes the staff-facing access-management routes: grant,
// revoke and inspect portal access for a patient.
type AccessHandler struct {
	auth *service.AuthService
}

func NewAccessHandler(auth *service.AuthService) *AccessHandler {
	return &AccessHandler{auth: auth}
}

func (h *AccessHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Put("/patients/{patientRef}/portal-access", h.Grant)
	r.Get("/patients/{patientRef}/portal-access", h.Check)
	r.Delete("/patients/{patientRef}/portal-access", h.Revoke)
	r.Get("/portal/stats", h.Stats)

	return r
}

// PUT /staff/patients/{patientRef}/portal-access
func (h *AccessHandler) Grant(w http.ResponseWriter, r *http.Request) {
	patientRef := chi.URLParam(r, "patientRef")

	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		GrantedBy string `json:"grantedBy"`
		OrgRef    string `json:"orgRef"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	identity, err := h.auth.GrantAccess(r.Context(), service.GrantAccessParams{
		ExternalPatientRef: patientRef,
		Email:              req.Email,
		Password:           req.Password,
		GrantedBy:          req.GrantedBy,
		OrgRef:             req.OrgRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                 identity.ID,
		"externalPatientRef": identity.ExternalPatientRef,
		"email":              identity.Email,
		"status":             identity.Status,
		"grantedAt":          identity.GrantedAt,
	})
}

// GET /staff/patients/{patientRef}/portal-access
func (h *AccessHandler) Check(w http.ResponseWriter, r *http.Request) {
	patientRef := chi.URLParam(r, "patientRef")

	status, err := h.auth.CheckAccess(r.Context(), patientRef)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// DELETE /staff/patients/{patientRef}/portal-access
func (h *AccessHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	patientRef := chi.URLParam(r, "patientRef")

	var req struct {
		RevokedBy string `json:"revokedBy"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	if err := h.auth.RevokeAccess(r.Context(), patientRef, req.RevokedBy); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Portal access revoked successfully",
	})
}

// GET /staff/portal/stats?orgRef=...
func (h *AccessHandler) Stats(w http.ResponseWriter, r *http.Request) {
	orgRef := r.URL.Query().Get("orgRef")

	stats, err := h.auth.GetStats(r.Context(), orgRef)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
