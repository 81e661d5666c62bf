package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stackbound/aegis/internal/iam"
)

type createPolicyRequest struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Document    iam.PolicyDocument `json:"document"`
}

type updatePolicyRequest struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Document    iam.PolicyDocument `json:"document,omitempty"`
}

// CreatePolicy handles POST /api/policies. The document becomes version v1
// and the default.
func (h *Handlers) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req createPolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	snap, err := h.svc.CreatePolicy(r.Context(), req.ID, req.Name, req.Description, req.Document)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toPolicyView(snap))
}

// GetPolicy handles GET /api/policies/{id}
func (h *Handlers) GetPolicy(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.GetPolicy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPolicyView(snap))
}

// ListPolicies handles GET /api/policies
func (h *Handlers) ListPolicies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toPolicyViews(capped(h.svc.ListPolicies(r.Context()), h.listLimit)))
}

// UpdatePolicy handles PATCH /api/policies/{id}. A new document appends a
// version and repoints the default to it.
func (h *Handlers) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req updatePolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.svc.UpdatePolicy(r.Context(), chi.URLParam(r, "id"), iam.PolicyUpdate{
		Name:        req.Name,
		Description: req.Description,
		Document:    req.Document,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPolicyView(snap))
}

// RemovePolicy handles DELETE /api/policies/{id}
func (h *Handlers) RemovePolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemovePolicy(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// CreatePolicyVersion handles POST /api/policies/{id}/versions. The default
// stays where it is.
func (h *Handlers) CreatePolicyVersion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Document iam.PolicyDocument `json:"document"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	ver, err := h.svc.CreatePolicyVersion(r.Context(), chi.URLParam(r, "id"), req.Document)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, policyVersionView{
		VersionID: ver.VersionID,
		Document:  ver.Document,
		CreatedAt: ver.CreatedAt,
	})
}

// ListPolicyVersions handles GET /api/policies/{id}/versions
func (h *Handlers) ListPolicyVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.svc.ListPolicyVersions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPolicyVersionViews(versions))
}

// SetDefaultPolicyVersion handles PUT /api/policies/{id}/versions/default
func (h *Handlers) SetDefaultPolicyVersion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VersionID string `json:"version_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.VersionID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "version_id is required"})
		return
	}

	snap, err := h.svc.SetDefaultPolicyVersion(r.Context(), chi.URLParam(r, "id"), req.VersionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPolicyView(snap))
}
