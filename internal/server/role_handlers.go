package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stackbound/aegis/internal/iam"
)

type createRoleRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type updateRoleRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateRole handles POST /api/roles
func (h *Handlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	snap, err := h.svc.CreateRole(r.Context(), req.ID, req.Name, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRoleView(snap))
}

// GetRole handles GET /api/roles/{id}
func (h *Handlers) GetRole(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoleView(snap))
}

// ListRoles handles GET /api/roles
func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toRoleViews(capped(h.svc.ListRoles(r.Context()), h.listLimit)))
}

// UpdateRole handles PATCH /api/roles/{id}. The pre-change name and
// description land in the role's history.
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.svc.UpdateRole(r.Context(), chi.URLParam(r, "id"), iam.RoleUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoleView(snap))
}

// RemoveRole handles DELETE /api/roles/{id}
func (h *Handlers) RemoveRole(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveRole(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// RoleHistory handles GET /api/roles/{id}/history
func (h *Handlers) RoleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.RoleHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoleRevisionViews(history))
}

// AttachRolePolicy handles POST /api/roles/{id}/policies/{policyID}
func (h *Handlers) AttachRolePolicy(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.AttachRolePolicy(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "policyID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoleView(snap))
}

// DetachRolePolicy handles DELETE /api/roles/{id}/policies/{policyID}
func (h *Handlers) DetachRolePolicy(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.DetachRolePolicy(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "policyID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoleView(snap))
}

// ListRolePolicies handles GET /api/roles/{id}/policies
func (h *Handlers) ListRolePolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.svc.ListRolePolicies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, policies)
}
