package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stackbound/aegis/internal/iam"
)

type createGroupRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type updateGroupRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type idListRequest struct {
	UserIDs   []string `json:"user_ids,omitempty"`
	PolicyIDs []string `json:"policy_ids,omitempty"`
}

// CreateGroup handles POST /api/groups
func (h *Handlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	snap, err := h.svc.CreateGroup(r.Context(), req.ID, req.Name, req.Description)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toGroupView(snap))
}

// GetGroup handles GET /api/groups/{id}
func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.GetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// ListGroups handles GET /api/groups. Supports ?q= for name/description
// search and ?filter=no-members|no-policies.
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if q := r.URL.Query().Get("q"); q != "" {
		respondJSON(w, http.StatusOK, toGroupViews(capped(h.svc.SearchGroups(ctx, q), h.listLimit)))
		return
	}
	switch r.URL.Query().Get("filter") {
	case "":
		respondJSON(w, http.StatusOK, toGroupViews(capped(h.svc.ListGroups(ctx), h.listLimit)))
	case "no-members":
		respondJSON(w, http.StatusOK, toGroupViews(capped(h.svc.ListGroupsWithoutMembers(ctx), h.listLimit)))
	case "no-policies":
		respondJSON(w, http.StatusOK, toGroupViews(capped(h.svc.ListGroupsWithoutPolicies(ctx), h.listLimit)))
	default:
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown filter"})
	}
}

// UpdateGroup handles PATCH /api/groups/{id}
func (h *Handlers) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req updateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.svc.UpdateGroup(r.Context(), chi.URLParam(r, "id"), iam.GroupUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// RemoveGroup handles DELETE /api/groups/{id}. Essential groups refuse
// removal.
func (h *Handlers) RemoveGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveGroup(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// MarkGroupEssential handles POST /api/groups/{id}/essential
func (h *Handlers) MarkGroupEssential(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.MarkGroupEssential(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// ActivateGroup handles POST /api/groups/{id}/activate
func (h *Handlers) ActivateGroup(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.SetGroupActive(r.Context(), chi.URLParam(r, "id"), true)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// DeactivateGroup handles POST /api/groups/{id}/deactivate
func (h *Handlers) DeactivateGroup(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.SetGroupActive(r.Context(), chi.URLParam(r, "id"), false)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// ExportGroup handles GET /api/groups/{id}/export
func (h *Handlers) ExportGroup(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.ExportGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// --- Membership ---

// ListGroupMembers handles GET /api/groups/{id}/members
func (h *Handlers) ListGroupMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.ListGroupMembers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

// AttachGroupUser handles POST /api/groups/{id}/members/{userID}. Attaching
// an existing member is a conflict.
func (h *Handlers) AttachGroupUser(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.AttachGroupUser(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// DetachGroupUser handles DELETE /api/groups/{id}/members/{userID}
func (h *Handlers) DetachGroupUser(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.DetachGroupUser(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// AttachGroupUsers handles POST /api/groups/{id}/members. Bulk attach skips
// existing members silently.
func (h *Handlers) AttachGroupUsers(w http.ResponseWriter, r *http.Request) {
	var req idListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.svc.AttachGroupUsers(r.Context(), chi.URLParam(r, "id"), req.UserIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// DetachGroupUsers handles POST /api/groups/{id}/members/detach
func (h *Handlers) DetachGroupUsers(w http.ResponseWriter, r *http.Request) {
	var req idListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.svc.DetachGroupUsers(r.Context(), chi.URLParam(r, "id"), req.UserIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// RemoveAllGroupUsers handles DELETE /api/groups/{id}/members
func (h *Handlers) RemoveAllGroupUsers(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.RemoveAllGroupUsers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// --- Policies ---

// ListGroupPolicies handles GET /api/groups/{id}/policies
func (h *Handlers) ListGroupPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.svc.ListGroupPolicies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, policies)
}

// AttachGroupPolicy handles POST /api/groups/{id}/policies/{policyID}
func (h *Handlers) AttachGroupPolicy(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.AttachGroupPolicy(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "policyID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// DetachGroupPolicy handles DELETE /api/groups/{id}/policies/{policyID}
func (h *Handlers) DetachGroupPolicy(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.DetachGroupPolicy(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "policyID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// AttachGroupPolicies handles POST /api/groups/{id}/policies
func (h *Handlers) AttachGroupPolicies(w http.ResponseWriter, r *http.Request) {
	var req idListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.svc.AttachGroupPolicies(r.Context(), chi.URLParam(r, "id"), req.PolicyIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// DetachGroupPolicies handles POST /api/groups/{id}/policies/detach
func (h *Handlers) DetachGroupPolicies(w http.ResponseWriter, r *http.Request) {
	var req idListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.svc.DetachGroupPolicies(r.Context(), chi.URLParam(r, "id"), req.PolicyIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// RemoveAllGroupPolicies handles DELETE /api/groups/{id}/policies
func (h *Handlers) RemoveAllGroupPolicies(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.RemoveAllGroupPolicies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// --- Admins ---

// DelegateGroupAdmin handles POST /api/groups/{id}/admins/{userID}
func (h *Handlers) DelegateGroupAdmin(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.DelegateGroupAdmin(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}

// RevokeGroupAdmin handles DELETE /api/groups/{id}/admins/{userID}
func (h *Handlers) RevokeGroupAdmin(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.RevokeGroupAdmin(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGroupView(snap))
}
