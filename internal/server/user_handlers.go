package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stackbound/aegis/internal/iam"
)

type createUserRequest struct {
	ID       string            `json:"id,omitempty"`
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Phone    string            `json:"phone,omitempty"`
	Status   string            `json:"status,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type updateUserRequest struct {
	Name     *string           `json:"name,omitempty"`
	Email    *string           `json:"email,omitempty"`
	Phone    *string           `json:"phone,omitempty"`
	Status   *string           `json:"status,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CreateUser handles POST /api/users - register a new user
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}

	snap, err := h.svc.CreateUser(r.Context(), iam.UserParams{
		ID:       req.ID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Status:   req.Status,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toUserView(snap))
}

// GetUser handles GET /api/users/{id}
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toUserViews(capped(h.svc.ListUsers(r.Context()), h.listLimit)))
}

// UserExists handles GET /api/users/exists?name=
func (h *Handlers) UserExists(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"exists": h.svc.UserExists(r.Context(), name)})
}

// UpdateUser handles PATCH /api/users/{id}
func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.svc.UpdateUser(r.Context(), chi.URLParam(r, "id"), iam.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Status:   req.Status,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// RemoveUser handles DELETE /api/users/{id}
func (h *Handlers) RemoveUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// RegisterLogin handles POST /api/users/{id}/login
func (h *Handlers) RegisterLogin(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.RegisterLogin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// SetMFA handles PUT /api/users/{id}/mfa
func (h *Handlers) SetMFA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.svc.SetMFA(r.Context(), chi.URLParam(r, "id"), req.Enabled)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// ListUserGroups handles GET /api/users/{id}/groups
func (h *Handlers) ListUserGroups(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, toGroupViews(h.svc.ListUserGroups(r.Context(), chi.URLParam(r, "id"))))
}

// --- Access keys ---

type addAccessKeyResponse struct {
	User   userView `json:"user"`
	Key    string   `json:"key"`
	Secret string   `json:"secret"`
}

// AddAccessKey handles POST /api/users/{id}/keys - issue a credential. The
// response carries the plaintext secret; it is never retrievable again.
func (h *Handlers) AddAccessKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, key, secret, err := h.svc.AddAccessKey(r.Context(), chi.URLParam(r, "id"), req.Key)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, addAccessKeyResponse{
		User:   toUserView(snap),
		Key:    key,
		Secret: secret,
	})
}

// AccessKeyStatus handles GET /api/users/{id}/keys
func (h *Handlers) AccessKeyStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.AccessKeyStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// RemoveAccessKey handles DELETE /api/users/{id}/keys/{key}
func (h *Handlers) RemoveAccessKey(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.RemoveAccessKey(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// DisableAccessKey handles POST /api/users/{id}/keys/{key}/disable
func (h *Handlers) DisableAccessKey(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.DisableAccessKey(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// SetAccessKeyExpiration handles PUT /api/users/{id}/keys/{key}/expiration
func (h *Handlers) SetAccessKeyExpiration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExpireAt time.Time `json:"expire_at"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExpireAt.IsZero() {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "expire_at is required"})
		return
	}

	snap, err := h.svc.SetAccessKeyExpiration(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "key"), req.ExpireAt)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// RotateAccessKey handles POST /api/users/{id}/keys/{key}/rotate - disable the
// old credential and issue a replacement in one call.
func (h *Handlers) RotateAccessKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewKey string `json:"new_key,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, key, secret, err := h.svc.RotateAccessKey(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "key"), req.NewKey)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, addAccessKeyResponse{
		User:   toUserView(snap),
		Key:    key,
		Secret: secret,
	})
}

// IsAccessKeyValid handles GET /api/users/{id}/keys/{key}/valid
func (h *Handlers) IsAccessKeyValid(w http.ResponseWriter, r *http.Request) {
	valid, err := h.svc.IsAccessKeyValid(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// VerifyAccessKeySecret handles POST /api/users/{id}/keys/{key}/verify
func (h *Handlers) VerifyAccessKeySecret(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	ok, err := h.svc.VerifyAccessKeySecret(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "key"), req.Secret)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"verified": ok})
}

// --- Attachments ---

// AttachUserPolicy handles POST /api/users/{id}/policies/{policyID}
func (h *Handlers) AttachUserPolicy(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.AttachUserPolicy(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "policyID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// DetachUserPolicy handles DELETE /api/users/{id}/policies/{policyID}
func (h *Handlers) DetachUserPolicy(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.DetachUserPolicy(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "policyID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// ListUserPolicies handles GET /api/users/{id}/policies
func (h *Handlers) ListUserPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.svc.ListUserPolicies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, policies)
}

// AttachUserRole handles POST /api/users/{id}/roles/{roleID}
func (h *Handlers) AttachUserRole(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.AttachUserRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "roleID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// DetachUserRole handles DELETE /api/users/{id}/roles/{roleID}
func (h *Handlers) DetachUserRole(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.DetachUserRole(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "roleID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserView(snap))
}

// ListUserRoles handles GET /api/users/{id}/roles
func (h *Handlers) ListUserRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.svc.ListUserRoles(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, roles)
}
