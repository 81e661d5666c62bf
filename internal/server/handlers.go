package server

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stackbound/aegis/internal/iam"
	"github.com/stackbound/aegis/internal/services/identity"
)

// Handlers wires the identity REST endpoints
type Handlers struct {
	svc       *identity.Service
	listLimit int
}

// NewHandlers creates the handler set backed by the identity service.
// listLimit caps collection responses; zero means unlimited.
func NewHandlers(svc *identity.Service, listLimit int) *Handlers {
	return &Handlers{svc: svc, listLimit: listLimit}
}

func capped[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// Mount registers all identity routes under /api.
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/", h.ListUsers)
			r.Get("/exists", h.UserExists)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Patch("/", h.UpdateUser)
				r.Delete("/", h.RemoveUser)
				r.Post("/login", h.RegisterLogin)
				r.Put("/mfa", h.SetMFA)
				r.Get("/groups", h.ListUserGroups)

				r.Route("/keys", func(r chi.Router) {
					r.Post("/", h.AddAccessKey)
					r.Get("/", h.AccessKeyStatus)
					r.Route("/{key}", func(r chi.Router) {
						r.Delete("/", h.RemoveAccessKey)
						r.Post("/disable", h.DisableAccessKey)
						r.Put("/expiration", h.SetAccessKeyExpiration)
						r.Post("/rotate", h.RotateAccessKey)
						r.Get("/valid", h.IsAccessKeyValid)
						r.Post("/verify", h.VerifyAccessKeySecret)
					})
				})

				r.Route("/policies", func(r chi.Router) {
					r.Get("/", h.ListUserPolicies)
					r.Post("/{policyID}", h.AttachUserPolicy)
					r.Delete("/{policyID}", h.DetachUserPolicy)
				})

				r.Route("/roles", func(r chi.Router) {
					r.Get("/", h.ListUserRoles)
					r.Post("/{roleID}", h.AttachUserRole)
					r.Delete("/{roleID}", h.DetachUserRole)
				})
			})
		})

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", h.CreateGroup)
			r.Get("/", h.ListGroups)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetGroup)
				r.Patch("/", h.UpdateGroup)
				r.Delete("/", h.RemoveGroup)
				r.Post("/essential", h.MarkGroupEssential)
				r.Post("/activate", h.ActivateGroup)
				r.Post("/deactivate", h.DeactivateGroup)
				r.Get("/export", h.ExportGroup)

				r.Route("/members", func(r chi.Router) {
					r.Get("/", h.ListGroupMembers)
					r.Post("/", h.AttachGroupUsers)
					r.Delete("/", h.RemoveAllGroupUsers)
					r.Post("/detach", h.DetachGroupUsers)
					r.Post("/{userID}", h.AttachGroupUser)
					r.Delete("/{userID}", h.DetachGroupUser)
				})

				r.Route("/policies", func(r chi.Router) {
					r.Get("/", h.ListGroupPolicies)
					r.Post("/", h.AttachGroupPolicies)
					r.Delete("/", h.RemoveAllGroupPolicies)
					r.Post("/detach", h.DetachGroupPolicies)
					r.Post("/{policyID}", h.AttachGroupPolicy)
					r.Delete("/{policyID}", h.DetachGroupPolicy)
				})

				r.Route("/admins", func(r chi.Router) {
					r.Post("/{userID}", h.DelegateGroupAdmin)
					r.Delete("/{userID}", h.RevokeGroupAdmin)
				})
			})
		})

		r.Route("/roles", func(r chi.Router) {
			r.Post("/", h.CreateRole)
			r.Get("/", h.ListRoles)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRole)
				r.Patch("/", h.UpdateRole)
				r.Delete("/", h.RemoveRole)
				r.Get("/history", h.RoleHistory)

				r.Route("/policies", func(r chi.Router) {
					r.Get("/", h.ListRolePolicies)
					r.Post("/{policyID}", h.AttachRolePolicy)
					r.Delete("/{policyID}", h.DetachRolePolicy)
				})
			})
		})

		r.Route("/policies", func(r chi.Router) {
			r.Post("/", h.CreatePolicy)
			r.Get("/", h.ListPolicies)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetPolicy)
				r.Patch("/", h.UpdatePolicy)
				r.Delete("/", h.RemovePolicy)

				r.Route("/versions", func(r chi.Router) {
					r.Post("/", h.CreatePolicyVersion)
					r.Get("/", h.ListPolicyVersions)
					r.Put("/default", h.SetDefaultPolicyVersion)
				})
			})
		})
	})
}

// --- Wire views ---
//
// Snapshots are internal value types; the views below fix the JSON shape and
// keep secret hashes off the wire.

type accessKeyView struct {
	Key       string     `json:"key"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	ExpireAt  *time.Time `json:"expire_at,omitempty"`
}

type userView struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Status      string            `json:"status,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	MFAEnabled  bool              `json:"mfa_enabled"`
	LoginCount  int               `json:"login_count"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
	AccessKeys  []accessKeyView   `json:"access_keys"`
	Policies    []string          `json:"policies"`
	Roles       []string          `json:"roles"`
}

func toUserView(snap iam.UserSnapshot) userView {
	keys := make([]accessKeyView, 0, len(snap.AccessKeys))
	for _, k := range snap.AccessKeys {
		keys = append(keys, accessKeyView{
			Key:       k.Key,
			Active:    k.Active,
			CreatedAt: k.CreatedAt,
			ExpireAt:  k.ExpireAt,
		})
	}
	return userView{
		ID:          snap.ID,
		Name:        snap.Name,
		Email:       snap.Email,
		Phone:       snap.Phone,
		Status:      snap.Status,
		Metadata:    snap.Metadata,
		MFAEnabled:  snap.MFAEnabled,
		LoginCount:  snap.LoginCount,
		LastLoginAt: snap.LastLoginAt,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
		AccessKeys:  keys,
		Policies:    snap.Policies,
		Roles:       snap.Roles,
	}
}

func toUserViews(snaps []iam.UserSnapshot) []userView {
	views := make([]userView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, toUserView(snap))
	}
	return views
}

type groupView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Active      bool       `json:"active"`
	Essential   bool       `json:"essential"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Members     []string   `json:"members"`
	Admins      []string   `json:"admins"`
	Policies    []string   `json:"policies"`
}

func toGroupView(snap iam.GroupSnapshot) groupView {
	return groupView{
		ID:          snap.ID,
		Name:        snap.Name,
		Description: snap.Description,
		Active:      snap.Active,
		Essential:   snap.Essential,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
		Members:     snap.Members,
		Admins:      snap.Admins,
		Policies:    snap.Policies,
	}
}

func toGroupViews(snaps []iam.GroupSnapshot) []groupView {
	views := make([]groupView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, toGroupView(snap))
	}
	return views
}

type roleRevisionView struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type roleView struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   *time.Time         `json:"updated_at,omitempty"`
	Policies    []string           `json:"policies"`
	History     []roleRevisionView `json:"history"`
}

func toRoleRevisionViews(revs []iam.RoleRevision) []roleRevisionView {
	views := make([]roleRevisionView, 0, len(revs))
	for _, rev := range revs {
		views = append(views, roleRevisionView{
			Name:        rev.Name,
			Description: rev.Description,
			UpdatedAt:   rev.UpdatedAt,
		})
	}
	return views
}

func toRoleView(snap iam.RoleSnapshot) roleView {
	return roleView{
		ID:          snap.ID,
		Name:        snap.Name,
		Description: snap.Description,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
		Policies:    snap.Policies,
		History:     toRoleRevisionViews(snap.History),
	}
}

func toRoleViews(snaps []iam.RoleSnapshot) []roleView {
	views := make([]roleView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, toRoleView(snap))
	}
	return views
}

type policyVersionView struct {
	VersionID string             `json:"version_id"`
	Document  iam.PolicyDocument `json:"document"`
	CreatedAt time.Time          `json:"created_at"`
}

type policyView struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Description      string              `json:"description,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        *time.Time          `json:"updated_at,omitempty"`
	DefaultVersionID string              `json:"default_version_id"`
	Versions         []policyVersionView `json:"versions"`
}

func toPolicyVersionViews(vers []iam.PolicyVersion) []policyVersionView {
	views := make([]policyVersionView, 0, len(vers))
	for _, v := range vers {
		views = append(views, policyVersionView{
			VersionID: v.VersionID,
			Document:  v.Document,
			CreatedAt: v.CreatedAt,
		})
	}
	return views
}

func toPolicyView(snap iam.PolicySnapshot) policyView {
	return policyView{
		ID:               snap.ID,
		Name:             snap.Name,
		Description:      snap.Description,
		CreatedAt:        snap.CreatedAt,
		UpdatedAt:        snap.UpdatedAt,
		DefaultVersionID: snap.DefaultVersionID,
		Versions:         toPolicyVersionViews(snap.Versions),
	}
}

func toPolicyViews(snaps []iam.PolicySnapshot) []policyView {
	views := make([]policyView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, toPolicyView(snap))
	}
	return views
}
