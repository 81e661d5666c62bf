package iam

import (
	"sync"
	"time"
)

// RoleRegistry owns the role entities, keyed by id.
type RoleRegistry struct {
	mu    sync.Mutex
	roles map[string]*Role
}

// NewRoleRegistry constructs an empty registry.
func NewRoleRegistry() *RoleRegistry {
	return &RoleRegistry{roles: make(map[string]*Role)}
}

// Create registers a new role.
func (r *RoleRegistry) Create(id, name, description string) (RoleSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[id]; ok {
		return RoleSnapshot{}, ErrRoleExists
	}
	role := NewRole(id, name, description, time.Now())
	r.roles[id] = role
	return role.Snapshot(), nil
}

// GetByID returns the role snapshot, or false if the id is absent.
func (r *RoleRegistry) GetByID(id string) (RoleSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	role, ok := r.roles[id]
	if !ok {
		return RoleSnapshot{}, false
	}
	return role.Snapshot(), true
}

// List returns snapshots of all roles.
func (r *RoleRegistry) List() []RoleSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RoleSnapshot, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role.Snapshot())
	}
	return out
}

// Update applies a partial update, recording the pre-change state in the
// role's history log.
func (r *RoleRegistry) Update(id string, upd RoleUpdate) (RoleSnapshot, error) {
	return r.mutate(id, func(role *Role) error {
		role.Update(upd, time.Now())
		return nil
	})
}

// Remove deletes the role.
func (r *RoleRegistry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roles[id]; !ok {
		return ErrRoleNotFound
	}
	delete(r.roles, id)
	return nil
}

// AttachPolicy records a role→policy edge.
func (r *RoleRegistry) AttachPolicy(roleID, policyID string) (RoleSnapshot, error) {
	return r.mutate(roleID, func(role *Role) error {
		return role.AttachPolicy(policyID)
	})
}

// DetachPolicy removes a role→policy edge. Absence is a no-op.
func (r *RoleRegistry) DetachPolicy(roleID, policyID string) (RoleSnapshot, error) {
	return r.mutate(roleID, func(role *Role) error {
		role.DetachPolicy(policyID)
		return nil
	})
}

// ListPolicies returns the role's attached policy IDs.
func (r *RoleRegistry) ListPolicies(roleID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	role, ok := r.roles[roleID]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return role.AttachedPolicies(), nil
}

// History returns the role's revision log, oldest first.
func (r *RoleRegistry) History(roleID string) ([]RoleRevision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	role, ok := r.roles[roleID]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return role.History(), nil
}

// Import rehydrates a stored role.
func (r *RoleRegistry) Import(snap RoleSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	role := RestoreRole(snap)
	r.roles[role.ID] = role
}

func (r *RoleRegistry) mutate(id string, fn func(*Role) error) (RoleSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	role, ok := r.roles[id]
	if !ok {
		return RoleSnapshot{}, ErrRoleNotFound
	}
	if err := fn(role); err != nil {
		return RoleSnapshot{}, err
	}
	return role.Snapshot(), nil
}
