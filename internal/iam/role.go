package iam

import "time"

// RoleRevision is the pre-change snapshot recorded in a role's update
// history.
type RoleRevision struct {
	Name        string
	Description string
	UpdatedAt   time.Time
}

// Role is an assumable principal that carries policy attachments and an
// append-only log of its past name/description revisions.
type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   *time.Time

	policies idSet
	history  []RoleRevision
}

// NewRole constructs a role with an empty history.
func NewRole(id, name, description string, now time.Time) *Role {
	return &Role{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   now,
	}
}

// RoleUpdate carries the optional fields for Update.
type RoleUpdate struct {
	Name        *string
	Description *string
}

// Update appends the pre-change state to the history log before applying the
// present fields. The recorded UpdatedAt is the previous change's timestamp,
// or CreatedAt if the role was never updated.
func (r *Role) Update(upd RoleUpdate, now time.Time) {
	if upd.Name == nil && upd.Description == nil {
		return
	}

	at := r.CreatedAt
	if r.UpdatedAt != nil {
		at = *r.UpdatedAt
	}
	r.history = append(r.history, RoleRevision{
		Name:        r.Name,
		Description: r.Description,
		UpdatedAt:   at,
	})

	if upd.Name != nil {
		r.Name = *upd.Name
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	t := now
	r.UpdatedAt = &t
}

// AttachPolicy records a role→policy edge.
func (r *Role) AttachPolicy(policyID string) error {
	if !r.policies.attach(policyID) {
		return ErrPolicyAlreadyAttached
	}
	return nil
}

// DetachPolicy removes a role→policy edge. Absence is a no-op.
func (r *Role) DetachPolicy(policyID string) {
	r.policies.detach(policyID)
}

// AttachedPolicies returns the attached policy IDs in attachment order.
func (r *Role) AttachedPolicies() []string {
	return r.policies.values()
}

// History returns a snapshot of the revision log, oldest first.
func (r *Role) History() []RoleRevision {
	out := make([]RoleRevision, len(r.history))
	copy(out, r.history)
	return out
}

// RoleSnapshot is the persistence view of a role.
type RoleSnapshot struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   *time.Time

	Policies []string
	History  []RoleRevision
}

// Snapshot returns a full copy for persistence or outward exposure.
func (r *Role) Snapshot() RoleSnapshot {
	snap := RoleSnapshot{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		Policies:    r.policies.values(),
		History:     r.History(),
	}
	if r.UpdatedAt != nil {
		t := *r.UpdatedAt
		snap.UpdatedAt = &t
	}
	return snap
}

// RestoreRole rehydrates a role from storage.
func RestoreRole(snap RoleSnapshot) *Role {
	r := &Role{
		ID:          snap.ID,
		Name:        snap.Name,
		Description: snap.Description,
		CreatedAt:   snap.CreatedAt,
	}
	if snap.UpdatedAt != nil {
		t := *snap.UpdatedAt
		r.UpdatedAt = &t
	}
	r.policies.restore(snap.Policies)
	r.history = append(r.history, snap.History...)
	return r
}
