package iam

import "time"

// Group is a principal collection. It owns three edge sets: members, admins,
// and attached policies, all held as opaque IDs. Groups carry a two-state
// machine (active/inactive) and an essential flag that blocks removal.
type Group struct {
	ID          string
	Name        string
	Description string
	Active      bool
	Essential   bool
	CreatedAt   time.Time
	UpdatedAt   *time.Time

	members  idSet
	admins   idSet
	policies idSet
}

// NewGroup constructs an active, non-essential group.
func NewGroup(id, name, description string, now time.Time) *Group {
	return &Group{
		ID:          id,
		Name:        name,
		Description: description,
		Active:      true,
		CreatedAt:   now,
	}
}

// GroupUpdate carries the optional fields for Update.
type GroupUpdate struct {
	Name        *string
	Description *string
}

// Update applies the present fields. UpdatedAt is touched iff any field was
// provided.
func (g *Group) Update(upd GroupUpdate, now time.Time) {
	updated := false
	if upd.Name != nil {
		g.Name = *upd.Name
		updated = true
	}
	if upd.Description != nil {
		g.Description = *upd.Description
		updated = true
	}
	if updated {
		t := now
		g.UpdatedAt = &t
	}
}

// AttachUser records a group→user membership edge.
func (g *Group) AttachUser(userID string) error {
	if !g.members.attach(userID) {
		return ErrUserAlreadyInGroup
	}
	return nil
}

// DetachUser removes a membership edge. Absence is a no-op.
func (g *Group) DetachUser(userID string) {
	g.members.detach(userID)
}

// AttachUsers adds many members, silently skipping those already present.
func (g *Group) AttachUsers(userIDs []string) {
	g.members.attachAll(userIDs)
}

// DetachUsers removes many members, silently skipping absent ones.
func (g *Group) DetachUsers(userIDs []string) {
	g.members.detachAll(userIDs)
}

// RemoveAllUsers clears the membership set.
func (g *Group) RemoveAllUsers() {
	g.members.removeAll()
}

// HasUser reports membership.
func (g *Group) HasUser(userID string) bool {
	return g.members.contains(userID)
}

// Members returns the member user IDs in attachment order.
func (g *Group) Members() []string {
	return g.members.values()
}

// MemberCount returns the number of members.
func (g *Group) MemberCount() int {
	return g.members.len()
}

// AttachPolicy records a group→policy edge.
func (g *Group) AttachPolicy(policyID string) error {
	if !g.policies.attach(policyID) {
		return ErrPolicyAlreadyAttached
	}
	return nil
}

// DetachPolicy removes a group→policy edge. Absence is a no-op.
func (g *Group) DetachPolicy(policyID string) {
	g.policies.detach(policyID)
}

// AttachPolicies adds many policies, silently skipping duplicates.
func (g *Group) AttachPolicies(policyIDs []string) {
	g.policies.attachAll(policyIDs)
}

// DetachPolicies removes many policies, silently skipping absent ones.
func (g *Group) DetachPolicies(policyIDs []string) {
	g.policies.detachAll(policyIDs)
}

// RemoveAllPolicies clears the policy attachments.
func (g *Group) RemoveAllPolicies() {
	g.policies.removeAll()
}

// AttachedPolicies returns the attached policy IDs in attachment order.
func (g *Group) AttachedPolicies() []string {
	return g.policies.values()
}

// PolicyCount returns the number of attached policies.
func (g *Group) PolicyCount() int {
	return g.policies.len()
}

// Deactivate moves the group to the inactive state.
func (g *Group) Deactivate() { g.Active = false }

// Activate moves the group back to the active state.
func (g *Group) Activate() { g.Active = true }

// DelegateAdmin grants group administration to a user. Already-admin is a
// silent no-op.
func (g *Group) DelegateAdmin(userID string) {
	g.admins.attachAll([]string{userID})
}

// RevokeAdmin removes group administration from a user. Absence is a no-op.
func (g *Group) RevokeAdmin(userID string) {
	g.admins.detach(userID)
}

// Admins returns the admin user IDs in delegation order.
func (g *Group) Admins() []string {
	return g.admins.values()
}

// GroupSnapshot is the persistence view of a group.
type GroupSnapshot struct {
	ID          string
	Name        string
	Description string
	Active      bool
	Essential   bool
	CreatedAt   time.Time
	UpdatedAt   *time.Time

	Members  []string
	Admins   []string
	Policies []string
}

// Snapshot returns a full copy for persistence or outward exposure.
func (g *Group) Snapshot() GroupSnapshot {
	snap := GroupSnapshot{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Active:      g.Active,
		Essential:   g.Essential,
		CreatedAt:   g.CreatedAt,
		Members:     g.members.values(),
		Admins:      g.admins.values(),
		Policies:    g.policies.values(),
	}
	if g.UpdatedAt != nil {
		t := *g.UpdatedAt
		snap.UpdatedAt = &t
	}
	return snap
}

// RestoreGroup rehydrates a group from storage.
func RestoreGroup(snap GroupSnapshot) *Group {
	g := &Group{
		ID:          snap.ID,
		Name:        snap.Name,
		Description: snap.Description,
		Active:      snap.Active,
		Essential:   snap.Essential,
		CreatedAt:   snap.CreatedAt,
	}
	if snap.UpdatedAt != nil {
		t := *snap.UpdatedAt
		g.UpdatedAt = &t
	}
	g.members.restore(snap.Members)
	g.admins.restore(snap.Admins)
	g.policies.restore(snap.Policies)
	return g
}
