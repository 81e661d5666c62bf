package iam

import (
	"strings"
	"sync"
	"time"
)

// GroupRegistry owns the group entities, keyed by id.
type GroupRegistry struct {
	mu     sync.Mutex
	groups map[string]*Group
}

// NewGroupRegistry constructs an empty registry.
func NewGroupRegistry() *GroupRegistry {
	return &GroupRegistry{groups: make(map[string]*Group)}
}

// Create registers a new group.
func (r *GroupRegistry) Create(id, name, description string) (GroupSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[id]; ok {
		return GroupSnapshot{}, ErrGroupExists
	}
	group := NewGroup(id, name, description, time.Now())
	r.groups[id] = group
	return group.Snapshot(), nil
}

// GetByID returns the group snapshot, or false if the id is absent.
func (r *GroupRegistry) GetByID(id string) (GroupSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[id]
	if !ok {
		return GroupSnapshot{}, false
	}
	return group.Snapshot(), true
}

// List returns snapshots of all groups.
func (r *GroupRegistry) List() []GroupSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]GroupSnapshot, 0, len(r.groups))
	for _, group := range r.groups {
		out = append(out, group.Snapshot())
	}
	return out
}

// Update applies a partial update.
func (r *GroupRegistry) Update(id string, upd GroupUpdate) (GroupSnapshot, error) {
	return r.mutate(id, func(g *Group) error {
		g.Update(upd, time.Now())
		return nil
	})
}

// Remove deletes the group. Essential groups cannot be removed; deletion is
// permitted from either activity state.
func (r *GroupRegistry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[id]
	if !ok {
		return ErrGroupNotFound
	}
	if group.Essential {
		return ErrGroupEssentialRemove
	}
	delete(r.groups, id)
	return nil
}

// MarkEssential flags the group so removal is blocked.
func (r *GroupRegistry) MarkEssential(id string) (GroupSnapshot, error) {
	return r.mutate(id, func(g *Group) error {
		g.Essential = true
		return nil
	})
}

// AttachUser records a membership edge.
func (r *GroupRegistry) AttachUser(groupID, userID string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		return g.AttachUser(userID)
	})
}

// DetachUser removes a membership edge. Absence is a no-op.
func (r *GroupRegistry) DetachUser(groupID, userID string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		g.DetachUser(userID)
		return nil
	})
}

// AttachUsers adds many members, silently skipping those already present.
func (r *GroupRegistry) AttachUsers(groupID string, userIDs []string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		g.AttachUsers(userIDs)
		return nil
	})
}

// DetachUsers removes many members, silently skipping absent ones.
func (r *GroupRegistry) DetachUsers(groupID string, userIDs []string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		g.DetachUsers(userIDs)
		return nil
	})
}

// RemoveAllUsers clears the membership set.
func (r *GroupRegistry) RemoveAllUsers(groupID string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		g.RemoveAllUsers()
		return nil
	})
}

// AttachPolicy records a group→policy edge.
func (r *GroupRegistry) AttachPolicy(groupID, policyID string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		return g.AttachPolicy(policyID)
	})
}

// DetachPolicy removes a group→policy edge. Absence is a no-op.
func (r *GroupRegistry) DetachPolicy(groupID, policyID string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		g.DetachPolicy(policyID)
		return nil
	})
}

// AttachPolicies adds many policies, silently skipping duplicates.
func (r *GroupRegistry) AttachPolicies(groupID string, policyIDs []string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		g.AttachPolicies(policyIDs)
		return nil
	})
}

// DetachPolicies removes many policies, silently skipping absent ones.
func (r *GroupRegistry) DetachPolicies(groupID string, policyIDs []string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		g.DetachPolicies(policyIDs)
		return nil
	})
}

// RemoveAllPolicies clears the group's policy attachments.
func (r *GroupRegistry) RemoveAllPolicies(groupID string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		g.RemoveAllPolicies()
		return nil
	})
}

// ListMembers returns the group's member user IDs.
func (r *GroupRegistry) ListMembers(groupID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return group.Members(), nil
}

// ListPolicies returns the group's attached policy IDs.
func (r *GroupRegistry) ListPolicies(groupID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return group.AttachedPolicies(), nil
}

// ListUserGroups returns every group the user is a member of.
func (r *GroupRegistry) ListUserGroups(userID string) []GroupSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []GroupSnapshot
	for _, group := range r.groups {
		if group.HasUser(userID) {
			out = append(out, group.Snapshot())
		}
	}
	return out
}

// Search returns groups whose name or description contains the query.
func (r *GroupRegistry) Search(query string) []GroupSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []GroupSnapshot
	for _, group := range r.groups {
		if strings.Contains(group.Name, query) || strings.Contains(group.Description, query) {
			out = append(out, group.Snapshot())
		}
	}
	return out
}

// ListWithoutMembers returns groups that have no members.
func (r *GroupRegistry) ListWithoutMembers() []GroupSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []GroupSnapshot
	for _, group := range r.groups {
		if group.MemberCount() == 0 {
			out = append(out, group.Snapshot())
		}
	}
	return out
}

// ListWithoutPolicies returns groups that have no attached policies.
func (r *GroupRegistry) ListWithoutPolicies() []GroupSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []GroupSnapshot
	for _, group := range r.groups {
		if group.PolicyCount() == 0 {
			out = append(out, group.Snapshot())
		}
	}
	return out
}

// Deactivate moves the group to the inactive state.
func (r *GroupRegistry) Deactivate(id string) (GroupSnapshot, error) {
	return r.mutate(id, func(g *Group) error {
		g.Deactivate()
		return nil
	})
}

// Activate moves the group back to the active state.
func (r *GroupRegistry) Activate(id string) (GroupSnapshot, error) {
	return r.mutate(id, func(g *Group) error {
		g.Activate()
		return nil
	})
}

// DelegateAdmin grants group administration to a user.
func (r *GroupRegistry) DelegateAdmin(groupID, userID string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		g.DelegateAdmin(userID)
		return nil
	})
}

// RevokeAdmin removes group administration from a user.
func (r *GroupRegistry) RevokeAdmin(groupID, userID string) (GroupSnapshot, error) {
	return r.mutate(groupID, func(g *Group) error {
		g.RevokeAdmin(userID)
		return nil
	})
}

// Export returns the group snapshot for persistence.
func (r *GroupRegistry) Export(id string) (GroupSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[id]
	if !ok {
		return GroupSnapshot{}, ErrGroupNotFound
	}
	return group.Snapshot(), nil
}

// Import rehydrates a stored group.
func (r *GroupRegistry) Import(snap GroupSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group := RestoreGroup(snap)
	r.groups[group.ID] = group
}

func (r *GroupRegistry) mutate(id string, fn func(*Group) error) (GroupSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[id]
	if !ok {
		return GroupSnapshot{}, ErrGroupNotFound
	}
	if err := fn(group); err != nil {
		return GroupSnapshot{}, err
	}
	return group.Snapshot(), nil
}
