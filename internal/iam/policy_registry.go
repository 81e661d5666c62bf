package iam

import (
	"sync"
	"time"
)

// PolicyRegistry owns the policy entities, keyed by id. Version counters are
// owned per policy: ids restart at v1 for each policy rather than drawing
// from a process-wide sequence.
type PolicyRegistry struct {
	mu       sync.Mutex
	policies map[string]*Policy
}

// NewPolicyRegistry constructs an empty registry.
func NewPolicyRegistry() *PolicyRegistry {
	return &PolicyRegistry{policies: make(map[string]*Policy)}
}

// Create validates the document and registers a new policy whose initial
// version is the default.
func (r *PolicyRegistry) Create(id, name, description string, doc PolicyDocument) (PolicySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.policies[id]; ok {
		return PolicySnapshot{}, ErrPolicyExists
	}
	policy, err := NewPolicy(id, name, description, doc, time.Now())
	if err != nil {
		return PolicySnapshot{}, err
	}
	r.policies[id] = policy
	return policy.Snapshot(), nil
}

// GetByID returns the policy snapshot, or false if the id is absent.
func (r *PolicyRegistry) GetByID(id string) (PolicySnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	policy, ok := r.policies[id]
	if !ok {
		return PolicySnapshot{}, false
	}
	return policy.Snapshot(), true
}

// List returns snapshots of all policies.
func (r *PolicyRegistry) List() []PolicySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PolicySnapshot, 0, len(r.policies))
	for _, policy := range r.policies {
		out = append(out, policy.Snapshot())
	}
	return out
}

// Update applies a partial update. A document update appends a new version
// and repoints the default.
func (r *PolicyRegistry) Update(id string, upd PolicyUpdate) (PolicySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	policy, ok := r.policies[id]
	if !ok {
		return PolicySnapshot{}, ErrPolicyNotFound
	}
	if err := policy.Update(upd, time.Now()); err != nil {
		return PolicySnapshot{}, err
	}
	return policy.Snapshot(), nil
}

// Remove deletes the policy. Attachments held by principals are opaque IDs
// and are not cascaded here; that is the orchestration layer's concern.
func (r *PolicyRegistry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.policies[id]; !ok {
		return ErrPolicyNotFound
	}
	delete(r.policies, id)
	return nil
}

// CreateVersion appends a new version without changing the default pointer.
func (r *PolicyRegistry) CreateVersion(id string, doc PolicyDocument) (PolicyVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	policy, ok := r.policies[id]
	if !ok {
		return PolicyVersion{}, ErrPolicyNotFound
	}
	return policy.CreateVersion(doc, time.Now())
}

// ListVersions returns the policy's history in append order, oldest first.
func (r *PolicyRegistry) ListVersions(id string) ([]PolicyVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	policy, ok := r.policies[id]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	return policy.Versions(), nil
}

// SetDefaultVersion repoints the policy's default version.
func (r *PolicyRegistry) SetDefaultVersion(id, versionID string) (PolicySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	policy, ok := r.policies[id]
	if !ok {
		return PolicySnapshot{}, ErrPolicyNotFound
	}
	if err := policy.SetDefaultVersion(versionID); err != nil {
		return PolicySnapshot{}, err
	}
	return policy.Snapshot(), nil
}

// Import rehydrates a stored policy. Historical documents are not
// re-validated.
func (r *PolicyRegistry) Import(snap PolicySnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	policy, err := RestorePolicy(snap)
	if err != nil {
		return err
	}
	r.policies[policy.ID] = policy
	return nil
}
