package iam

import (
	"sync"
	"time"
)

// UserRegistry owns the user entities. The id map and the username
// uniqueness index are updated under one mutex so concurrent creations
// cannot both observe an absent name and both succeed.
//
// All operations return value snapshots; internal state is never reachable
// through a returned collection.
type UserRegistry struct {
	mu    sync.Mutex
	users map[string]*User
	names map[string]string // username -> user id
}

// NewUserRegistry constructs an empty registry.
func NewUserRegistry() *UserRegistry {
	return &UserRegistry{
		users: make(map[string]*User),
		names: make(map[string]string),
	}
}

// Create registers a new user. Fails if the id or the username is taken.
func (r *UserRegistry) Create(params UserParams) (UserSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[params.ID]; ok {
		return UserSnapshot{}, ErrUserExists
	}
	if _, ok := r.names[params.Name]; ok {
		return UserSnapshot{}, ErrUsernameExists
	}

	user, err := NewUser(params, time.Now())
	if err != nil {
		return UserSnapshot{}, err
	}
	r.users[user.ID] = user
	r.names[user.Name] = user.ID
	return user.Snapshot(), nil
}

// GetByID returns the user snapshot, or false if the id is absent.
func (r *UserRegistry) GetByID(id string) (UserSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return UserSnapshot{}, false
	}
	return user.Snapshot(), true
}

// List returns snapshots of all users.
func (r *UserRegistry) List() []UserSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]UserSnapshot, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user.Snapshot())
	}
	return out
}

// Exists reports whether a username is taken.
func (r *UserRegistry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.names[name]
	return ok
}

// Update applies a partial update. A name change re-checks username
// uniqueness and maintains the index.
func (r *UserRegistry) Update(id string, upd UserUpdate) (UserSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return UserSnapshot{}, ErrUserNotFound
	}
	if upd.Name != nil && *upd.Name != user.Name {
		if _, taken := r.names[*upd.Name]; taken {
			return UserSnapshot{}, ErrUsernameExists
		}
	}

	oldName := user.Name
	if err := user.Update(upd, time.Now()); err != nil {
		return UserSnapshot{}, err
	}
	if user.Name != oldName {
		delete(r.names, oldName)
		r.names[user.Name] = user.ID
	}
	return user.Snapshot(), nil
}

// Remove deletes the user and releases its username.
func (r *UserRegistry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.names, user.Name)
	delete(r.users, id)
	return nil
}

// RegisterLogin records a successful login for the user.
func (r *UserRegistry) RegisterLogin(id string) (UserSnapshot, error) {
	return r.mutate(id, func(u *User) error {
		u.RegisterLogin(time.Now())
		return nil
	})
}

// EnableMFA turns on multi-factor authentication for the user.
func (r *UserRegistry) EnableMFA(id string) (UserSnapshot, error) {
	return r.mutate(id, func(u *User) error {
		u.EnableMFA()
		return nil
	})
}

// DisableMFA turns off multi-factor authentication for the user.
func (r *UserRegistry) DisableMFA(id string) (UserSnapshot, error) {
	return r.mutate(id, func(u *User) error {
		u.DisableMFA()
		return nil
	})
}

// AddAccessKey creates a new access key for the user and returns the
// generated plaintext secret alongside the updated snapshot. The secret is
// not retained.
func (r *UserRegistry) AddAccessKey(id, key string) (UserSnapshot, string, error) {
	var secret string
	snap, err := r.mutate(id, func(u *User) error {
		var err error
		secret, err = u.Keys().Add(key, time.Now())
		return err
	})
	return snap, secret, err
}

// RemoveAccessKey deletes the key by value. An absent key is a no-op.
func (r *UserRegistry) RemoveAccessKey(id, key string) (UserSnapshot, error) {
	return r.mutate(id, func(u *User) error {
		u.Keys().Remove(key)
		return nil
	})
}

// DisableAccessKey deactivates the key. An absent key is a no-op.
func (r *UserRegistry) DisableAccessKey(id, key string) (UserSnapshot, error) {
	return r.mutate(id, func(u *User) error {
		u.Keys().Disable(key)
		return nil
	})
}

// SetAccessKeyExpiration sets the expiry on the key. An absent key is a
// no-op.
func (r *UserRegistry) SetAccessKeyExpiration(id, key string, expireAt time.Time) (UserSnapshot, error) {
	return r.mutate(id, func(u *User) error {
		u.Keys().SetExpiration(key, expireAt)
		return nil
	})
}

// RotateAccessKey disables oldKey and adds newKey, returning the new
// plaintext secret. Fails at the key ceiling: disabling does not free a
// slot.
func (r *UserRegistry) RotateAccessKey(id, oldKey, newKey string) (UserSnapshot, string, error) {
	var secret string
	snap, err := r.mutate(id, func(u *User) error {
		var err error
		secret, err = u.Keys().Rotate(oldKey, newKey, time.Now())
		return err
	})
	return snap, secret, err
}

// IsAccessKeyValid reports point-in-time validity of the key. An absent key
// is invalid, not an error.
func (r *UserRegistry) IsAccessKeyValid(id, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return false, ErrUserNotFound
	}
	return user.Keys().ValidAt(key, time.Now()), nil
}

// VerifyAccessKeySecret compares a presented secret against the stored hash.
func (r *UserRegistry) VerifyAccessKeySecret(id, key, secret string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return false, ErrUserNotFound
	}
	return user.Keys().VerifySecret(key, secret), nil
}

// AccessKeyStatus returns the user's keys in insertion order.
func (r *UserRegistry) AccessKeyStatus(id string) ([]KeyStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.Keys().Status(), nil
}

// AttachPolicy records a user→policy edge.
func (r *UserRegistry) AttachPolicy(id, policyID string) (UserSnapshot, error) {
	return r.mutate(id, func(u *User) error {
		return u.AttachPolicy(policyID)
	})
}

// DetachPolicy removes a user→policy edge. Absence is a no-op.
func (r *UserRegistry) DetachPolicy(id, policyID string) (UserSnapshot, error) {
	return r.mutate(id, func(u *User) error {
		u.DetachPolicy(policyID)
		return nil
	})
}

// ListAttachedPolicies returns the user's attached policy IDs.
func (r *UserRegistry) ListAttachedPolicies(id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.AttachedPolicies(), nil
}

// AttachRole records a user→role edge.
func (r *UserRegistry) AttachRole(id, roleID string) (UserSnapshot, error) {
	return r.mutate(id, func(u *User) error {
		return u.AttachRole(roleID)
	})
}

// DetachRole removes a user→role edge. Absence is a no-op.
func (r *UserRegistry) DetachRole(id, roleID string) (UserSnapshot, error) {
	return r.mutate(id, func(u *User) error {
		u.DetachRole(roleID)
		return nil
	})
}

// ListRoles returns the user's attached role IDs.
func (r *UserRegistry) ListRoles(id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.Roles(), nil
}

// Import rehydrates a stored user. Storage is authoritative: no attribute
// re-validation beyond access key format, and the username index is rebuilt
// from the snapshot.
func (r *UserRegistry) Import(snap UserSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, err := RestoreUser(snap)
	if err != nil {
		return err
	}
	r.users[user.ID] = user
	r.names[user.Name] = user.ID
	return nil
}

// mutate runs fn on the user under the registry lock and returns the
// post-mutation snapshot.
func (r *UserRegistry) mutate(id string, fn func(*User) error) (UserSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return UserSnapshot{}, ErrUserNotFound
	}
	if err := fn(user); err != nil {
		return UserSnapshot{}, err
	}
	return user.Snapshot(), nil
}
