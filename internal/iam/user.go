package iam

import (
	"regexp"
	"time"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidEmail reports whether addr looks like an email address.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// User is a human principal. It owns its policy and role attachments (as
// opaque IDs) and its access key set.
type User struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	Status      string
	Metadata    map[string]string
	MFAEnabled  bool
	LoginCount  int
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   *time.Time

	keys     KeySet
	policies idSet
	roles    idSet
}

// UserParams carries the caller-supplied attributes for NewUser.
type UserParams struct {
	ID       string
	Name     string
	Email    string
	Phone    string
	Status   string
	Metadata map[string]string
}

// NewUser validates the email and constructs a user.
func NewUser(params UserParams, now time.Time) (*User, error) {
	if !ValidEmail(params.Email) {
		return nil, ErrInvalidEmail
	}
	return &User{
		ID:        params.ID,
		Name:      params.Name,
		Email:     params.Email,
		Phone:     params.Phone,
		Status:    params.Status,
		Metadata:  cloneMetadata(params.Metadata),
		CreatedAt: now,
	}, nil
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// UserUpdate carries the optional fields for Update. Nil pointers leave the
// corresponding attribute untouched.
type UserUpdate struct {
	Name     *string
	Email    *string
	Phone    *string
	Status   *string
	Metadata map[string]string
}

// Update applies the present fields. An invalid email fails before any field
// is touched. UpdatedAt is touched iff any field was provided.
func (u *User) Update(upd UserUpdate, now time.Time) error {
	if upd.Email != nil && !ValidEmail(*upd.Email) {
		return ErrInvalidEmail
	}

	updated := false
	if upd.Email != nil {
		u.Email = *upd.Email
		updated = true
	}
	if upd.Name != nil {
		u.Name = *upd.Name
		updated = true
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
		updated = true
	}
	if upd.Status != nil {
		u.Status = *upd.Status
		updated = true
	}
	if upd.Metadata != nil {
		u.Metadata = cloneMetadata(upd.Metadata)
		updated = true
	}
	if updated {
		t := now
		u.UpdatedAt = &t
	}
	return nil
}

// RegisterLogin records a successful login.
func (u *User) RegisterLogin(now time.Time) {
	t := now
	u.LastLoginAt = &t
	u.LoginCount++
}

// EnableMFA turns on multi-factor authentication for the user.
func (u *User) EnableMFA() { u.MFAEnabled = true }

// DisableMFA turns off multi-factor authentication for the user.
func (u *User) DisableMFA() { u.MFAEnabled = false }

// AttachPolicy records a user→policy edge.
func (u *User) AttachPolicy(policyID string) error {
	if !u.policies.attach(policyID) {
		return ErrPolicyAlreadyAttached
	}
	return nil
}

// DetachPolicy removes a user→policy edge. Absence is a no-op.
func (u *User) DetachPolicy(policyID string) {
	u.policies.detach(policyID)
}

// AttachedPolicies returns the attached policy IDs in attachment order.
func (u *User) AttachedPolicies() []string {
	return u.policies.values()
}

// AttachRole records a user→role edge.
func (u *User) AttachRole(roleID string) error {
	if !u.roles.attach(roleID) {
		return ErrRoleAlreadyAttached
	}
	return nil
}

// DetachRole removes a user→role edge. Absence is a no-op.
func (u *User) DetachRole(roleID string) {
	u.roles.detach(roleID)
}

// Roles returns the attached role IDs in attachment order.
func (u *User) Roles() []string {
	return u.roles.values()
}

// Keys exposes the user's credential set.
func (u *User) Keys() *KeySet {
	return &u.keys
}

// UserSnapshot is the persistence view of a user.
type UserSnapshot struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	Status      string
	Metadata    map[string]string
	MFAEnabled  bool
	LoginCount  int
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   *time.Time

	AccessKeys []AccessKey
	Policies   []string
	Roles      []string
}

// Snapshot returns a full copy for persistence or outward exposure.
func (u *User) Snapshot() UserSnapshot {
	snap := UserSnapshot{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Phone:      u.Phone,
		Status:     u.Status,
		Metadata:   cloneMetadata(u.Metadata),
		MFAEnabled: u.MFAEnabled,
		LoginCount: u.LoginCount,
		CreatedAt:  u.CreatedAt,
		AccessKeys: u.keys.Snapshot(),
		Policies:   u.policies.values(),
		Roles:      u.roles.values(),
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		snap.LastLoginAt = &t
	}
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		snap.UpdatedAt = &t
	}
	return snap
}

// RestoreUser rehydrates a user from storage. Attribute validation happened
// at the original write and is not repeated; access key format is the one
// exception and is always re-checked.
func RestoreUser(snap UserSnapshot) (*User, error) {
	u := &User{
		ID:         snap.ID,
		Name:       snap.Name,
		Email:      snap.Email,
		Phone:      snap.Phone,
		Status:     snap.Status,
		Metadata:   cloneMetadata(snap.Metadata),
		MFAEnabled: snap.MFAEnabled,
		LoginCount: snap.LoginCount,
		CreatedAt:  snap.CreatedAt,
	}
	if snap.LastLoginAt != nil {
		t := *snap.LastLoginAt
		u.LastLoginAt = &t
	}
	if snap.UpdatedAt != nil {
		t := *snap.UpdatedAt
		u.UpdatedAt = &t
	}
	if err := u.keys.Restore(snap.AccessKeys); err != nil {
		return nil, err
	}
	u.policies.restore(snap.Policies)
	u.roles.restore(snap.Roles)
	return u, nil
}
