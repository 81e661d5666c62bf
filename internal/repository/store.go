package repository

import "github.com/uptrace/bun"

// NewBunStore wires all four repositories onto one database handle.
func NewBunStore(db *bun.DB) *Store {
	return &Store{
		Users:    NewBunUserRepository(db),
		Groups:   NewBunGroupRepository(db),
		Roles:    NewBunRoleRepository(db),
		Policies: NewBunPolicyRepository(db),
	}
}
