package repository

import (
	"context"

	"github.com/stackbound/aegis/internal/iam"
)

// UserRepository exposes persistence operations for user snapshots.
type UserRepository interface {
	Save(ctx context.Context, snap iam.UserSnapshot) error
	GetByID(ctx context.Context, id string) (iam.UserSnapshot, error)
	List(ctx context.Context) ([]iam.UserSnapshot, error)
	Delete(ctx context.Context, id string) error
}

// GroupRepository exposes persistence operations for group snapshots.
type GroupRepository interface {
	Save(ctx context.Context, snap iam.GroupSnapshot) error
	GetByID(ctx context.Context, id string) (iam.GroupSnapshot, error)
	List(ctx context.Context) ([]iam.GroupSnapshot, error)
	Delete(ctx context.Context, id string) error
}

// RoleRepository exposes persistence operations for role snapshots.
type RoleRepository interface {
	Save(ctx context.Context, snap iam.RoleSnapshot) error
	GetByID(ctx context.Context, id string) (iam.RoleSnapshot, error)
	List(ctx context.Context) ([]iam.RoleSnapshot, error)
	Delete(ctx context.Context, id string) error
}

// PolicyRepository exposes persistence operations for policy snapshots.
// Version rows are append-only: Save inserts versions the store has not seen
// and never rewrites existing ones.
type PolicyRepository interface {
	Save(ctx context.Context, snap iam.PolicySnapshot) error
	GetByID(ctx context.Context, id string) (iam.PolicySnapshot, error)
	List(ctx context.Context) ([]iam.PolicySnapshot, error)
	Delete(ctx context.Context, id string) error
}

// Store bundles the four repositories behind one handle.
type Store struct {
	Users    UserRepository
	Groups   GroupRepository
	Roles    RoleRepository
	Policies PolicyRepository
}
