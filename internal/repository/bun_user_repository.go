package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/stackbound/aegis/internal/db/models"
	"github.com/stackbound/aegis/internal/iam"
)

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Save upserts the full user snapshot.
func (r *BunUserRepository) Save(ctx context.Context, snap iam.UserSnapshot) error {
	user := toUserModel(snap)
	if err := user.ValidateForCreate(); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	_, err := r.db.NewInsert().
		Model(user).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Set("phone = EXCLUDED.phone").
		Set("status = EXCLUDED.status").
		Set("metadata = EXCLUDED.metadata").
		Set("mfa_enabled = EXCLUDED.mfa_enabled").
		Set("login_count = EXCLUDED.login_count").
		Set("last_login_at = EXCLUDED.last_login_at").
		Set("access_keys = EXCLUDED.access_keys").
		Set("policies = EXCLUDED.policies").
		Set("roles = EXCLUDED.roles").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// GetByID retrieves a user snapshot by ID
func (r *BunUserRepository) GetByID(ctx context.Context, id string) (iam.UserSnapshot, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return iam.UserSnapshot{}, iam.ErrUserNotFound
		}
		return iam.UserSnapshot{}, fmt.Errorf("get user by ID: %w", err)
	}
	return fromUserModel(user), nil
}

// List retrieves all user snapshots
func (r *BunUserRepository) List(ctx context.Context) ([]iam.UserSnapshot, error) {
	var users []models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]iam.UserSnapshot, 0, len(users))
	for i := range users {
		out = append(out, fromUserModel(&users[i]))
	}
	return out, nil
}

// Delete removes a user by ID
func (r *BunUserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return iam.ErrUserNotFound
	}
	return nil
}
