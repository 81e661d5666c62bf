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

// BunRoleRepository implements RoleRepository using Bun ORM
type BunRoleRepository struct {
	db *bun.DB
}

// NewBunRoleRepository creates a new Bun-based role repository
func NewBunRoleRepository(db *bun.DB) *BunRoleRepository {
	return &BunRoleRepository{db: db}
}

// Save upserts the full role snapshot, revision log included.
func (r *BunRoleRepository) Save(ctx context.Context, snap iam.RoleSnapshot) error {
	role := toRoleModel(snap)
	_, err := r.db.NewInsert().
		Model(role).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("policies = EXCLUDED.policies").
		Set("history = EXCLUDED.history").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save role: %w", err)
	}
	return nil
}

// GetByID retrieves a role snapshot by ID
func (r *BunRoleRepository) GetByID(ctx context.Context, id string) (iam.RoleSnapshot, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return iam.RoleSnapshot{}, iam.ErrRoleNotFound
		}
		return iam.RoleSnapshot{}, fmt.Errorf("get role by ID: %w", err)
	}
	return fromRoleModel(role), nil
}

// List retrieves all role snapshots
func (r *BunRoleRepository) List(ctx context.Context) ([]iam.RoleSnapshot, error) {
	var roles []models.Role
	err := r.db.NewSelect().
		Model(&roles).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	out := make([]iam.RoleSnapshot, 0, len(roles))
	for i := range roles {
		out = append(out, fromRoleModel(&roles[i]))
	}
	return out, nil
}

// Delete removes a role by ID
func (r *BunRoleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Role)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return iam.ErrRoleNotFound
	}
	return nil
}
