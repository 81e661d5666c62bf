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

// BunGroupRepository implements GroupRepository using Bun ORM
type BunGroupRepository struct {
	db *bun.DB
}

// NewBunGroupRepository creates a new Bun-based group repository
func NewBunGroupRepository(db *bun.DB) *BunGroupRepository {
	return &BunGroupRepository{db: db}
}

// Save upserts the full group snapshot.
func (r *BunGroupRepository) Save(ctx context.Context, snap iam.GroupSnapshot) error {
	group := toGroupModel(snap)
	_, err := r.db.NewInsert().
		Model(group).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("active = EXCLUDED.active").
		Set("essential = EXCLUDED.essential").
		Set("members = EXCLUDED.members").
		Set("admins = EXCLUDED.admins").
		Set("policies = EXCLUDED.policies").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save group: %w", err)
	}
	return nil
}

// GetByID retrieves a group snapshot by ID
func (r *BunGroupRepository) GetByID(ctx context.Context, id string) (iam.GroupSnapshot, error) {
	group := new(models.Group)
	err := r.db.NewSelect().
		Model(group).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return iam.GroupSnapshot{}, iam.ErrGroupNotFound
		}
		return iam.GroupSnapshot{}, fmt.Errorf("get group by ID: %w", err)
	}
	return fromGroupModel(group), nil
}

// List retrieves all group snapshots
func (r *BunGroupRepository) List(ctx context.Context) ([]iam.GroupSnapshot, error) {
	var groups []models.Group
	err := r.db.NewSelect().
		Model(&groups).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	out := make([]iam.GroupSnapshot, 0, len(groups))
	for i := range groups {
		out = append(out, fromGroupModel(&groups[i]))
	}
	return out, nil
}

// Delete removes a group by ID
func (r *BunGroupRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Group)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return iam.ErrGroupNotFound
	}
	return nil
}
