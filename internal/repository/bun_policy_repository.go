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

// BunPolicyRepository implements PolicyRepository using Bun ORM
type BunPolicyRepository struct {
	db *bun.DB
}

// NewBunPolicyRepository creates a new Bun-based policy repository
func NewBunPolicyRepository(db *bun.DB) *BunPolicyRepository {
	return &BunPolicyRepository{db: db}
}

// Save upserts the policy head and inserts any version rows not yet stored.
// Existing version rows are never touched: the history is append-only.
func (r *BunPolicyRepository) Save(ctx context.Context, snap iam.PolicySnapshot) error {
	head, versions := toPolicyModel(snap)

	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(head).
			On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("description = EXCLUDED.description").
			Set("default_version_id = EXCLUDED.default_version_id").
			Set("document = EXCLUDED.document").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("save policy: %w", err)
		}

		if len(versions) > 0 {
			_, err = tx.NewInsert().
				Model(&versions).
				On("CONFLICT (policy_id, version_id) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("save policy versions: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a policy snapshot with its full version history
func (r *BunPolicyRepository) GetByID(ctx context.Context, id string) (iam.PolicySnapshot, error) {
	policy := new(models.Policy)
	err := r.db.NewSelect().
		Model(policy).
		Relation("Versions").
		Where("p.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return iam.PolicySnapshot{}, iam.ErrPolicyNotFound
		}
		return iam.PolicySnapshot{}, fmt.Errorf("get policy by ID: %w", err)
	}
	return fromPolicyModel(policy), nil
}

// List retrieves all policy snapshots with version histories
func (r *BunPolicyRepository) List(ctx context.Context) ([]iam.PolicySnapshot, error) {
	var policies []models.Policy
	err := r.db.NewSelect().
		Model(&policies).
		Relation("Versions").
		Order("p.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	out := make([]iam.PolicySnapshot, 0, len(policies))
	for i := range policies {
		out = append(out, fromPolicyModel(&policies[i]))
	}
	return out, nil
}

// Delete removes a policy and its version rows (cascade)
func (r *BunPolicyRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Policy)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete policy: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return iam.ErrPolicyNotFound
	}
	return nil
}
