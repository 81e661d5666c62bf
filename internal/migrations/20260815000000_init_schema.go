package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/stackbound/aegis/internal/db/models"
)

func init() {
	Migrations.MustRegister(up_20260815000000, down_20260815000000)
}

// up_20260815000000 initializes the full identity schema
func up_20260815000000(ctx context.Context, db *bun.DB) error {
	// 1. Create users table
	fmt.Print(" [up] creating users table...")
	_, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	_, err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_name ON users(name)`)
	if err != nil {
		return fmt.Errorf("failed to create unique index on users(name): %w", err)
	}
	fmt.Println(" OK")

	// 2. Create groups table
	fmt.Print(" [up] creating groups table...")
	_, err = db.NewCreateTable().
		Model((*models.Group)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create groups table: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_groups_name ON groups(name)`)
	if err != nil {
		return fmt.Errorf("failed to create index on groups(name): %w", err)
	}
	fmt.Println(" OK")

	// 3. Create roles table
	fmt.Print(" [up] creating roles table...")
	_, err = db.NewCreateTable().
		Model((*models.Role)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create roles table: %w", err)
	}
	fmt.Println(" OK")

	// 4. Create policies table
	fmt.Print(" [up] creating policies table...")
	_, err = db.NewCreateTable().
		Model((*models.Policy)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create policies table: %w", err)
	}
	fmt.Println(" OK")

	// 5. Create policy_versions table
	fmt.Print(" [up] creating policy_versions table...")
	q := db.NewCreateTable().
		Model((*models.PolicyVersion)(nil)).
		IfNotExists()

	// For SQLite, define FKs during table creation
	if IsSQLite(db) {
		q = q.ForeignKey(`(policy_id) REFERENCES policies(id) ON DELETE CASCADE`)
	}
	_, err = q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create policy_versions table: %w", err)
	}
	if IsPostgreSQL(db) {
		_, err = db.Exec(`
			ALTER TABLE policy_versions
			ADD CONSTRAINT fk_policy_versions_policy
			FOREIGN KEY (policy_id) REFERENCES policies(id) ON DELETE CASCADE
		`)
		if err != nil {
			return fmt.Errorf("failed to add policy_versions foreign key: %w", err)
		}
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_policy_versions_policy ON policy_versions(policy_id)`)
	if err != nil {
		return fmt.Errorf("failed to create index on policy_versions(policy_id): %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20260815000000 drops the identity schema
func down_20260815000000(ctx context.Context, db *bun.DB) error {
	for _, table := range []string{"policy_versions", "policies", "roles", "groups", "users"} {
		fmt.Printf(" [down] dropping %s table...", table)
		if _, err := db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
			return fmt.Errorf("failed to drop %s table: %w", table, err)
		}
		fmt.Println(" OK")
	}
	return nil
}
