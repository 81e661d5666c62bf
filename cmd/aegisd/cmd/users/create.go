package users

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/stackbound/aegis/internal/config"
	"github.com/stackbound/aegis/internal/db/bunx"
	"github.com/stackbound/aegis/internal/iam"
	"github.com/stackbound/aegis/internal/migrations"
	"github.com/stackbound/aegis/internal/repository"
	"github.com/stackbound/aegis/internal/services/identity"
)

var (
	usernameFlag string
	emailFlag    string
	phoneFlag    string
	withKeyFlag  bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate required flags
		if usernameFlag == "" {
			return fmt.Errorf("--username flag is required")
		}
		if emailFlag == "" {
			return fmt.Errorf("--email flag is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		db, err := bunx.NewDB(cfg.DatabaseURL, bunx.Options{MaxOpenConns: cfg.MaxDBConnections})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		ctx := context.Background()

		migrator := migrate.NewMigrator(db, migrations.Migrations)
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize migrator: %w", err)
		}
		if _, err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		svc := identity.NewService(repository.NewBunStore(db))
		if err := svc.Load(ctx); err != nil {
			return fmt.Errorf("failed to load identity state: %w", err)
		}

		snap, err := svc.CreateUser(ctx, iam.UserParams{
			Name:  usernameFlag,
			Email: emailFlag,
			Phone: phoneFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Printf("Created user %s (%s)\n", snap.Name, snap.ID)

		if withKeyFlag {
			_, key, secret, err := svc.AddAccessKey(ctx, snap.ID, "")
			if err != nil {
				return fmt.Errorf("failed to issue access key: %w", err)
			}
			fmt.Printf("Access key: %s\n", key)
			fmt.Printf("Secret (shown once, store it now): %s\n", secret)
		}

		return nil
	},
}
