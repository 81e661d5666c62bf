package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/stackbound/aegis/internal/db/bunx"
	"github.com/stackbound/aegis/internal/logger"
	"github.com/stackbound/aegis/internal/migrations"
	"github.com/stackbound/aegis/internal/repository"
	"github.com/stackbound/aegis/internal/server"
	"github.com/stackbound/aegis/internal/services/identity"
	"github.com/stackbound/aegis/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Aegis API server",
	Long:  `Starts the HTTP server with the identity REST endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if cfg.Debug {
			level = "debug"
		}
		zlog := logger.Init(logger.Config{Level: level, Pretty: cfg.Debug})

		shutdownTelemetry, err := telemetry.Init(cmd.Context(), cfg.Observability)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				zlog.Warn().Err(err).Msg("telemetry shutdown")
			}
		}()

		// Connect to database
		db, err := bunx.NewDB(cfg.DatabaseURL, bunx.Options{MaxOpenConns: cfg.MaxDBConnections})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		zlog.Info().Msg("connected to database")

		// Apply pending migrations before serving
		migrator := migrate.NewMigrator(db, migrations.Migrations)
		if err := migrator.Init(cmd.Context()); err != nil {
			return fmt.Errorf("failed to initialize migrator: %w", err)
		}
		group, err := migrator.Migrate(cmd.Context())
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if group.ID != 0 {
			zlog.Info().Int64("group", group.ID).Msg("applied migrations")
		}

		// Hydrate the registries from the store
		store := repository.NewBunStore(db)
		svc := identity.NewService(store)
		if err := svc.Load(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load identity state: %w", err)
		}
		zlog.Info().Msg("identity registries loaded")

		r := server.NewRouter(server.RouterOptions{
			Service:   svc,
			ListLimit: cfg.ListLimit,
			Logger:    &zlog,
		})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Start server in goroutine
		serverErrors := make(chan error, 1)
		go func() {
			zlog.Info().Str("addr", cfg.ServerAddr).Msg("starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			zlog.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			zlog.Info().Msg("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
