package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/internal/repository"
	"github.com/recipe-studio/catalogue/internal/services"
	"github.com/recipe-studio/catalogue/pkg/config"
	"github.com/recipe-studio/catalogue/pkg/database"
	"github.com/recipe-studio/catalogue/pkg/logger"
)

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:  "manage",
		Usage: "Recipe catalogue administration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database DSN; defaults to DATABASE_URL from the environment",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			// an explicit --database-url is enough to run without a full config
			if cmd.IsSet("database-url") {
				_, err := logger.Init("info", "console")
				return ctx, err
			}
			cfg, err := config.Load()
			if err != nil {
				return ctx, err
			}
			if _, err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
				return ctx, err
			}
			return ctx, cmd.Set("database-url", cfg.DatabaseURL)
		},
		After: func(context.Context, *cli.Command) error {
			logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			migrateCmd(),
			createSuperuserCmd(),
			waitForDBCmd(),
		},
	}
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or update the schema for all models",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := database.Open(ctx, cmd.String("database-url"), database.Options{})
			if err != nil {
				return err
			}
			if err := migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, "migrations completed")
			return nil
		},
	}
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.L().Info("schema migrated", zap.Int("models", len(models.All())))
	return nil
}

func createSuperuserCmd() *cli.Command {
	return &cli.Command{
		Name:  "createsuperuser",
		Usage: "Create a staff account with full permissions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, Sources: cli.EnvVars("SUPERUSER_EMAIL")},
			&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("SUPERUSER_PASSWORD")},
			&cli.StringFlag{Name: "name", Value: "Admin"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, err := database.Open(ctx, cmd.String("database-url"), database.Options{})
			if err != nil {
				return err
			}
			u, err := createSuperuser(ctx, db, cmd.String("email"), cmd.String("password"), cmd.String("name"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "superuser %s created\n", u.Email)
			return nil
		},
	}
}

func createSuperuser(ctx context.Context, db *gorm.DB, email, password, name string) (*models.User, error) {
	// tokens are never issued here, so the service needs no secret
	auth := services.NewAuthService(repository.NewUserRepository(db), nil, 0)
	return auth.CreateSuperuser(ctx, email, password, name)
}

func waitForDBCmd() *cli.Command {
	return &cli.Command{
		Name:  "wait-for-db",
		Usage: "Block until the database accepts connections",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "retries", Value: 30, Usage: "Connection attempts before giving up"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger.L().Info("waiting for database")
			db, err := database.Open(ctx, cmd.String("database-url"), database.Options{MaxRetries: int(cmd.Int("retries"))})
			if err != nil {
				return err
			}
			if err := database.Ping(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, "database available")
			return nil
		},
	}
}
