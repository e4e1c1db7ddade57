package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/darkevich777/anime-quiz/internal/config"
	pgmigrations "github.com/darkevich777/anime-quiz/internal/infra/postgres/migrations"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies the media bank schema.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply media bank migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return migrateMediaBank(cmd.Context(), cfg)
		},
	}
}

func migrateMediaBank(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	bankDB := bun.NewDB(
		sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL))),
		pgdialect.New(),
	)
	defer bankDB.Close()

	migrator := migrate.NewMigrator(bankDB, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Printf("media bank schema up to date")
		return nil
	}
	log.Printf("media bank migrations applied: %s", group)
	return nil
}
