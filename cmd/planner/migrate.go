package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	handler "content-planner-backend/api"
	"content-planner-backend/pkg/config"
	"content-planner-backend/pkg/database"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	migrateDSN   string
	migrateLocal bool
)

// migrateCmd creates the tables the stores expect
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	Long: `Create the tables used by the Postgres store (or the local SQLite file
with --local). Every statement is idempotent, so running it twice is safe.

The hosted project manages its own schema; this command is for self-hosted
Postgres and local development.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDSN, "dsn", "", "Postgres connection string (defaults to POSTGRES_DSN)")
	migrateCmd.Flags().BoolVar(&migrateLocal, "local", false, "initialise the local SQLite file instead")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.GetCached()
	log := handler.Logger(cfg)
	ctx := log.WithContext(cmd.Context())

	if migrateLocal {
		db, err := database.NewLocalDatabase(cfg.LocalDBPath)
		if err != nil {
			return fmt.Errorf("failed to initialise local database: %w", err)
		}
		log.Info().Str("path", db.Path()).Msg("local database ready")
		return db.Close()
	}

	dsn := migrateDSN
	if dsn == "" {
		dsn = cfg.PostgresDSN
	}
	if dsn == "" {
		return fmt.Errorf("no Postgres DSN: pass --dsn or set POSTGRES_DSN")
	}

	log.Info().Str("dsn", maskPassword(dsn)).Msg("connecting")
	return migratePostgres(ctx, dsn)
}

func migratePostgres(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, database.PostgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	// 验证表是否创建成功
	log := zerolog.Ctx(ctx)
	for _, table := range database.PostgresTables {
		var count int
		if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return fmt.Errorf("table %s not usable: %w", table, err)
		}
		log.Info().Str("table", table).Int("rows", count).Msg("table ready")
	}
	return nil
}

// maskPassword hides the password part of a DSN URL for logging
func maskPassword(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
