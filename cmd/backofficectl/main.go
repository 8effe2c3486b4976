// backofficectl is the operations CLI: run migrations, fire sweep cycles by
// hand, and inspect receivables without going through the HTTP API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openclerk/backoffice/internal"
	"github.com/openclerk/backoffice/internal/clock"
	"github.com/openclerk/backoffice/internal/domain"
	"github.com/openclerk/backoffice/internal/repository"
	"github.com/openclerk/backoffice/internal/service"
)

var rootCmd = &cobra.Command{
	Use:          "backofficectl",
	Short:        "Billing engine operations CLI",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(agingCmd)
}

// app bundles the dependencies each command needs.
type app struct {
	cfg      *internal.Config
	logger   zerolog.Logger
	pool     *pgxpool.Pool
	services *service.Services
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := internal.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel)

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	store := repository.NewPostgres(pool)
	services := service.New(store, clock.System(), logger, nil, nil, service.Options{
		PaidTolerance:  cfg.Billing.PaidTolerance,
		DefaultDueDays: cfg.Billing.DefaultDueDays,
		Profile: domain.BusinessProfile{
			BusinessName:        cfg.Profile.BusinessName,
			BusinessEmail:       cfg.Profile.BusinessEmail,
			PaymentInstructions: cfg.Profile.PaymentInstructions,
			CurrencyCode:        cfg.Profile.CurrencyCode,
			InvoicePrefix:       cfg.Profile.InvoicePrefix,
		},
	})

	return &app{cfg: cfg, logger: logger, pool: pool, services: services}, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := internal.NewConfig()
		if err != nil {
			return err
		}

		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		if err := internal.RunMigrations(db); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
