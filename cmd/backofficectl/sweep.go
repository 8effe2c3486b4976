package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/openclerk/backoffice/internal/dispatch"
	"github.com/openclerk/backoffice/internal/domain"
)

var sweepNames = []string{"overdue", "late-fees", "recurring", "scheduled"}

var sweepCmd = &cobra.Command{
	Use:   "sweep [overdue|late-fees|recurring|scheduled|reminders]",
	Short: "Run sweep cycles by hand",
	Long: `Runs the named sweep once against the database. With no argument,
every sweep runs in the same order the background worker uses. The reminders
sweep needs NATS_URL set and is included in the full run only when it is.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		names := sweepNames
		if len(args) == 1 {
			names = []string{args[0]}
		} else if a.cfg.NATS.URL != "" {
			names = append(names, "reminders")
		}

		for _, name := range names {
			result, err := runSweep(ctx, a, name)
			if err != nil {
				return fmt.Errorf("sweep %s failed: %w", name, err)
			}
			fmt.Printf("%s: processed=%d failed=%d\n", name, result.Processed, result.Failed)
		}
		return nil
	},
}

func runSweep(ctx context.Context, a *app, name string) (domain.SweepResult, error) {
	switch name {
	case "overdue":
		n, err := a.services.Invoices.CheckAndMarkOverdue(ctx)
		return domain.SweepResult{Processed: n}, err
	case "late-fees":
		return a.services.LateFees.ProcessLateFees(ctx)
	case "recurring":
		return a.services.Generator.ProcessRecurringInvoices(ctx)
	case "scheduled":
		return a.services.Generator.ProcessScheduledInvoices(ctx)
	case "reminders":
		return runReminderSweep(ctx, a)
	}
	return domain.SweepResult{}, fmt.Errorf("unknown sweep %q", name)
}

func runReminderSweep(ctx context.Context, a *app) (domain.SweepResult, error) {
	if a.cfg.NATS.URL == "" {
		return domain.SweepResult{}, fmt.Errorf("reminders sweep requires NATS_URL")
	}

	nc, err := nats.Connect(a.cfg.NATS.URL)
	if err != nil {
		return domain.SweepResult{}, fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Drain()

	runner := dispatch.NewRunner(a.services.Reminders, dispatch.NewNATSDispatcher(nc), a.logger, nil)
	return runner.Run(ctx)
}
