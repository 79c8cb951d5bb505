package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/crm/api/transport"
	"github.com/fastygo/crm/internal/app"
	"github.com/fastygo/crm/internal/config"
	pgInfra "github.com/fastygo/crm/internal/infrastructure/postgres"
	"github.com/fastygo/crm/pkg/logger"
	"github.com/fastygo/crm/usecase"
)

// runner executes one dispatcher operation against a freshly built app.
type runner func(ctx context.Context, d *usecase.Dispatcher) (interface{}, error)

type rootOptions struct {
	logLevel   string
	migrations bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "crmctl",
		Short:        "Operator commands for the CRM backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")
	root.PersistentFlags().BoolVar(&opts.migrations, "migrate", false, "run migrations before the command")

	root.AddCommand(
		newRemindersCommand(opts),
		newOutboxCommand(opts),
		newFinanceCommand(opts),
		newLeadsCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

func newRemindersCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "reminders", Short: "Task reminder maintenance"}
	var batch int
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Queue reminders for tasks still awaiting acceptance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, func(ctx context.Context, d *usecase.Dispatcher) (interface{}, error) {
				sent, err := d.ExecuteCommand(ctx, usecase.CommandSweepReminders, batch)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"reminded": sent}, nil
			})
		},
	}
	sweep.Flags().IntVar(&batch, "batch", 0, "maximum tasks per sweep (0 uses REMINDERS_BATCH_SIZE)")
	cmd.AddCommand(sweep)
	return cmd
}

func newOutboxCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "outbox", Short: "Notification and change outbox"}
	cmd.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "Retry undelivered outbox items once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, func(ctx context.Context, d *usecase.Dispatcher) (interface{}, error) {
				return d.ExecuteCommand(ctx, usecase.CommandDrainOutbox, nil)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "replay",
		Short: "Move dead-lettered items back to the pending queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, func(ctx context.Context, d *usecase.Dispatcher) (interface{}, error) {
				return d.ExecuteCommand(ctx, usecase.CommandReplayOutbox, nil)
			})
		},
	})
	var limit int
	dead := &cobra.Command{
		Use:   "dead",
		Short: "List dead-lettered items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, func(ctx context.Context, d *usecase.Dispatcher) (interface{}, error) {
				return d.ExecuteQuery(ctx, usecase.QueryOutboxDeadLetters, limit)
			})
		},
	}
	dead.Flags().IntVar(&limit, "limit", 50, "maximum items to list")
	cmd.AddCommand(dead)
	return cmd
}

func newFinanceCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "finance", Short: "Revenue reporting"}
	var period, month, year string
	summary := &cobra.Command{
		Use:   "summary",
		Short: "Print the revenue summary for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := transport.ParseReportQuery(period, month, year)
			if err != nil {
				return err
			}
			return execute(cmd, opts, func(ctx context.Context, d *usecase.Dispatcher) (interface{}, error) {
				return d.ExecuteQuery(ctx, usecase.QueryFinanceSummary, q)
			})
		},
	}
	summary.Flags().StringVar(&period, "period", "this-month", "this-month, last-month, last-3-months, last-6-months, this-year, specific-month or all-time")
	summary.Flags().StringVar(&month, "month", "", "month number for specific-month")
	summary.Flags().StringVar(&year, "year", "", "year for specific-month")
	cmd.AddCommand(summary)
	return cmd
}

func newLeadsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "leads", Short: "Lead pipeline queries"}
	cmd.AddCommand(&cobra.Command{
		Use:   "due",
		Short: "List leads that need a call now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, func(ctx context.Context, d *usecase.Dispatcher) (interface{}, error) {
				return d.ExecuteQuery(ctx, usecase.QueryLeadsDue, nil)
			})
		},
	})
	return cmd
}

// newMigrateCommand talks to the database directly; it does not build the app.
func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Database schema migrations"}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := pgInfra.RunMigrations(cfg, log); err != nil {
				return err
			}
			state, err := pgInfra.MigrationStatus(cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), state)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer log.Sync()
			state, err := pgInfra.MigrationStatus(cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), state)
		},
	})
	return cmd
}

func loadConfig(opts *rootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logger.New(logger.Config{Level: opts.logLevel, Encoding: "console", App: "crmctl"})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func execute(cmd *cobra.Command, opts *rootOptions, run runner) error {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer log.Sync()
	cfg.Migrations.Enabled = opts.migrations

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	result, err := run(ctx, application.Dispatcher())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
