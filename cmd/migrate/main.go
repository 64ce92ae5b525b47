package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/microcart/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "MICROCART_POSTGRES_DSN"
)

// openStore открывает хранилище по DSN из флага или переменной окружения.
type openStore func(ctx context.Context, dsn string) (*postgres.Store, error)

func newRootCmd(open openStore) *cobra.Command {
	var (
		dsn     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the microcart PostgreSQL schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "overall timeout")

	withStore := func(run func(ctx context.Context, cmd *cobra.Command, store *postgres.Store) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			resolved := strings.TrimSpace(dsn)
			if resolved == "" {
				resolved = strings.TrimSpace(os.Getenv(envPostgresDSN))
			}
			if resolved == "" {
				return errors.New(envPostgresDSN + " (or --dsn) is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			store, err := open(ctx, resolved)
			if err != nil {
				return fmt.Errorf("open postgres store: %w", err)
			}
			defer store.Close()

			return run(ctx, cmd, store)
		}
	}

	cmd.AddCommand(newUpCmd(withStore), newDownCmd(withStore), newStatusCmd(withStore))
	return cmd
}

type storeRunner func(run func(ctx context.Context, cmd *cobra.Command, store *postgres.Store) error) func(*cobra.Command, []string) error

func newUpCmd(withStore storeRunner) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store *postgres.Store) error {
			if err := store.MigrateUp(ctx, steps); err != nil {
				return fmt.Errorf("migrate up failed: %w", err)
			}
			return printStatus(ctx, cmd, store, "migrate up ok")
		}),
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply (0 = all)")
	return cmd
}

func newDownCmd(withStore storeRunner) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store *postgres.Store) error {
			if err := store.MigrateDown(ctx, steps); err != nil {
				return fmt.Errorf("migrate down failed: %w", err)
			}
			return printStatus(ctx, cmd, store, "migrate down ok")
		}),
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newStatusCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: withStore(func(ctx context.Context, cmd *cobra.Command, store *postgres.Store) error {
			return printStatus(ctx, cmd, store, "migration status")
		}),
	}
}

func printStatus(ctx context.Context, cmd *cobra.Command, store *postgres.Store, prefix string) error {
	status, err := store.Status(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	pending := "none"
	if len(status.Pending) > 0 {
		pending = strings.Join(status.Pending, ",")
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: version=%d applied=%d pending=%s\n",
		prefix, status.Version, status.Applied, pending)
	return err
}

func main() {
	if err := newRootCmd(postgres.Open).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
