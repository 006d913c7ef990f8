package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/workmarket/internal/bootstrap"
	"github.com/target/workmarket/internal/service"
)

const defaultMigrationTimeout = 5 * time.Minute

// errNonDeterministic makes verify failures exit non-zero.
var errNonDeterministic = errors.New("replay is not deterministic")

func newMigrateCmd(a *app) *cobra.Command {
	timeout := defaultMigrationTimeout
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if !cfg.Storage.UsesPostgres() {
				return errors.New("migrate requires STORAGE_BACKEND=postgres")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: a.logger})
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			defer db.Close()
			if err := bootstrap.RunMigrations(ctx, db, a.logger); err != nil {
				return err
			}
			return a.print(map[string]string{"status": "migrated"}, func(t *table) {
				t.row("migrations applied")
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrationTimeout, "migration timeout")
	return cmd
}

func newReplayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the job read model from the log twice and check both builds agree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				report, err := s.services.Market.VerifyReplay(cmd.Context())
				if err != nil {
					return err
				}
				if err := a.print(report, func(t *table) {
					t.row("EVENTS", "JOBS", "DETERMINISTIC", "DRIFTED")
					t.row(report.Events, report.Jobs, report.Deterministic, len(report.Drifted))
					for _, id := range report.Drifted {
						t.row("", "", "", id)
					}
				}); err != nil {
					return err
				}
				if !report.Deterministic {
					return errNonDeterministic
				}
				return nil
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show job counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				stats, err := s.services.Market.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(stats, func(t *table) {
					t.row("STATUS", "JOBS")
					for _, status := range sortedStatuses(stats) {
						t.row(status, stats[status])
					}
				})
			})
		},
	}
}

func newBalanceCmd(a *app) *cobra.Command {
	limit := 10
	cmd := &cobra.Command{
		Use:   "balance <account>",
		Short: "Show an account balance and its latest ledger entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account := args[0]
			return a.withSession(cmd.Context(), func(s *session) error {
				ctx := cmd.Context()
				balance, err := s.services.Ledger.Balance(ctx, account)
				if err != nil {
					return err
				}
				entries, err := s.services.Ledger.Entries(ctx, account, limit)
				if err != nil {
					return err
				}
				out := balanceOutput{Account: account, Balance: balance, Entries: entries}
				return a.print(out, func(t *table) {
					t.row("ACCOUNT", account)
					t.row("BALANCE", formatAmount(balance))
					if len(entries) == 0 {
						return
					}
					t.row("")
					t.row("SEQ", "TYPE", "AMOUNT", "FROM", "TO", "MEMO")
					for _, e := range entries {
						t.row(e.Seq, e.Type, formatAmount(e.Amount), e.FromID, e.ToID, e.Memo)
					}
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", limit, "number of entries to show")
	return cmd
}

func newPurgeCmd(a *app) *cobra.Command {
	var (
		olderThan time.Duration
		reason    string
		by        string
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Purge terminal jobs older than an age from the read model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				purged, err := s.services.Market.Purge(cmd.Context(), service.PurgeRequest{
					By:        by,
					Reason:    reason,
					OlderThan: olderThan,
				})
				if err != nil {
					return err
				}
				return a.print(map[string]int64{"purged": purged}, func(t *table) {
					t.row("PURGED", purged)
				})
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum age of terminal jobs to purge")
	cmd.Flags().StringVar(&reason, "reason", "retention", "reason recorded on purge events")
	cmd.Flags().StringVar(&by, "by", "admin-cli", "actor recorded on purge events")
	return cmd
}

func newResettleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resettle <job-id>",
		Short: "Re-run settlement for a reviewed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				settlement, err := s.services.Market.Resettle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.print(settlement, func(t *table) {
					t.row("JOB", settlement.JobID)
					t.row("APPROVED", settlement.Approved)
					t.row("NEW ENTRIES", len(settlement.Entries))
					t.row("ALREADY SETTLED", len(settlement.Skipped))
				})
			})
		},
	}
}

func newReapCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Release stale claims once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				released, err := s.services.Market.ReleaseStaleClaims(cmd.Context(), s.cfg.Reaper.Actor)
				if err != nil {
					return err
				}
				return a.print(map[string]int64{"released": released}, func(t *table) {
					t.row("RELEASED", released)
				})
			})
		},
	}
}
