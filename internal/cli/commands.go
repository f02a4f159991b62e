package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spendcycle/internal/coordinator"
	"spendcycle/internal/middleware"
	"spendcycle/internal/reconcile"
)

func init() {
	rootCmd.AddCommand(runPassCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(dueCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(tokenCmd)

	for _, c := range []*cobra.Command{runPassCmd, reconcileCmd, dueCmd, tokenCmd} {
		c.Flags().StringP("owner", "o", "", "Owner ID")
	}
	runPassCmd.Flags().Bool("json", false, "Print the pass report as JSON")
	reconcileCmd.Flags().StringSliceP("category", "c", nil, "Only reconcile these categories (repeatable)")
	sweepCmd.Flags().IntP("workers", "w", 0, "Owners processed in parallel (default RECURRING_WORKERS)")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}

// ─── run-pass ───────────────────────────────────────────────────────────────

var runPassCmd = &cobra.Command{
	Use:   "run-pass",
	Short: "Materialize due recurring transactions for one owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		owner, err := requireOwner(cmd)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		return withRuntime(func(rt *runtime) error {
			report, err := rt.coord.RunPassNow(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out(cmd))
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printPass(cmd, report)
			return nil
		})
	},
}

func printPass(cmd *cobra.Command, report *coordinator.PassReport) {
	w := out(cmd)
	fmt.Fprintf(w, "Owner:        %s\n", report.Owner)
	fmt.Fprintf(w, "Materialized: %d\n", len(report.Materialized))
	for _, tx := range report.Materialized {
		fmt.Fprintf(w, "  + %s  %s  %s\n", tx.Category, tx.Amount.StringFixed(2), tx.Description)
	}
	for _, f := range report.TemplateFailures {
		fmt.Fprintf(w, "  ! %v\n", f)
	}
	if report.ReconcileErr != nil {
		fmt.Fprintf(w, "Reconcile:    failed: %v\n", report.ReconcileErr)
	} else if report.Reconciliation != nil {
		printReconcile(cmd, report.Reconciliation)
	}
	fmt.Fprintf(w, "Notifications: %d\n", report.Intents.Len())
}

// ─── reconcile ──────────────────────────────────────────────────────────────

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reset elapsed budget cycles and recompute spending",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		owner, err := requireOwner(cmd)
		if err != nil {
			return err
		}
		categories, _ := cmd.Flags().GetStringSlice("category")

		return withRuntime(func(rt *runtime) error {
			result, err := rt.coord.Reconcile(cmd.Context(), owner, categories)
			if err != nil {
				return err
			}
			printReconcile(cmd, result)
			return nil
		})
	},
}

func printReconcile(cmd *cobra.Command, result *reconcile.Result) {
	w := out(cmd)
	fmt.Fprintf(w, "Budgets:      %d updated, %d reset\n", len(result.Updated), len(result.Reset))
	for _, b := range result.ThresholdCrossed {
		fmt.Fprintf(w, "  ⚠ %s at %s of %s\n", b.Category, b.CurrentSpent.StringFixed(2), b.LimitAmount.StringFixed(2))
	}
	for _, f := range result.Failures {
		fmt.Fprintf(w, "  ! %v\n", f)
	}
}

// ─── due ────────────────────────────────────────────────────────────────────

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List recurring templates that are due now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		owner, err := requireOwner(cmd)
		if err != nil {
			return err
		}

		return withRuntime(func(rt *runtime) error {
			templates, err := rt.coord.DueTemplates(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if len(templates) == 0 {
				fmt.Fprintln(out(cmd), "Nothing due.")
				return nil
			}
			tw := tabwriter.NewWriter(out(cmd), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCATEGORY\tAMOUNT\tFREQUENCY\tNEXT DUE")
			for _, t := range templates {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Category, t.Amount.StringFixed(2), t.Frequency, t.NextDue.Format(time.RFC3339))
			}
			return tw.Flush()
		})
	},
}

// ─── sweep ──────────────────────────────────────────────────────────────────

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one recurring pass for every owner with due templates",
	Long: `Run a single scheduler sweep and exit. Useful from cron when the API
server runs with SCHEDULER_ENABLED=false.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(func(rt *runtime) error {
			workers, _ := cmd.Flags().GetInt("workers")
			if workers <= 0 {
				workers = rt.cfg.RecurringWorkers
			}
			sched := coordinator.NewScheduler(rt.coord, rt.cfg.RecurringInterval, workers, rt.log.Named("sweep"))
			n := sched.RunOnce(cmd.Context())
			fmt.Fprintf(out(cmd), "Completed %d pass(es).\n", n)
			return nil
		})
	},
}

// ─── token ──────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API access token for an owner (development)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		owner, err := requireOwner(cmd)
		if err != nil {
			return err
		}
		ttl, _ := cmd.Flags().GetDuration("ttl")
		token, err := middleware.GenerateAccessToken(owner, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), token)
		return nil
	},
}
