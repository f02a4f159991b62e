// Package cli implements spendctl, the operator command line for running
// recurring passes and reconciliations outside the HTTP server.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"spendcycle/internal/clock"
	"spendcycle/internal/config"
	"spendcycle/internal/coordinator"
	"spendcycle/internal/database"
	"spendcycle/internal/logger"
	"spendcycle/internal/server"
)

// runtime is what a command needs to talk to the ledger.
type runtime struct {
	cfg   *config.Config
	db    *gorm.DB
	coord *coordinator.Coordinator
	log   *zap.SugaredLogger
	close func() error
}

// openRuntime connects to the configured database. Tests replace it.
var openRuntime = func() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	mgr, err := database.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.Get()
	return &runtime{
		cfg:   cfg,
		db:    mgr.DB(),
		coord: server.NewCoordinator(cfg, mgr.DB(), clock.System{}, log),
		log:   log,
		close: mgr.Close,
	}, nil
}

var rootCmd = &cobra.Command{
	Use:   "spendctl",
	Short: "Operate spendcycle recurring passes and budgets",
	Long: `spendctl runs recurring passes and budget reconciliation directly against
the spendcycle database. It takes the same per-owner lock as the API
server's scheduler when run inside the same process; across processes the
occurrence index keeps passes from materializing a transaction twice.`,
	SilenceUsage: true,
}

// Execute runs the root command with os.Args.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// withRuntime opens a runtime for the duration of fn.
func withRuntime(fn func(rt *runtime) error) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer func() {
		if rt.close != nil {
			if err := rt.close(); err != nil {
				rt.log.Warnw("failed to close database", "error", err)
			}
		}
	}()
	return fn(rt)
}

func requireOwner(cmd *cobra.Command) (string, error) {
	owner, _ := cmd.Flags().GetString("owner")
	if owner == "" {
		return "", fmt.Errorf("--owner is required")
	}
	return owner, nil
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
