// Package main provides the healthctl CLI for operating the account health
// engine against its database without the gRPC server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/account-health/internal/app"
	"github.com/godilite/account-health/internal/config"
)

var version = "dev"

type globalOpts struct {
	envFile string
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	rootCmd := &cobra.Command{
		Use:   "healthctl",
		Short: "Operate the customer account health scoring engine",
		Long: `healthctl scores accounts, ingests signals, runs batches and prints the
portfolio and priority views straight from the configured database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "Dotenv file to load before the environment")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity to stderr")

	rootCmd.AddCommand(
		newProfilesCmd(opts),
		newAccountsCmd(opts),
		newIngestCmd(opts),
		newScoreCmd(opts),
		newBatchCmd(opts),
		newPriorityCmd(opts),
		newPortfolioCmd(opts),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withCore opens the engine for one command and closes it afterwards.
func withCore(cmd *cobra.Command, opts *globalOpts, fn func(ctx context.Context, core *app.Core) error) error {
	cfg := config.Load(opts.envFile)

	logger := zap.NewNop()
	if opts.verbose {
		l, err := config.NewLogger(cfg)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		logger = l
		defer logger.Sync()
	}

	core, err := app.NewCore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	return fn(cmd.Context(), core)
}
