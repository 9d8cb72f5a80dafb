package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/godilite/account-health/internal/app"
	"github.com/godilite/account-health/internal/ingest"
	"github.com/godilite/account-health/internal/repository/models"
)

func newIngestCmd(opts *globalOpts) *cobra.Command {
	var (
		file   string
		source string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store component signals from a JSON file",
		Long: `Reads one signal object or an array of them, in the same shape the Kafka
consumer accepts, and stores them. Re-ingesting a file is harmless: signals
already stored are counted as duplicates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.output); err != nil {
				return err
			}
			raw, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			signals, err := ingest.DecodeWithSource(raw, source)
			if err != nil {
				return err
			}
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				res, err := core.Service.IngestSignals(ctx, signals)
				if err != nil {
					return err
				}
				if opts.output == "json" {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "accepted %d, duplicates %d\n", res.Accepted, res.Duplicates)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Signals JSON file, or - for stdin (required)")
	cmd.Flags().StringVar(&source, "source", "file", "Source recorded on signals that carry none")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newAccountsCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage account metadata used for ARR and renewal urgency",
	}

	var file string
	upsert := &cobra.Command{
		Use:   "upsert",
		Short: "Create or update accounts from a JSON array",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			var accounts []models.Account
			if err := json.Unmarshal(raw, &accounts); err != nil {
				return fmt.Errorf("decoding accounts: %w", err)
			}
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				for _, a := range accounts {
					if _, err := core.Service.UpsertAccount(ctx, a); err != nil {
						return fmt.Errorf("account %s: %w", a.ID, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "upserted %d account(s)\n", len(accounts))
				return nil
			})
		},
	}
	upsert.Flags().StringVarP(&file, "file", "f", "", "Accounts JSON file, or - for stdin (required)")
	_ = upsert.MarkFlagRequired("file")

	cmd.AddCommand(upsert)
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return raw, nil
}
