package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/godilite/account-health/internal/app"
	"github.com/godilite/account-health/internal/batch"
)

func newBatchCmd(opts *globalOpts) *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score every account for one period",
		Long: `Runs the same batch the scheduler triggers. Accounts already scored for the
period are reported as duplicates, so a batch can be re-run safely.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.output); err != nil {
				return err
			}
			day, err := parseDay(period)
			if err != nil {
				return err
			}
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				now := time.Now().UTC()
				asOf := now
				if !day.IsZero() {
					asOf = endOfDay(day, now)
				}
				report, err := core.Runner.Run(ctx, asOf)
				if err != nil {
					return err
				}
				if opts.output == "json" {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				return printReport(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVarP(&period, "period", "p", "", "Period to score (YYYY-MM-DD, default: today)")
	return cmd
}

func printReport(w io.Writer, r batch.Report) error {
	fmt.Fprintf(w, "run %s period %s took %s\n", r.RunID, r.Period, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "total %d  scored %d  duplicates %d  insufficient %d  failed %d\n",
		r.Total, r.Scored, r.Duplicates, r.Insufficient, r.Failed)
	if len(r.Failures) == 0 {
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "\nACCOUNT\tREASON\tERROR")
	for _, f := range r.Failures {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.AccountID, f.Reason, f.Error)
	}
	return tw.Flush()
}
