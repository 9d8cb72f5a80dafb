package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/godilite/account-health/internal/app"
	"github.com/godilite/account-health/internal/scoring"
	"github.com/godilite/account-health/internal/service"
)

func newScoreCmd(opts *globalOpts) *cobra.Command {
	var (
		accountID string
		asOf      string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute and commit one account's composite score",
		Long: `Scores the account for the period containing --as-of (default: now). If
that period was already scored the committed entry is shown unchanged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.output); err != nil {
				return err
			}
			day, err := parseDay(asOf)
			if err != nil {
				return err
			}
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				var at time.Time
				if !day.IsZero() {
					at = endOfDay(day, time.Now().UTC())
				}
				res, err := core.Service.ScoreAccount(ctx, accountID, at)
				if err != nil {
					return err
				}
				if opts.output == "json" {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				return printScoreResult(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVarP(&accountID, "account", "a", "", "Account ID (required)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Score the period ending on this date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func printScoreResult(w io.Writer, res service.ScoreResult) error {
	e := res.Entry
	fmt.Fprintf(w, "account   %s\n", e.AccountID)
	fmt.Fprintf(w, "period    %s (profile %s)\n", e.Period, e.ProfileVersion)
	fmt.Fprintf(w, "score     %.2f %s\n", e.WeightedScore, e.Category)
	if e.Delta != nil {
		fmt.Fprintf(w, "previous  %s %s (delta %+.2f)\n", fmtScore(e.PreviousScore), e.PreviousCategory, *e.Delta)
	}
	if res.Duplicate {
		fmt.Fprintln(w, "note      period already scored; showing committed entry")
		return nil
	}
	if res.Transition.Direction != scoring.CrossedNone {
		fmt.Fprintf(w, "crossing  %s -> %s (%s)\n", res.Transition.From, res.Transition.To, res.Transition.Direction)
	}
	fmt.Fprintf(w, "trend     %s %s slope %.2f over %d\n", res.Trend.Direction, res.Trend.Strength, res.Trend.Slope, res.Trend.Points)
	fmt.Fprintf(w, "missing   %s\n", joinComponents(e.MissingComponents))
	fmt.Fprintf(w, "stale     %s\n", joinComponents(e.StaleComponents))

	comps := make([]scoring.Component, 0, len(e.Components))
	for c := range e.Components {
		comps = append(comps, c)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i] < comps[j] })
	tw := newTable(w)
	fmt.Fprintln(tw, "\nCOMPONENT\tVALUE")
	for _, c := range comps {
		fmt.Fprintf(tw, "%s\t%.2f\n", c, e.Components[c])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(res.EmittedSignals) > 0 {
		tw = newTable(w)
		fmt.Fprintln(tw, "\nRISK\tSEVERITY\tDETAILS")
		for _, s := range res.EmittedSignals {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Type, s.Severity, s.Details)
		}
		return tw.Flush()
	}
	return nil
}
