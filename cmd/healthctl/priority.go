package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/godilite/account-health/internal/app"
	"github.com/godilite/account-health/internal/scoring"
	"github.com/godilite/account-health/internal/service"
)

func newPriorityCmd(opts *globalOpts) *cobra.Command {
	var (
		ownerID    string
		categories []string
		minARR     string
		maxDays    int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "priority",
		Short: "Rank accounts needing attention",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.output); err != nil {
				return err
			}
			filter := scoring.PriorityFilter{Categories: categories, Limit: limit}
			if minARR != "" {
				d, err := decimal.NewFromString(minARR)
				if err != nil {
					return fmt.Errorf("invalid --min-arr %q: %w", minARR, err)
				}
				filter.MinARR = d
			}
			if cmd.Flags().Changed("max-urgency-days") {
				filter.MaxUrgencyDays = &maxDays
			}
			return withCore(cmd, opts, func(ctx context.Context, core *app.Core) error {
				entries, err := core.Service.GetPriorityQueue(ctx, service.PriorityQuery{OwnerID: ownerID, Filter: filter})
				if err != nil {
					return err
				}
				if opts.output == "json" {
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				return printPriority(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "Only accounts owned by this CSM")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Only these categories (repeatable)")
	cmd.Flags().StringVar(&minARR, "min-arr", "", "Minimum ARR exposure")
	cmd.Flags().IntVar(&maxDays, "max-urgency-days", 0, "Only accounts with a deadline within this many days")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries (0 for all)")
	return cmd
}

func printPriority(w io.Writer, entries []scoring.PriorityEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no accounts need attention")
		return nil
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "RANK\tACCOUNT\tSCORE\tCATEGORY\tARR\tDAYS\tSIGNALS\tPRIORITY")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%s\t%s\t%d\t%.3f\n",
			e.Rank, e.AccountID, e.CompositeScore, e.Category, e.ARRExposure.StringFixed(2),
			fmtDays(e.UrgencyDays), e.ActiveSignals, e.PriorityValue)
	}
	return tw.Flush()
}

func newPortfolioCmd(opts *globalOpts) *cobra.Command {
	var (
		ownerID string
		asOf    string
	)

	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Summarize a portfolio and its change over the last week",
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
				report, err := core.Service.GetPortfolioSummary(ctx, ownerID, at)
				if err != nil {
					return err
				}
				if opts.output == "json" {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				return printPortfolio(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "Only accounts owned by this CSM")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Summarize as of this date (YYYY-MM-DD)")
	return cmd
}

func printPortfolio(w io.Writer, r service.PortfolioReport) error {
	cur := r.Current
	fmt.Fprintf(w, "as of %s: %d accounts, %d scored, %d without data\n",
		cur.AsOf.Format(time.DateOnly), cur.TotalAccounts, cur.ScoredAccounts, cur.InsufficientData)
	avg := fmtScore(cur.AverageScore)
	if r.Trend.AverageScoreDelta != nil {
		avg += fmt.Sprintf(" (%+.2f)", *r.Trend.AverageScoreDelta)
	}
	fmt.Fprintf(w, "average score %s, total ARR %s, unscored ARR %s\n",
		avg, cur.TotalARR.StringFixed(2), cur.UnscoredARR.StringFixed(2))

	cats := make([]string, 0, len(cur.CategoryCounts))
	for c := range cur.CategoryCounts {
		cats = append(cats, c)
	}
	for c := range r.Trend.CategoryCountDeltas {
		if _, ok := cur.CategoryCounts[c]; !ok {
			cats = append(cats, c)
		}
	}
	sort.Strings(cats)

	tw := newTable(w)
	fmt.Fprintln(tw, "\nCATEGORY\tACCOUNTS\tCHANGE\tARR")
	for _, c := range cats {
		arr := cur.ARRByCategory[c]
		fmt.Fprintf(tw, "%s\t%d\t%+d\t%s\n", c, cur.CategoryCounts[c], r.Trend.CategoryCountDeltas[c], arr.StringFixed(2))
	}
	return tw.Flush()
}
