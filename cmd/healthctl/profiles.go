package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/godilite/account-health/internal/config"
	"github.com/godilite/account-health/internal/profile"
	"github.com/godilite/account-health/internal/scoring"
)

func newProfilesCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Inspect weighting profiles",
	}
	cmd.AddCommand(newProfilesValidateCmd(opts))
	return cmd
}

func newProfilesValidateCmd(opts *globalOpts) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate a profiles file without touching the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.output); err != nil {
				return err
			}
			if file == "" {
				file = config.Load(opts.envFile).ProfilesPath
			}
			return runProfilesValidate(cmd.OutOrStdout(), file, opts.output)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Profiles YAML (default: PROFILES_PATH)")
	return cmd
}

func runProfilesValidate(w io.Writer, path, format string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("profiles file: %w", err)
	}
	registry, err := profile.Load(path)
	if err != nil {
		return err
	}

	profiles := registry.All()
	if format == "json" {
		return writeJSON(w, profiles)
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "PROFILE\tTIERS\tWEIGHTS\tCATEGORIES")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Ref(), tierList(p), weightList(p), thresholdList(p))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d profile(s) valid; default %s\n", len(profiles), registry.Default().Ref())
	return nil
}

func tierList(p *scoring.WeightingProfile) string {
	if len(p.Tiers) == 0 {
		return "*"
	}
	return strings.Join(p.Tiers, ",")
}

func weightList(p *scoring.WeightingProfile) string {
	parts := make([]string, 0, len(p.Weights))
	for c, w := range p.Weights {
		parts = append(parts, fmt.Sprintf("%s=%.2f", c, w))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func thresholdList(p *scoring.WeightingProfile) string {
	parts := make([]string, len(p.Thresholds))
	for i, t := range p.Thresholds {
		parts[i] = fmt.Sprintf("%s[%g,%g)", t.Category, t.MinScore, t.MaxScore)
	}
	return strings.Join(parts, " ")
}
