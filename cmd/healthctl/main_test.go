package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/account-health/internal/scoring"
)

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()

	output, _ := cmd.PersistentFlags().GetString("output")
	assert.Equal(t, "text", output)

	for _, name := range []string{"profiles", "accounts", "ingest", "score", "batch", "priority", "portfolio"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestSubcommandFlags(t *testing.T) {
	cases := map[string][]string{
		"ingest":    {"file", "source"},
		"score":     {"account", "as-of"},
		"batch":     {"period"},
		"priority":  {"owner", "category", "min-arr", "max-urgency-days", "limit"},
		"portfolio": {"owner", "as-of"},
	}
	root := newRootCmd()
	for name, flags := range cases {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		for _, f := range flags {
			assert.NotNil(t, sub.Flags().Lookup(f), "%s --%s", name, f)
		}
	}
}

func TestParseDay(t *testing.T) {
	day, err := parseDay("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), day)

	day, err = parseDay("")
	require.NoError(t, err)
	assert.True(t, day.IsZero())

	_, err = parseDay("10/03/2025")
	assert.Error(t, err)
}

func TestEndOfDay(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("past day ends at midnight", func(t *testing.T) {
		now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		end := endOfDay(day, now)
		assert.Equal(t, "2025-03-10", end.Format(time.DateOnly))
		assert.Equal(t, 23, end.Hour())
	})

	t.Run("today is capped at now", func(t *testing.T) {
		now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
		assert.Equal(t, now, endOfDay(day, now))
	})
}

func TestRunProfilesValidate(t *testing.T) {
	var buf bytes.Buffer

	err := runProfilesValidate(&buf, filepath.Join("..", "..", "configs", "profiles.yaml"), "text")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "default@1")
	assert.Contains(t, buf.String(), "enterprise@1")
	assert.Contains(t, buf.String(), "2 profile(s) valid; default default@1")

	t.Run("missing file", func(t *testing.T) {
		err := runProfilesValidate(&bytes.Buffer{}, filepath.Join(t.TempDir(), "nope.yaml"), "text")
		assert.Error(t, err)
	})

	t.Run("invalid weights", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		doc := "profiles:\n  - name: x\n    version: 1\n    weights: {usage: 0.5}\n    thresholds:\n      - {category: all, min_score: 0, max_score: 100}\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

		err := runProfilesValidate(&bytes.Buffer{}, path, "text")
		assert.ErrorIs(t, err, scoring.ErrInvalidProfile)
	})
}

func TestPrintPriority(t *testing.T) {
	days := 20
	var buf bytes.Buffer

	err := printPriority(&buf, []scoring.PriorityEntry{{
		Rank: 1, AccountID: "acct-b", CompositeScore: 30, Category: "critical",
		ARRExposure: decimal.NewFromInt(45000), UrgencyDays: &days, ActiveSignals: 2, PriorityValue: 6.5,
	}})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "acct-b")
	assert.Contains(t, buf.String(), "45000.00")

	buf.Reset()
	require.NoError(t, printPriority(&buf, nil))
	assert.Contains(t, buf.String(), "no accounts need attention")
}

func TestCommands_AgainstSQLite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_PATH", filepath.Join(dir, "health.db"))
	t.Setenv("PROFILES_PATH", filepath.Join(dir, "absent.yaml"))

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--env", filepath.Join(dir, "none.env")}, args...))
		require.NoError(t, cmd.Execute(), "healthctl %v", args)
		return out.String()
	}

	accounts := filepath.Join(dir, "accounts.json")
	require.NoError(t, os.WriteFile(accounts, []byte(`[{"id":"acct-1","owner_id":"csm-1","arr":"120000"}]`), 0o600))
	signals := filepath.Join(dir, "signals.json")
	observed := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	require.NoError(t, os.WriteFile(signals, []byte(fmt.Sprintf(
		`[{"account_id":"acct-1","component":"usage","normalized_value":50,"observed_at":%q}]`, observed)), 0o600))

	assert.Contains(t, run("accounts", "upsert", "-f", accounts), "upserted 1 account(s)")
	assert.Contains(t, run("ingest", "-f", signals), "accepted 1, duplicates 0")
	assert.Contains(t, run("ingest", "-f", signals), "accepted 0, duplicates 1")
	assert.Contains(t, run("score", "--account", "acct-1"), "50.00 warning")

	var entries []scoring.PriorityEntry
	require.NoError(t, json.Unmarshal([]byte(run("priority", "--owner", "csm-1", "-o", "json")), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "acct-1", entries[0].AccountID)

	assert.Contains(t, run("batch"), "duplicates 1")
	assert.Contains(t, run("portfolio", "--owner", "csm-1"), "1 accounts, 1 scored")
}
