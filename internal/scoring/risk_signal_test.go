package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskSignalLifecycle(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("acknowledge then resolve", func(t *testing.T) {
		s := RiskSignal{ID: "r1", Status: RiskActive}

		require.NoError(t, s.Acknowledge(at, "called the sponsor"))
		assert.Equal(t, RiskAcknowledged, s.Status)
		assert.Equal(t, at, *s.AcknowledgedAt)
		assert.True(t, s.Open())

		require.NoError(t, s.Resolve(at.Add(time.Hour), "mitigated", ""))
		assert.Equal(t, RiskResolved, s.Status)
		assert.Equal(t, "mitigated", s.Outcome)
		assert.Equal(t, "called the sponsor", s.Notes)
		assert.False(t, s.Open())
	})

	t.Run("resolve directly from active", func(t *testing.T) {
		s := RiskSignal{ID: "r2", Status: RiskActive}
		require.NoError(t, s.Resolve(at, "false_positive", "seasonal dip"))
		assert.Equal(t, "seasonal dip", s.Notes)
	})

	t.Run("invalid transitions", func(t *testing.T) {
		acked := RiskSignal{ID: "r3", Status: RiskAcknowledged}
		assert.ErrorIs(t, acked.Acknowledge(at, ""), ErrInvalidTransition)

		resolved := RiskSignal{ID: "r4", Status: RiskResolved}
		assert.ErrorIs(t, resolved.Resolve(at, "", ""), ErrInvalidTransition)
		assert.ErrorIs(t, resolved.Acknowledge(at, ""), ErrInvalidTransition)
	})
}

func TestParseRiskEnums(t *testing.T) {
	typ, err := ParseRiskType("USAGE_DROP")
	require.NoError(t, err)
	assert.Equal(t, RiskUsageDrop, typ)

	_, err = ParseRiskType("vibes")
	assert.Error(t, err)

	sev, err := ParseSeverity("High")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, sev)

	_, err = ParseSeverity("urgent")
	assert.Error(t, err)
}
