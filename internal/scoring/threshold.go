package scoring

// ScoreHistoryEntry is an immutable record of one composite score together
// with the score that preceded it.
type ScoreHistoryEntry struct {
	CompositeScore
	PreviousScore    *float64 `json:"previous_score,omitempty"`
	PreviousCategory string   `json:"previous_category,omitempty"`
	Delta            *float64 `json:"delta,omitempty"`
}

// CrossingDirection describes how a score moved between categories.
type CrossingDirection string

const (
	CrossedUpward   CrossingDirection = "crossed_upward"
	CrossedDownward CrossingDirection = "crossed_downward"
	CrossedNone     CrossingDirection = "none"
)

// Transition is the category change between two consecutive scores.
type Transition struct {
	From            string            `json:"from_category"`
	To              string            `json:"to_category"`
	Direction       CrossingDirection `json:"direction"`
	EnteredCritical bool              `json:"entered_critical"`
}

// DetectTransition compares current against the immediately preceding entry.
// Any change of category is reported regardless of how small the score
// movement was. A nil previous entry yields CrossedNone.
func DetectTransition(previous *ScoreHistoryEntry, current CompositeScore, p *WeightingProfile) Transition {
	t := Transition{To: current.Category, Direction: CrossedNone}
	if previous == nil {
		return t
	}
	t.From = previous.Category
	if t.From == t.To {
		return t
	}

	fromRank := p.CategoryRank(t.From)
	toRank := p.CategoryRank(t.To)
	switch {
	case fromRank >= 0 && toRank >= 0 && toRank > fromRank:
		t.Direction = CrossedUpward
	case fromRank >= 0 && toRank >= 0:
		t.Direction = CrossedDownward
	// The previous category came from a profile version that no longer
	// defines it; fall back to the score movement.
	case current.WeightedScore >= previous.WeightedScore:
		t.Direction = CrossedUpward
	default:
		t.Direction = CrossedDownward
	}

	t.EnteredCritical = t.To == p.CriticalCategory() && t.From != t.To
	return t
}
