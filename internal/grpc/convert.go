package grpc

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/timestamppb"

	pb "github.com/godilite/account-health/api/v1"
	"github.com/godilite/account-health/internal/repository/models"
	"github.com/godilite/account-health/internal/scoring"
	"github.com/godilite/account-health/internal/service"
)

// timeOf treats an absent timestamp as the zero time.
func timeOf(ts *timestamppb.Timestamp) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.AsTime()
}

func timePtrOf(ts *timestamppb.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.AsTime()
	return &t
}

func toTimestamp(t time.Time) *timestamppb.Timestamp {
	if t.IsZero() {
		return nil
	}
	return timestamppb.New(t)
}

func toTimestampPtr(t *time.Time) *timestamppb.Timestamp {
	if t == nil {
		return nil
	}
	return toTimestamp(*t)
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", service.ErrInvalidArgument, field, err)
	}
	return d, nil
}

func componentNames(cs []scoring.Component) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

func toPBScore(e scoring.ScoreHistoryEntry) *pb.CompositeScore {
	components := make(map[string]float64, len(e.Components))
	for c, v := range e.Components {
		components[string(c)] = v
	}
	return &pb.CompositeScore{
		AccountId:         e.AccountID,
		ProfileVersion:    e.ProfileVersion,
		Period:            e.Period,
		Components:        components,
		MissingComponents: componentNames(e.MissingComponents),
		StaleComponents:   componentNames(e.StaleComponents),
		WeightedScore:     e.WeightedScore,
		Category:          e.Category,
		ComputedAt:        toTimestamp(e.ComputedAt),
		PreviousScore:     e.PreviousScore,
		PreviousCategory:  e.PreviousCategory,
		Delta:             e.Delta,
	}
}

func toPBTrend(t scoring.Trend) *pb.Trend {
	return &pb.Trend{
		Direction: string(t.Direction),
		Strength:  string(t.Strength),
		Slope:     t.Slope,
		Points:    int32(t.Points),
	}
}

func toPBRiskSignal(s scoring.RiskSignal) *pb.RiskSignal {
	return &pb.RiskSignal{
		Id:             s.ID,
		AccountId:      s.AccountID,
		Type:           string(s.Type),
		Severity:       string(s.Severity),
		Status:         string(s.Status),
		Details:        s.Details,
		DetectedAt:     toTimestamp(s.DetectedAt),
		AcknowledgedAt: toTimestampPtr(s.AcknowledgedAt),
		ResolvedAt:     toTimestampPtr(s.ResolvedAt),
		Outcome:        s.Outcome,
		Notes:          s.Notes,
	}
}

func toPBRiskSignals(in []scoring.RiskSignal) []*pb.RiskSignal {
	out := make([]*pb.RiskSignal, len(in))
	for i, s := range in {
		out[i] = toPBRiskSignal(s)
	}
	return out
}

func toPBSummary(s scoring.PortfolioSummary) *pb.PortfolioSummary {
	counts := make(map[string]int32, len(s.CategoryCounts))
	for k, v := range s.CategoryCounts {
		counts[k] = int32(v)
	}
	arr := make(map[string]string, len(s.ARRByCategory))
	for k, v := range s.ARRByCategory {
		arr[k] = v.String()
	}
	return &pb.PortfolioSummary{
		AsOf:             toTimestamp(s.AsOf),
		TotalAccounts:    int32(s.TotalAccounts),
		ScoredAccounts:   int32(s.ScoredAccounts),
		InsufficientData: int32(s.InsufficientData),
		CategoryCounts:   counts,
		ArrByCategory:    arr,
		UnscoredArr:      s.UnscoredARR.String(),
		TotalArr:         s.TotalARR.String(),
		AverageScore:     s.AverageScore,
	}
}

func toPBPortfolioTrend(t scoring.PortfolioTrend) *pb.PortfolioTrend {
	counts := make(map[string]int32, len(t.CategoryCountDeltas))
	for k, v := range t.CategoryCountDeltas {
		counts[k] = int32(v)
	}
	arr := make(map[string]string, len(t.ARRByCategoryDeltas))
	for k, v := range t.ARRByCategoryDeltas {
		arr[k] = v.String()
	}
	return &pb.PortfolioTrend{
		PriorAsOf:           toTimestamp(t.PriorAsOf),
		AverageScoreDelta:   t.AverageScoreDelta,
		CategoryCountDeltas: counts,
		ArrByCategoryDeltas: arr,
		InsufficientDelta:   int32(t.InsufficientDelta),
	}
}

func toPBPriority(entries []scoring.PriorityEntry) []*pb.PriorityEntry {
	out := make([]*pb.PriorityEntry, len(entries))
	for i, e := range entries {
		var urgency *int32
		if e.UrgencyDays != nil {
			d := int32(*e.UrgencyDays)
			urgency = &d
		}
		out[i] = &pb.PriorityEntry{
			AccountId:      e.AccountID,
			CompositeScore: e.CompositeScore,
			Category:       e.Category,
			ArrExposure:    e.ARRExposure.String(),
			UrgencyDays:    urgency,
			ActiveSignals:  int32(e.ActiveSignals),
			PriorityValue:  e.PriorityValue,
			Rank:           int32(e.Rank),
		}
	}
	return out
}

func fromPBSignals(in []*pb.Signal) []scoring.Signal {
	out := make([]scoring.Signal, 0, len(in))
	for _, s := range in {
		if s == nil {
			continue
		}
		out = append(out, scoring.Signal{
			AccountID:       s.AccountId,
			Component:       scoring.Component(s.Component),
			RawValue:        s.RawValue,
			NormalizedValue: s.NormalizedValue,
			ObservedAt:      timeOf(s.ObservedAt),
			Source:          s.Source,
		})
	}
	return out
}

func fromPBAccount(a *pb.Account) (models.Account, error) {
	if a == nil {
		return models.Account{}, fmt.Errorf("%w: account is required", service.ErrInvalidArgument)
	}
	arr, err := parseDecimal("arr", a.Arr)
	if err != nil {
		return models.Account{}, err
	}
	return models.Account{
		ID:              a.Id,
		Name:            a.Name,
		OwnerID:         a.OwnerId,
		Tier:            a.Tier,
		ARR:             arr,
		RenewalDate:     timePtrOf(a.RenewalDate),
		ContactDeadline: timePtrOf(a.ContactDeadline),
	}, nil
}

func toPBAccount(a models.Account) *pb.Account {
	return &pb.Account{
		Id:              a.ID,
		Name:            a.Name,
		OwnerId:         a.OwnerID,
		Tier:            a.Tier,
		Arr:             a.ARR.String(),
		RenewalDate:     toTimestampPtr(a.RenewalDate),
		ContactDeadline: toTimestampPtr(a.ContactDeadline),
		UpdatedAt:       toTimestamp(a.UpdatedAt),
	}
}
