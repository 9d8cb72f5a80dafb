package v1

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

type Signal struct {
	AccountId       string                 `json:"account_id"`
	Component       string                 `json:"component"`
	RawValue        float64                `json:"raw_value"`
	NormalizedValue float64                `json:"normalized_value"`
	ObservedAt      *timestamppb.Timestamp `json:"observed_at,omitempty"`
	Source          string                 `json:"source,omitempty"`
}

// Account carries ARR as a decimal string.
type Account struct {
	Id              string                 `json:"id"`
	Name            string                 `json:"name,omitempty"`
	OwnerId         string                 `json:"owner_id,omitempty"`
	Tier            string                 `json:"tier,omitempty"`
	Arr             string                 `json:"arr,omitempty"`
	RenewalDate     *timestamppb.Timestamp `json:"renewal_date,omitempty"`
	ContactDeadline *timestamppb.Timestamp `json:"contact_deadline,omitempty"`
	UpdatedAt       *timestamppb.Timestamp `json:"updated_at,omitempty"`
}

type CompositeScore struct {
	AccountId         string                 `json:"account_id"`
	ProfileVersion    string                 `json:"profile_version"`
	Period            string                 `json:"period"`
	Components        map[string]float64     `json:"components"`
	MissingComponents []string               `json:"missing_components"`
	StaleComponents   []string               `json:"stale_components"`
	WeightedScore     float64                `json:"weighted_score"`
	Category          string                 `json:"category"`
	ComputedAt        *timestamppb.Timestamp `json:"computed_at,omitempty"`
	PreviousScore     *float64               `json:"previous_score,omitempty"`
	PreviousCategory  string                 `json:"previous_category,omitempty"`
	Delta             *float64               `json:"delta,omitempty"`
}

type Transition struct {
	From            string `json:"from_category,omitempty"`
	To              string `json:"to_category"`
	Direction       string `json:"direction"`
	EnteredCritical bool   `json:"entered_critical"`
}

type Trend struct {
	Direction string  `json:"direction"`
	Strength  string  `json:"strength,omitempty"`
	Slope     float64 `json:"slope"`
	Points    int32   `json:"points"`
}

type RiskSignal struct {
	Id             string                 `json:"id"`
	AccountId      string                 `json:"account_id"`
	Type           string                 `json:"type"`
	Severity       string                 `json:"severity"`
	Status         string                 `json:"status"`
	Details        string                 `json:"details,omitempty"`
	DetectedAt     *timestamppb.Timestamp `json:"detected_at,omitempty"`
	AcknowledgedAt *timestamppb.Timestamp `json:"acknowledged_at,omitempty"`
	ResolvedAt     *timestamppb.Timestamp `json:"resolved_at,omitempty"`
	Outcome        string                 `json:"outcome,omitempty"`
	Notes          string                 `json:"notes,omitempty"`
}

type PortfolioSummary struct {
	AsOf             *timestamppb.Timestamp `json:"as_of,omitempty"`
	TotalAccounts    int32                  `json:"total_accounts"`
	ScoredAccounts   int32                  `json:"scored_accounts"`
	InsufficientData int32                  `json:"insufficient_data"`
	CategoryCounts   map[string]int32       `json:"category_counts"`
	ArrByCategory    map[string]string      `json:"arr_by_category"`
	UnscoredArr      string                 `json:"unscored_arr"`
	TotalArr         string                 `json:"total_arr"`
	AverageScore     *float64               `json:"average_score,omitempty"`
}

type PortfolioTrend struct {
	PriorAsOf           *timestamppb.Timestamp `json:"prior_as_of,omitempty"`
	AverageScoreDelta   *float64               `json:"average_score_delta,omitempty"`
	CategoryCountDeltas map[string]int32       `json:"category_count_deltas"`
	ArrByCategoryDeltas map[string]string      `json:"arr_by_category_deltas"`
	InsufficientDelta   int32                  `json:"insufficient_delta"`
}

type PriorityEntry struct {
	AccountId      string  `json:"account_id"`
	CompositeScore float64 `json:"composite_score"`
	Category       string  `json:"category"`
	ArrExposure    string  `json:"arr_exposure"`
	UrgencyDays    *int32  `json:"urgency_days,omitempty"`
	ActiveSignals  int32   `json:"active_signals"`
	PriorityValue  float64 `json:"priority_value"`
	Rank           int32   `json:"rank"`
}

type GetCompositeScoreRequest struct {
	AccountId string `json:"account_id"`
}

func (x *GetCompositeScoreRequest) GetAccountId() string {
	if x != nil {
		return x.AccountId
	}
	return ""
}

type CompositeScoreResponse struct {
	Score *CompositeScore `json:"score"`
}

type RecomputeScoreRequest struct {
	AccountId string                 `json:"account_id"`
	AsOf      *timestamppb.Timestamp `json:"as_of,omitempty"`
}

func (x *RecomputeScoreRequest) GetAccountId() string {
	if x != nil {
		return x.AccountId
	}
	return ""
}

func (x *RecomputeScoreRequest) GetAsOf() *timestamppb.Timestamp {
	if x != nil {
		return x.AsOf
	}
	return nil
}

type RecomputeScoreResponse struct {
	Score          *CompositeScore `json:"score"`
	Transition     *Transition     `json:"transition"`
	Trend          *Trend          `json:"trend"`
	EmittedSignals []*RiskSignal   `json:"emitted_signals,omitempty"`
	Duplicate      bool            `json:"duplicate"`
}

type GetScoreHistoryRequest struct {
	AccountId string                 `json:"account_id"`
	From      *timestamppb.Timestamp `json:"from,omitempty"`
	To        *timestamppb.Timestamp `json:"to,omitempty"`
}

func (x *GetScoreHistoryRequest) GetAccountId() string {
	if x != nil {
		return x.AccountId
	}
	return ""
}

func (x *GetScoreHistoryRequest) GetFrom() *timestamppb.Timestamp {
	if x != nil {
		return x.From
	}
	return nil
}

func (x *GetScoreHistoryRequest) GetTo() *timestamppb.Timestamp {
	if x != nil {
		return x.To
	}
	return nil
}

type ScoreHistoryResponse struct {
	AccountId string            `json:"account_id"`
	Entries   []*CompositeScore `json:"entries"`
	Trend     *Trend            `json:"trend"`
}

type GetPortfolioSummaryRequest struct {
	OwnerId string                 `json:"owner_id,omitempty"`
	AsOf    *timestamppb.Timestamp `json:"as_of,omitempty"`
}

func (x *GetPortfolioSummaryRequest) GetOwnerId() string {
	if x != nil {
		return x.OwnerId
	}
	return ""
}

func (x *GetPortfolioSummaryRequest) GetAsOf() *timestamppb.Timestamp {
	if x != nil {
		return x.AsOf
	}
	return nil
}

type PortfolioSummaryResponse struct {
	Current *PortfolioSummary `json:"current"`
	Prior   *PortfolioSummary `json:"prior"`
	Trend   *PortfolioTrend   `json:"trend"`
}

type GetPriorityQueueRequest struct {
	OwnerId        string                 `json:"owner_id,omitempty"`
	AsOf           *timestamppb.Timestamp `json:"as_of,omitempty"`
	Categories     []string               `json:"categories,omitempty"`
	MinArr         string                 `json:"min_arr,omitempty"`
	MaxUrgencyDays *int32                 `json:"max_urgency_days,omitempty"`
	Limit          int32                  `json:"limit,omitempty"`
}

func (x *GetPriorityQueueRequest) GetOwnerId() string {
	if x != nil {
		return x.OwnerId
	}
	return ""
}

func (x *GetPriorityQueueRequest) GetAsOf() *timestamppb.Timestamp {
	if x != nil {
		return x.AsOf
	}
	return nil
}

func (x *GetPriorityQueueRequest) GetMinArr() string {
	if x != nil {
		return x.MinArr
	}
	return ""
}

type PriorityQueueResponse struct {
	Entries []*PriorityEntry `json:"entries"`
}

type ListActiveRiskSignalsRequest struct {
	AccountId string `json:"account_id,omitempty"`
	OwnerId   string `json:"owner_id,omitempty"`
}

func (x *ListActiveRiskSignalsRequest) GetAccountId() string {
	if x != nil {
		return x.AccountId
	}
	return ""
}

func (x *ListActiveRiskSignalsRequest) GetOwnerId() string {
	if x != nil {
		return x.OwnerId
	}
	return ""
}

type RiskSignalsResponse struct {
	Signals []*RiskSignal `json:"signals"`
}

type AcknowledgeRiskSignalRequest struct {
	Id    string `json:"id"`
	Notes string `json:"notes,omitempty"`
}

func (x *AcknowledgeRiskSignalRequest) GetId() string {
	if x != nil {
		return x.Id
	}
	return ""
}

type ResolveRiskSignalRequest struct {
	Id      string `json:"id"`
	Outcome string `json:"outcome"`
	Notes   string `json:"notes,omitempty"`
}

func (x *ResolveRiskSignalRequest) GetId() string {
	if x != nil {
		return x.Id
	}
	return ""
}

type RiskSignalResponse struct {
	Signal *RiskSignal `json:"signal"`
}

type RaiseRiskSignalRequest struct {
	AccountId string `json:"account_id"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Details   string `json:"details,omitempty"`
}

type RaiseRiskSignalResponse struct {
	Signal  *RiskSignal `json:"signal"`
	Created bool        `json:"created"`
}

type IngestSignalsRequest struct {
	Signals []*Signal `json:"signals"`
}

func (x *IngestSignalsRequest) GetSignals() []*Signal {
	if x != nil {
		return x.Signals
	}
	return nil
}

type IngestSignalsResponse struct {
	Accepted   int32 `json:"accepted"`
	Duplicates int32 `json:"duplicates"`
}

type UpsertAccountRequest struct {
	Account *Account `json:"account"`
}

func (x *UpsertAccountRequest) GetAccount() *Account {
	if x != nil {
		return x.Account
	}
	return nil
}

type AccountResponse struct {
	Account *Account `json:"account"`
}
