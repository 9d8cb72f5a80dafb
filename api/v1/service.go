package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "healthscore.v1.HealthScoring"

const (
	HealthScoring_GetCompositeScore_FullMethodName     = "/healthscore.v1.HealthScoring/GetCompositeScore"
	HealthScoring_RecomputeScore_FullMethodName        = "/healthscore.v1.HealthScoring/RecomputeScore"
	HealthScoring_GetScoreHistory_FullMethodName       = "/healthscore.v1.HealthScoring/GetScoreHistory"
	HealthScoring_GetPortfolioSummary_FullMethodName   = "/healthscore.v1.HealthScoring/GetPortfolioSummary"
	HealthScoring_GetPriorityQueue_FullMethodName      = "/healthscore.v1.HealthScoring/GetPriorityQueue"
	HealthScoring_ListActiveRiskSignals_FullMethodName = "/healthscore.v1.HealthScoring/ListActiveRiskSignals"
	HealthScoring_AcknowledgeRiskSignal_FullMethodName = "/healthscore.v1.HealthScoring/AcknowledgeRiskSignal"
	HealthScoring_ResolveRiskSignal_FullMethodName     = "/healthscore.v1.HealthScoring/ResolveRiskSignal"
	HealthScoring_RaiseRiskSignal_FullMethodName       = "/healthscore.v1.HealthScoring/RaiseRiskSignal"
	HealthScoring_IngestSignals_FullMethodName         = "/healthscore.v1.HealthScoring/IngestSignals"
	HealthScoring_UpsertAccount_FullMethodName         = "/healthscore.v1.HealthScoring/UpsertAccount"
)

type HealthScoringServer interface {
	GetCompositeScore(context.Context, *GetCompositeScoreRequest) (*CompositeScoreResponse, error)
	RecomputeScore(context.Context, *RecomputeScoreRequest) (*RecomputeScoreResponse, error)
	GetScoreHistory(context.Context, *GetScoreHistoryRequest) (*ScoreHistoryResponse, error)
	GetPortfolioSummary(context.Context, *GetPortfolioSummaryRequest) (*PortfolioSummaryResponse, error)
	GetPriorityQueue(context.Context, *GetPriorityQueueRequest) (*PriorityQueueResponse, error)
	ListActiveRiskSignals(context.Context, *ListActiveRiskSignalsRequest) (*RiskSignalsResponse, error)
	AcknowledgeRiskSignal(context.Context, *AcknowledgeRiskSignalRequest) (*RiskSignalResponse, error)
	ResolveRiskSignal(context.Context, *ResolveRiskSignalRequest) (*RiskSignalResponse, error)
	RaiseRiskSignal(context.Context, *RaiseRiskSignalRequest) (*RaiseRiskSignalResponse, error)
	IngestSignals(context.Context, *IngestSignalsRequest) (*IngestSignalsResponse, error)
	UpsertAccount(context.Context, *UpsertAccountRequest) (*AccountResponse, error)
}

// UnimplementedHealthScoringServer can be embedded to keep implementations
// compiling when methods are added.
type UnimplementedHealthScoringServer struct{}

func (UnimplementedHealthScoringServer) GetCompositeScore(context.Context, *GetCompositeScoreRequest) (*CompositeScoreResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCompositeScore not implemented")
}
func (UnimplementedHealthScoringServer) RecomputeScore(context.Context, *RecomputeScoreRequest) (*RecomputeScoreResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RecomputeScore not implemented")
}
func (UnimplementedHealthScoringServer) GetScoreHistory(context.Context, *GetScoreHistoryRequest) (*ScoreHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetScoreHistory not implemented")
}
func (UnimplementedHealthScoringServer) GetPortfolioSummary(context.Context, *GetPortfolioSummaryRequest) (*PortfolioSummaryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPortfolioSummary not implemented")
}
func (UnimplementedHealthScoringServer) GetPriorityQueue(context.Context, *GetPriorityQueueRequest) (*PriorityQueueResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPriorityQueue not implemented")
}
func (UnimplementedHealthScoringServer) ListActiveRiskSignals(context.Context, *ListActiveRiskSignalsRequest) (*RiskSignalsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListActiveRiskSignals not implemented")
}
func (UnimplementedHealthScoringServer) AcknowledgeRiskSignal(context.Context, *AcknowledgeRiskSignalRequest) (*RiskSignalResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AcknowledgeRiskSignal not implemented")
}
func (UnimplementedHealthScoringServer) ResolveRiskSignal(context.Context, *ResolveRiskSignalRequest) (*RiskSignalResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResolveRiskSignal not implemented")
}
func (UnimplementedHealthScoringServer) RaiseRiskSignal(context.Context, *RaiseRiskSignalRequest) (*RaiseRiskSignalResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RaiseRiskSignal not implemented")
}
func (UnimplementedHealthScoringServer) IngestSignals(context.Context, *IngestSignalsRequest) (*IngestSignalsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method IngestSignals not implemented")
}
func (UnimplementedHealthScoringServer) UpsertAccount(context.Context, *UpsertAccountRequest) (*AccountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpsertAccount not implemented")
}

func RegisterHealthScoringServer(s grpc.ServiceRegistrar, srv HealthScoringServer) {
	s.RegisterService(&HealthScoring_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](fullMethod string, call func(HealthScoringServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(HealthScoringServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(HealthScoringServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var HealthScoring_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HealthScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetCompositeScore",
			Handler:    unaryHandler(HealthScoring_GetCompositeScore_FullMethodName, HealthScoringServer.GetCompositeScore),
		},
		{
			MethodName: "RecomputeScore",
			Handler:    unaryHandler(HealthScoring_RecomputeScore_FullMethodName, HealthScoringServer.RecomputeScore),
		},
		{
			MethodName: "GetScoreHistory",
			Handler:    unaryHandler(HealthScoring_GetScoreHistory_FullMethodName, HealthScoringServer.GetScoreHistory),
		},
		{
			MethodName: "GetPortfolioSummary",
			Handler:    unaryHandler(HealthScoring_GetPortfolioSummary_FullMethodName, HealthScoringServer.GetPortfolioSummary),
		},
		{
			MethodName: "GetPriorityQueue",
			Handler:    unaryHandler(HealthScoring_GetPriorityQueue_FullMethodName, HealthScoringServer.GetPriorityQueue),
		},
		{
			MethodName: "ListActiveRiskSignals",
			Handler:    unaryHandler(HealthScoring_ListActiveRiskSignals_FullMethodName, HealthScoringServer.ListActiveRiskSignals),
		},
		{
			MethodName: "AcknowledgeRiskSignal",
			Handler:    unaryHandler(HealthScoring_AcknowledgeRiskSignal_FullMethodName, HealthScoringServer.AcknowledgeRiskSignal),
		},
		{
			MethodName: "ResolveRiskSignal",
			Handler:    unaryHandler(HealthScoring_ResolveRiskSignal_FullMethodName, HealthScoringServer.ResolveRiskSignal),
		},
		{
			MethodName: "RaiseRiskSignal",
			Handler:    unaryHandler(HealthScoring_RaiseRiskSignal_FullMethodName, HealthScoringServer.RaiseRiskSignal),
		},
		{
			MethodName: "IngestSignals",
			Handler:    unaryHandler(HealthScoring_IngestSignals_FullMethodName, HealthScoringServer.IngestSignals),
		},
		{
			MethodName: "UpsertAccount",
			Handler:    unaryHandler(HealthScoring_UpsertAccount_FullMethodName, HealthScoringServer.UpsertAccount),
		},
	},
	Streams: []grpc.StreamDesc{},
}

type HealthScoringClient interface {
	GetCompositeScore(ctx context.Context, in *GetCompositeScoreRequest, opts ...grpc.CallOption) (*CompositeScoreResponse, error)
	RecomputeScore(ctx context.Context, in *RecomputeScoreRequest, opts ...grpc.CallOption) (*RecomputeScoreResponse, error)
	GetScoreHistory(ctx context.Context, in *GetScoreHistoryRequest, opts ...grpc.CallOption) (*ScoreHistoryResponse, error)
	GetPortfolioSummary(ctx context.Context, in *GetPortfolioSummaryRequest, opts ...grpc.CallOption) (*PortfolioSummaryResponse, error)
	GetPriorityQueue(ctx context.Context, in *GetPriorityQueueRequest, opts ...grpc.CallOption) (*PriorityQueueResponse, error)
	ListActiveRiskSignals(ctx context.Context, in *ListActiveRiskSignalsRequest, opts ...grpc.CallOption) (*RiskSignalsResponse, error)
	AcknowledgeRiskSignal(ctx context.Context, in *AcknowledgeRiskSignalRequest, opts ...grpc.CallOption) (*RiskSignalResponse, error)
	ResolveRiskSignal(ctx context.Context, in *ResolveRiskSignalRequest, opts ...grpc.CallOption) (*RiskSignalResponse, error)
	RaiseRiskSignal(ctx context.Context, in *RaiseRiskSignalRequest, opts ...grpc.CallOption) (*RaiseRiskSignalResponse, error)
	IngestSignals(ctx context.Context, in *IngestSignalsRequest, opts ...grpc.CallOption) (*IngestSignalsResponse, error)
	UpsertAccount(ctx context.Context, in *UpsertAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error)
}

type healthScoringClient struct {
	cc grpc.ClientConnInterface
}

// NewHealthScoringClient returns a client whose calls always request the
// JSON codec.
func NewHealthScoringClient(cc grpc.ClientConnInterface) HealthScoringClient {
	return &healthScoringClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *healthScoringClient) GetCompositeScore(ctx context.Context, in *GetCompositeScoreRequest, opts ...grpc.CallOption) (*CompositeScoreResponse, error) {
	return invoke[CompositeScoreResponse](ctx, c.cc, HealthScoring_GetCompositeScore_FullMethodName, in, opts)
}

func (c *healthScoringClient) RecomputeScore(ctx context.Context, in *RecomputeScoreRequest, opts ...grpc.CallOption) (*RecomputeScoreResponse, error) {
	return invoke[RecomputeScoreResponse](ctx, c.cc, HealthScoring_RecomputeScore_FullMethodName, in, opts)
}

func (c *healthScoringClient) GetScoreHistory(ctx context.Context, in *GetScoreHistoryRequest, opts ...grpc.CallOption) (*ScoreHistoryResponse, error) {
	return invoke[ScoreHistoryResponse](ctx, c.cc, HealthScoring_GetScoreHistory_FullMethodName, in, opts)
}

func (c *healthScoringClient) GetPortfolioSummary(ctx context.Context, in *GetPortfolioSummaryRequest, opts ...grpc.CallOption) (*PortfolioSummaryResponse, error) {
	return invoke[PortfolioSummaryResponse](ctx, c.cc, HealthScoring_GetPortfolioSummary_FullMethodName, in, opts)
}

func (c *healthScoringClient) GetPriorityQueue(ctx context.Context, in *GetPriorityQueueRequest, opts ...grpc.CallOption) (*PriorityQueueResponse, error) {
	return invoke[PriorityQueueResponse](ctx, c.cc, HealthScoring_GetPriorityQueue_FullMethodName, in, opts)
}

func (c *healthScoringClient) ListActiveRiskSignals(ctx context.Context, in *ListActiveRiskSignalsRequest, opts ...grpc.CallOption) (*RiskSignalsResponse, error) {
	return invoke[RiskSignalsResponse](ctx, c.cc, HealthScoring_ListActiveRiskSignals_FullMethodName, in, opts)
}

func (c *healthScoringClient) AcknowledgeRiskSignal(ctx context.Context, in *AcknowledgeRiskSignalRequest, opts ...grpc.CallOption) (*RiskSignalResponse, error) {
	return invoke[RiskSignalResponse](ctx, c.cc, HealthScoring_AcknowledgeRiskSignal_FullMethodName, in, opts)
}

func (c *healthScoringClient) ResolveRiskSignal(ctx context.Context, in *ResolveRiskSignalRequest, opts ...grpc.CallOption) (*RiskSignalResponse, error) {
	return invoke[RiskSignalResponse](ctx, c.cc, HealthScoring_ResolveRiskSignal_FullMethodName, in, opts)
}

func (c *healthScoringClient) RaiseRiskSignal(ctx context.Context, in *RaiseRiskSignalRequest, opts ...grpc.CallOption) (*RaiseRiskSignalResponse, error) {
	return invoke[RaiseRiskSignalResponse](ctx, c.cc, HealthScoring_RaiseRiskSignal_FullMethodName, in, opts)
}

func (c *healthScoringClient) IngestSignals(ctx context.Context, in *IngestSignalsRequest, opts ...grpc.CallOption) (*IngestSignalsResponse, error) {
	return invoke[IngestSignalsResponse](ctx, c.cc, HealthScoring_IngestSignals_FullMethodName, in, opts)
}

func (c *healthScoringClient) UpsertAccount(ctx context.Context, in *UpsertAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c.cc, HealthScoring_UpsertAccount_FullMethodName, in, opts)
}
