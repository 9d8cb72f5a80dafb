// Package v1 declares the healthscore.v1.HealthScoring gRPC contract. Messages
// are plain Go structs carried by a JSON codec registered under CodecName;
// timestamps use the well-known protobuf Timestamp type.
//
// The wire format is JSON only. No .proto descriptor is registered, so the
// server does not offer reflection and proto-only clients such as grpcurl
// cannot call the service; use NewHealthScoringClient or request the "json"
// content-subtype.
package v1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype clients must request.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
