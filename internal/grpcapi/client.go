package grpcapi

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mcules/ransomguard/internal/features"
	"github.com/mcules/ransomguard/internal/inference"
)

// Prediction is the decoded reply of both methods.
type Prediction struct {
	ID       string
	Label    inference.Label
	Class    int
	SHA256   string
	Features features.Record
}

type Client struct {
	cc     grpc.ClientConnInterface
	apiKey string
}

// NewClient wraps a connection. A non-empty apiKey is sent as a bearer token
// on every call.
func NewClient(cc grpc.ClientConnInterface, apiKey string) *Client {
	return &Client{cc: cc, apiKey: apiKey}
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.apiKey)
}

func (c *Client) PredictFile(ctx context.Context, data []byte, opts ...grpc.CallOption) (Prediction, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(c.outgoing(ctx), predictFileMethod, wrapperspb.Bytes(data), out, opts...); err != nil {
		return Prediction{}, err
	}
	return decodePrediction(out)
}

func (c *Client) PredictFeatures(ctx context.Context, rec features.Record, opts ...grpc.CallOption) (Prediction, error) {
	fields := make(map[string]any, features.NumFields)
	for name, v := range rec.Map() {
		fields[name] = v
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return Prediction{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(c.outgoing(ctx), predictFeaturesMethod, in, out, opts...); err != nil {
		return Prediction{}, err
	}
	return decodePrediction(out)
}

func decodePrediction(s *structpb.Struct) (Prediction, error) {
	m := s.GetFields()
	p := Prediction{
		ID:     m["prediction_id"].GetStringValue(),
		Label:  inference.Label(m["prediction"].GetStringValue()),
		Class:  int(m["class"].GetNumberValue()),
		SHA256: m["sha256"].GetStringValue(),
	}
	if p.Label == "" {
		return Prediction{}, errors.New("reply has no prediction")
	}
	for name, v := range m["features"].GetStructValue().GetFields() {
		if f, ok := features.Lookup(name); ok {
			p.Features.Set(f, int64(v.GetNumberValue()))
		}
	}
	return p, nil
}
