// Package grpcapi exposes the classifier as the ransomguard.v1.Classifier gRPC
// service. Messages are well-known protobuf types so no generated code is
// needed: features travel as a Struct, binaries as BytesValue.
package grpcapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mcules/ransomguard/internal/audit"
	"github.com/mcules/ransomguard/internal/features"
	"github.com/mcules/ransomguard/internal/inference"
)

const (
	ServiceName = "ransomguard.v1.Classifier"

	predictFeaturesMethod = "/" + ServiceName + "/PredictFeatures"
	predictFileMethod     = "/" + ServiceName + "/PredictFile"

	source = "grpc"
)

// ClassifierServer is the server side of the Classifier service.
type ClassifierServer interface {
	PredictFeatures(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PredictFile(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClassifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PredictFeatures", Handler: predictFeaturesHandler},
		{MethodName: "PredictFile", Handler: predictFileHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ransomguard/v1/classifier.proto",
}

func predictFeaturesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassifierServer).PredictFeatures(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: predictFeaturesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ClassifierServer).PredictFeatures(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func predictFileHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClassifierServer).PredictFile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: predictFileMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ClassifierServer).PredictFile(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Service implements ClassifierServer on top of the inference pipeline.
type Service struct {
	Pipeline   *inference.Pipeline
	Dispatcher *inference.Dispatcher
	Journal    audit.Journal
	Log        *slog.Logger
}

// Register adds the classifier and a health service reporting it as serving.
func (s *Service) Register(g *grpc.Server) *health.Server {
	g.RegisterService(&ServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(g, hs)
	return hs
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func (s *Service) PredictFeatures(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	rec, err := recordFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	started := time.Now()
	res, err := s.Dispatcher.Dispatch(ctx, rec)
	id := s.Journal.Record(ctx, source, started, res, inference.Sample{}, err)
	if err != nil {
		s.logger().Error("grpc feature prediction failed", "prediction_id", id, "err", err)
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	return resultStruct(id, res)
}

func (s *Service) PredictFile(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if len(in.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "empty file")
	}

	started := time.Now()
	res, sample, err := s.Pipeline.ClassifyFile(ctx, bytes.NewReader(in.GetValue()))
	id := s.Journal.Record(ctx, source, started, res, sample, err)
	switch {
	case errors.Is(err, features.ErrExtractionFailed):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, status.FromContextError(err).Err()
	case err != nil:
		s.logger().Error("grpc file prediction failed", "prediction_id", id, "sha256", sample.SHA256, "err", err)
		return nil, status.Errorf(codes.Internal, "%v", err)
	}

	out, err := resultStruct(id, res)
	if err != nil {
		return nil, err
	}
	out.Fields["sha256"] = structpb.NewStringValue(sample.SHA256)
	return out, nil
}

// recordFromStruct accepts a Struct carrying every schema column as an
// integral number. Unknown keys are ignored.
func recordFromStruct(in *structpb.Struct) (features.Record, error) {
	raw := features.RawRecord{}
	for name, v := range in.GetFields() {
		if _, ok := features.Lookup(name); !ok {
			continue
		}
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return features.Record{}, &FieldTypeError{Field: name}
		}
		f := n.NumberValue
		if f != math.Trunc(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
			return features.Record{}, &FieldTypeError{Field: name}
		}
		raw[name] = int64(f)
	}
	return features.FromMetadata(raw)
}

// FieldTypeError reports a feature that is not an integer.
type FieldTypeError struct {
	Field string
}

func (e *FieldTypeError) Error() string {
	return "field " + e.Field + " must be an integer"
}

func resultStruct(id string, res inference.Result) (*structpb.Struct, error) {
	feats := make(map[string]any, features.NumFields)
	for name, v := range res.Features.Map() {
		feats[name] = v
	}
	out, err := structpb.NewStruct(map[string]any{
		"prediction_id": id,
		"prediction":    string(res.Label),
		"class":         res.Class,
		"features":      feats,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}
