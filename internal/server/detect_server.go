package server

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/triage-ai/phishguard/internal/engine"
	"github.com/triage-ai/phishguard/internal/storage"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DetectServer implements DetectService on top of the detection engine.
type DetectServer struct {
	engine *engine.Engine
	writer storage.EventWriter
	logger *zap.Logger
}

// NewDetectServer creates a new DetectServer with the given dependencies.
func NewDetectServer(eng *engine.Engine, writer storage.EventWriter, logger *zap.Logger) *DetectServer {
	return &DetectServer{
		engine: eng,
		writer: writer,
		logger: logger,
	}
}

// Detect implements DetectService.Detect.
func (s *DetectServer) Detect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()

	message, err := messageFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	verdict, err := s.engine.Check(ctx, message)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}

	requestID := uuid.New().String()

	s.writer.Write(storage.NewDetectionEvent(requestID, engine.SourceGRPC, message, verdict, time.Since(start)))

	// Only fails outside a gRPC call (direct invocation in tests).
	_ = grpc.SetHeader(ctx, metadata.Pairs("x-request-id", requestID))

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"safe":   structpb.NewBoolValue(verdict.Safe),
			"reason": structpb.NewStringValue(verdict.Reason),
		},
	}, nil
}

// messageFromStruct extracts the "message" field, rejecting absent, null and non-string values.
func messageFromStruct(req *structpb.Struct) (string, error) {
	v, ok := req.GetFields()["message"]
	if !ok || v == nil {
		return "", engine.ErrMessageRequired
	}
	switch k := v.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return "", engine.ErrMessageRequired
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	default:
		return "", engine.ErrMessageNotString
	}
}

// NewGRPCServer builds a grpc.Server with DetectService and the standard
// health service registered. The health status starts as SERVING.
func NewGRPCServer(detect DetectServiceServer, logger *zap.Logger) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 10 * time.Second,
			Time:                  30 * time.Second,
			Timeout:               5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.MaxRecvMsgSize(4*1024*1024),
		grpc.MaxSendMsgSize(4*1024*1024),
		grpc.ChainUnaryInterceptor(loggingInterceptor(logger)),
	)

	RegisterDetectServiceServer(grpcServer, detect)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return grpcServer, healthServer
}

// loggingInterceptor logs every unary call with its status code.
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}
