package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/triage-ai/phishguard/internal/engine"
	"github.com/triage-ai/phishguard/internal/engine/detectors"
	"github.com/triage-ai/phishguard/internal/storage"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type recordingWriter struct {
	mu     sync.Mutex
	events []*storage.DetectionEvent
}

func (r *recordingWriter) Write(e *storage.DetectionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingWriter) Close() {}

func (r *recordingWriter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recordingWriter) event(i int) *storage.DetectionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[i]
}

// testServer spins up an in-process gRPC server and returns a connected client.
func testServer(t *testing.T) (*DetectServiceClient, *grpc.ClientConn, *recordingWriter) {
	t.Helper()

	logger := zap.NewNop()
	eng := engine.NewEngine([]engine.Detector{detectors.NewPhishingDetector()}, logger)
	writer := &recordingWriter{}

	grpcServer, _ := NewGRPCServer(NewDetectServer(eng, writer, logger), logger)

	lis := bufconn.Listen(1 << 20)
	go grpcServer.Serve(lis) //nolint:errcheck

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		grpcServer.Stop()
	})

	return NewDetectServiceClient(conn), conn, writer
}

func callCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestIntegration_PhishingMessage(t *testing.T) {
	client, _, writer := testServer(t)

	safe, reason, err := client.DetectMessage(callCtx(t), "Your account suspended, click here to verify")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if safe {
		t.Error("expected safe=false")
	}
	if reason != engine.ReasonPhishing {
		t.Errorf("unexpected reason %q", reason)
	}
	if writer.count() != 1 {
		t.Fatalf("expected 1 event, got %d", writer.count())
	}
	if writer.event(0).Source != "grpc" {
		t.Errorf("expected grpc source, got %q", writer.event(0).Source)
	}
}

func TestIntegration_SafeMessage(t *testing.T) {
	client, _, _ := testServer(t)

	safe, reason, err := client.DetectMessage(callCtx(t), "hello world")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !safe || reason != engine.ReasonClean {
		t.Errorf("expected safe/%q, got %v/%q", engine.ReasonClean, safe, reason)
	}
}

func TestIntegration_RequestIDHeader(t *testing.T) {
	client, _, writer := testServer(t)

	in, _ := structpb.NewStruct(map[string]any{"message": "login now"})
	var header metadata.MD
	if _, err := client.Detect(callCtx(t), in, grpc.Header(&header)); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	ids := header.Get("x-request-id")
	if len(ids) != 1 {
		t.Fatalf("expected one x-request-id header, got %v", ids)
	}
	if ids[0] != writer.event(0).RequestID {
		t.Errorf("header %s does not match event %s", ids[0], writer.event(0).RequestID)
	}
}

func TestIntegration_InvalidArgument(t *testing.T) {
	client, _, writer := testServer(t)

	tests := []struct {
		name   string
		fields map[string]any
		msg    string
	}{
		{"missing", map[string]any{}, "message is required"},
		{"null", map[string]any{"message": nil}, "message is required"},
		{"number", map[string]any{"message": 7.0}, "message must be a string"},
		{"bool", map[string]any{"message": true}, "message must be a string"},
		{"list", map[string]any{"message": []any{"urgent"}}, "message must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := structpb.NewStruct(tt.fields)
			if err != nil {
				t.Fatalf("build request: %v", err)
			}
			_, err = client.Detect(callCtx(t), in)
			st, ok := status.FromError(err)
			if !ok || st.Code() != codes.InvalidArgument {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
			if st.Message() != tt.msg {
				t.Errorf("expected message %q, got %q", tt.msg, st.Message())
			}
		})
	}

	if writer.count() != 0 {
		t.Errorf("invalid requests must not record events, got %d", writer.count())
	}
}

func TestIntegration_HealthServing(t *testing.T) {
	_, conn, _ := testServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(callCtx(t), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", resp.Status)
	}
}

func TestDetectServer_DirectCall(t *testing.T) {
	logger := zap.NewNop()
	eng := engine.NewEngine([]engine.Detector{detectors.NewPhishingDetector()}, logger)
	srv := NewDetectServer(eng, &recordingWriter{}, logger)

	in, _ := structpb.NewStruct(map[string]any{"message": "BANK transfer"})
	out, err := srv.Detect(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.GetFields()["safe"].GetBoolValue() {
		t.Error("expected safe=false")
	}
	if len(out.GetFields()) != 2 {
		t.Errorf("expected exactly safe and reason, got %v", out.GetFields())
	}
}

func TestDetectServer_CancelledContext(t *testing.T) {
	logger := zap.NewNop()
	eng := engine.NewEngine([]engine.Detector{detectors.NewPhishingDetector()}, logger)
	writer := &recordingWriter{}
	srv := NewDetectServer(eng, writer, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in, _ := structpb.NewStruct(map[string]any{"message": "hello there"})
	out, err := srv.Detect(ctx, in)
	if out != nil {
		t.Errorf("expected no response, got %v", out)
	}
	if status.Code(err) != codes.Canceled {
		t.Fatalf("expected Canceled, got %v", err)
	}
	if writer.count() != 0 {
		t.Errorf("cancelled call must not record events, got %d", writer.count())
	}
}

func TestMessageFromStruct_NilStruct(t *testing.T) {
	if _, err := messageFromStruct(nil); err != engine.ErrMessageRequired {
		t.Errorf("expected ErrMessageRequired, got %v", err)
	}
}

func TestMessageFromStruct_EmptyKind(t *testing.T) {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{"message": {}}}
	if _, err := messageFromStruct(req); err != engine.ErrMessageRequired {
		t.Errorf("expected ErrMessageRequired, got %v", err)
	}
}
