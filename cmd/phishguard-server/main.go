package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/triage-ai/phishguard/internal/api"
	"github.com/triage-ai/phishguard/internal/config"
	"github.com/triage-ai/phishguard/internal/engine"
	"github.com/triage-ai/phishguard/internal/engine/detectors"
	"github.com/triage-ai/phishguard/internal/server"
	"github.com/triage-ai/phishguard/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// Logger
	logger := mustBuildLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	logger.Info("starting phishguard server",
		zap.String("http_port", cfg.HTTPPort),
		zap.String("grpc_port", cfg.GRPCPort),
		zap.Int64("max_body_bytes", cfg.MaxBodyBytes),
		zap.Strings("patterns", detectors.Patterns()),
	)

	eng := engine.NewEngine([]engine.Detector{
		detectors.NewPhishingDetector(),
	}, logger)

	writer := buildEventWriter(cfg, logger)

	// HTTP API server
	httpServer := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(&api.Dependencies{
			Engine:       eng,
			Writer:       writer,
			Logger:       logger,
			MaxBodyBytes: cfg.MaxBodyBytes,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// gRPC server (optional)
	grpcServer, healthServer := server.NewGRPCServer(server.NewDetectServer(eng, writer, logger), logger)
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			logger.Fatal("failed to listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
		}
		go func() {
			logger.Info("grpc server listening", zap.String("addr", lis.Addr().String()))
			if err := grpcServer.Serve(lis); err != nil {
				logger.Fatal("grpc server failed", zap.Error(err))
			}
		}()
	} else {
		logger.Info("no PHISHGUARD_GRPC_PORT set, gRPC transport disabled")
	}

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	// Graceful shutdown: stop intake first, then drain the event writer.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	healthServer.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	grpcServer.GracefulStop()
	writer.Close()

	logger.Info("phishguard server stopped")
}

// buildEventWriter connects every configured sink. Sinks that fail to connect
// are skipped; with none left, events go to the log.
func buildEventWriter(cfg *config.Config, logger *zap.Logger) storage.EventWriter {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var writers []storage.EventWriter

	if cfg.ClickHouseDSN != "" {
		chWriter, err := storage.NewClickHouseWriter(ctx, cfg.ClickHouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, skipping sink", zap.Error(err))
		} else {
			writers = append(writers, chWriter)
			logger.Info("clickhouse writer connected")
		}
	}

	if cfg.PostgresDSN != "" {
		pgWriter, err := storage.NewPostgresWriter(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			logger.Warn("postgres connection failed, skipping sink", zap.Error(err))
		} else {
			writers = append(writers, pgWriter)
			logger.Info("postgres writer connected")
		}
	}

	switch len(writers) {
	case 0:
		logger.Info("no event sink configured, using log writer")
		return storage.NewLogWriter(logger)
	case 1:
		return writers[0]
	default:
		return storage.NewMultiWriter(writers...)
	}
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}
