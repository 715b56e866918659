package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/mcules/ransomguard/internal/api"
	"github.com/mcules/ransomguard/internal/audit"
	"github.com/mcules/ransomguard/internal/auth"
	"github.com/mcules/ransomguard/internal/config"
	"github.com/mcules/ransomguard/internal/extract"
	"github.com/mcules/ransomguard/internal/grpcapi"
	"github.com/mcules/ransomguard/internal/history"
	"github.com/mcules/ransomguard/internal/httpx"
	"github.com/mcules/ransomguard/internal/inference"
	"github.com/mcules/ransomguard/internal/metrics"
	"github.com/mcules/ransomguard/internal/model"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg)

	// The predictor is loaded once and shared read-only by every request.
	predictor, err := model.Open(context.Background(), cfg.ModelPath, cfg.PredictorURL, cfg.PredictorTimeout)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}
	dispatcher := inference.NewDispatcher(predictor)
	logger.Info("model loaded", "model", dispatcher.Describe())

	var store *history.Store
	if cfg.HistoryDBPath != "" {
		store, err = history.Open(cfg.HistoryDBPath)
		if err != nil {
			log.Fatalf("failed to open history store: %v", err)
		}
		defer store.Close()
	}
	if cfg.RequireAPIKey && store == nil {
		log.Fatalf("REQUIRE_API_KEY needs HISTORY_DB_PATH for the key store")
	}

	authenticator := auth.NewAuthenticator(store, cfg.RequireAPIKey)
	tracker := metrics.NewTracker(0.2)

	pipeline := &inference.Pipeline{
		Extractor:  extract.PE{MaxScanBytes: extract.DefaultMaxScanBytes, Logger: logger},
		Dispatcher: dispatcher,
		TempDir:    cfg.UploadTempDir,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// gRPC server.
	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}

		grpcServer = grpc.NewServer(
			grpc.UnaryInterceptor(authenticator.UnaryInterceptor),
			grpc.MaxRecvMsgSize(int(cfg.MaxUploadSize)+(1<<20)),
		)
		svc := &grpcapi.Service{
			Pipeline:   pipeline,
			Dispatcher: dispatcher,
			Journal:    audit.Journal{History: store, Metrics: tracker, Log: logger},
			Log:        logger,
		}
		svc.Register(grpcServer)

		go func() {
			logger.Info("gRPC listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(grpcLis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	// HTTP server (API + frontend on same port).
	mux := http.NewServeMux()
	h := &api.Handler{
		Pipeline:            pipeline,
		Dispatcher:          dispatcher,
		History:             store,
		Metrics:             tracker,
		Auth:                authenticator,
		ContainManualErrors: cfg.ContainManualErrors,
		MaxUploadSize:       cfg.MaxUploadSize,
		StaticDir:           cfg.StaticDir,
		Log:                 logger,
	}
	h.Register(mux)

	handler := httpx.CORS{AllowOrigin: cfg.CORSAllowOrigin}.Wrap(httpx.AccessLog(logger, mux))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
	}()

	logger.Info("HTTP listening", "addr", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http serve: %v", err)
	}
	<-stopped
}
