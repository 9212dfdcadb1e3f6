package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/chat-relay/config"
	"github.com/cwrk-planet/chat-relay/internal/service"
	grpcx "github.com/cwrk-planet/chat-relay/internal/transport/grpc"
	httpx "github.com/cwrk-planet/chat-relay/internal/transport/http"
	"github.com/cwrk-planet/chat-relay/internal/transport/ws"
	"github.com/cwrk-planet/chat-relay/pkg/logger"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("logging.level: %v", err)
	}
	logger.Init(logger.Config{
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     level,
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-relay",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- tracing ---
	if cfg.Tracing.Enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				slog.Warn("tracer shutdown", slog.Any("err", err))
			}
		}()
	}

	// --- registry ---
	registry := service.NewRegistry(service.WithPollIDRange(cfg.Poll.IDRange))
	defer registry.Close()

	// --- WS Hub & Server ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, registry, ws.Config{
		ReadLimit:      cfg.WS.ReadLimit,
		SendBuffer:     cfg.WS.SendBuffer,
		PingEvery:      cfg.WS.PingEvery,
		WriteWait:      cfg.WS.WriteWait,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	// --- HTTP ---
	router := httpx.NewRouter(httpx.RouterConfig{
		WSPath:         cfg.HTTP.WSPath,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, httpx.NewHandler(registry), wsServer.HandleWS)
	httpSrv := httpx.NewServer(httpx.ServerConfig{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, router)

	// --- gRPC ---
	grpcCfg := grpcx.Config{Addr: cfg.GRPC.Addr, CallTimeout: cfg.GRPC.CallTimeout}
	grpcServer, health := grpcx.NewGRPCServer(registry, grpcCfg)

	// --- run both servers ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Run(ctx) }()
	go func() { errCh <- grpcx.Run(ctx, grpcCfg, grpcServer, health) }()

	// --- graceful shutdown ---
	running := 2
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal")
	case err := <-errCh:
		running--
		if err != nil {
			slog.Error("server error", "err", err)
		}
		stop()
	}

	hub.CloseAll("server shutting down")
	for ; running > 0; running-- {
		if err := <-errCh; err != nil {
			slog.Error("server stopped with error", "err", err)
		}
	}
	slog.Info("stopped")
}
