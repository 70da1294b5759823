package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-feed-comments/internal/bootstrap"
	"github.com/pribylovaa/go-feed-comments/internal/config"
	grpctransport "github.com/pribylovaa/go-feed-comments/internal/transport/grpc"
	httptransport "github.com/pribylovaa/go-feed-comments/internal/transport/http"
	"github.com/pribylovaa/go-feed-comments/internal/transport/http/ws"
	logctx "github.com/pribylovaa/go-feed-comments/pkg/log"
)

// Константы окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting comments-widget", "env", cfg.Env, "backend", cfg.Feed.Backend)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	rootCtx = logctx.Into(rootCtx, log)

	hub := ws.NewHub()

	app, err := bootstrap.New(rootCtx, cfg, hub.Hooks())
	if err != nil {
		log.Error("bootstrap_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	log.Info("feed_opened", "topic", app.Topic.Hex())

	// HTTP: API виджета, readiness/liveness/metrics
	var ready int32 // 0 — not ready; 1 — ready
	httpAddr := cfg.HTTP.Addr()

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/", httptransport.NewRouter(app.Service, httptransport.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Service,
		BasePath: "/api",
		Live:     hub,
	}))

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http_listen_start", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}()

	// gRPC: health для оркестратора
	grpcSrv := grpctransport.New(grpctransport.Options{
		Logger:     log,
		Timeout:    cfg.Timeouts.Service,
		Reflection: cfg.Env == envLocal || cfg.Env == envDev,
	})

	addr := cfg.GRPC.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("grpc_listen_failed",
			slog.String("addr", addr),
			slog.String("err", err.Error()),
		)
		rootCancel()
		_ = app.Close(context.Background())
		os.Exit(1)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	// Начальная загрузка и опрос фида. Готовность — после первой успешной загрузки.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := app.LoadWithRetry(rootCtx, log, time.Second, cfg.Sync.PollInterval); err != nil {
			log.Warn("initial_load_aborted", slog.String("err", err.Error()))
			return
		}

		grpcSrv.SetServing(true)
		atomic.StoreInt32(&ready, 1)
		log.Info("widget_ready", "cursor", app.Engine.Cursor())

		if err := app.Engine.Run(rootCtx); err != nil {
			log.Error("polling_failed", slog.String("err", err.Error()))
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("grpc_serve_failed", slog.String("err", err.Error()))
		}
	}

	grpcSrv.SetServing(false)
	atomic.StoreInt32(&ready, 0)
	rootCancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	grpcSrv.Stop(shutdownCtx)
	hub.Close()
	_ = httpSrv.Shutdown(shutdownCtx)
	shutdownCancel()

	_ = app.Close(context.Background())

	log.Info("widget_stopped")
	os.Exit(0)
}

// setupLogger — текстовый лог локально, JSON в dev/prod.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
