package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/netutil"

	httpadapter "github.com/barros404/finance-sub003/internal/adapters/http"
	"github.com/barros404/finance-sub003/internal/bootstrap"
	"github.com/barros404/finance-sub003/internal/config"
	"github.com/barros404/finance-sub003/internal/observability/logging"
	"github.com/barros404/finance-sub003/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("api")
	app.Reconciler.SetLexiconObserver(func() {
		serverMetrics.RecordLexiconUpdate("api")
	})
	router := httpadapter.NewRouter(
		app.IngestUC,
		app.Repo,
		app.ValidateUC,
		app.MapUC,
		serverMetrics,
		httpadapter.Options{
			Service:          "api",
			MaxUploadBytes:   int64(cfg.MaxUploadMB) << 20,
			RateLimitRPS:     cfg.APIRateLimitRPS,
			RateLimitBurst:   cfg.APIRateLimitBurst,
			MaxInFlight:      cfg.APIMaxInFlight,
			BackpressureWait: time.Duration(cfg.APIBackpressureWait) * time.Millisecond,
		},
	).Handler()

	mux := http.NewServeMux()
	mux.Handle("/metrics", serverMetrics.Handler())
	mux.Handle("/", router)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		slog.Error("listen_failed", "addr", server.Addr, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxOpenConns > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxOpenConns)
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
