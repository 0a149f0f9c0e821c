package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/MissionDeck/internal/adapter/gemini"
	mdhttp "github.com/Strob0t/MissionDeck/internal/adapter/http"
	"github.com/Strob0t/MissionDeck/internal/adapter/otel"
	"github.com/Strob0t/MissionDeck/internal/adapter/ws"
	"github.com/Strob0t/MissionDeck/internal/config"
	"github.com/Strob0t/MissionDeck/internal/logger"
	"github.com/Strob0t/MissionDeck/internal/resilience"
	"github.com/Strob0t/MissionDeck/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLogger := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer closeLogger.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"model", cfg.Gemini.Model,
	)

	ctx := context.Background()

	shutdownTracer := otel.InitTracer(cfg.Logging.Service)
	defer func() { _ = shutdownTracer(context.Background()) }()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Model provider ---
	llm, err := gemini.NewClient(ctx, cfg.Gemini)
	if err != nil {
		return fmt.Errorf("gemini: %w", err)
	}
	llm.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---
	hub := ws.NewHub()
	state := service.NewStateService(hub)
	tools := service.NewToolExecutor(cfg.Mission.ToolLatency)
	runner := service.NewRunner(state, llm, tools, metrics)
	sched := service.NewScheduler(service.RealClock, state, runner.Run)
	planner := service.NewPlannerService(llm)
	missions := service.NewMissionService(cfg.Mission, state, planner, runner, sched)
	defer sched.CancelAll()

	hub.SetHandler(ws.NewCommandRouter(missions))
	hub.SetSnapshot(missions.SnapshotMessages)

	// --- HTTP ---
	handlers := mdhttp.NewHandlers(state)

	r := chi.NewRouter()

	r.Use(mdhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(mdhttp.Logger)
	r.Use(mdhttp.SecurityHeaders)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))

	// WebSocket endpoint, outside the timeout middleware: connections are
	// long-lived.
	r.Get("/ws", hub.HandleWS)

	mdhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
