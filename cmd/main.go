package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Dosada05/swiss-system/brackets"
	"github.com/Dosada05/swiss-system/config"
	"github.com/Dosada05/swiss-system/handlers"
	"github.com/Dosada05/swiss-system/metrics"
	"github.com/Dosada05/swiss-system/middleware"
	"github.com/Dosada05/swiss-system/repositories"
	"github.com/Dosada05/swiss-system/routes"
	"github.com/Dosada05/swiss-system/services"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

// run owns every deferred cleanup so they complete before the exit code is
// returned to main.
func run() int {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		return 1
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("mirror", cfg.Storage.MirrorBackend))

	ctx := context.Background()

	primaryRepo, closePrimary, err := repositories.OpenBackend(ctx, cfg.Storage.Backend, cfg.Storage, cfg.Tournament.BuchholzScale)
	if err != nil {
		logger.Error("failed to open storage backend", slog.String("backend", cfg.Storage.Backend), slog.Any("error", err))
		return 1
	}
	defer closeBackend(logger, cfg.Storage.Backend, closePrimary)
	targets := []services.PersistTarget{{Name: cfg.Storage.Backend, Repo: primaryRepo}}

	if cfg.Storage.MirrorBackend != "" {
		mirrorRepo, closeMirror, err := repositories.OpenBackend(ctx, cfg.Storage.MirrorBackend, cfg.Storage, cfg.Tournament.BuchholzScale)
		if err != nil {
			logger.Error("failed to open mirror backend", slog.String("backend", cfg.Storage.MirrorBackend), slog.Any("error", err))
			return 1
		}
		defer closeBackend(logger, cfg.Storage.MirrorBackend, closeMirror)
		targets = append(targets, services.PersistTarget{Name: cfg.Storage.MirrorBackend, Repo: mirrorRepo})
	}
	logger.Info("storage initialized", slog.Int("targets", len(targets)))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tournamentMetrics := metrics.NewTournamentMetrics(registry)

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	var src rand.Source
	if cfg.Tournament.PairingSeed != 0 {
		src = rand.NewSource(cfg.Tournament.PairingSeed)
	}
	generators := brackets.NewGenerators(brackets.NewRandomGenerator(src))

	persister := services.NewPersister(logger, tournamentMetrics, targets...)
	tournamentService := services.NewTournamentService(
		services.TournamentServiceConfig{
			DefaultRoundMin: cfg.Tournament.DefaultRoundMin,
			DefaultRoundMax: cfg.Tournament.DefaultRoundMax,
			BuchholzScale:   cfg.Tournament.BuchholzScale,
		},
		primaryRepo,
		persister,
		generators,
		wsHub,
		tournamentMetrics,
		logger,
	)
	logger.Info("services initialized")

	auth := middleware.NewAuth(cfg.JWTSecretKey, logger)
	if !auth.Enabled() {
		logger.Warn("JWT_SECRET_KEY is empty, organizer endpoints are open")
	}

	router := routes.SetupRoutes(routes.Deps{
		Tournaments:    handlers.NewTournamentHandler(tournamentService, logger),
		WebSocket:      handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
		Auth:           auth,
		Gatherer:       registry,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			exitCode = 1
		} else {
			logger.Info("server shutdown complete")
		}
	}

	// Pending snapshot writes are drained before the backends close.
	tournamentService.Close()
	wsHub.Stop()
	logger.Info("application exited")
	return exitCode
}

func closeBackend(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Error("failed to close storage backend", slog.String("backend", name), slog.Any("error", err))
	}
}
