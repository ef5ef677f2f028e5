package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepforge/quizgate/internal/config"
	"github.com/prepforge/quizgate/internal/handler"
	"github.com/prepforge/quizgate/internal/logger"
	"github.com/prepforge/quizgate/internal/registry"
	"github.com/prepforge/quizgate/internal/router"
	"github.com/prepforge/quizgate/internal/store"
	"github.com/prepforge/quizgate/internal/token"
	"github.com/prepforge/quizgate/internal/upstream"
	"github.com/prepforge/quizgate/internal/validator"
	"github.com/prepforge/quizgate/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("upstream", cfg.UpstreamBaseURL).
		Msg("Starting QuizGate")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Core Components ────────────────────────────────────
	client := upstream.NewClient(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, log)
	decoder := token.NewDecoder(cfg.JWTSecret)
	sessions := registry.New(cfg.SessionRetention, log)
	scores := store.NewScoreStore(rdb, cfg.ScoreTTL)
	selections := store.NewChapterSelectionStore(rdb, cfg.ChapterSelectionTTL)
	redeliverWorker := worker.NewRedeliverWorker(client, rdb, log)

	// ─── Initialize Handlers ───────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(client),
		Chapter: handler.NewChapterHandler(client, selections),
		Quiz:    handler.NewQuizHandler(cfg, client, sessions, selections, scores, redeliverWorker, log),
		Admin:   handler.NewAdminHandler(client),
		WS:      handler.NewWSHandler(sessions, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ──────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	go redeliverWorker.Start(workerCtx)
	go sessions.RunJanitor(workerCtx, time.Minute)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(decoder, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the worker and wait for the redelivery queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow the worker to drain.

	// 3. Close any remaining sessions so subscribers see the shutdown.
	sessions.CloseAll()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
