package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"repolens/internal/app"
	"repolens/internal/cache"
	"repolens/internal/config"
	"repolens/internal/database"
	"repolens/internal/github"
	"repolens/internal/llm"
	"repolens/internal/ratelimit"
	"repolens/internal/service"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	// Create logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick the result store: postgres when configured, in-memory otherwise
	var store cache.Store
	if cfg.DatabaseConfigured() {
		pgStore, err := database.New(cfg.GetDSN(), cfg.Cache)
		if err != nil {
			log.Fatalf("Error connecting to database: %v", err)
		}
		store = pgStore
		logger.Info().Msg("Using postgres result store")
	} else {
		store = cache.NewMemory(cfg.Cache)
		logger.Info().Msg("Using in-memory result store")
	}

	// Initialize GitHub client
	githubClient := github.NewClient(cfg.GitHub.Token, cfg.Limits)
	if cfg.GitHub.Token == "" {
		logger.Warn().Msg("No GitHub token configured; unauthenticated rate limits apply")
	}

	// The completion client is optional at boot. Without it the server
	// still serves health and cache endpoints, and the analyze endpoint
	// reports itself unavailable.
	var completions service.CompletionClient
	if cfg.GeminiConfigured() {
		gemini, err := llm.NewGemini(ctx, cfg.Gemini)
		if err != nil {
			log.Fatalf("Error creating completion client: %v", err)
		}
		defer gemini.Close()
		completions = gemini
	} else {
		logger.Warn().Msg("No Gemini API key configured; analysis is disabled")
	}

	// Create service layer
	svcLogger := logger.With().Str("component", "service").Logger()
	svc := service.New(githubClient, completions, store, cfg, &svcLogger)

	// Per-client request limiter
	limiter := ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)

	// Initialize and start the application
	application, err := app.New(cfg, logger, svc, limiter)
	if err != nil {
		log.Fatalf("Error creating application: %v", err)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
