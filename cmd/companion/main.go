// Package main runs the companion engagement engine HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/easeaico/companion-engine/internal/affection"
	"github.com/easeaico/companion-engine/internal/cache"
	"github.com/easeaico/companion-engine/internal/chat"
	"github.com/easeaico/companion-engine/internal/config"
	"github.com/easeaico/companion-engine/internal/gateway"
	"github.com/easeaico/companion-engine/internal/handler"
	"github.com/easeaico/companion-engine/internal/models"
	"github.com/easeaico/companion-engine/internal/quest"
	"github.com/easeaico/companion-engine/internal/repository"
	"github.com/easeaico/companion-engine/internal/scheduler"
)

const shutdownGrace = 10 * time.Second

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	store, err := repository.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create llm provider")
	}

	responseCache, cooldownCache := newCaches(ctx, cfg, log)

	gw := gateway.New(provider, gateway.NewAdmissionController(cfg.MaxConcurrent), responseCache, cfg.UpstreamTimeout, log)
	affectionEngine := affection.NewEngine(store, log)
	questEngine := quest.NewEngine()
	svc := chat.NewService(store, gw, affectionEngine, questEngine, log)

	proactive := scheduler.New(
		store.Relationships, store.Messages,
		scheduler.StaticMood{Value: 0.5}, nil, cooldownCache,
		cfg.SchedulerTick, cfg.InactivityThreshold, cfg.ProactiveCooldown, log,
	)
	go proactive.Run(ctx)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.New(svc, log).Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("provider", provider.Name()).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-sigCh
	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

func newProvider(ctx context.Context, cfg config.Config) (models.Provider, error) {
	switch cfg.LLMProvider {
	case "gemini":
		return models.NewGeminiProvider(ctx, cfg.GoogleAPIKey)
	default:
		return models.NewOpenAIProvider(cfg.OpenAIAPIKey, "")
	}
}

// newCaches builds the response cache and the scheduler cooldown cache,
// Redis-backed when REDIS_ADDR is set.
func newCaches(ctx context.Context, cfg config.Config, log zerolog.Logger) (cache.Cache, cache.Cache) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, falling back to in-process cache")
		} else {
			return cache.NewRedis(client, "answer", cfg.CacheTTL, log),
				cache.NewRedis(client, "proactive", cfg.ProactiveCooldown, log)
		}
	}

	responseCache := cache.NewMemory(cfg.CacheTTL)
	responseCache.StartSweeper(ctx, time.Minute)
	cooldownCache := cache.NewMemory(cfg.ProactiveCooldown)
	cooldownCache.StartSweeper(ctx, time.Minute)
	return responseCache, cooldownCache
}
