// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime settings.
type Config struct {
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// LLMProvider selects the provider adapter: "openai" or "gemini".
	LLMProvider  string `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMModel     string `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY"`

	// RedisAddr enables the Redis cache backend when set; the in-process
	// cache is used otherwise.
	RedisAddr string `envconfig:"REDIS_ADDR"`

	MaxConcurrent   int           `envconfig:"MAX_CONCURRENT" default:"50"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	SchedulerTick       time.Duration `envconfig:"SCHEDULER_TICK" default:"2m"`
	InactivityThreshold time.Duration `envconfig:"INACTIVITY_THRESHOLD" default:"10m"`
	ProactiveCooldown   time.Duration `envconfig:"PROACTIVE_COOLDOWN" default:"30m"`
}

// Load reads env vars, applies defaults, and validates provider credentials.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}

	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "gemini":
		if cfg.GoogleAPIKey == "" {
			return Config{}, fmt.Errorf("GOOGLE_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		return Config{}, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	return cfg, nil
}
