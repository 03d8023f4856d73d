package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string `validate:"required"`
	DatabaseURL      string
	RedisURL         string `validate:"required_if=QueueBackend redis"`
	NATSURL          string
	JWTSecret        string `validate:"required"`
	AIProvider       string `validate:"oneof=openai azure"`
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AIModel          string
	AIMaxTokens      int
	QueueBackend     string `validate:"oneof=memory redis"`
	QueueWorkers     int    `validate:"gte=1"`
	QueueMaxAttempts int    `validate:"gte=1"`
	QueueBackoffBase time.Duration
	ShutdownGrace    time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "AI Assignment Grader")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("queue.backend", "memory")
	v.SetDefault("queue.workers", 5)
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.backoff_base", "5s")
	v.SetDefault("shutdown.grace", "30s")

	backoff, err := time.ParseDuration(v.GetString("queue.backoff_base"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid queue backoff base: %w", err)
	}

	grace, err := time.ParseDuration(v.GetString("shutdown.grace"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid shutdown grace: %w", err)
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		NATSURL:          v.GetString("nats.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		AIProvider:       strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:     v.GetString("openai_api_key"),
		OpenAIBaseURL:    v.GetString("openai_base_url"),
		AIModel:          v.GetString("ai.model"),
		AIMaxTokens:      v.GetInt("ai.max_tokens"),
		QueueBackend:     strings.ToLower(v.GetString("queue.backend")),
		QueueWorkers:     v.GetInt("queue.workers"),
		QueueMaxAttempts: v.GetInt("queue.max_attempts"),
		QueueBackoffBase: backoff,
		ShutdownGrace:    grace,
	}

	if cfg.QueueWorkers <= 0 {
		cfg.QueueWorkers = 5
	}

	if cfg.QueueMaxAttempts <= 0 {
		cfg.QueueMaxAttempts = 3
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
