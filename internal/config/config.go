package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds settings for all hoopwatch processes. Values come from
// the environment, with a .env file loaded first when present.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`

	RedisURL string `env:"REDIS_URL" envDefault:"localhost:6379"`

	// LLM provider: anthropic, google or mock.
	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"google"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`
	ModelName       string `env:"MODEL_NAME"`

	// Monitor settings.
	GameURL          string        `env:"GAME_URL" envDefault:"http://localhost:8080"`
	UseCDP           bool          `env:"USE_CDP" envDefault:"false"`
	CDPURL           string        `env:"CDP_URL" envDefault:"http://localhost:9222"`
	ShotInterval     time.Duration `env:"SHOT_INTERVAL" envDefault:"3s"`
	DetectorInterval time.Duration `env:"DETECTOR_INTERVAL" envDefault:"2s"`
	DetectorTimeout  time.Duration `env:"DETECTOR_TIMEOUT" envDefault:"120s"`
	ScreenshotDir    string        `env:"SCREENSHOT_DIR" envDefault:"./screenshots"`

	WorkerID    string `env:"WORKER_ID"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9091"`

	LogLevel slog.Level `env:"-"`
}

// Load reads configuration from a .env file (if any) and the process
// environment.
func Load() (*Config, error) {
	// Missing .env is fine; real env vars win either way.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	return cfg, nil
}

// Validate checks settings needed for the selected LLM provider.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLMProvider) {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when using the anthropic provider")
		}
	case "google":
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required when using the google provider")
		}
	case "mock":
	default:
		return fmt.Errorf("invalid LLM provider %q (supported: anthropic, google, mock)", c.LLMProvider)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
