package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.ShotInterval != 3*time.Second {
		t.Errorf("Expected default shot interval 3s, got %v", cfg.ShotInterval)
	}
	if cfg.DetectorTimeout != 120*time.Second {
		t.Errorf("Expected default detector timeout 120s, got %v", cfg.DetectorTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("Expected default log level info, got %v", cfg.LogLevel)
	}
	if cfg.MetricsPort != "9091" {
		t.Errorf("Expected default metrics port 9091, got %s", cfg.MetricsPort)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SHOT_INTERVAL", "500ms")
	t.Setenv("USE_CDP", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.ShotInterval != 500*time.Millisecond {
		t.Errorf("Expected 500ms shot interval, got %v", cfg.ShotInterval)
	}
	if !cfg.UseCDP {
		t.Error("Expected USE_CDP to be true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectError bool
	}{
		{name: "anthropic with key", cfg: Config{LLMProvider: "anthropic", AnthropicAPIKey: "sk-test"}},
		{name: "anthropic without key", cfg: Config{LLMProvider: "anthropic"}, expectError: true},
		{name: "google with key", cfg: Config{LLMProvider: "google", GoogleAPIKey: "key"}},
		{name: "google without key", cfg: Config{LLMProvider: "google"}, expectError: true},
		{name: "mock needs nothing", cfg: Config{LLMProvider: "mock"}},
		{name: "unknown provider", cfg: Config{LLMProvider: "openrouter"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected validation error")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.expected {
			t.Errorf("parseLogLevel(%q) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}
