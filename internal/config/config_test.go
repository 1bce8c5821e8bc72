package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("vizbot-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Database.MaxOpenConns != 20 {
		t.Fatalf("Database.MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Translator.MaxRetries != 2 {
		t.Fatalf("Translator.MaxRetries = %d", cfg.Translator.MaxRetries)
	}
	if cfg.Translator.MaxRowLimit != 500 {
		t.Fatalf("Translator.MaxRowLimit = %d", cfg.Translator.MaxRowLimit)
	}
	if cfg.Executor.StatementTimeout != 15*time.Second {
		t.Fatalf("Executor.StatementTimeout = %v", cfg.Executor.StatementTimeout)
	}
	if cfg.Artifacts.Enabled {
		t.Fatal("Artifacts.Enabled should default to false")
	}
	if !cfg.Insight.Enabled {
		t.Fatal("Insight.Enabled should default to true")
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("vizbot-api", mapLookup(map[string]string{"VIZBOT_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Artifacts.UseSSL {
		t.Fatal("Artifacts.UseSSL should default to true in prod")
	}
	if cfg.Artifacts.AutoCreateBucket {
		t.Fatal("Artifacts.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	cfg, err := Load("vizbot-api", mapLookup(map[string]string{
		"VIZBOT_HTTP_ADDR":                  ":9090",
		"VIZBOT_DATABASE_DSN":               "postgres://u:p@db:5432/app",
		"VIZBOT_AI_MODEL":                   "gpt-4o",
		"VIZBOT_AI_RATE_LIMIT_RPS":          "0.5",
		"VIZBOT_TRANSLATOR_MAX_ROW_LIMIT":   "100",
		"VIZBOT_EXECUTOR_STATEMENT_TIMEOUT": "3s",
		"VIZBOT_LOG_LEVEL":                  "error",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":9090" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Database.DSN != "postgres://u:p@db:5432/app" {
		t.Fatalf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.AI.Model != "gpt-4o" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.RateLimitRPS != 0.5 {
		t.Fatalf("AI.RateLimitRPS = %v", cfg.AI.RateLimitRPS)
	}
	if cfg.Translator.MaxRowLimit != 100 {
		t.Fatalf("Translator.MaxRowLimit = %d", cfg.Translator.MaxRowLimit)
	}
	if cfg.Executor.StatementTimeout != 3*time.Second {
		t.Fatalf("Executor.StatementTimeout = %v", cfg.Executor.StatementTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		env    map[string]string
		substr string
	}{
		{"invalid profile", map[string]string{"VIZBOT_PROFILE": "staging"}, "VIZBOT_PROFILE"},
		{"invalid duration", map[string]string{"VIZBOT_AI_TIMEOUT": "soon"}, "VIZBOT_AI_TIMEOUT"},
		{"invalid int", map[string]string{"VIZBOT_TRANSLATOR_MAX_RETRIES": "two"}, "VIZBOT_TRANSLATOR_MAX_RETRIES"},
		{"invalid log level", map[string]string{"VIZBOT_LOG_LEVEL": "verbose"}, "VIZBOT_LOG_LEVEL"},
		{"zero row limit", map[string]string{"VIZBOT_TRANSLATOR_MAX_ROW_LIMIT": "0"}, "row limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load("vizbot-api", mapLookup(tc.env))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.substr) {
				t.Fatalf("error = %v, want substring %q", err, tc.substr)
			}
		})
	}
}
