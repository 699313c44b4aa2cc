package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 9090
logging:
  development: false
newsapi:
  base_url: http://feed.local
  api_key: news-secret
  language: fr
  timeout_seconds: 5
  requests_per_second: 2.5
  user_agent: test-agent
openai:
  api_key: llm-secret
  model: gpt-4.1-mini
  base_url: http://llm.local/v1/
  timeout_seconds: 9
ingest:
  desired_global: 10
  desired_local: 40
  page_size: 4
  cooldown: 30m
  max_retries: 5
  backoff_base: 250ms
cities:
  path: /tmp/cities.csv
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected production logging")
	}
	if cfg.NewsAPI.BaseURL != "http://feed.local" || cfg.NewsAPI.Language != "fr" || cfg.NewsAPI.RequestsPerSecond != 2.5 {
		t.Fatalf("expected newsapi overrides to apply: %+v", cfg.NewsAPI)
	}
	if cfg.OpenAI.Model != "gpt-4.1-mini" || cfg.OpenAI.BaseURL != "http://llm.local/v1/" {
		t.Fatalf("expected openai overrides to apply: %+v", cfg.OpenAI)
	}
	if cfg.Ingest.Cooldown != 30*time.Minute || cfg.Ingest.BackoffBase != 250*time.Millisecond {
		t.Fatalf("expected duration overrides, got %+v", cfg.Ingest)
	}
	if cfg.Ingest.DesiredGlobal != 10 || cfg.Ingest.DesiredLocal != 40 || cfg.Ingest.PageSize != 4 || cfg.Ingest.MaxRetries != 5 {
		t.Fatalf("expected quota overrides, got %+v", cfg.Ingest)
	}
	if cfg.Cities.Path != "/tmp/cities.csv" {
		t.Fatalf("expected cities path override, got %q", cfg.Cities.Path)
	}
	if got := cfg.NewsAPITimeout(); got != 5*time.Second {
		t.Fatalf("expected newsapi timeout 5s, got %v", got)
	}
	if got := cfg.ClassifierTimeout(); got != 9*time.Second {
		t.Fatalf("expected openai timeout 9s, got %v", got)
	}
}

func TestLoadDefaultsWithIngestDisabled(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "ingest:\n  enabled: false\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 || !cfg.Logging.Development {
		t.Fatalf("unexpected server/logging defaults: %+v %+v", cfg.Server, cfg.Logging)
	}
	if cfg.NewsAPI.BaseURL != "https://newsapi.org" || cfg.NewsAPI.Language != "en" || cfg.NewsAPI.UserAgent != "localnews/1.0" {
		t.Fatalf("unexpected newsapi defaults: %+v", cfg.NewsAPI)
	}
	if cfg.OpenAI.Model != "gpt-4o-mini" || cfg.OpenAI.TimeoutSeconds != 30 {
		t.Fatalf("unexpected openai defaults: %+v", cfg.OpenAI)
	}
	want := IngestConfig{
		Enabled:       false,
		DesiredGlobal: 20,
		DesiredLocal:  80,
		PageSize:      5,
		Cooldown:      12 * time.Hour,
		MaxRetries:    3,
		BackoffBase:   time.Second,
	}
	if cfg.Ingest != want {
		t.Fatalf("unexpected ingest defaults: %+v", cfg.Ingest)
	}
	if cfg.Cities.Path != "data/uscities.csv" {
		t.Fatalf("unexpected cities path %q", cfg.Cities.Path)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "newsapi:\n  api_key: only-news\n"))
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if !strings.Contains(err.Error(), "openai.api_key") {
		t.Fatalf("expected error to name openai.api_key, got %v", err)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("LOCALNEWS_SERVER_PORT", "7070")
	t.Setenv("LOCALNEWS_NEWSAPI_API_KEY", "env-news")
	t.Setenv("OPENAI_API_KEY", "env-llm")
	t.Setenv("LOCALNEWS_INGEST_COOLDOWN", "1h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected port from env, got %d", cfg.Server.Port)
	}
	if cfg.NewsAPI.APIKey != "env-news" || cfg.OpenAI.APIKey != "env-llm" {
		t.Fatalf("expected credentials from env, got %q %q", cfg.NewsAPI.APIKey, cfg.OpenAI.APIKey)
	}
	if cfg.Ingest.Cooldown != time.Hour {
		t.Fatalf("expected cooldown from env, got %v", cfg.Ingest.Cooldown)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		NewsAPI: NewsAPIConfig{TimeoutSeconds: 15, APIKey: "n"},
		OpenAI:  LLMConfig{TimeoutSeconds: 30, APIKey: "o"},
		Ingest: IngestConfig{
			Enabled:     true,
			PageSize:    5,
			MaxRetries:  3,
			BackoffBase: time.Second,
		},
		Cities: CitiesConfig{Path: "cities.csv"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"invalid newsapi timeout", func(c *Config) { c.NewsAPI.TimeoutSeconds = 0 }, "newsapi.timeout_seconds"},
		{"negative rps", func(c *Config) { c.NewsAPI.RequestsPerSecond = -1 }, "newsapi.requests_per_second"},
		{"invalid openai timeout", func(c *Config) { c.OpenAI.TimeoutSeconds = 0 }, "openai.timeout_seconds"},
		{"negative quota", func(c *Config) { c.Ingest.DesiredLocal = -1 }, "ingest.desired_global"},
		{"invalid page size", func(c *Config) { c.Ingest.PageSize = 0 }, "ingest.page_size"},
		{"negative cooldown", func(c *Config) { c.Ingest.Cooldown = -time.Second }, "ingest.cooldown"},
		{"invalid retries", func(c *Config) { c.Ingest.MaxRetries = 0 }, "ingest.max_retries"},
		{"invalid backoff", func(c *Config) { c.Ingest.BackoffBase = 0 }, "ingest.backoff_base"},
		{"missing cities path", func(c *Config) { c.Cities.Path = "" }, "cities.path"},
		{"missing newsapi key", func(c *Config) { c.NewsAPI.APIKey = "" }, "newsapi.api_key"},
		{"unknown provider", func(c *Config) { c.Classifier.Provider = "gemini" }, "classifier.provider"},
		{"missing anthropic key", func(c *Config) { c.Classifier.Provider = "anthropic" }, "anthropic.api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	disabled := base
	disabled.Ingest.Enabled = false
	disabled.NewsAPI.APIKey = ""
	disabled.OpenAI.APIKey = ""
	if err := disabled.Validate(); err != nil {
		t.Fatalf("credentials are optional when ingestion is disabled: %v", err)
	}
}

func TestLoadAnthropicProvider(t *testing.T) {
	t.Setenv("LOCALNEWS_NEWSAPI_API_KEY", "n")
	t.Setenv("ANTHROPIC_API_KEY", "a")

	cfg, err := Load(writeConfig(t, "classifier:\n  provider: anthropic\nanthropic:\n  timeout_seconds: 12\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	llm := cfg.LLM()
	if llm.APIKey != "a" || llm.Model != "claude-haiku-4-5" {
		t.Fatalf("expected anthropic settings, got %+v", llm)
	}
	if got := cfg.ClassifierTimeout(); got != 12*time.Second {
		t.Fatalf("expected classifier timeout 12s, got %v", got)
	}
}
