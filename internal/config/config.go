// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "LOCALNEWS"

// ErrMissingCredential is returned when ingestion is enabled without the
// upstream API keys it needs.
var ErrMissingCredential = errors.New("missing credential")

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	NewsAPI    NewsAPIConfig    `mapstructure:"newsapi"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	OpenAI     LLMConfig        `mapstructure:"openai"`
	Anthropic  LLMConfig        `mapstructure:"anthropic"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Cities     CitiesConfig     `mapstructure:"cities"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// NewsAPIConfig configures the headline feed client.
type NewsAPIConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	Language          string  `mapstructure:"language"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	UserAgent         string  `mapstructure:"user_agent"`
}

// ClassifierConfig selects the LLM backend.
type ClassifierConfig struct {
	Provider string `mapstructure:"provider"`
}

// LLMConfig configures one classifier backend.
type LLMConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// IngestConfig governs the startup ingestion run.
type IngestConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DesiredGlobal int           `mapstructure:"desired_global"`
	DesiredLocal  int           `mapstructure:"desired_local"`
	PageSize      int           `mapstructure:"page_size"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	MaxRetries    int           `mapstructure:"max_retries"`
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
}

// CitiesConfig points at the reference city list.
type CitiesConfig struct {
	Path string `mapstructure:"path"`
}

// Load builds a Config from defaults, an optional file and the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindCredentialAliases(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("newsapi.base_url", "https://newsapi.org")
	v.SetDefault("newsapi.api_key", "")
	v.SetDefault("newsapi.language", "en")
	v.SetDefault("newsapi.timeout_seconds", 15)
	v.SetDefault("newsapi.requests_per_second", 0)
	v.SetDefault("newsapi.user_agent", "localnews/1.0")
	v.SetDefault("classifier.provider", "openai")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.timeout_seconds", 30)
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.timeout_seconds", 30)
	v.SetDefault("ingest.enabled", true)
	v.SetDefault("ingest.desired_global", 20)
	v.SetDefault("ingest.desired_local", 80)
	v.SetDefault("ingest.page_size", 5)
	v.SetDefault("ingest.cooldown", "12h")
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.backoff_base", "1s")
	v.SetDefault("cities.path", "data/uscities.csv")
}

// bindCredentialAliases also accepts the variable names the upstream
// providers document.
func bindCredentialAliases(v *viper.Viper) {
	_ = v.BindEnv("newsapi.api_key", EnvPrefix+"_NEWSAPI_API_KEY", "NEWSAPI_KEY")
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("anthropic.api_key", EnvPrefix+"_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.NewsAPI.TimeoutSeconds <= 0 {
		return fmt.Errorf("newsapi.timeout_seconds must be > 0")
	}
	if c.NewsAPI.RequestsPerSecond < 0 {
		return fmt.Errorf("newsapi.requests_per_second must be >= 0")
	}
	provider := c.Classifier.Provider
	switch provider {
	case "":
		provider = "openai"
	case "openai", "anthropic":
	default:
		return fmt.Errorf("classifier.provider must be openai or anthropic, got %q", provider)
	}
	if c.LLM().TimeoutSeconds <= 0 {
		return fmt.Errorf("%s.timeout_seconds must be > 0", provider)
	}
	if c.Ingest.DesiredGlobal < 0 || c.Ingest.DesiredLocal < 0 {
		return fmt.Errorf("ingest.desired_global and ingest.desired_local must be >= 0")
	}
	if c.Ingest.PageSize <= 0 {
		return fmt.Errorf("ingest.page_size must be > 0")
	}
	if c.Ingest.Cooldown < 0 {
		return fmt.Errorf("ingest.cooldown must be >= 0")
	}
	if c.Ingest.MaxRetries <= 0 {
		return fmt.Errorf("ingest.max_retries must be > 0")
	}
	if c.Ingest.BackoffBase <= 0 {
		return fmt.Errorf("ingest.backoff_base must be > 0")
	}
	if c.Cities.Path == "" {
		return fmt.Errorf("cities.path must be set")
	}
	if c.Ingest.Enabled {
		if c.NewsAPI.APIKey == "" {
			return fmt.Errorf("%w: newsapi.api_key must be set when ingestion is enabled", ErrMissingCredential)
		}
		if c.LLM().APIKey == "" {
			return fmt.Errorf("%w: %s.api_key must be set when ingestion is enabled", ErrMissingCredential, provider)
		}
	}
	return nil
}

// NewsAPITimeout returns the feed request timeout.
func (c Config) NewsAPITimeout() time.Duration {
	return time.Duration(c.NewsAPI.TimeoutSeconds) * time.Second
}

// LLM returns the settings of the selected classifier provider. An empty
// provider means openai.
func (c Config) LLM() LLMConfig {
	if c.Classifier.Provider == "anthropic" {
		return c.Anthropic
	}
	return c.OpenAI
}

// ClassifierTimeout returns the request timeout of the selected provider.
func (c Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.LLM().TimeoutSeconds) * time.Second
}
