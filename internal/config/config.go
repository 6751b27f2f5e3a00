// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, ZAMAN_ prefix)
//  2. Config file (./config.yaml or /etc/zaman-assistant/config.yaml)
//  3. Default values
//
// Error handling uses sentinel errors so callers can branch with errors.Is.
// The OpenAI API key is read directly by the Genkit plugin from
// OPENAI_API_KEY; Load only validates its presence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates OPENAI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing OPENAI_API_KEY")

	// ErrInvalidModelName indicates an empty or malformed model name.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidPostgres indicates unusable PostgreSQL settings.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")

	// ErrInvalidFAQ indicates FAQ retrieval settings out of range.
	ErrInvalidFAQ = errors.New("invalid FAQ configuration")

	// ErrInvalidServer indicates unusable HTTP server settings.
	ErrInvalidServer = errors.New("invalid server configuration")

	// ErrInvalidGoals indicates peer-comparison settings out of range.
	ErrInvalidGoals = errors.New("invalid goals configuration")
)

// Config stores the full application configuration.
type Config struct {
	// Model selection. ChatModel drives the main dialogue; QuickReplyModel
	// generates button suggestions; SynthesisModel condenses FAQ passages.
	ChatModel       string `mapstructure:"chat_model"`
	QuickReplyModel string `mapstructure:"quick_reply_model"`
	SynthesisModel  string `mapstructure:"synthesis_model"`
	EmbedderModel   string `mapstructure:"embedder_model"`

	// Model call shaping.
	ModelTimeoutSeconds int     `mapstructure:"model_timeout_seconds"`
	ModelRatePerMinute  float64 `mapstructure:"model_rate_per_minute"`

	// Conversation.
	HistoryWindow int `mapstructure:"history_window"`

	// FAQ retrieval.
	FAQTopK      int32   `mapstructure:"faq_top_k"`
	FAQThreshold float64 `mapstructure:"faq_threshold"`
	FAQCacheSize int     `mapstructure:"faq_cache_size"`

	// Quick replies.
	QuickReplyFilter bool `mapstructure:"quick_reply_filter"`

	// Peer-group comparison.
	GoalsRefreshMinutes int `mapstructure:"goals_refresh_minutes"`

	// Currency rates endpoint. Empty uses the built-in default.
	RatesURL string `mapstructure:"rates_url"`

	// Storage. DatabaseURL overrides the individual fields when set.
	DatabaseURL      string `mapstructure:"database_url"`
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// HTTP server.
	ServerAddr string `mapstructure:"server_addr"`
}

// Load reads configuration from defaults, an optional config file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/zaman-assistant")

	setDefaults(v)

	v.SetEnvPrefix("ZAMAN")
	v.AutomaticEnv()
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chat_model", "gpt-4o-mini")
	v.SetDefault("quick_reply_model", "gpt-4o-mini")
	v.SetDefault("synthesis_model", "gpt-4o-mini")
	v.SetDefault("embedder_model", "text-embedding-3-small")

	v.SetDefault("model_timeout_seconds", 60)
	v.SetDefault("model_rate_per_minute", 60)

	v.SetDefault("history_window", 10)

	v.SetDefault("faq_top_k", 3)
	v.SetDefault("faq_threshold", 0.3)
	v.SetDefault("faq_cache_size", 256)

	v.SetDefault("quick_reply_filter", true)

	v.SetDefault("goals_refresh_minutes", 10)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "zaman")
	v.SetDefault("postgres_password", "zaman_dev_password")
	v.SetDefault("postgres_db_name", "zaman")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("server_addr", ":8080")
}

func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}
	// DATABASE_URL follows the conventional unprefixed name.
	mustBind("database_url", "DATABASE_URL")
}

// Validate fails fast on unusable configuration.
func (c *Config) Validate() error {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
	}

	for _, model := range []string{c.ChatModel, c.QuickReplyModel, c.SynthesisModel, c.EmbedderModel} {
		if model == "" {
			return fmt.Errorf("%w: model names must not be empty", ErrInvalidModelName)
		}
	}

	if c.DatabaseURL != "" {
		if _, err := url.Parse(c.DatabaseURL); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPostgres, err)
		}
	} else {
		if c.PostgresHost == "" || c.PostgresDBName == "" || c.PostgresUser == "" {
			return fmt.Errorf("%w: host, user and db name are required", ErrInvalidPostgres)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidPostgres, c.PostgresPort)
		}
	}

	if c.FAQTopK < 1 || c.FAQTopK > 20 {
		return fmt.Errorf("%w: top_k %d out of range [1,20]", ErrInvalidFAQ, c.FAQTopK)
	}
	if c.FAQThreshold < 0 || c.FAQThreshold > 1 {
		return fmt.Errorf("%w: threshold %f out of range [0,1]", ErrInvalidFAQ, c.FAQThreshold)
	}

	// A non-positive cadence would stall the refresh loop.
	if c.GoalsRefreshMinutes < 1 {
		return fmt.Errorf("%w: goals_refresh_minutes %d must be positive", ErrInvalidGoals, c.GoalsRefreshMinutes)
	}

	if c.ServerAddr == "" {
		return fmt.Errorf("%w: server_addr must not be empty", ErrInvalidServer)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.PostgresUser),
		url.QueryEscape(c.PostgresPassword),
		c.PostgresHost, c.PostgresPort, c.PostgresDBName, c.PostgresSSLMode)
}

// ModelTimeout returns the per-call model timeout as a duration.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}

// GoalsRefreshInterval returns the peer-feature rebuild cadence.
func (c *Config) GoalsRefreshInterval() time.Duration {
	return time.Duration(c.GoalsRefreshMinutes) * time.Minute
}
