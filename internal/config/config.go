// Package config loads application configuration with Viper: defaults, then
// an optional YAML file, then ICON_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fleveque/icon-service/internal/fetch"
	"github.com/fleveque/icon-service/internal/scraper"
)

// Config is the root configuration struct.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Mirrors   MirrorsConfig   `mapstructure:"mirrors"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	IconDir      string `mapstructure:"icon_dir"`
}

// AuthConfig holds API keys. An empty list leaves those routes open.
type AuthConfig struct {
	APIKeys   []string `mapstructure:"api_keys"`
	AdminKeys []string `mapstructure:"admin_keys"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ScraperConfig controls outbound fetching and candidate validation.
type ScraperConfig struct {
	UserAgent          string        `mapstructure:"user_agent"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxBodyBytes       int64         `mapstructure:"max_body_bytes"`
	Concurrency        int           `mapstructure:"concurrency"`
	TrustDeclaredSizes bool          `mapstructure:"trust_declared_sizes"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second"`
}

// MirrorsConfig lists third-party favicon mirrors, tried in order when a page
// declares no usable icon. Each template must contain "{host}".
type MirrorsConfig struct {
	Templates []string `mapstructure:"templates"`
}

type LLMConfig struct {
	// ProviderOrder lists the LLM providers to try, primary first.
	ProviderOrder []string        `mapstructure:"provider_order"`
	Anthropic     AnthropicConfig `mapstructure:"anthropic"`
	OpenAI        OpenAIConfig    `mapstructure:"openai"`
	RatePerMinute int             `mapstructure:"rate_per_minute"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
// A missing file is only an error when configPath names it explicitly.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.database_path", "./storage/icon-service.db")
	v.SetDefault("storage.icon_dir", "./storage/icons")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("scraper.user_agent", "icon-service/1.0")
	v.SetDefault("scraper.timeout", 15*time.Second)
	v.SetDefault("scraper.max_body_bytes", fetch.DefaultMaxBodyBytes)
	v.SetDefault("scraper.concurrency", 4)
	v.SetDefault("scraper.trust_declared_sizes", true)
	v.SetDefault("scraper.requests_per_second", 0)
	v.SetDefault("mirrors.templates", []string{})
	v.SetDefault("llm.provider_order", []string{"anthropic", "openai"})
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.rate_per_minute", 10)
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// ICON_SERVER_PORT=9090 overrides server.port.
	v.SetEnvPrefix("ICON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Scraper.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate rejects settings the fetch client would otherwise silently replace.
func (s ScraperConfig) Validate() error {
	switch {
	case s.Timeout < 0:
		return fmt.Errorf("scraper.timeout must not be negative, got %s", s.Timeout)
	case s.MaxBodyBytes < 0:
		return fmt.Errorf("scraper.max_body_bytes must not be negative, got %d", s.MaxBodyBytes)
	case s.Concurrency < 1:
		return fmt.Errorf("scraper.concurrency must be at least 1, got %d", s.Concurrency)
	case s.RequestsPerSecond < 0:
		return fmt.Errorf("scraper.requests_per_second must not be negative, got %g", s.RequestsPerSecond)
	}
	return nil
}

// FetchOptions returns the HTTP client settings.
func (s ScraperConfig) FetchOptions() fetch.Options {
	return fetch.Options{
		UserAgent:         s.UserAgent,
		Timeout:           s.Timeout,
		MaxBodyBytes:      s.MaxBodyBytes,
		RequestsPerSecond: s.RequestsPerSecond,
	}
}

// ScraperOptions returns the discovery settings.
func (s ScraperConfig) ScraperOptions() scraper.Options {
	return scraper.Options{
		TrustDeclaredSizes: s.TrustDeclaredSizes,
		Concurrency:        s.Concurrency,
	}
}
