package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Google      GoogleConfig      `yaml:"google" mapstructure:"google"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Apify       ApifyConfig       `yaml:"apify" mapstructure:"apify"`
	Scrape      ScrapeConfig      `yaml:"scrape" mapstructure:"scrape"`
	Editorial   EditorialConfig   `yaml:"editorial" mapstructure:"editorial"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Resilience  ResilienceConfig  `yaml:"resilience" mapstructure:"resilience"`
	Redis       RedisConfig       `yaml:"redis" mapstructure:"redis"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq" mapstructure:"rabbitmq"`
	Maintenance MaintenanceConfig `yaml:"maintenance" mapstructure:"maintenance"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	AppURL      string   `yaml:"app_url" mapstructure:"app_url"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GoogleConfig holds Google Maps Platform settings.
type GoogleConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	MapsBaseURL    string  `yaml:"maps_base_url" mapstructure:"maps_base_url"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	GeocodeCacheHr int     `yaml:"geocode_cache_hours" mapstructure:"geocode_cache_hours"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	VisionModel    string `yaml:"vision_model" mapstructure:"vision_model"`
	EditorialModel string `yaml:"editorial_model" mapstructure:"editorial_model"`
	MaxTokens      int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ApifyConfig holds Apify actor settings for listing scrapes.
type ApifyConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Actor       string `yaml:"actor" mapstructure:"actor"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ScrapeConfig configures the fallback listing scrapers.
type ScrapeConfig struct {
	HTMLEnabled    bool   `yaml:"html_enabled" mapstructure:"html_enabled"`
	BrowserEnabled bool   `yaml:"browser_enabled" mapstructure:"browser_enabled"`
	ChromePath     string `yaml:"chrome_path" mapstructure:"chrome_path"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
}

// EditorialConfig selects the editorial text generator.
type EditorialConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// PipelineConfig configures ingestion behavior.
type PipelineConfig struct {
	FallbackLat    float64 `yaml:"fallback_lat" mapstructure:"fallback_lat"`
	FallbackLng    float64 `yaml:"fallback_lng" mapstructure:"fallback_lng"`
	DefaultTier    string  `yaml:"default_tier" mapstructure:"default_tier"`
	MaxPhotos      int     `yaml:"max_photos" mapstructure:"max_photos"`
	RunLockTTLSecs int     `yaml:"run_lock_ttl_secs" mapstructure:"run_lock_ttl_secs"`
}

// RunLockTTL returns the run guard lease as a duration.
func (p PipelineConfig) RunLockTTL() time.Duration {
	return time.Duration(p.RunLockTTLSecs) * time.Second
}

// ResilienceConfig configures outbound retry and circuit breaking.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BreakerThreshold int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// RedisConfig configures the optional Redis cache and run guard.
type RedisConfig struct {
	URL          string `yaml:"url" mapstructure:"url"`
	PoolSize     int    `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  int    `yaml:"dial_timeout_secs" mapstructure:"dial_timeout_secs"`
}

// RabbitMQConfig configures the optional certificate event publisher.
type RabbitMQConfig struct {
	URL        string `yaml:"url" mapstructure:"url"`
	Exchange   string `yaml:"exchange" mapstructure:"exchange"`
	RoutingKey string `yaml:"routing_key" mapstructure:"routing_key"`
}

// MaintenanceConfig configures the background sweeper.
type MaintenanceConfig struct {
	Schedule             string `yaml:"schedule" mapstructure:"schedule"`
	StuckAfterMinutes    int    `yaml:"stuck_after_minutes" mapstructure:"stuck_after_minutes"`
	ConfirmationTTLHours int    `yaml:"confirmation_ttl_hours" mapstructure:"confirmation_ttl_hours"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RUMOO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.app_url", "http://localhost:3000")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("google.key", "")
	v.SetDefault("google.maps_base_url", "https://maps.googleapis.com/maps/api")
	v.SetDefault("google.rate_limit", 10.0)
	v.SetDefault("google.geocode_cache_hours", 720)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.editorial_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 600)
	v.SetDefault("apify.key", "")
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.actor", "maxcopell~zillow-scraper")
	v.SetDefault("apify.timeout_secs", 30)
	v.SetDefault("scrape.html_enabled", true)
	v.SetDefault("scrape.browser_enabled", false)
	v.SetDefault("scrape.chrome_path", "")
	v.SetDefault("scrape.timeout_secs", 20)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; RumooBot/1.0)")
	v.SetDefault("editorial.provider", "template")
	v.SetDefault("pipeline.fallback_lat", 34.0522)
	v.SetDefault("pipeline.fallback_lng", -118.2437)
	v.SetDefault("pipeline.default_tier", "normal")
	v.SetDefault("pipeline.max_photos", 8)
	v.SetDefault("pipeline.run_lock_ttl_secs", 300)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 250)
	v.SetDefault("resilience.max_backoff_ms", 4000)
	v.SetDefault("resilience.breaker_threshold", 5)
	v.SetDefault("resilience.breaker_reset_secs", 30)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout_secs", 5)
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "rumoo.certificates")
	v.SetDefault("rabbitmq.routing_key", "certificate.ready")
	v.SetDefault("maintenance.schedule", "@every 5m")
	v.SetDefault("maintenance.stuck_after_minutes", 30)
	v.SetDefault("maintenance.confirmation_ttl_hours", 168)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs before it starts.
func (c *Config) Validate(command string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	switch command {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Server.AppURL == "" {
			problems = append(problems, "server.app_url is required")
		}
	case "sweep":
		if c.Maintenance.StuckAfterMinutes <= 0 {
			problems = append(problems, "maintenance.stuck_after_minutes must be positive")
		}
	}

	if c.Pipeline.DefaultTier != "normal" && c.Pipeline.DefaultTier != "pro" {
		problems = append(problems, "pipeline.default_tier must be normal or pro")
	}
	if c.Editorial.Provider != "template" && c.Editorial.Provider != "anthropic" {
		problems = append(problems, "editorial.provider must be template or anthropic")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
