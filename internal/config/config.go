// Package config loads service configuration and owns logger setup.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Market   MarketConfig   `mapstructure:"market"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	AI       AIConfig       `mapstructure:"ai"`
	API      APIConfig      `mapstructure:"api"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // "json" or "console"
}

// EngineConfig contains decision engine settings.
type EngineConfig struct {
	MaxConcurrentDecisions int64         `mapstructure:"max_concurrent_decisions"`
	DecisionTimeout        time.Duration `mapstructure:"decision_timeout"`
	MaxPositionSize        float64       `mapstructure:"max_position_size"` // fraction of portfolio
	MinTradeAmount         float64       `mapstructure:"min_trade_amount"`  // account currency
}

// MarketConfig contains market-data provider settings.
type MarketConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// RiskConfig contains risk evaluation settings.
type RiskConfig struct {
	BenchmarkSymbol   string        `mapstructure:"benchmark_symbol"`
	BenchmarkCacheTTL time.Duration `mapstructure:"benchmark_cache_ttl"`
	RiskFreeRate      float64       `mapstructure:"risk_free_rate"`
}

// RedisConfig contains Redis cache settings.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	QuoteTTL time.Duration `mapstructure:"quote_ttl"`
}

// DatabaseConfig contains PostgreSQL settings for the decision audit log.
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// NATSConfig contains decision event publishing settings.
type NATSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// AIConfig contains AI decision/analysis service settings.
type AIConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	BreakerOpen time.Duration `mapstructure:"breaker_open"` // how long the circuit stays open
}

// APIConfig contains HTTP API settings.
type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads configuration from the given file (optional), environment
// variables prefixed DECIDER_, and built-in defaults, in that order of
// increasing precedence for env vars.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("DECIDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "decider")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("engine.max_concurrent_decisions", 3)
	v.SetDefault("engine.decision_timeout", 30*time.Second)
	v.SetDefault("engine.max_position_size", 0.10)
	v.SetDefault("engine.min_trade_amount", 100.0)

	v.SetDefault("market.endpoint", "http://localhost:9100")
	v.SetDefault("market.timeout", 10*time.Second)
	v.SetDefault("market.max_retries", 2)

	v.SetDefault("risk.benchmark_symbol", "SPY")
	v.SetDefault("risk.benchmark_cache_ttl", 4*time.Hour)
	v.SetDefault("risk.risk_free_rate", 0.03)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.quote_ttl", 15*time.Second)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "decisions")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.max_retries", 2)
	v.SetDefault("ai.breaker_open", 60*time.Second)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Engine.MaxConcurrentDecisions < 1 {
		return fmt.Errorf("engine.max_concurrent_decisions must be >= 1, got %d", c.Engine.MaxConcurrentDecisions)
	}
	if c.Engine.DecisionTimeout <= 0 {
		return fmt.Errorf("engine.decision_timeout must be positive, got %s", c.Engine.DecisionTimeout)
	}
	if c.Engine.MaxPositionSize <= 0 || c.Engine.MaxPositionSize > 1 {
		return fmt.Errorf("engine.max_position_size must be in (0,1], got %f", c.Engine.MaxPositionSize)
	}
	if c.Market.Endpoint == "" {
		return fmt.Errorf("market.endpoint is required")
	}
	if c.Risk.BenchmarkCacheTTL <= 0 {
		return fmt.Errorf("risk.benchmark_cache_ttl must be positive, got %s", c.Risk.BenchmarkCacheTTL)
	}
	if c.AI.Enabled && c.AI.Endpoint == "" {
		return fmt.Errorf("ai.endpoint is required when ai.enabled is true")
	}
	return nil
}

// DSN builds the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}
