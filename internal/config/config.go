// Package config loads daemon configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bimdev1/Cortex/pkg/provider"
	"github.com/bimdev1/Cortex/pkg/tracing"
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Poller    PollerConfig    `mapstructure:"poller"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	RateBurst   int           `mapstructure:"rate_burst"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Type            string        `mapstructure:"type"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type PollerConfig struct {
	IntervalMS int `mapstructure:"interval_ms"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProvidersConfig carries per-network sections. A nil section means the
// network is not configured and its provider is not registered.
type ProvidersConfig struct {
	Akash  *provider.AkashConfig  `mapstructure:"akash"`
	Render *provider.RenderConfig `mapstructure:"render"`
}

// Load reads configuration from the given file (optional) plus
// CORTEX_-prefixed environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.dsn", "cortex.db")
	v.SetDefault("poller.interval_ms", 10000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "cortexd")
	v.SetDefault("tracing.environment", "development")

	v.SetEnvPrefix("CORTEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Poller.IntervalMS <= 0 {
		return fmt.Errorf("poller.interval_ms must be positive, got %d", c.Poller.IntervalMS)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	return nil
}

// PollInterval returns the reconciliation interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poller.IntervalMS) * time.Millisecond
}
