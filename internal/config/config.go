package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/velahq/vela/internal/core"
)

type Config struct {
	Server     ServerConfig               `mapstructure:"server"`
	Market     MarketConfig               `mapstructure:"market"`
	Backtest   BacktestConfig             `mapstructure:"backtest"`
	Analysis   AnalysisConfig             `mapstructure:"analysis"`
	Data       DataConfig                 `mapstructure:"data"`
	Collectors map[string]CollectorConfig `mapstructure:"collectors"`
	Strategies map[string]StrategyConfig  `mapstructure:"strategies"`
	Storage    StorageConfig              `mapstructure:"storage"`
	Metrics    MetricsConfig              `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	APIKey      string `mapstructure:"api_key"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// MarketConfig describes the trading session the bar data comes from.
type MarketConfig struct {
	Timezone string `mapstructure:"timezone"`
	Open     string `mapstructure:"open"`
	Close    string `mapstructure:"close"`
}

// BacktestConfig holds simulation parameters. Commission and slippage
// are per-side rates expressed as decimals (0.0005 = 0.05%).
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	Commission     float64 `mapstructure:"commission"`
	Slippage       float64 `mapstructure:"slippage"`
	PositionSize   float64 `mapstructure:"position_size"`
}

// AnalysisConfig holds performance analysis parameters.
type AnalysisConfig struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
}

type DataConfig struct {
	Dir             string `mapstructure:"dir"`
	DefaultSource   string `mapstructure:"default_source"`
	DefaultInterval string `mapstructure:"default_interval"`
	RetryAttempts   int    `mapstructure:"retry_attempts"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

type CollectorConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Markets         []string `mapstructure:"markets"`
	APIKey          string   `mapstructure:"api_key"`
	APISecret       string   `mapstructure:"api_secret"`
	BaseURL         string   `mapstructure:"base_url"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type StrategyConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Params  map[string]any `mapstructure:"params"`
}

type StorageConfig struct {
	Archive ArchiveConfig `mapstructure:"archive"`
}

// ArchiveConfig selects the artifact storage backend.
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file, layered over Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults: NSE session,
// 1 lakh INR capital, typical discount-broker commission, and the
// RBI repo rate as the risk-free baseline.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Market: MarketConfig{
			Timezone: core.MarketTimezone,
			Open:     core.MarketOpen,
			Close:    core.MarketClose,
		},
		Backtest: BacktestConfig{
			InitialCapital: 100000,
			Commission:     0.0005,
			Slippage:       0.0002,
			PositionSize:   0.95,
		},
		Analysis: AnalysisConfig{
			RiskFreeRate: 0.065,
		},
		Data: DataConfig{
			Dir:             "data",
			DefaultSource:   "yahoo",
			DefaultInterval: string(core.Interval1d),
			RetryAttempts:   3,
			TimeoutSeconds:  10,
		},
		Storage: StorageConfig{
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "results",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Backtest validation
	if c.Backtest.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %f", c.Backtest.InitialCapital))
	}
	if c.Backtest.Commission < 0 || c.Backtest.Commission >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission must be in [0, 1), got %f", c.Backtest.Commission))
	}
	if c.Backtest.Slippage < 0 || c.Backtest.Slippage >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("slippage must be in [0, 1), got %f", c.Backtest.Slippage))
	}
	if c.Backtest.PositionSize <= 0 || c.Backtest.PositionSize > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("position_size must be in (0, 1], got %f", c.Backtest.PositionSize))
	}

	// Analysis validation
	if c.Analysis.RiskFreeRate < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk_free_rate cannot be negative, got %f", c.Analysis.RiskFreeRate))
	}

	// Data validation
	if c.Data.DefaultInterval != "" && !core.Interval(c.Data.DefaultInterval).IsValid() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unsupported default_interval %q", c.Data.DefaultInterval))
	}

	// Storage validation
	switch c.Storage.Archive.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	// Collector validation - credentialed sources need keys when enabled
	if alpaca, ok := c.Collectors["alpaca"]; ok && alpaca.Enabled {
		if alpaca.APIKey == "" || alpaca.APISecret == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("alpaca api_key and api_secret required when alpaca is enabled"))
		}
	}

	return nil
}
