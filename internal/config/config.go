package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the top-level configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Bundle  BundleConfig  `yaml:"bundle" mapstructure:"bundle"`
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	MaxBodyBytes     int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RateLimitRPS     float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst   int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	CORSOrigins      []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// BundleConfig locates the rule bundle on disk.
type BundleConfig struct {
	Dir       string `yaml:"dir" mapstructure:"dir"`
	SchemaDir string `yaml:"schema_dir" mapstructure:"schema_dir"`
}

// EngineConfig tunes planning and review defaults.
type EngineConfig struct {
	// AllowRunBoth is ANDed with the bundle's mismatch policy.
	AllowRunBoth        bool   `yaml:"allow_run_both" mapstructure:"allow_run_both"`
	DefaultAnalysisMode string `yaml:"default_analysis_mode" mapstructure:"default_analysis_mode"`
	DefaultQuantity     int    `yaml:"default_quantity" mapstructure:"default_quantity"`
	SaveReviews         bool   `yaml:"save_reviews" mapstructure:"save_reviews"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DFM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("bundle.dir", "configs/bundle")
	v.SetDefault("bundle.schema_dir", "schemas")
	v.SetDefault("engine.allow_run_both", true)
	v.SetDefault("engine.default_analysis_mode", "")
	v.SetDefault("engine.default_quantity", 1)
	v.SetDefault("engine.save_reviews", true)
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.database_url", "dfm.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

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

// Validate checks the settings a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case DriverNone:
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, postgres, none", c.Store.Driver))
	}
	if c.Bundle.Dir == "" {
		errs = append(errs, "bundle.dir is required")
	}
	if c.Engine.DefaultQuantity < 1 {
		errs = append(errs, "engine.default_quantity must be >= 1")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.MaxBodyBytes <= 0 {
			errs = append(errs, "server.max_body_bytes must be > 0")
		}
		if c.Server.RateLimitRPS < 0 {
			errs = append(errs, "server.rate_limit_rps must be >= 0")
		}
		if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
			errs = append(errs, "server.rate_limit_burst must be >= 1 when rate limiting")
		}
		if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, "metrics.path must start with /")
		}
	case "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid: %s", strings.Join(errs, "; "))
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
