package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Catalog source kinds.
const (
	SourceBuiltin = "builtin"
	SourceFile    = "file"
	SourceStore   = "store"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Config holds the full application configuration.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Recommend RecommendConfig `yaml:"recommend" mapstructure:"recommend"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CatalogConfig selects where study spots are loaded from.
type CatalogConfig struct {
	Source         string `yaml:"source" mapstructure:"source"`
	Path           string `yaml:"path" mapstructure:"path"`
	RetryAttempts  int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RecommendConfig holds query defaults and engine tuning.
type RecommendConfig struct {
	DefaultTopN  int    `yaml:"default_top_n" mapstructure:"default_top_n"`
	ExplainMode  string `yaml:"explain_mode" mapstructure:"explain_mode"`
	Workers      int    `yaml:"workers" mapstructure:"workers"`
	AutoFallback bool   `yaml:"auto_fallback" mapstructure:"auto_fallback"`
	SkipWarning  int    `yaml:"skip_warning" mapstructure:"skip_warning"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STUDYSPOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("catalog.source", SourceBuiltin)
	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.retry_attempts", 3)
	v.SetDefault("catalog.retry_backoff_ms", 200)
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.database_url", "studyspot.db")
	v.SetDefault("recommend.default_top_n", 3)
	v.SetDefault("recommend.explain_mode", "long")
	v.SetDefault("recommend.workers", 4)
	v.SetDefault("recommend.auto_fallback", true)
	v.SetDefault("recommend.skip_warning", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command mode depends on. Modes are
// "recommend", "catalog", "import", "history" and "serve". The import and
// history modes write to or read from a store, so they require a driver.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "recommend", "catalog":
		errs = append(errs, c.validateCatalog()...)
		errs = append(errs, c.validateStore(false)...)
	case "import", "history":
		errs = append(errs, c.validateStore(true)...)
	case "serve":
		errs = append(errs, c.validateCatalog()...)
		errs = append(errs, c.validateStore(false)...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server.rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_burst must be >= 1 when rate limiting")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Recommend.DefaultTopN < 1 {
		errs = append(errs, "recommend.default_top_n must be >= 1")
	}
	if c.Recommend.Workers < 1 || c.Recommend.Workers > 64 {
		errs = append(errs, "recommend.workers must be between 1 and 64")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateCatalog() []string {
	var errs []string
	switch c.Catalog.Source {
	case SourceBuiltin:
	case SourceFile:
		if c.Catalog.Path == "" {
			errs = append(errs, "catalog.path is required when catalog.source is file")
		}
	case SourceStore:
		if c.Store.Driver == DriverNone {
			errs = append(errs, "catalog.source store needs a store.driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("catalog.source %q must be builtin, file or store", c.Catalog.Source))
	}
	if c.Catalog.RetryAttempts < 1 {
		errs = append(errs, "catalog.retry_attempts must be >= 1")
	}
	if c.Catalog.RetryBackoffMs < 0 {
		errs = append(errs, "catalog.retry_backoff_ms must be >= 0")
	}
	return errs
}

func (c *Config) validateStore(required bool) []string {
	var errs []string
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case DriverNone:
		if required {
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite, postgres or none", c.Store.Driver))
	}
	return errs
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
