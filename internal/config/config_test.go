package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceBuiltin, cfg.Catalog.Source)
	assert.Empty(t, cfg.Catalog.Path)
	assert.Equal(t, 3, cfg.Catalog.RetryAttempts)
	assert.Equal(t, 200, cfg.Catalog.RetryBackoffMs)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "studyspot.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 3, cfg.Recommend.DefaultTopN)
	assert.Equal(t, "long", cfg.Recommend.ExplainMode)
	assert.Equal(t, 4, cfg.Recommend.Workers)
	assert.True(t, cfg.Recommend.AutoFallback)
	assert.Equal(t, 3, cfg.Recommend.SkipWarning)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.InDelta(t, 20.0, cfg.Server.RateLimit, 0.001)
	assert.Equal(t, 40, cfg.Server.RateBurst)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
catalog:
  source: file
  path: spots.yaml
store:
  driver: postgres
  database_url: postgres://localhost/studyspot
recommend:
  explain_mode: short
  workers: 8
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceFile, cfg.Catalog.Source)
	assert.Equal(t, "spots.yaml", cfg.Catalog.Path)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "short", cfg.Recommend.ExplainMode)
	assert.Equal(t, 8, cfg.Recommend.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Recommend.DefaultTopN)
	assert.Equal(t, 3, cfg.Catalog.RetryAttempts)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("STUDYSPOT_STORE_DRIVER", "postgres")
	t.Setenv("STUDYSPOT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("STUDYSPOT_SERVER_PORT", "3000")
	t.Setenv("STUDYSPOT_RECOMMEND_DEFAULT_TOP_N", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Recommend.DefaultTopN)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Catalog.Source = SourceBuiltin
	cfg.Catalog.RetryAttempts = 3
	cfg.Catalog.RetryBackoffMs = 200
	cfg.Store.Driver = DriverSQLite
	cfg.Store.DatabaseURL = "studyspot.db"
	cfg.Recommend.DefaultTopN = 3
	cfg.Recommend.Workers = 4
	cfg.Recommend.ExplainMode = "long"
	cfg.Server.Port = 8080
	cfg.Server.RateLimit = 20
	cfg.Server.RateBurst = 40
	return cfg
}

func TestValidateRecommend_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("recommend"))
	assert.NoError(t, validDefaults().Validate("catalog"))
	assert.NoError(t, validDefaults().Validate("import"))
	assert.NoError(t, validDefaults().Validate("history"))
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateCatalogSource(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"file without path", func(c *Config) { c.Catalog.Source = SourceFile }, "catalog.path is required"},
		{"store without driver", func(c *Config) {
			c.Catalog.Source = SourceStore
			c.Store.Driver = DriverNone
		}, "catalog.source store needs a store.driver"},
		{"unknown source", func(c *Config) { c.Catalog.Source = "s3" }, `catalog.source "s3"`},
		{"zero attempts", func(c *Config) { c.Catalog.RetryAttempts = 0 }, "catalog.retry_attempts must be >= 1"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, `store.driver "mysql"`},
		{"missing url", func(c *Config) { c.Store.DatabaseURL = "" }, "store.database_url is required"},
		{"zero top n", func(c *Config) { c.Recommend.DefaultTopN = 0 }, "recommend.default_top_n must be >= 1"},
		{"too many workers", func(c *Config) { c.Recommend.Workers = 65 }, "recommend.workers must be between 1 and 64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate("recommend")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateHistory_NeedsStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = DriverNone

	assert.NoError(t, cfg.Validate("recommend"))

	err := cfg.Validate("history")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateImport_NeedsStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = DriverNone

	assert.NoError(t, cfg.Validate("catalog"))

	err := cfg.Validate("import")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateServe_RateLimit(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.RateBurst = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.rate_burst")

	cfg.Server.RateLimit = 0
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
