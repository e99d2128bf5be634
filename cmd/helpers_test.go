package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/studyspot-cli/internal/config"
	"github.com/sells-group/studyspot-cli/internal/scorer"
)

// testConfig returns a config that reads the builtin catalog and keeps no
// history.
func testConfig() *config.Config {
	c := &config.Config{}
	c.Catalog.Source = config.SourceBuiltin
	c.Catalog.RetryAttempts = 1
	c.Store.Driver = config.DriverNone
	c.Recommend = scorer.DefaultRecommendConfig()
	c.Server.Port = 8080
	c.Log = config.LogConfig{Level: "info", Format: "json"}
	return c
}

// withSQLite points c at a fresh SQLite file and returns its path.
func withSQLite(t *testing.T, c *config.Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studyspot.db")
	c.Store.Driver = config.DriverSQLite
	c.Store.DatabaseURL = path
	return path
}

// useConfig installs c as the global config for the duration of the test.
func useConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

// execute runs run on a fresh command with the given flags and arguments and
// returns what it wrote to stdout and stderr.
func execute(t *testing.T, run func(*cobra.Command, []string) error, flags func(*pflag.FlagSet), args ...string) (string, string, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "test", RunE: run, SilenceUsage: true, SilenceErrors: true}
	if flags != nil {
		flags(cmd.Flags())
	}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
