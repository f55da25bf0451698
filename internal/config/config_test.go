package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader("", "test").Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, 2500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "test", cfg.Version)
}

func TestLoadFileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("region: eu-west-1\nsite_name: from-file\n"), 0o644))

	t.Setenv("CUTROOM_SITE_NAME", "from-env")

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	// File overrides defaults, env overrides file.
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "from-env", cfg.SiteName)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen", func(c *Config) { c.ListenAddr = "" }},
		{"empty region", func(c *Config) { c.Region = "" }},
		{"empty site name", func(c *Config) { c.SiteName = "" }},
		{"zero memory", func(c *Config) { c.FunctionMemory = 0 }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"bad storage scheme", func(c *Config) { c.StorageBaseURL = "ftp://example.com" }},
		{"storage missing host", func(c *Config) { c.StorageBaseURL = "http://" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseHelpers(t *testing.T) {
	t.Setenv("CUTROOM_TEST_INT", "42")
	t.Setenv("CUTROOM_TEST_BAD_INT", "nope")
	t.Setenv("CUTROOM_TEST_DUR", "10s")
	t.Setenv("CUTROOM_TEST_BOOL", "true")
	t.Setenv("CUTROOM_TEST_FLOAT", "0.25")

	assert.Equal(t, 42, ParseInt("CUTROOM_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("CUTROOM_TEST_BAD_INT", 1))
	assert.Equal(t, 7, ParseInt("CUTROOM_TEST_MISSING", 7))
	assert.Equal(t, 10*time.Second, ParseDuration("CUTROOM_TEST_DUR", time.Minute))
	assert.True(t, ParseBool("CUTROOM_TEST_BOOL", false))
	assert.Equal(t, 0.25, ParseFloat("CUTROOM_TEST_FLOAT", 1))
	assert.Equal(t, 1.0, ParseFloat("CUTROOM_TEST_FLOAT_MISSING", 1))
}
