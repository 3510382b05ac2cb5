package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10*time.Second, cfg.HTTP.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, int64(100<<20), cfg.HTTP.MaxBodySize)
	assert.Equal(t, int64(5120), cfg.Download.MinFileSize)
	assert.True(t, cfg.Download.SniffHTML)
	assert.Equal(t, []string{"tumblr_"}, cfg.Download.BlogPrefixes)
	assert.Equal(t, 1.05, cfg.Larger.DimensionRatio)
	assert.Equal(t, 1.0, cfg.Larger.FilesizeRatio)
	assert.Equal(t, "attention", cfg.Larger.AttentionSubdir)
	assert.Equal(t, "All sizes", cfg.Search.LinkText)
	assert.Equal(t, DefaultCandidateRegex, cfg.Search.CandidateRegex)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMGHARVEST_USER_AGENT", "test-agent")
	t.Setenv("IMGHARVEST_CONNECT_TIMEOUT", "3s")
	t.Setenv("IMGHARVEST_READ_TIMEOUT", "7s")
	t.Setenv("IMGHARVEST_REQUESTS_PER_MINUTE", "30")
	t.Setenv("IMGHARVEST_MAX_BODY_SIZE", "2048")
	t.Setenv("IMGHARVEST_OUTPUT_DIR", "/tmp/harvest")
	t.Setenv("IMGHARVEST_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "test-agent", cfg.HTTP.UserAgent)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ConnectTimeout)
	assert.Equal(t, 7*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, int64(2048), cfg.HTTP.MaxBodySize)
	assert.Equal(t, "/tmp/harvest", cfg.Output.BaseDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidValues(t *testing.T) {
	t.Setenv("IMGHARVEST_CONNECT_TIMEOUT", "soon")
	t.Setenv("IMGHARVEST_REQUESTS_PER_MINUTE", "many")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMGHARVEST_CONNECT_TIMEOUT")
	assert.Contains(t, err.Error(), "IMGHARVEST_REQUESTS_PER_MINUTE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"zero read timeout", func(c *Config) { c.HTTP.ReadTimeout = 0 }, "read timeout"},
		{"negative body cap", func(c *Config) { c.HTTP.MaxBodySize = -1 }, "max body size"},
		{"inverted cooldown", func(c *Config) {
			c.Download.MinCooldown = 2 * time.Second
			c.Download.MaxCooldown = time.Second
		}, "cooldown range"},
		{"bad regex", func(c *Config) { c.Search.CandidateRegex = "([" }, "invalid candidate regex"},
		{"ratio below one", func(c *Config) { c.Larger.DimensionRatio = 0.5 }, "dimension ratio"},
		{"nested attention dir", func(c *Config) { c.Larger.AttentionSubdir = "a/b" }, "attention subdir"},
		{"zero span", func(c *Config) { c.More.MaxSpan = 0 }, "max span"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http:
  read_timeout: 45s
download:
  min_file_size: 2048
  blog_prefixes: ["tumblr_", "blogimg_"]
larger:
  attention_subdir: review
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 45*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, int64(2048), cfg.Download.MinFileSize)
	assert.Equal(t, []string{"tumblr_", "blogimg_"}, cfg.Download.BlogPrefixes)
	assert.Equal(t, "review", cfg.Larger.AttentionSubdir)
	// untouched sections keep their defaults
	assert.Equal(t, 10*time.Second, cfg.HTTP.ConnectTimeout)
}

func TestLoadFromTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[search]
link_text = "Alle Größen"
endpoint = "http://search.test/upload"

[more]
max_span = 100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "Alle Größen", cfg.Search.LinkText)
	assert.Equal(t, "http://search.test/upload", cfg.Search.Endpoint)
	assert.Equal(t, 100, cfg.More.MaxSpan)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.More.UpperMargin = 42
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 42, loaded.More.UpperMargin)
	assert.Equal(t, cfg.Download.MaxCooldown, loaded.Download.MaxCooldown)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  base_directory: /from/file\nlogging:\n  level: warn\n"), 0644))
	t.Setenv("IMGHARVEST_LOG_LEVEL", "error")

	cfg, err := Load(path, map[string]interface{}{"output": "/from/flag"})
	require.NoError(t, err)

	assert.Equal(t, "/from/flag", cfg.Output.BaseDirectory)
	assert.Equal(t, "error", cfg.Logging.Level)
}
