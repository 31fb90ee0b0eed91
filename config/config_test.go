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
	t.Setenv(ENV_API_KEY, "")
	t.Setenv(ENV_ENGINE, "")
	t.Setenv(ENV_API_URL, "")
	t.Setenv(ENV_ADDR, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EngineFirecrawl, cfg.Engine)
	assert.Equal(t, DEFAULT_FIRECRAWL_API, cfg.APIURL)
	assert.Equal(t, []string{"markdown"}, cfg.DefaultFormats)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.CrawlTimeout)
	assert.Empty(t, cfg.APIKey)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scrapeview.yaml")

	content := `
addr: ":9090"
dataDir: "$SCRAPEVIEW_TEST_HOME/data"
engine: direct
defaultFormats: [markdown, html]
timeout: 15s
crawlTimeout: 30m
crawlLimit: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("SCRAPEVIEW_TEST_HOME", dir)
	t.Setenv(ENV_API_KEY, "fc-test")
	t.Setenv(ENV_ENGINE, "")
	t.Setenv(ENV_API_URL, "")
	t.Setenv(ENV_ADDR, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Equal(t, EngineDirect, cfg.Engine)
	assert.Equal(t, []string{"markdown", "html"}, cfg.DefaultFormats)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 30*time.Minute, cfg.CrawlTimeout)
	assert.Equal(t, 3, cfg.CrawlLimit)
	assert.Equal(t, "fc-test", cfg.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown engine", func(c *Config) { c.Engine = "selenium" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"bad format", func(c *Config) { c.DefaultFormats = []string{"pdf"} }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero crawl timeout", func(c *Config) { c.CrawlTimeout = 0 }},
		{"zero crawl limit", func(c *Config) { c.CrawlLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "", MaskKey(""))
	assert.Equal(t, "***", MaskKey("abc"))
	assert.Equal(t, "****6f58", MaskKey("fc-16f58"))
}
