// Package config holds the scrapeview configuration and its loading rules.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Command line flags are applied last by the caller.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	EngineFirecrawl = "firecrawl"
	EngineDirect    = "direct"

	// DEFAULT_FIRECRAWL_API is the hosted Firecrawl endpoint.
	DEFAULT_FIRECRAWL_API = "https://api.firecrawl.dev"

	ENV_API_KEY = "FIRECRAWL_API_KEY"
	ENV_API_URL = "FIRECRAWL_API_URL"
	ENV_ENGINE  = "SCRAPEVIEW_ENGINE"
	ENV_ADDR    = "SCRAPEVIEW_ADDR"
)

type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `yaml:"addr"`
	// DataDir holds the credential database and CLI exports.
	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`

	// Engine selects the scraping collaborator, "firecrawl" or "direct".
	Engine string `yaml:"engine"`
	APIURL string `yaml:"apiUrl"`
	// APIKey is only read from the environment, never from the file.
	APIKey string `yaml:"-"`

	DefaultFormats []string      `yaml:"defaultFormats"`
	Timeout        time.Duration `yaml:"timeout"`
	// CrawlTimeout bounds a crawl job. Crawls poll until every page is done
	// and usually need longer than a single scrape.
	CrawlTimeout    time.Duration `yaml:"crawlTimeout"`
	OnlyMainContent bool          `yaml:"onlyMainContent"`
	CrawlLimit      int           `yaml:"crawlLimit"`
}

func DefaultConfig() *Config {
	return &Config{
		Addr:            "127.0.0.1:8080",
		DataDir:         DefaultDataDir(),
		LogLevel:        "info",
		Engine:          EngineFirecrawl,
		APIURL:          DEFAULT_FIRECRAWL_API,
		DefaultFormats:  []string{"markdown"},
		Timeout:         90 * time.Second,
		CrawlTimeout:    10 * time.Minute,
		OnlyMainContent: true,
		CrawlLimit:      10,
	}
}

// DefaultDataDir returns ~/.local/share/scrapeview, or a relative directory when
// the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scrapeview"
	}

	return filepath.Join(home, ".local", "share", "scrapeview")
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.DataDir = os.ExpandEnv(cfg.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}

	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(ENV_API_KEY); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(ENV_API_URL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(ENV_ENGINE); v != "" {
		c.Engine = v
	}
	if v := os.Getenv(ENV_ADDR); v != "" {
		c.Addr = v
	}
}

func (c *Config) Validate() error {
	switch c.Engine {
	case EngineFirecrawl, EngineDirect:
	default:
		return errors.Errorf("unknown engine %q", c.Engine)
	}

	if c.DataDir == "" {
		return errors.New("data dir is required")
	}

	for _, f := range c.DefaultFormats {
		if f != "markdown" && f != "html" {
			return errors.Errorf("unsupported default format %q", f)
		}
	}

	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	if c.CrawlTimeout <= 0 {
		return errors.New("crawl timeout must be positive")
	}

	if c.CrawlLimit <= 0 {
		return errors.New("crawl limit must be positive")
	}

	return nil
}

// MaskKey hides all but the last four characters of an API key.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}

	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
