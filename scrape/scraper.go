package scrape

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mempirate/scrapeview/config"
)

type Options struct {
	Formats []Format
	Mode    Mode
	// Limit caps the number of pages in crawl mode.
	Limit int
}

// Scraper is an interface for the engine that does the actual extraction work,
// returning markdown and/or HTML content with metadata.
type Scraper interface {
	Scrape(ctx context.Context, url string, opts Options) (*RawResponse, error)
}

// Factory builds a Scraper for the given API key. It is called once per
// submission so key changes take effect immediately.
type Factory func(apiKey string) (Scraper, error)

// NewFactory returns the Factory for the configured engine.
func NewFactory(cfg *config.Config) (Factory, error) {
	switch cfg.Engine {
	case config.EngineFirecrawl:
		return func(apiKey string) (Scraper, error) {
			return NewFirecrawlScraper(apiKey, cfg.APIURL, cfg.Timeout, cfg.CrawlTimeout, cfg.OnlyMainContent)
		}, nil
	case config.EngineDirect:
		direct := NewDirectScraper(cfg.Timeout, cfg.OnlyMainContent)
		return func(string) (Scraper, error) {
			return direct, nil
		}, nil
	default:
		return nil, errors.Errorf("unknown engine %q", cfg.Engine)
	}
}
