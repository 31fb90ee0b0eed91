package scrape

import (
	"context"
	"time"

	"github.com/mendableai/firecrawl-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mempirate/scrapeview/log"
)

// FirecrawlScraper is a scraper that uses the Firecrawl API to scrape web pages.
type FirecrawlScraper struct {
	log zerolog.Logger

	app *firecrawl.FirecrawlApp

	timeout time.Duration
	// crawlTimeout bounds a whole crawl job, which polls until every page is done.
	crawlTimeout    time.Duration
	onlyMainContent bool
}

func NewFirecrawlScraper(key, apiURL string, timeout, crawlTimeout time.Duration, onlyMainContent bool) (*FirecrawlScraper, error) {
	if key == "" {
		return nil, errors.New("no Firecrawl API key configured")
	}

	app, err := firecrawl.NewFirecrawlApp(key, apiURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Firecrawl client")
	}

	return &FirecrawlScraper{
		log:             log.NewLogger("firecrawl"),
		app:             app,
		timeout:         timeout,
		crawlTimeout:    crawlTimeout,
		onlyMainContent: onlyMainContent,
	}, nil
}

func (s *FirecrawlScraper) params(formats []Format) *firecrawl.ScrapeParams {
	onlyMain := s.onlyMainContent

	return &firecrawl.ScrapeParams{
		Formats:         formats,
		OnlyMainContent: &onlyMain,
	}
}

// Scrape scrapes the given URL. In scrape mode the response is flat (top-level
// markdown/html), in crawl mode pages are returned in Data together with the
// crawl counters.
//
// <https://www.firecrawl.dev/blog/mastering-firecrawl-scrape-endpoint>
func (s *FirecrawlScraper) Scrape(ctx context.Context, url string, opts Options) (*RawResponse, error) {
	// The SDK has no context support, so the call runs in the background and
	// is abandoned on timeout or cancellation. An abandoned crawl keeps polling
	// until the job finishes upstream.
	timeout := s.timeout
	if opts.Mode == ModeCrawl {
		timeout = s.crawlTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		raw *RawResponse
		err error
	}

	done := make(chan result, 1)
	go func() {
		var r result
		if opts.Mode == ModeCrawl {
			r.raw, r.err = s.crawl(url, opts)
		} else {
			r.raw, r.err = s.scrape(url, opts)
		}
		done <- r
	}()

	select {
	case r := <-done:
		return r.raw, r.err
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "failed to scrape URL %s", url)
	}
}

func (s *FirecrawlScraper) scrape(url string, opts Options) (*RawResponse, error) {
	s.log.Debug().Str("url", url).Strs("formats", opts.Formats).Msg("Scraping page")

	fcDoc, err := s.app.ScrapeURL(url, s.params(opts.Formats))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scrape URL %s", url)
	}

	page := fromFirecrawlDocument(fcDoc)

	raw := &RawResponse{
		Success:  true,
		Metadata: page.Metadata,
	}

	// Only formats that were requested are reported as present.
	for _, f := range opts.Formats {
		switch f {
		case FormatMarkdown:
			raw.Markdown = &page.Markdown
		case FormatHTML:
			raw.HTML = &page.HTML
		}
	}

	return raw, nil
}

func (s *FirecrawlScraper) crawl(url string, opts Options) (*RawResponse, error) {
	s.log.Debug().Str("url", url).Int("limit", opts.Limit).Msg("Crawling site")

	limit := opts.Limit
	params := &firecrawl.CrawlParams{
		ScrapeOptions: *s.params(opts.Formats),
	}
	if limit > 0 {
		params.Limit = &limit
	}

	// Any status other than completed comes back as an error.
	status, err := s.app.CrawlURL(url, params, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to crawl URL %s", url)
	}

	raw := &RawResponse{
		Success:   true,
		Completed: status.Completed,
		Data:      make([]PageContent, 0, len(status.Data)),
	}

	for _, doc := range status.Data {
		if doc == nil {
			continue
		}
		raw.Data = append(raw.Data, fromFirecrawlDocument(doc))
	}

	return raw, nil
}

// fromFirecrawlDocument maps a Firecrawl document onto a PageContent. The
// title is the OG title when present, then the HTML title.
func fromFirecrawlDocument(fcDoc *firecrawl.FirecrawlDocument) PageContent {
	page := PageContent{
		Markdown: fcDoc.Markdown,
		HTML:     fcDoc.HTML,
	}

	md := fcDoc.Metadata
	if md == nil {
		return page
	}

	meta := &PageMetadata{}
	if md.OGTitle != nil {
		meta.Title = *md.OGTitle
	} else if md.Title != nil {
		meta.Title = *md.Title
	}

	if md.Description != nil {
		meta.Description = *md.Description
	} else if md.OGDescription != nil {
		meta.Description = *md.OGDescription
	}

	if md.SourceURL != nil {
		meta.SourceURL = *md.SourceURL
	}

	if md.StatusCode != nil {
		meta.StatusCode = *md.StatusCode
	}

	page.Metadata = meta

	return page
}
