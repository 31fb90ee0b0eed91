package scrape

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/go-shiori/go-readability"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/mempirate/scrapeview/log"
	"github.com/mempirate/scrapeview/util"
)

// DirectScraper fetches a single page itself and converts it with off-the-shelf
// libraries. It needs no API key.
type DirectScraper struct {
	log    zerolog.Logger
	client *http.Client

	onlyMainContent bool
}

func NewDirectScraper(timeout time.Duration, onlyMainContent bool) *DirectScraper {
	return &DirectScraper{
		log:             log.NewLogger("direct"),
		client:          &http.Client{Timeout: timeout},
		onlyMainContent: onlyMainContent,
	}
}

func (s *DirectScraper) Scrape(ctx context.Context, rawURL string, opts Options) (*RawResponse, error) {
	if opts.Mode == ModeCrawl {
		return nil, errors.New("crawling is not supported by the direct engine")
	}

	uri, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}

	body, ct, err := util.DownloadContent(ctx, s.client, uri.String())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scrape URL %s", rawURL)
	}

	if ct != "text/html" && ct != "application/xhtml+xml" {
		return nil, errors.Errorf("unsupported content type: %s", ct)
	}

	s.log.Debug().Str("url", rawURL).Str("size", util.FormatBytes(int64(len(body)))).Msg("Page downloaded")

	page, err := s.handleArticle(uri, body, opts.Formats)
	if err != nil {
		return nil, err
	}

	return &RawResponse{
		Success:   true,
		Completed: 1,
		Data:      []PageContent{*page},
	}, nil
}

// handleArticle converts the HTML webpage into the requested formats.
func (s *DirectScraper) handleArticle(uri *url.URL, body []byte, formats []Format) (*PageContent, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse HTML")
	}

	title, _ := extractTitle(doc)

	content := body
	if s.onlyMainContent {
		parser := readability.NewParser()
		article, err := parser.Parse(bytes.NewReader(body), uri)
		if err != nil {
			s.log.Warn().Err(err).Str("url", uri.String()).Msg("Main content extraction failed, using full page")
		} else if strings.TrimSpace(article.Content) != "" {
			content = []byte(article.Content)
			if title == "" {
				title = article.Title
			}
		}
	}

	page := &PageContent{
		Metadata: &PageMetadata{
			Title:      title,
			SourceURL:  uri.String(),
			StatusCode: http.StatusOK,
		},
	}

	for _, f := range formats {
		switch f {
		case FormatMarkdown:
			mdBody, err := md.ConvertReader(bytes.NewReader(content), converter.WithDomain(uri.Host))
			if err != nil {
				return nil, errors.Wrap(err, "failed to convert HTML to Markdown")
			}
			page.Markdown = strings.TrimSpace(string(mdBody))
		case FormatHTML:
			page.HTML = string(content)
		}
	}

	return page, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func extractTitle(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild == nil {
			return "", true
		}
		return strings.TrimSpace(n.FirstChild.Data), true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result, ok := extractTitle(c); ok {
			return result, ok
		}
	}

	return "", false
}
