package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testPage = `<!doctype html>
<html>
<head><title> Test Page </title></head>
<body>
<h1>Hello</h1>
<p>World of <a href="/docs">docs</a>.</p>
</body>
</html>`

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(testPage))
		case "/file.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestDirectScrape(t *testing.T) {
	srv := newTestSite(t)
	s := NewDirectScraper(5*time.Second, false)

	raw, err := s.Scrape(context.Background(), srv.URL+"/", Options{Formats: []Format{FormatMarkdown, FormatHTML}})
	if err != nil {
		t.Fatal(err)
	}

	res := Normalize(raw)
	if !res.HasContent() {
		t.Fatal("expected content")
	}

	if res.Shape != ShapeData {
		t.Errorf("unexpected shape: %s", res.Shape)
	}

	page := res.Pages[0]
	if !strings.Contains(page.Markdown, "# Hello") {
		t.Errorf("unexpected markdown: %s", page.Markdown)
	}

	if !strings.Contains(page.HTML, "<h1>Hello</h1>") {
		t.Errorf("unexpected HTML: %s", page.HTML)
	}

	if page.Metadata == nil || page.Metadata.Title != "Test Page" {
		t.Errorf("unexpected metadata: %+v", page.Metadata)
	}
}

func TestDirectScrapeFormats(t *testing.T) {
	srv := newTestSite(t)
	s := NewDirectScraper(5*time.Second, false)

	raw, err := s.Scrape(context.Background(), srv.URL+"/", Options{Formats: []Format{FormatHTML}})
	if err != nil {
		t.Fatal(err)
	}

	page := raw.Data[0]
	if page.Markdown != "" {
		t.Errorf("markdown was not requested: %s", page.Markdown)
	}

	if !page.Has(FormatHTML) {
		t.Error("expected HTML")
	}
}

func TestDirectScrapeErrors(t *testing.T) {
	srv := newTestSite(t)
	s := NewDirectScraper(5*time.Second, false)

	tests := []struct {
		name string
		url  string
		opts Options
	}{
		{"not found", srv.URL + "/missing", Options{Formats: []Format{FormatMarkdown}}},
		{"unsupported content type", srv.URL + "/file.pdf", Options{Formats: []Format{FormatMarkdown}}},
		{"crawl mode", srv.URL + "/", Options{Formats: []Format{FormatMarkdown}, Mode: ModeCrawl}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := s.Scrape(context.Background(), test.url, test.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}
