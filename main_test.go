package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mempirate/scrapeview/backend"
	"github.com/mempirate/scrapeview/cache"
	"github.com/mempirate/scrapeview/config"
	"github.com/mempirate/scrapeview/scrape"
	"github.com/mempirate/scrapeview/store"
)

func TestRunScrapeExport(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>Docs</title></head><body><h1>Docs</h1><p>Hello</p></body></html>"))
	}))
	defer site.Close()

	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Engine = config.EngineDirect
	cfg.OnlyMainContent = false
	cfg.Timeout = 5 * time.Second

	creds, err := cache.NewBoltCache(filepath.Join(dir, DB_NAME))
	if err != nil {
		t.Fatal(err)
	}

	factory, err := scrape.NewFactory(cfg)
	if err != nil {
		t.Fatal(err)
	}

	a := &app{cfg: cfg, creds: creds, backend: backend.NewBackend("", factory, creds)}
	defer a.close()

	out := filepath.Join(dir, EXPORT_DIR)
	req := backend.Request{URL: site.URL, Formats: []string{"markdown"}}

	if err := runScrape(context.Background(), a, req, out); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(out, "Docs.json"))
	if err != nil {
		t.Fatal(err)
	}

	var pages []scrape.PageContent
	if err := json.Unmarshal(data, &pages); err != nil {
		t.Fatal(err)
	}

	if len(pages) != 1 || pages[0].Markdown == "" || pages[0].HTML != "" {
		t.Errorf("unexpected export: %s", data)
	}

	// A second export of the same page does not overwrite the first.
	if err := runScrape(context.Background(), a, req, out); err != nil {
		t.Fatal(err)
	}

	files, err := store.NewFileStore(out).List()
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(files, []string{"Docs-2.json", "Docs.json"}) {
		t.Errorf("unexpected exports: %v", files)
	}
}

func TestExportName(t *testing.T) {
	fs := store.NewFileStore(t.TempDir())

	tests := []struct {
		existing []string
		name     string
		expected string
	}{
		{nil, "Docs.json", "Docs.json"},
		{[]string{"Docs.json"}, "Docs.json", "Docs-2.json"},
		{[]string{"Docs.json", "Docs-2.json", "Docs-3.json"}, "Docs.json", "Docs-4.json"},
		{[]string{"page"}, "page", "page-2"},
	}

	for _, test := range tests {
		for _, name := range test.existing {
			if err := fs.Store(name, strings.NewReader("[]")); err != nil {
				t.Fatal(err)
			}
		}

		got, err := exportName(fs, test.name)
		if err != nil {
			t.Fatal(err)
		}

		if got != test.expected {
			t.Errorf("unexpected export name for %v: %s", test.existing, got)
		}
	}
}

func TestShowExport(t *testing.T) {
	fs := store.NewFileStore(t.TempDir())
	if err := fs.Store("Docs.json", strings.NewReader(`[{"markdown":"# Docs"}]`)); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := showExport(&buf, fs, "Docs.json"); err != nil {
		t.Fatal(err)
	}

	if buf.String() != `[{"markdown":"# Docs"}]` {
		t.Errorf("unexpected output: %s", buf.String())
	}

	if err := showExport(&buf, fs, "missing.json"); err == nil || !strings.Contains(err.Error(), "no export named") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunScrapeFailure(t *testing.T) {
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataDir = dir

	creds, err := cache.NewBoltCache(filepath.Join(dir, DB_NAME))
	if err != nil {
		t.Fatal(err)
	}

	factory, err := scrape.NewFactory(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Firecrawl without an API key fails before anything is sent.
	a := &app{cfg: cfg, creds: creds, backend: backend.NewBackend("", factory, creds)}
	defer a.close()

	err = runScrape(context.Background(), a, backend.Request{URL: "example.com", Formats: []string{"markdown"}}, "")
	if !backend.IsCollaborator(err) {
		t.Errorf("expected collaborator error, got %v", err)
	}
}
