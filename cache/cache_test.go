package cache

import (
	"path/filepath"
	"testing"
)

func TestBoltCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrapeview.db")

	c, err := NewBoltCache(path)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Load("firecrawl_api_key"); ok {
		t.Error("unexpected value in empty cache")
	}

	if err := c.Save("firecrawl_api_key", "fc-123"); err != nil {
		t.Fatal(err)
	}

	if err := c.Save("firecrawl_api_key", "fc-456"); err != nil {
		t.Fatal(err)
	}

	if value, ok := c.Load("firecrawl_api_key"); !ok || value != "fc-456" {
		t.Errorf("unexpected value after overwrite: %q", value)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	// Values survive reopening the database.
	c, err = NewBoltCache(path)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	value, ok := c.Load("firecrawl_api_key")
	if !ok || value != "fc-456" {
		t.Errorf("unexpected value: %q (exists: %v)", value, ok)
	}
}
