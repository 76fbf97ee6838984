package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const mainPageHTML = `<html><body>
<div class="recipe-decision-block">Recipe tools</div>
<figure class="primary-image"><img src="https://img.example.com/pasta-hero.jpg"></figure>
<div class="content-tax-cloud-tag-nav"><a>Dinner</a><a> Italian </a></div>
<form id="recipe-decision-block__print-button_0-0" action="/print">
  <input name="CSRFToken" value="tok-123">
</form>
</body></html>`

const printPageHTML = `<html><body>
<h1 class="heading__title"> Best Pasta Ever </h1>
<div class="loc content"><p>Boil water.</p><p>Add pasta.</p></div>
</body></html>`

const articlePageHTML = `<html><body><article>Just an essay about salt.</article></body></html>`

func newScraperTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/recipes/best-pasta", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, mainPageHTML)
	})
	mux.HandleFunc("/print", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("print view method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing print form: %v", err)
		}
		if token := r.PostFormValue("CSRFToken"); token != "tok-123" {
			t.Errorf("CSRFToken = %q, want tok-123", token)
		}
		fmt.Fprint(w, printPageHTML)
	})
	mux.HandleFunc("/articles/about-salt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePageHTML)
	})
	return httptest.NewServer(mux)
}

func TestScrapePage(t *testing.T) {
	server := newScraperTestServer(t)
	defer server.Close()

	scraper := NewRecipeScraper(server.Client(), "test-agent")
	record, err := scraper.scrapePage(context.Background(), server.URL+"/recipes/best-pasta")
	if err != nil {
		t.Fatalf("scrapePage() error = %v", err)
	}
	if record == nil {
		t.Fatal("scrapePage() returned nil for a recipe page")
	}

	if record["title"] != "Best Pasta Ever" {
		t.Errorf("title = %q", record["title"])
	}
	if record["image_url"] != "https://img.example.com/pasta-hero.jpg" {
		t.Errorf("image_url = %q", record["image_url"])
	}
	tags, ok := record["tags"].([]string)
	if !ok || len(tags) != 2 || tags[0] != "Dinner" || tags[1] != "Italian" {
		t.Errorf("tags = %v, want [Dinner Italian]", record["tags"])
	}
	fullText, _ := record["full_text"].(string)
	if !strings.Contains(fullText, "Boil water.") || !strings.Contains(fullText, "Add pasta.") {
		t.Errorf("full_text = %q, want the print page body", fullText)
	}
}

func TestScrapePageNonRecipe(t *testing.T) {
	server := newScraperTestServer(t)
	defer server.Close()

	scraper := NewRecipeScraper(server.Client(), "test-agent")
	record, err := scraper.scrapePage(context.Background(), server.URL+"/articles/about-salt")
	if err != nil {
		t.Fatalf("scrapePage() error = %v", err)
	}
	if record != nil {
		t.Errorf("scrapePage() = %v, want nil for a non-recipe page", record)
	}
}

func TestScrapeAllIsResumable(t *testing.T) {
	server := newScraperTestServer(t)
	defer server.Close()

	dir := t.TempDir()
	entries := []SitemapEntry{
		{Loc: server.URL + "/recipes/best-pasta"},
		{Loc: server.URL + "/articles/about-salt"},
	}

	scraper := NewRecipeScraper(server.Client(), "test-agent")
	written, err := scraper.ScrapeAll(context.Background(), entries, dir)
	if err != nil {
		t.Fatalf("ScrapeAll() error = %v", err)
	}
	if written != 1 {
		t.Errorf("ScrapeAll() wrote %d records, want 1 (the article is not a recipe)", written)
	}

	path := filepath.Join(dir, "best-pasta.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("record file not written: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("record is not valid JSON: %v", err)
	}
	if record["slug"] != "best-pasta" {
		t.Errorf("slug = %q, want best-pasta", record["slug"])
	}

	// A second run must skip the existing file.
	written, err = scraper.ScrapeAll(context.Background(), entries, dir)
	if err != nil {
		t.Fatal(err)
	}
	if written != 0 {
		t.Errorf("second ScrapeAll() wrote %d records, want 0", written)
	}
}

func TestFetchSitemap(t *testing.T) {
	const sitemapXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://example.com/recipes/best-pasta</loc>
    <lastmod>2024-02-01</lastmod>
    <changefreq>weekly</changefreq>
    <priority>0.8</priority>
  </url>
  <url>
    <loc>https://example.com/articles/about-salt</loc>
  </url>
</urlset>`

	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		fmt.Fprint(w, sitemapXML)
	}))
	defer server.Close()

	entries, err := FetchSitemap(context.Background(), server.Client(), server.URL, "test-agent")
	if err != nil {
		t.Fatalf("FetchSitemap() error = %v", err)
	}

	if gotAgent != "test-agent" {
		t.Errorf("User-Agent = %q, want test-agent", gotAgent)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Loc != "https://example.com/recipes/best-pasta" {
		t.Errorf("entries[0].Loc = %q", entries[0].Loc)
	}
	if entries[0].LastMod != "2024-02-01" || entries[0].Priority != "0.8" {
		t.Errorf("entries[0] metadata = %+v", entries[0])
	}
}

func TestSaveAndLoadSitemap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitemap_data.json")
	entries := []SitemapEntry{{Loc: "https://example.com/a", LastMod: "2024-01-01"}}

	if err := SaveSitemap(entries, path); err != nil {
		t.Fatalf("SaveSitemap() error = %v", err)
	}
	loaded, err := LoadSitemap(path)
	if err != nil {
		t.Fatalf("LoadSitemap() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].Loc != entries[0].Loc || loaded[0].LastMod != entries[0].LastMod {
		t.Errorf("LoadSitemap() = %v, want %v", loaded, entries)
	}
}

func TestSlugFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"plain", "https://example.com/recipes/best-pasta", "best-pasta"},
		{"trailing slash", "https://example.com/recipes/best-pasta/", "best-pasta"},
		{"recipe suffix", "https://example.com/garlic-bread-recipe", "garlic-bread-recipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := slugFromURL(tt.url); got != tt.expected {
				t.Errorf("slugFromURL(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}
