package main

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// SitemapEntry is one <url> element of the source sitemap.
type SitemapEntry struct {
	Loc        string `json:"loc" xml:"loc"`
	LastMod    string `json:"lastmod" xml:"lastmod"`
	ChangeFreq string `json:"changefreq" xml:"changefreq"`
	Priority   string `json:"priority" xml:"priority"`
}

type sitemapURLSet struct {
	URLs []SitemapEntry `xml:"url"`
}

// FetchSitemap downloads and parses the sitemap XML.
func FetchSitemap(ctx context.Context, client *http.Client, sitemapURL, userAgent string) ([]SitemapEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching sitemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: sitemapURL}
	}

	var urlset sitemapURLSet
	if err := xml.NewDecoder(resp.Body).Decode(&urlset); err != nil {
		return nil, fmt.Errorf("parsing sitemap XML: %w", err)
	}

	return urlset.URLs, nil
}

// SaveSitemap writes the entries as indented JSON.
func SaveSitemap(entries []SitemapEntry, path string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// LoadSitemap reads entries written by SaveSitemap.
func LoadSitemap(path string) ([]SitemapEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sitemap data (run the sitemap command first): %w", err)
	}
	var entries []SitemapEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing sitemap data: %w", err)
	}
	return entries, nil
}

// RecipeScraper extracts recipe records from the source site. Each recipe page
// is fetched twice: the main page carries the image and tags, the printable
// view carries a clean title and body.
type RecipeScraper struct {
	client    *http.Client
	converter *md.Converter
	userAgent string
}

// NewRecipeScraper creates a scraper with the given HTTP client.
func NewRecipeScraper(client *http.Client, userAgent string) *RecipeScraper {
	return &RecipeScraper{
		client:    client,
		converter: md.NewConverter("", true, nil),
		userAgent: userAgent,
	}
}

// ScrapeAll scrapes every sitemap entry into outDir, one JSON file per recipe.
// Entries whose record file already exists are skipped, which makes the run
// resumable. Returns the number of new records written.
func (s *RecipeScraper) ScrapeAll(ctx context.Context, entries []SitemapEntry, outDir string) (int, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	written := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return written, ctx.Err()
		}

		slug := slugFromURL(entry.Loc)
		path := filepath.Join(outDir, slug+".json")
		if _, err := os.Stat(path); err == nil {
			continue
		}

		record, err := s.scrapePage(ctx, entry.Loc)
		if err != nil {
			log.Printf("✗ Error scraping %s: %v", entry.Loc, err)
			continue
		}
		if record == nil {
			// Not a recipe page.
			continue
		}
		record["slug"] = slug

		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			log.Printf("✗ Error encoding record for %s: %v", entry.Loc, err)
			continue
		}
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", path, err)
		}
		written++
	}

	return written, nil
}

// scrapePage extracts one recipe. A nil record with nil error means the page
// is not a recipe.
func (s *RecipeScraper) scrapePage(ctx context.Context, pageURL string) (map[string]any, error) {
	log.Printf("Scraping URL: %s", pageURL)

	mainDoc, err := s.fetchDocument(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	// Pages without the recipe decision block are articles, not recipes.
	if mainDoc.Find("div.recipe-decision-block").Length() == 0 {
		log.Printf("  → Not a recipe page. Skipping.")
		return nil, nil
	}

	imageURL, _ := mainDoc.Find("figure.primary-image img").First().Attr("src")

	var tags []string
	mainDoc.Find("div.content-tax-cloud-tag-nav a").Each(func(_ int, sel *goquery.Selection) {
		if tag := strings.TrimSpace(sel.Text()); tag != "" {
			tags = append(tags, tag)
		}
	})

	printDoc, err := s.fetchPrintableView(ctx, pageURL, mainDoc)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(printDoc.Find("h1.heading__title").First().Text())
	if title == "" {
		title = "Untitled"
	}

	var fullText string
	if content := printDoc.Find("div.loc.content").First(); content.Length() > 0 {
		fullText = s.converter.Convert(content)
	}

	record := map[string]any{
		"url":       pageURL,
		"image_url": imageURL,
		"tags":      tags,
		"title":     title,
		"full_text": fullText,
	}

	log.Printf("  → Successfully scraped: %s", title)
	return record, nil
}

// fetchPrintableView submits the CSRF-protected print form and parses the
// printable page it returns.
func (s *RecipeScraper) fetchPrintableView(ctx context.Context, pageURL string, mainDoc *goquery.Document) (*goquery.Document, error) {
	form := mainDoc.Find(`form[id^="recipe-decision-block__print-button"]`).First()
	if form.Length() == 0 {
		return nil, fmt.Errorf("print button form not found")
	}

	action, ok := form.Attr("action")
	if !ok || action == "" {
		return nil, fmt.Errorf("print form has no action")
	}
	token, ok := form.Find(`input[name="CSRFToken"]`).First().Attr("value")
	if !ok || token == "" {
		return nil, fmt.Errorf("CSRF token not found")
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	actionURL, err := base.Parse(action)
	if err != nil {
		return nil, fmt.Errorf("resolving print form action: %w", err)
	}

	body := url.Values{"CSRFToken": {token}}
	return s.fetchDocument(ctx, http.MethodPost, actionURL.String(), strings.NewReader(body.Encode()))
}

func (s *RecipeScraper) fetchDocument(ctx context.Context, method, pageURL string, body *strings.Reader) (*goquery.Document, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, pageURL, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, pageURL, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// slugFromURL derives a record filename from the last URL path segment.
func slugFromURL(pageURL string) string {
	trimmed := strings.Trim(pageURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return fmt.Sprintf("recipe-%s", uuid.New().String())
	}
	return trimmed
}
