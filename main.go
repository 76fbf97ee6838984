package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var (
	settingsPath string
	recordsDir   string
	concurrency  int
)

var rootCmd = &cobra.Command{
	Use:   "recipeforge",
	Short: "Batch image generation pipeline for recipe records",
	Long: `recipeforge scrapes recipe records, sends each one through an image
generation API, re-encodes the result and uploads it to object storage,
recording the public URL back into the recipe's record file.`,
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Generate images for all pending recipe records",
	Run: func(cmd *cobra.Command, args []string) {
		settings := mustLoadSettings()

		creds, err := LoadCredentials()
		if err != nil {
			log.Fatalf("Missing required configuration: %v", err)
		}

		generator := NewFalClient(creds.FalKey, settings)
		uploader := NewSupabaseStorage(creds.SupabaseURL, creds.SupabaseKey, creds.Bucket,
			&http.Client{Timeout: settings.Pipeline.RequestTimeout()})

		processor := NewRecipeProcessor(settings, generator, uploader)
		if _, err := processor.ProcessAll(context.Background()); err != nil {
			log.Fatalf("Processing failed: %v", err)
		}
	},
}

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Fetch the source sitemap and save it as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		settings := mustLoadSettings()
		ctx := context.Background()

		log.Printf("Fetching sitemap from: %s", settings.Scraper.SitemapURL)
		client := &http.Client{Timeout: settings.Pipeline.RequestTimeout()}
		entries, err := FetchSitemap(ctx, client, settings.Scraper.SitemapURL, settings.Scraper.UserAgent)
		if err != nil {
			log.Fatalf("Fetching sitemap failed: %v", err)
		}
		log.Printf("Found %d entries in the sitemap.", len(entries))

		if err := SaveSitemap(entries, settings.Scraper.SitemapFile); err != nil {
			log.Fatalf("Saving sitemap data failed: %v", err)
		}
		log.Printf("✓ Saved sitemap data to %s", settings.Scraper.SitemapFile)
	},
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape recipe pages from the sitemap into record files",
	Run: func(cmd *cobra.Command, args []string) {
		settings := mustLoadSettings()
		ctx := context.Background()

		entries, err := LoadSitemap(settings.Scraper.SitemapFile)
		if err != nil {
			log.Fatalf("Loading sitemap data failed: %v", err)
		}

		log.Printf("Scraping %d URLs into %s/", len(entries), settings.RecordsDir)
		client := &http.Client{Timeout: settings.Pipeline.RequestTimeout()}
		scraper := NewRecipeScraper(client, settings.Scraper.UserAgent)
		written, err := scraper.ScrapeAll(ctx, entries, settings.RecordsDir)
		if err != nil {
			log.Fatalf("Scraping failed after %d new records: %v", written, err)
		}
		log.Printf("✓ Scraping complete. Found %d new recipes.", written)
	},
}

// mustLoadSettings loads settings, applies flag overrides and dies on error.
func mustLoadSettings() *Settings {
	var settings *Settings
	var err error

	if settingsPath != "" {
		// An explicitly requested settings file must exist.
		settings, err = loadSettingsRequired(settingsPath)
		if err != nil {
			log.Fatalf("Settings file missing: %s - %v", settingsPath, err)
		}
	} else {
		if err := ensureConfigExists(); err != nil {
			log.Fatalf("Ensuring config files exist: %v", err)
		}
		settings, err = loadSettings(getConfigPath("settings.yaml"))
		if err != nil {
			log.Fatalf("Loading settings: %v", err)
		}
	}

	if recordsDir != "" {
		settings.RecordsDir = recordsDir
	}
	if concurrency > 0 {
		settings.Pipeline.Concurrency = concurrency
	}

	return settings
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to a settings.yaml file")
	rootCmd.PersistentFlags().StringVar(&recordsDir, "records-dir", "", "Override the records directory")
	processCmd.Flags().IntVar(&concurrency, "concurrency", 0, "Override the concurrent job limit")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(sitemapCmd)
	rootCmd.AddCommand(scrapeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
