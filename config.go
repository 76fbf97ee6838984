package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".recipeforge/"

//go:embed config/settings.yaml
var defaultSettings string

// GenerationSettings are the fixed arguments sent with every generation call.
type GenerationSettings struct {
	Model               string `yaml:"model"`
	ImageWidth          int    `yaml:"image_width"`
	ImageHeight         int    `yaml:"image_height"`
	InferenceSteps      int    `yaml:"num_inference_steps"`
	NumImages           int    `yaml:"num_images"`
	EnableSafetyChecker bool   `yaml:"enable_safety_checker"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

// OutputSettings control the re-encode step before upload.
type OutputSettings struct {
	Format  string `yaml:"format"`
	Quality int    `yaml:"quality"`
}

// PipelineSettings control concurrency and retry behavior.
type PipelineSettings struct {
	Concurrency           int      `yaml:"concurrency"`
	MaxAttempts           int      `yaml:"max_attempts"`
	RetryBaseDelaySeconds int      `yaml:"retry_base_delay_seconds"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
	TransientSignatures   []string `yaml:"transient_signatures"`
}

// ScraperSettings configure the sitemap fetch and page scraper.
type ScraperSettings struct {
	SitemapURL  string `yaml:"sitemap_url"`
	SitemapFile string `yaml:"sitemap_file"`
	UserAgent   string `yaml:"user_agent"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	RecordsDir string             `yaml:"records_dir"`
	Generation GenerationSettings `yaml:"generation"`
	Output     OutputSettings     `yaml:"output"`
	Pipeline   PipelineSettings   `yaml:"pipeline"`
	Scraper    ScraperSettings    `yaml:"scraper"`
}

// RetryBaseDelay returns the configured backoff base as a duration.
func (p PipelineSettings) RetryBaseDelay() time.Duration {
	return time.Duration(p.RetryBaseDelaySeconds) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout as a duration.
func (p PipelineSettings) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns the generation status poll interval as a duration.
func (g GenerationSettings) PollInterval() time.Duration {
	return time.Duration(g.PollIntervalSeconds) * time.Second
}

// loadSettings loads settings from YAML file with fallback to defaults
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		// Return default settings if file doesn't exist
		return defaultSettingsValues(), nil
	}

	settings := defaultSettingsValues()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	return settings, nil
}

// loadSettingsRequired loads settings from YAML file, failing if file doesn't exist
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, err
	}

	settings := defaultSettingsValues()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	return settings, nil
}

func defaultSettingsValues() *Settings {
	var settings Settings
	// The embedded file is the source of truth for defaults.
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		panic(fmt.Sprintf("embedded settings.yaml is invalid: %v", err))
	}
	return &settings
}

// getConfigPath returns the path to a config file in the .recipeforge directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ensureConfigExists creates config directory and writes settings.yaml if needed
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}

	return nil
}

// Credentials holds the secrets the pipeline needs before any job starts.
type Credentials struct {
	FalKey      string
	SupabaseURL string
	SupabaseKey string
	Bucket      string
}

// LoadCredentials reads credentials from the environment, honoring a local
// .env file when present. Missing required values are a fatal precondition.
func LoadCredentials() (*Credentials, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	creds := &Credentials{
		FalKey:      os.Getenv("FAL_KEY"),
		SupabaseURL: os.Getenv("SUPABASE_URL"),
		SupabaseKey: os.Getenv("SUPABASE_KEY"),
		Bucket:      os.Getenv("SUPABASE_BUCKET_NAME"),
	}
	if creds.Bucket == "" {
		creds.Bucket = "images"
	}

	var missing []string
	if creds.FalKey == "" {
		missing = append(missing, "FAL_KEY")
	}
	if creds.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if creds.SupabaseKey == "" {
		missing = append(missing, "SUPABASE_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v (set them in the environment or a .env file)", missing)
	}

	return creds, nil
}
