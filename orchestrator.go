package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Orchestrator drives one job per eligible record: generate, download,
// transcode, upload, write back. Concurrency is bounded by a counting
// semaphore; transient failures are retried with exponential backoff.
type Orchestrator struct {
	generator Generator
	uploader  Uploader

	concurrency int
	maxAttempts int
	baseDelay   time.Duration
	signatures  []string
	format      string
	quality     int
}

// NewOrchestrator wires the injected adapters with the pipeline settings.
func NewOrchestrator(generator Generator, uploader Uploader, settings *Settings) *Orchestrator {
	return &Orchestrator{
		generator:   generator,
		uploader:    uploader,
		concurrency: settings.Pipeline.Concurrency,
		maxAttempts: settings.Pipeline.MaxAttempts,
		baseDelay:   settings.Pipeline.RetryBaseDelay(),
		signatures:  settings.Pipeline.TransientSignatures,
		format:      settings.Output.Format,
		quality:     settings.Output.Quality,
	}
}

// Run fans one job out per record and waits for every job to reach a terminal
// state. Jobs are independent: a failure never aborts its siblings, and no
// ordering is guaranteed between them.
func (o *Orchestrator) Run(ctx context.Context, records []StoredRecipe) []JobResult {
	// The semaphore is the only cross-job coordination: at most concurrency
	// jobs hold a slot, and a slot is held for a job's full retry lifetime.
	sem := make(chan struct{}, o.concurrency)
	results := make([]JobResult, len(records))

	var wg sync.WaitGroup
	for i, record := range records {
		wg.Add(1)
		go func(i int, record StoredRecipe) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = o.runJob(ctx, record)
		}(i, record)
	}
	wg.Wait()

	return results
}

// runJob attempts the full stage sequence up to maxAttempts times. A retry
// restarts from submission rather than resuming the failed stage: the upload
// is an upsert and re-generation is accepted as the cost of not checkpointing
// per stage.
func (o *Orchestrator) runJob(ctx context.Context, record StoredRecipe) JobResult {
	title := displayTitle(record.Recipe)
	result := JobResult{
		Title: title,
		Slug:  record.Recipe.Slug,
		Path:  record.Path,
	}

	var lastErr error
	for attempt := 0; attempt < o.maxAttempts; attempt++ {
		generatedURL, err := o.attempt(ctx, record, title)
		if err == nil {
			result.GeneratedURL = generatedURL
			log.Printf("✓ Processed %q", title)
			return result
		}

		lastErr = err
		if IsTransient(err, o.signatures) && attempt < o.maxAttempts-1 {
			delay := o.baseDelay * (1 << attempt)
			log.Printf("  Transient error for %q (attempt %d/%d), retrying in %s: %v",
				title, attempt+1, o.maxAttempts, delay, err)
			select {
			case <-ctx.Done():
				result.Error = ctx.Err()
				return result
			case <-time.After(delay):
			}
			continue
		}
		break
	}

	log.Printf("✗ Failed %q: %v", title, lastErr)
	result.Error = lastErr
	return result
}

// attempt runs the stage sequence once: submit/await, fetch, transcode,
// upload, persist.
func (o *Orchestrator) attempt(ctx context.Context, record StoredRecipe, title string) (string, error) {
	log.Printf("  → Submitting %q for generation", title)
	generatedURL, err := o.generator.Generate(ctx, record.Recipe.ImageURL)
	if err != nil {
		return "", fmt.Errorf("generating image: %w", err)
	}

	log.Printf("  → Downloading generated image for %q", title)
	raw, err := o.generator.Download(ctx, generatedURL)
	if err != nil {
		return "", fmt.Errorf("downloading generated image: %w", err)
	}

	log.Printf("  → Converting to %s for %q", o.format, title)
	encoded, err := Transcode(raw, o.format, o.quality)
	if err != nil {
		return "", err
	}

	objectPath := record.Recipe.Slug + OutputExtension(o.format)
	log.Printf("  → Uploading %s", objectPath)
	if err := o.uploader.Upload(ctx, objectPath, encoded, OutputContentType(o.format)); err != nil {
		return "", fmt.Errorf("uploading %s: %w", objectPath, err)
	}
	publicURL := o.uploader.PublicURL(objectPath)

	log.Printf("  → Updating record %s", record.Path)
	if err := WriteGeneratedURL(record.Path, publicURL); err != nil {
		return "", err
	}

	return publicURL, nil
}

func displayTitle(r *Recipe) string {
	if r.Title != "" {
		return r.Title
	}
	return "Untitled Recipe"
}
