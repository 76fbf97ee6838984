package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// StoredRecipe pairs a parsed record with the file it came from.
type StoredRecipe struct {
	Recipe *Recipe
	Path   string
}

// LoadRecords enumerates every record file in dir. A file that cannot be read
// or parsed is logged as a warning and left out; it never fails the batch.
func LoadRecords(dir string) ([]StoredRecipe, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("records directory not found at %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("records path %s is not a directory", dir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing records in %s: %w", dir, err)
	}
	sort.Strings(paths)

	records := make([]StoredRecipe, 0, len(paths))
	for _, path := range paths {
		recipe, err := readRecord(path)
		if err != nil {
			log.Printf("Warning: could not read or parse %s, skipping: %v", path, err)
			continue
		}
		records = append(records, StoredRecipe{Recipe: recipe, Path: path})
	}

	return records, nil
}

func readRecord(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recipe Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// Classify decides what the batch does with a record. It backfills a missing
// slug from the title; the backfilled slug lives in memory only, the file is
// never rewritten for it.
func Classify(r *Recipe) ProcessingStatus {
	if r.GeneratedImageURL != "" {
		return StatusCompleted
	}
	if r.Slug == "" && r.Title != "" {
		r.Slug = Slugify(r.Title)
	}
	if r.ImageURL == "" || r.Slug == "" {
		return StatusSkipped
	}
	return StatusEligible
}

// WriteGeneratedURL re-reads the record at path, sets generated_image_url and
// writes the file back with every other field preserved. The content is fully
// serialized before the file is replaced, so a crash mid-write cannot leave a
// truncated record behind.
func WriteGeneratedURL(path, generatedURL string) error {
	recipe, err := readRecord(path)
	if err != nil {
		return fmt.Errorf("reading record %s: %w", path, err)
	}

	recipe.SetGeneratedImageURL(generatedURL)

	data, err := json.MarshalIndent(recipe, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing record %s: %w", path, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".record-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing record %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing record %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing record %s: %w", path, err)
	}

	return nil
}
