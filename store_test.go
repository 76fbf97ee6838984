package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeTestRecord(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing test record: %v", err)
	}
	return path
}

func TestLoadRecordsSkipsUnparseable(t *testing.T) {
	dir := t.TempDir()
	writeTestRecord(t, dir, "good.json", `{"slug": "good", "image_url": "https://example.com/a.jpg"}`)
	writeTestRecord(t, dir, "broken.json", `{not json`)

	records, err := LoadRecords(dir)
	if err != nil {
		t.Fatalf("LoadRecords() error = %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("LoadRecords() returned %d records, want 1", len(records))
	}
	if records[0].Recipe.Slug != "good" {
		t.Errorf("loaded slug = %q, want %q", records[0].Recipe.Slug, "good")
	}
}

func TestLoadRecordsMissingDirectory(t *testing.T) {
	if _, err := LoadRecords(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("LoadRecords() on a missing directory should fail")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		record   string
		expected ProcessingStatus
	}{
		{
			"completed",
			`{"slug": "done", "image_url": "https://example.com/a.jpg", "generated_image_url": "https://cdn.example.com/done.jpg"}`,
			StatusCompleted,
		},
		{
			"eligible",
			`{"slug": "ready", "image_url": "https://example.com/a.jpg"}`,
			StatusEligible,
		},
		{
			"missing source image",
			`{"slug": "no-image", "title": "No Image"}`,
			StatusSkipped,
		},
		{
			"slug backfilled from title",
			`{"title": "Crispy Chicken", "image_url": "https://example.com/a.jpg"}`,
			StatusEligible,
		},
		{
			"no slug and no title",
			`{"image_url": "https://example.com/a.jpg"}`,
			StatusSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var recipe Recipe
			if err := json.Unmarshal([]byte(tt.record), &recipe); err != nil {
				t.Fatalf("parsing record: %v", err)
			}
			if got := Classify(&recipe); got != tt.expected {
				t.Errorf("Classify() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestClassifyBackfillsSlug(t *testing.T) {
	recipe := &Recipe{Title: "Crispy Chicken", ImageURL: "https://example.com/a.jpg"}

	if status := Classify(recipe); status != StatusEligible {
		t.Fatalf("Classify() = %q, want eligible", status)
	}
	if recipe.Slug != "crispy-chicken" {
		t.Errorf("backfilled slug = %q, want %q", recipe.Slug, "crispy-chicken")
	}
}

func TestWriteGeneratedURLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := `{
  "slug": "pasta",
  "title": "Pasta",
  "image_url": "https://example.com/pasta.jpg",
  "url": "https://example.com/recipes/pasta",
  "tags": ["dinner", "italian"],
  "nutrition": {"calories": 520}
}`
	path := writeTestRecord(t, dir, "pasta.json", original)

	generatedURL := "https://cdn.example.com/pasta.jpg"
	if err := WriteGeneratedURL(path, generatedURL); err != nil {
		t.Fatalf("WriteGeneratedURL() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading updated record: %v", err)
	}

	var before, after map[string]any
	if err := json.Unmarshal([]byte(original), &before); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &after); err != nil {
		t.Fatalf("updated record is not valid JSON: %v", err)
	}

	// The update must equal the original plus exactly one field.
	before["generated_image_url"] = generatedURL
	if !reflect.DeepEqual(before, after) {
		t.Errorf("record round-trip mismatch:\n got %v\nwant %v", after, before)
	}
}

func TestWriteGeneratedURLLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeTestRecord(t, dir, "r.json", `{"slug": "r", "image_url": "https://example.com/a.jpg"}`)

	if err := WriteGeneratedURL(path, "https://cdn.example.com/r.jpg"); err != nil {
		t.Fatalf("WriteGeneratedURL() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".record-") {
			t.Errorf("temp file %s left behind", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestWriteGeneratedURLUnreadableRecord(t *testing.T) {
	if err := WriteGeneratedURL(filepath.Join(t.TempDir(), "missing.json"), "u"); err == nil {
		t.Error("WriteGeneratedURL() on a missing record should fail")
	}
}
