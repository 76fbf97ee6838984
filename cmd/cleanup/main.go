// Command cleanup deletes recipe records that have no source image URL and can
// therefore never be processed. It previews the deletions and asks for
// confirmation; it is a separate binary so the pipeline core never deletes.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: cleanup <records-directory>")
	}
	recordsDir := os.Args[1]

	paths, err := findRecordsToDelete(recordsDir)
	if err != nil {
		log.Fatal(err)
	}

	if len(paths) == 0 {
		fmt.Println("No recipes found missing a source image URL. The dataset is clean.")
		return
	}

	fmt.Printf("Found %d recipes to delete:\n", len(paths))
	for i, path := range paths {
		if i == 10 {
			fmt.Printf("   ...and %d more.\n", len(paths)-10)
			break
		}
		fmt.Printf(" - %s\n", filepath.Base(path))
	}

	fmt.Print("\nAre you sure you want to permanently delete these files? (y/n): ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("Reading confirmation: %v", err)
	}
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Println("Deletion cancelled. No files were changed.")
		return
	}

	deleted := 0
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			log.Printf("Error deleting %s: %v", path, err)
			continue
		}
		deleted++
	}
	fmt.Printf("Successfully deleted %d files.\n", deleted)
}

// findRecordsToDelete scans the records directory for files whose image_url is
// missing or empty. Unparseable files are reported and left alone.
func findRecordsToDelete(recordsDir string) ([]string, error) {
	info, err := os.Stat(recordsDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("records directory not found at %q", recordsDir)
	}

	paths, err := filepath.Glob(filepath.Join(recordsDir, "*.json"))
	if err != nil {
		return nil, err
	}

	fmt.Printf("Scanning %d files...\n", len(paths))

	var toDelete []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: could not read %s, skipping: %v", path, err)
			continue
		}
		var record struct {
			ImageURL string `json:"image_url"`
		}
		if err := json.Unmarshal(data, &record); err != nil {
			log.Printf("Warning: could not parse %s, skipping: %v", path, err)
			continue
		}
		if record.ImageURL == "" {
			toDelete = append(toDelete, path)
		}
	}

	return toDelete, nil
}
