package main

import (
	"context"
	"fmt"
	"log"
)

// RecipeProcessor is the batch driver: it enumerates the record store,
// partitions records into completed/eligible/skipped, runs the orchestrator
// over the eligible set and reports a summary. No business logic lives here
// beyond composition.
type RecipeProcessor struct {
	settings     *Settings
	orchestrator *Orchestrator
}

// NewRecipeProcessor creates a processor with injected adapters.
func NewRecipeProcessor(settings *Settings, generator Generator, uploader Uploader) *RecipeProcessor {
	return &RecipeProcessor{
		settings:     settings,
		orchestrator: NewOrchestrator(generator, uploader, settings),
	}
}

// ProcessAll runs the full batch once. Re-running is idempotent: completed
// records are skipped without any external call.
func (p *RecipeProcessor) ProcessAll(ctx context.Context) (*BatchSummary, error) {
	records, err := LoadRecords(p.settings.RecordsDir)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{TotalRecords: len(records)}
	var eligible []StoredRecipe

	for _, record := range records {
		switch Classify(record.Recipe) {
		case StatusCompleted:
			summary.AlreadyCompleted++
		case StatusSkipped:
			summary.Skipped = append(summary.Skipped, displayTitle(record.Recipe))
		case StatusEligible:
			eligible = append(eligible, record)
		}
	}

	log.Printf("Found %d total recipe records.", summary.TotalRecords)
	log.Printf("- %d are already processed.", summary.AlreadyCompleted)
	log.Printf("- %d are missing a source image URL or identifier.", len(summary.Skipped))
	log.Printf("- %d new recipes to process.", len(eligible))

	if len(eligible) > 0 {
		results := p.orchestrator.Run(ctx, eligible)
		for _, result := range results {
			if result.Error != nil {
				summary.Failed = append(summary.Failed, result)
			} else {
				summary.Succeeded++
			}
		}
	}

	printSummary(summary)
	return summary, nil
}

func printSummary(summary *BatchSummary) {
	fmt.Println("\n--- Batch Processing Complete ---")
	fmt.Printf("Already completed: %d\n", summary.AlreadyCompleted)
	fmt.Printf("Newly succeeded:   %d\n", summary.Succeeded)
	fmt.Printf("Skipped:           %d\n", len(summary.Skipped))
	fmt.Printf("Failed:            %d\n", len(summary.Failed))

	if len(summary.Skipped) > 0 {
		fmt.Println("\nSkipped (missing source image URL or identifier):")
		for _, title := range summary.Skipped {
			fmt.Printf("- %s\n", title)
		}
	}

	if len(summary.Failed) > 0 {
		fmt.Println("\nFailed:")
		for _, result := range summary.Failed {
			fmt.Printf("- %s: %v\n", result.Title, result.Error)
		}
	}
}
