package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	slugDropRe      = regexp.MustCompile(`[^a-z0-9\s_-]`)
	slugSeparatorRe = regexp.MustCompile(`[\s_]+`)
	slugHyphenRe    = regexp.MustCompile(`-+`)
)

// Slugify derives a filesystem- and URL-safe identifier from free text.
// Identical titles always map to the same slug. Degenerate input (empty or
// punctuation-only) yields a fresh random token so the result is never empty.
func Slugify(text string) string {
	slug := strings.ToLower(text)
	slug = slugDropRe.ReplaceAllString(slug, "")
	slug = slugSeparatorRe.ReplaceAllString(slug, "-")
	slug = slugHyphenRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if slug == "" {
		return fmt.Sprintf("recipe-%s", uuid.New().String())
	}

	return slug
}
