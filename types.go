package main

import "encoding/json"

// Recipe represents one record file: the fields the pipeline cares about plus
// every other key the scraper wrote, carried through untouched.
type Recipe struct {
	Slug              string
	Title             string
	ImageURL          string
	GeneratedImageURL string

	// fields holds the full on-disk document, including the keys above.
	fields map[string]json.RawMessage
}

// Keys the pipeline reads or writes; everything else is pass-through.
const (
	keySlug              = "slug"
	keyTitle             = "title"
	keyImageURL          = "image_url"
	keyGeneratedImageURL = "generated_image_url"
)

// UnmarshalJSON decodes a record while keeping unknown fields intact.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	r.fields = fields
	r.Slug = stringField(fields, keySlug)
	r.Title = stringField(fields, keyTitle)
	r.ImageURL = stringField(fields, keyImageURL)
	r.GeneratedImageURL = stringField(fields, keyGeneratedImageURL)
	return nil
}

// MarshalJSON re-emits the full document. Only keys changed through
// SetGeneratedImageURL differ from what was read.
func (r *Recipe) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		fields := map[string]json.RawMessage{}
		setStringField(fields, keySlug, r.Slug)
		setStringField(fields, keyTitle, r.Title)
		setStringField(fields, keyImageURL, r.ImageURL)
		setStringField(fields, keyGeneratedImageURL, r.GeneratedImageURL)
		r.fields = fields
	}
	return json.Marshal(r.fields)
}

// SetGeneratedImageURL records the pipeline output. This is the only mutation
// the pipeline ever writes back to a record.
func (r *Recipe) SetGeneratedImageURL(url string) {
	r.GeneratedImageURL = url
	if r.fields == nil {
		r.fields = map[string]json.RawMessage{}
	}
	setStringField(r.fields, keyGeneratedImageURL, url)
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func setStringField(fields map[string]json.RawMessage, key, value string) {
	if value == "" {
		return
	}
	raw, _ := json.Marshal(value)
	fields[key] = raw
}

// ProcessingStatus classifies a record before any job is built.
type ProcessingStatus string

const (
	StatusCompleted ProcessingStatus = "completed"
	StatusEligible  ProcessingStatus = "eligible"
	StatusSkipped   ProcessingStatus = "skipped"
)

// JobResult tracks the outcome of one pipeline job.
type JobResult struct {
	Title        string
	Slug         string
	Path         string
	GeneratedURL string
	Error        error
}

// BatchSummary is what a batch run reports back to the operator.
type BatchSummary struct {
	TotalRecords     int
	AlreadyCompleted int
	Skipped          []string
	Succeeded        int
	Failed           []JobResult
}
