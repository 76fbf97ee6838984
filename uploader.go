package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Uploader is the object-storage boundary the orchestrator depends on.
type Uploader interface {
	// Upload stores data at path. Re-uploading the same path overwrites the
	// prior content, which keeps retries safe.
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	// PublicURL resolves the public URL for an uploaded path.
	PublicURL(path string) string
}

// SupabaseStorage uploads objects through the Supabase storage REST API.
type SupabaseStorage struct {
	baseURL string
	apiKey  string
	bucket  string
	client  *http.Client
}

// NewSupabaseStorage creates a storage client for one bucket.
func NewSupabaseStorage(baseURL, apiKey, bucket string, client *http.Client) *SupabaseStorage {
	return &SupabaseStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		client:  client,
	}
}

// Upload upserts the object; a prior object at the same path is replaced.
func (s *SupabaseStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := s.client.Do(req)
	if err != nil {
		return markTransient(fmt.Errorf("uploading %s: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(resp.StatusCode, uploadURL)
	}

	return nil
}

// PublicURL returns the public URL for an object in the bucket.
func (s *SupabaseStorage) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, path)
}
