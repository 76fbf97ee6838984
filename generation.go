package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultQueueBaseURL = "https://queue.fal.run"

// Generator is the generation-API boundary the orchestrator depends on.
type Generator interface {
	// Generate submits the source image and waits for the generated image URL.
	Generate(ctx context.Context, sourceImageURL string) (string, error)
	// Download fetches the generated image bytes.
	Download(ctx context.Context, imageURL string) ([]byte, error)
}

// FalClient talks to the fal.ai queue API: submit a request, poll its status,
// then fetch the result payload. Generate blocks the calling goroutine only;
// sibling jobs keep making progress while it waits.
type FalClient struct {
	apiKey       string
	baseURL      string
	model        string
	params       GenerationSettings
	pollInterval time.Duration
	client       *http.Client
}

// NewFalClient creates a generation client from settings and credentials.
func NewFalClient(apiKey string, settings *Settings) *FalClient {
	return &FalClient{
		apiKey:       apiKey,
		baseURL:      defaultQueueBaseURL,
		model:        settings.Generation.Model,
		params:       settings.Generation,
		pollInterval: settings.Generation.PollInterval(),
		client:       &http.Client{Timeout: settings.Pipeline.RequestTimeout()},
	}
}

type falImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type falSubmitRequest struct {
	ImageURL            string       `json:"image_url"`
	ImageSize           falImageSize `json:"image_size"`
	NumInferenceSteps   int          `json:"num_inference_steps"`
	NumImages           int          `json:"num_images"`
	EnableSafetyChecker bool         `json:"enable_safety_checker"`
}

type falQueueHandle struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type falQueueStatus struct {
	Status string `json:"status"`
}

type falResult struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Generate runs the full submit → poll → fetch sequence for one source image.
func (c *FalClient) Generate(ctx context.Context, sourceImageURL string) (string, error) {
	handle, err := c.submit(ctx, sourceImageURL)
	if err != nil {
		return "", err
	}

	if err := c.await(ctx, handle); err != nil {
		return "", err
	}

	result, err := c.fetchResult(ctx, handle)
	if err != nil {
		return "", err
	}

	if len(result.Images) == 0 || result.Images[0].URL == "" {
		// An empty image list is a failure, never a silent success.
		return "", &GenerationError{Reason: "response contained no images"}
	}

	return result.Images[0].URL, nil
}

func (c *FalClient) submit(ctx context.Context, sourceImageURL string) (*falQueueHandle, error) {
	body, err := json.Marshal(falSubmitRequest{
		ImageURL: sourceImageURL,
		ImageSize: falImageSize{
			Width:  c.params.ImageWidth,
			Height: c.params.ImageHeight,
		},
		NumInferenceSteps:   c.params.InferenceSteps,
		NumImages:           c.params.NumImages,
		EnableSafetyChecker: c.params.EnableSafetyChecker,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding generation request: %w", err)
	}

	submitURL := fmt.Sprintf("%s/%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, markTransient(fmt.Errorf("submitting generation request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &GenerationError{Reason: "submit rejected", Err: statusError(resp.StatusCode, submitURL)}
	}

	var handle falQueueHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		return nil, &GenerationError{Reason: "malformed submit response", Err: err}
	}
	if handle.StatusURL == "" || handle.ResponseURL == "" {
		return nil, &GenerationError{Reason: "submit response missing queue URLs"}
	}

	return &handle, nil
}

// await polls the queue until the request completes. The external API does its
// work asynchronously; only this job's goroutine waits on it.
func (c *FalClient) await(ctx context.Context, handle *falQueueHandle) error {
	for {
		status, err := c.pollStatus(ctx, handle)
		if err != nil {
			return err
		}

		switch status {
		case "COMPLETED":
			return nil
		case "IN_QUEUE", "IN_PROGRESS":
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.pollInterval):
			}
		default:
			return &GenerationError{Reason: fmt.Sprintf("unexpected queue status %q", status)}
		}
	}
}

func (c *FalClient) pollStatus(ctx context.Context, handle *falQueueHandle) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle.StatusURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", markTransient(fmt.Errorf("polling generation status: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &GenerationError{Reason: "status poll rejected", Err: statusError(resp.StatusCode, handle.StatusURL)}
	}

	var status falQueueStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", &GenerationError{Reason: "malformed status response", Err: err}
	}

	return status.Status, nil
}

func (c *FalClient) fetchResult(ctx context.Context, handle *falQueueHandle) (*falResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle.ResponseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, markTransient(fmt.Errorf("fetching generation result: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &GenerationError{Reason: "result fetch rejected", Err: statusError(resp.StatusCode, handle.ResponseURL)}
	}

	var result falResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &GenerationError{Reason: "malformed result payload", Err: err}
	}

	return &result, nil
}

// Download fetches the generated image bytes from the URL the API returned.
func (c *FalClient) Download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, markTransient(fmt.Errorf("downloading %s: %w", imageURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, imageURL)
	}

	return io.ReadAll(resp.Body)
}
