package main

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// GenerationError means the generation API refused the request or returned a
// payload without any usable image.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// TranscodeError means the fetched bytes could not be decoded or re-encoded.
type TranscodeError struct {
	Reason string
	Err    error
}

func (e *TranscodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcode failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transcode failed: %s", e.Reason)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// TransientError tags a failure as temporary. The orchestrator retries these;
// everything else fails the job on the first attempt.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// markTransient wraps err so IsTransient recognizes it. Nil stays nil.
func markTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is retry-eligible: either tagged at the
// adapter boundary, a network timeout, or matching one of the configured
// provider signatures.
func IsTransient(err error, signatures []string) bool {
	if err == nil {
		return false
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, sig := range signatures {
		if sig != "" && strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// statusError converts a non-2xx response into a typed error, tagging the
// retryable status codes as transient.
func statusError(statusCode int, url string) error {
	err := &HTTPError{StatusCode: statusCode, URL: url}
	if isRetryableStatus(statusCode) {
		return markTransient(err)
	}
	return err
}

func isRetryableStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}
