package tagger

import "fmt"

// Client-facing error messages.
const (
	MsgURLRequired      = "URL is required"
	MsgExtractionFailed = "Failed to extract content"
)

// Reason explains why no content could be extracted for a URL.
type Reason string

// Extraction failure reasons. The fetch reasons are set by Fetcher
// implementations, the rest by the pipeline.
const (
	ReasonInvalidURL   Reason = "invalid_url"
	ReasonTimeout      Reason = "timeout"
	ReasonNetwork      Reason = "network"
	ReasonNonHTML      Reason = "non_html"
	ReasonCanceled     Reason = "canceled"
	ReasonRobots       Reason = "robots_disallowed"
	ReasonParse        Reason = "parse"
	ReasonEmptyContent Reason = "empty_content"
)

// FetchError reports a failed fetch together with a distinguishable reason.
type FetchError struct {
	Reason     Reason
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ValidationError is returned for malformed requests.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ExtractionError means the page produced no classifiable text.
type ExtractionError struct {
	Reason Reason
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", MsgExtractionFailed, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", MsgExtractionFailed, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ClassificationError wraps a failed model invocation. Its message is the
// underlying failure message and is surfaced to clients verbatim.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return e.Err.Error()
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}
