// Package tagger defines the core types shared across the page tagging pipeline.
package tagger

import (
	"net/http"
	"time"
)

// Scores maps a taxonomy label to its zero-shot relevance score in [0,1].
type Scores map[string]float64

// TagScore pairs a taxonomy label with the confidence returned to clients.
type TagScore struct {
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
}

// FetchRequest captures everything needed to fetch a page.
type FetchRequest struct {
	URL string
}

// FetchResult is returned by a Fetcher implementation.
type FetchResult struct {
	URL          string
	StatusCode   int
	ContentType  string
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Result is the outcome of one classification request.
type Result struct {
	URL           string     `json:"url"`
	ContentSample string     `json:"content_sample"`
	Tags          []TagScore `json:"tags"`

	Language      string        `json:"-"`
	ContentLength int           `json:"-"`
	FetchDuration time.Duration `json:"-"`
	UsedHeadless  bool          `json:"-"`
}

// ClassificationEvent is published after a successful classification.
type ClassificationEvent struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	FinalURL        string     `json:"final_url"`
	Tags            []TagScore `json:"tags"`
	Language        string     `json:"language,omitempty"`
	ContentSHA256   string     `json:"content_sha256"`
	ContentLength   int        `json:"content_length"`
	StatusCode      int        `json:"status_code"`
	UsedHeadless    bool       `json:"used_headless"`
	FetchDurationMs int64      `json:"fetch_duration_ms"`
	ClassifiedAt    time.Time  `json:"classified_at"`
}
