package tagger

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
// Failures are reported as *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResult, error)
}

// HeadlessDetector decides whether a headless fetch is warranted.
type HeadlessDetector interface {
	ShouldPromote(page FetchResult) bool
}

// Extractor turns raw HTML into bounded visible text.
type Extractor interface {
	Extract(rawHTML []byte) (string, error)
}

// Classifier scores text against a set of candidate labels.
// Implementations must be safe for concurrent use or be wrapped in a guard.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) (Scores, error)
}

// LanguageDetector reports the ISO 639-1 code of a text when it can tell.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}

// Publisher pushes classification events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// IDGenerator produces event and request IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher fingerprints extracted content.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock supplies event timestamps.
type Clock interface {
	Now() time.Time
}
