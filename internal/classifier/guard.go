// Package classifier holds the process-wide classifier guard shared by the
// HTTP server and the CLI. Backends live in subpackages.
package classifier

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/page-tagger/internal/metrics"
	"github.com/JakeFAU/page-tagger/internal/tagger"
)

// Backend names accepted in configuration.
const (
	BackendHuggingFace = "huggingface"
	BackendGemini      = "gemini"
)

var _ tagger.Classifier = (*Guard)(nil)

// Guard wraps a backend with bounded concurrency and an inference timeout.
// With maxConcurrent == 1 inference is fully serialized, which is the only
// safe mode for backends that are not reentrant.
type Guard struct {
	next    tagger.Classifier
	sem     *semaphore.Weighted
	timeout time.Duration
	backend string
}

// NewGuard wraps next. Non-positive maxConcurrent means 1; a zero timeout
// disables the per-call deadline.
func NewGuard(next tagger.Classifier, backend string, maxConcurrent int64, timeout time.Duration) *Guard {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Guard{
		next:    next,
		sem:     semaphore.NewWeighted(maxConcurrent),
		timeout: timeout,
		backend: backend,
	}
}

// Classify waits for a slot, runs the backend under the timeout and
// normalizes the returned scores to cover every label.
func (g *Guard) Classify(ctx context.Context, text string, labels []string) (tagger.Scores, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for classifier: %w", err)
	}
	defer g.sem.Release(1)

	metrics.IncClassifierInflight()
	defer metrics.DecClassifierInflight()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	scores, err := g.next.Classify(ctx, text, labels)
	if err != nil {
		metrics.ObserveClassify(g.backend, "error", time.Since(start))
		return nil, err
	}
	metrics.ObserveClassify(g.backend, "ok", time.Since(start))
	return Normalize(scores, labels), nil
}

// Normalize returns scores restricted to labels, with missing or NaN
// scores set to 0 and every score clamped to [0,1].
func Normalize(scores tagger.Scores, labels []string) tagger.Scores {
	out := make(tagger.Scores, len(labels))
	for _, label := range labels {
		v := scores[label]
		switch {
		case math.IsNaN(v) || v < 0:
			v = 0
		case v > 1:
			v = 1
		}
		out[label] = v
	}
	return out
}
