// Package mock provides function-field fakes of the tagger interfaces.
package mock

import (
	"context"

	"github.com/JakeFAU/page-tagger/internal/tagger"
)

var _ tagger.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of tagger.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, request tagger.FetchRequest) (tagger.FetchResult, error)
}

func (f *Fetcher) Fetch(ctx context.Context, request tagger.FetchRequest) (tagger.FetchResult, error) {
	return f.FetchFn(ctx, request)
}

var _ tagger.HeadlessDetector = (*Detector)(nil)

// Detector is a mock implementation of tagger.HeadlessDetector.
type Detector struct {
	ShouldPromoteFn func(page tagger.FetchResult) bool
}

func (d *Detector) ShouldPromote(page tagger.FetchResult) bool {
	return d.ShouldPromoteFn(page)
}
