// Package fetcher composes the plain and headless fetchers and classifies
// fetch failures into reasons.
package fetcher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/page-tagger/internal/metrics"
	"github.com/JakeFAU/page-tagger/internal/tagger"
)

var _ tagger.Fetcher = (*Promoting)(nil)

// Promoting fetches with a plain HTTP fetcher and re-renders with a headless one
// when the detector says the plain body is a script shell. A failed render
// falls back to the plain result.
type Promoting struct {
	plain    tagger.Fetcher
	headless tagger.Fetcher
	detector tagger.HeadlessDetector
	logger   *zap.Logger
}

// NewPromoting wires the fetchers. A nil headless fetcher or detector
// disables promotion.
func NewPromoting(plain, headless tagger.Fetcher, detector tagger.HeadlessDetector, logger *zap.Logger) *Promoting {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Promoting{plain: plain, headless: headless, detector: detector, logger: logger}
}

// Fetch implements tagger.Fetcher.
func (p *Promoting) Fetch(ctx context.Context, request tagger.FetchRequest) (tagger.FetchResult, error) {
	res, err := p.plain.Fetch(ctx, request)
	if err != nil {
		metrics.ObserveFetch(request.URL, string(ReasonFor(err)), 0)
		return tagger.FetchResult{}, err
	}
	if p.headless == nil || p.detector == nil || !p.detector.ShouldPromote(res) {
		metrics.ObserveFetch(request.URL, "", len(res.Body))
		return res, nil
	}

	rendered, err := p.headless.Fetch(ctx, request)
	if err != nil {
		metrics.ObserveHeadlessPromotion(false)
		if errors.Is(ctx.Err(), context.Canceled) {
			metrics.ObserveFetch(request.URL, string(tagger.ReasonCanceled), 0)
			return tagger.FetchResult{}, &tagger.FetchError{Reason: tagger.ReasonCanceled, URL: request.URL, Err: err}
		}
		p.logger.Warn("headless render failed, using plain body",
			zap.String("url", request.URL),
			zap.Error(err),
		)
		metrics.ObserveFetch(request.URL, "", len(res.Body))
		return res, nil
	}
	metrics.ObserveHeadlessPromotion(true)
	rendered.Duration += res.Duration
	metrics.ObserveFetch(request.URL, "", len(rendered.Body))
	return rendered, nil
}
