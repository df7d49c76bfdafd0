package tagger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/page-tagger/internal/clock/system"
	"github.com/JakeFAU/page-tagger/internal/hash/sha256"
	"github.com/JakeFAU/page-tagger/internal/logging"
)

// Defaults applied when Options leave a field zero.
const (
	DefaultThreshold    = 0.1
	DefaultTopK         = 5
	DefaultPreviewChars = 300
	defaultPublishWait  = 5 * time.Second
)

// Options tunes the classification pipeline.
type Options struct {
	Labels       []string
	Threshold    float64
	TopK         int
	PreviewChars int
	Topic        string
	PublishWait  time.Duration
}

// Service runs Fetcher → Extractor → Classifier for a single URL.
type Service struct {
	fetcher    Fetcher
	extractor  Extractor
	classifier Classifier
	language   LanguageDetector
	publisher  Publisher
	idGen      IDGenerator
	opts       Options
	hasher     Hasher
	clock      Clock
	logger     *zap.Logger

	publishing sync.WaitGroup
}

// Option customizes optional Service collaborators.
type Option func(*Service)

// WithLanguageDetector attaches a language detector to the pipeline.
func WithLanguageDetector(d LanguageDetector) Option {
	return func(s *Service) {
		s.language = d
	}
}

// WithPublisher publishes a ClassificationEvent after every success.
func WithPublisher(p Publisher, idGen IDGenerator) Option {
	return func(s *Service) {
		s.publisher = p
		s.idGen = idGen
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(c Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithHasher overrides the content fingerprint function.
func WithHasher(h Hasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

// NewService wires the pipeline. Labels must be non-empty.
func NewService(
	fetcher Fetcher,
	extractor Extractor,
	classifier Classifier,
	opts Options,
	logger *zap.Logger,
	options ...Option,
) (*Service, error) {
	if fetcher == nil || extractor == nil || classifier == nil {
		return nil, errors.New("fetcher, extractor and classifier are required")
	}
	if len(opts.Labels) == 0 {
		return nil, errors.New("at least one label is required")
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.TopK == 0 {
		opts.TopK = DefaultTopK
	}
	if opts.PreviewChars == 0 {
		opts.PreviewChars = DefaultPreviewChars
	}
	if opts.PublishWait == 0 {
		opts.PublishWait = defaultPublishWait
	}
	opts.Labels = append([]string(nil), opts.Labels...)
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		fetcher:    fetcher,
		extractor:  extractor,
		classifier: classifier,
		opts:       opts,
		hasher:     sha256.New(),
		clock:      system.New(),
		logger:     logger,
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Labels returns a copy of the candidate labels.
func (s *Service) Labels() []string {
	return append([]string(nil), s.opts.Labels...)
}

// Classify fetches rawURL, extracts its text and returns the ranked tags.
func (s *Service) Classify(ctx context.Context, rawURL string) (Result, error) {
	if rawURL == "" {
		return Result{}, &ValidationError{Msg: MsgURLRequired}
	}
	logger := logging.FromContext(ctx, s.logger).With(zap.String("url", rawURL))

	page, err := s.fetcher.Fetch(ctx, FetchRequest{URL: rawURL})
	if err != nil {
		reason := ReasonNetwork
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			reason = fetchErr.Reason
		}
		logger.Warn("fetch failed", zap.String("reason", string(reason)), zap.Error(err))
		return Result{}, &ExtractionError{Reason: reason, Err: err}
	}

	text, err := s.extractor.Extract(page.Body)
	if err != nil {
		logger.Warn("extract failed", zap.Error(err))
		return Result{}, &ExtractionError{Reason: ReasonParse, Err: err}
	}
	if text == "" {
		logger.Info("page has no extractable text", zap.Int("body_bytes", len(page.Body)))
		return Result{}, &ExtractionError{Reason: ReasonEmptyContent}
	}

	var language string
	if s.language != nil {
		language, _ = s.language.Detect(text)
	}

	scores, err := s.classifier.Classify(ctx, text, s.opts.Labels)
	if err != nil {
		logger.Error("classification failed", zap.Error(err))
		return Result{}, &ClassificationError{Err: err}
	}

	tags := Rank(scores, s.opts.Labels, s.opts.Threshold, s.opts.TopK)
	result := Result{
		URL:           rawURL,
		ContentSample: Preview(text, s.opts.PreviewChars),
		Tags:          tags,
		Language:      language,
		ContentLength: len([]rune(text)),
		FetchDuration: page.Duration,
		UsedHeadless:  page.UsedHeadless,
	}
	if page.StatusCode >= 400 {
		logger.Info("classified an error page", zap.Int("status", page.StatusCode))
	}
	logger.Info("page classified",
		zap.Int("tags", len(tags)),
		zap.String("language", language),
		zap.Bool("headless", page.UsedHeadless),
		zap.Duration("fetch_duration", page.Duration),
	)

	s.publishAfterResponse(ctx, logger, page, text, result)
	return result, nil
}

// publishAfterResponse builds the event and hands it to a goroutine so the
// caller gets its result without waiting on the broker. Publishing is
// best-effort: a failure is logged and never fails the request.
func (s *Service) publishAfterResponse(ctx context.Context, logger *zap.Logger, page FetchResult, text string, result Result) {
	if s.publisher == nil || s.opts.Topic == "" {
		return
	}
	event, err := s.buildEvent(page, text, result)
	if err != nil {
		logger.Warn("build classification event failed", zap.Error(err))
		return
	}
	detached := context.WithoutCancel(ctx)
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		s.publish(detached, logger, event)
	}()
}

func (s *Service) publish(ctx context.Context, logger *zap.Logger, event ClassificationEvent) {
	pubCtx, cancel := context.WithTimeout(ctx, s.opts.PublishWait)
	defer cancel()
	id, err := s.publisher.Publish(pubCtx, s.opts.Topic, event)
	if err != nil {
		logger.Warn("publish classification event failed", zap.String("topic", s.opts.Topic), zap.Error(err))
		return
	}
	logger.Debug("classification event published", zap.String("message_id", id), zap.String("event_id", event.ID))
}

// Drain waits for in-flight publishes to finish. Each is bounded by
// Options.PublishWait; ctx bounds the wait as a whole.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.publishing.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain publishes: %w", ctx.Err())
	}
}

func (s *Service) buildEvent(page FetchResult, text string, result Result) (ClassificationEvent, error) {
	var id string
	if s.idGen != nil {
		var err error
		if id, err = s.idGen.NewID(); err != nil {
			return ClassificationEvent{}, fmt.Errorf("generate event id: %w", err)
		}
	}
	digest, err := s.hasher.Hash([]byte(text))
	if err != nil {
		return ClassificationEvent{}, fmt.Errorf("hash content: %w", err)
	}
	finalURL := page.URL
	if finalURL == "" {
		finalURL = result.URL
	}
	return ClassificationEvent{
		ID:              id,
		URL:             result.URL,
		FinalURL:        finalURL,
		Tags:            result.Tags,
		Language:        result.Language,
		ContentSHA256:   digest,
		ContentLength:   result.ContentLength,
		StatusCode:      page.StatusCode,
		UsedHeadless:    result.UsedHeadless,
		FetchDurationMs: result.FetchDuration.Milliseconds(),
		ClassifiedAt:    s.clock.Now(),
	}, nil
}
