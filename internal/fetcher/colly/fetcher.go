// Package collyfetcher implements tagger.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/page-tagger/internal/fetcher"
	"github.com/JakeFAU/page-tagger/internal/tagger"
)

// DefaultTimeout bounds a single fetch when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxBodyBytes  int
	Transport     http.RoundTripper
}

var _ tagger.Fetcher = (*Fetcher)(nil)

// Fetcher implements tagger.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Collector settings live on the base collector; the
// per-fetch clones only add callbacks.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	transport := cfg.Transport
	if transport == nil {
		transport = newHTTPTransport()
	}

	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = cfg.UserAgent
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.AllowURLRevisit = true
	c.DetectCharset = true
	c.ParseHTTPErrorResponse = true
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes
	}
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(transport)

	return &Fetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single HTTP GET using Colly. Every failure is a
// *tagger.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, request tagger.FetchRequest) (tagger.FetchResult, error) {
	if _, err := fetcher.ValidateURL(request.URL); err != nil {
		return tagger.FetchResult{}, err
	}

	var (
		result   tagger.FetchResult
		fetchErr error
	)
	start := time.Now()
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, request, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return tagger.FetchResult{}, err
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request tagger.FetchRequest,
	start time.Time,
	result *tagger.FetchResult,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		finalURL := request.URL
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL.String()
		}
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		contentType := headers.Get("Content-Type")

		// Error pages are still pages; their status travels with the body.
		if !fetcher.IsHTML(contentType) {
			*fetchErr = &tagger.FetchError{
				Reason:     tagger.ReasonNonHTML,
				URL:        request.URL,
				StatusCode: r.StatusCode,
				Err:        fmt.Errorf("content type %q is not html", contentType),
			}
			return
		}

		*result = tagger.FetchResult{
			URL:          finalURL,
			StatusCode:   r.StatusCode,
			ContentType:  contentType,
			Headers:      headers,
			Body:         append([]byte(nil), r.Body...),
			Duration:     time.Since(start),
			UsedHeadless: false,
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		*fetchErr = &tagger.FetchError{
			Reason:     fetcher.ReasonFor(err),
			URL:        request.URL,
			StatusCode: status,
			Err:        err,
		}
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return &tagger.FetchError{Reason: fetcher.CallerReason(ctx, ctx.Err()), URL: url, Err: ctx.Err()}
	case err := <-done:
		if *fetchErr != nil {
			return withCallerReason(ctx, *fetchErr)
		}
		if err != nil {
			reason := fetcher.CallerReason(ctx, err)
			if errors.Is(err, colly.ErrRobotsTxtBlocked) {
				reason = tagger.ReasonRobots
			}
			return &tagger.FetchError{Reason: reason, URL: url, Err: fmt.Errorf("colly visit failed: %w", err)}
		}
		return nil
	}
}

// withCallerReason reclassifies a transport failure caused by the caller
// canceling ctx.
func withCallerReason(ctx context.Context, err error) error {
	var fe *tagger.FetchError
	if errors.As(err, &fe) && errors.Is(ctx.Err(), context.Canceled) {
		fe.Reason = tagger.ReasonCanceled
	}
	return err
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
