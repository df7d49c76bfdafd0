// Package headless renders script-built pages in headless Chrome so their
// visible text can be extracted.
package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/page-tagger/internal/fetcher"
	"github.com/JakeFAU/page-tagger/internal/tagger"
)

const (
	defaultTimeout = 10 * time.Second
	defaultSettle  = 500 * time.Millisecond

	// renderedContentType describes the serialized DOM, which chromedp hands
	// back as a UTF-8 string whatever charset the server declared.
	renderedContentType = "text/html; charset=utf-8"
)

// Config controls the renderer.
type Config struct {
	// MaxParallel caps concurrent tabs. Zero means unlimited.
	MaxParallel int
	UserAgent   string
	// Timeout bounds one render from tab creation to DOM capture.
	Timeout time.Duration
	// SettleDelay is the pause after <body> is ready so scripts can fill it.
	SettleDelay time.Duration
	// MaxBodyBytes truncates the rendered document. Zero means no cap.
	MaxBodyBytes int
}

var _ tagger.Fetcher = (*Fetcher)(nil)

// Fetcher renders pages with chromedp. All tabs share one browser process.
type Fetcher struct {
	cfg      Config
	slots    *semaphore.Weighted
	browser  context.Context
	shutdown context.CancelFunc
}

// NewChromedp starts a browser allocator. Chrome itself is launched lazily
// by the first render.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, errors.New("max parallel must be >= 0")
	}
	if cfg.MaxBodyBytes < 0 {
		return nil, errors.New("max body bytes must be >= 0")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettle
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	browser, shutdown := chromedp.NewExecAllocator(context.Background(), opts...)

	f := &Fetcher{cfg: cfg, browser: browser, shutdown: shutdown}
	if cfg.MaxParallel > 0 {
		f.slots = semaphore.NewWeighted(int64(cfg.MaxParallel))
	}
	return f, nil
}

// Close terminates the browser.
func (f *Fetcher) Close() error {
	if f.shutdown != nil {
		f.shutdown()
	}
	return nil
}

// Fetch renders request.URL and returns the serialized DOM. The document's
// HTTP status is reported but not judged; error pages are rendered too.
func (f *Fetcher) Fetch(ctx context.Context, request tagger.FetchRequest) (tagger.FetchResult, error) {
	if _, err := fetcher.ValidateURL(request.URL); err != nil {
		return tagger.FetchResult{}, err
	}
	if f.slots != nil {
		if err := f.slots.Acquire(ctx, 1); err != nil {
			return tagger.FetchResult{}, failure(ctx, request.URL, fmt.Errorf("waiting for render slot: %w", err))
		}
		defer f.slots.Release(1)
	}

	tab, closeTab := chromedp.NewContext(f.browser)
	defer closeTab()
	tab, cancel := context.WithTimeout(tab, f.timeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	doc := &mainDocument{}
	chromedp.ListenTarget(tab, doc.observe)

	start := time.Now()
	page, err := f.render(tab, request.URL)
	if err != nil {
		return tagger.FetchResult{}, failure(ctx, request.URL, err)
	}

	status, headers, finalURL := doc.describe(request.URL, page.location)
	body := []byte(page.html)
	if f.cfg.MaxBodyBytes > 0 && len(body) > f.cfg.MaxBodyBytes {
		body = body[:f.cfg.MaxBodyBytes]
	}
	return tagger.FetchResult{
		URL:          finalURL,
		StatusCode:   status,
		ContentType:  renderedContentType,
		Headers:      headers,
		Body:         body,
		Duration:     time.Since(start),
		UsedHeadless: true,
	}, nil
}

type renderedPage struct {
	html     string
	location string
}

func (f *Fetcher) render(ctx context.Context, url string) (renderedPage, error) {
	var page renderedPage
	err := chromedp.Run(ctx,
		f.prepareTab(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleDelay),
		chromedp.Location(&page.location),
		chromedp.OuterHTML("html", &page.html, chromedp.ByQuery),
	)
	if err != nil {
		return renderedPage{}, fmt.Errorf("render %s: %w", url, err)
	}
	return page, nil
}

// prepareTab enables network events so the main document response can be
// observed, and applies the configured User-Agent.
func (f *Fetcher) prepareTab() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network events: %w", err)
		}
		if f.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("override user agent: %w", err)
		}
		return nil
	})
}

func (f *Fetcher) timeout() time.Duration {
	if f.cfg.Timeout > 0 {
		return f.cfg.Timeout
	}
	return defaultTimeout
}

func failure(ctx context.Context, url string, err error) *tagger.FetchError {
	return &tagger.FetchError{Reason: fetcher.CallerReason(ctx, err), URL: url, Err: err}
}

// mainDocument records the last top-level document response seen in a tab.
// Redirect hops each emit one, so the last is the page that rendered.
type mainDocument struct {
	mu      sync.Mutex
	status  int
	headers http.Header
	url     string
}

func (d *mainDocument) observe(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	headers := make(http.Header, len(resp.Response.Headers))
	for key, value := range resp.Response.Headers {
		switch v := value.(type) {
		case string:
			headers.Add(key, v)
		case []any:
			for _, entry := range v {
				headers.Add(key, fmt.Sprint(entry))
			}
		default:
			headers.Add(key, fmt.Sprint(v))
		}
	}
	d.mu.Lock()
	d.status = int(resp.Response.Status)
	d.headers = headers
	d.url = resp.Response.URL
	d.mu.Unlock()
}

// describe returns the observed status, headers and URL. Pages served from
// cache or about: schemes emit no response event; they are reported as 200
// at the browser's final location.
func (d *mainDocument) describe(requested, location string) (int, http.Header, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	headers := d.headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	url := d.url
	if url == "" {
		url = location
	}
	if url == "" {
		url = requested
	}
	return status, headers, url
}
