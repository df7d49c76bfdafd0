package fetcher

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/url"
	"strings"

	"github.com/JakeFAU/page-tagger/internal/tagger"
)

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &tagger.FetchError{Reason: tagger.ReasonInvalidURL, URL: raw, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &tagger.FetchError{
			Reason: tagger.ReasonInvalidURL,
			URL:    raw,
			Err:    fmt.Errorf("unsupported scheme %q", u.Scheme),
		}
	}
	if u.Host == "" {
		return nil, &tagger.FetchError{Reason: tagger.ReasonInvalidURL, URL: raw, Err: errors.New("missing host")}
	}
	return u, nil
}

// ReasonFor classifies a transport error.
func ReasonFor(err error) tagger.Reason {
	var fe *tagger.FetchError
	switch {
	case errors.As(err, &fe):
		return fe.Reason
	case errors.Is(err, context.DeadlineExceeded):
		return tagger.ReasonTimeout
	case errors.Is(err, context.Canceled):
		return tagger.ReasonCanceled
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return tagger.ReasonTimeout
	}
	return tagger.ReasonNetwork
}

// CallerReason is ReasonFor, except that a failure after the caller canceled
// ctx is reported as canceled rather than as a network error.
func CallerReason(ctx context.Context, err error) tagger.Reason {
	if errors.Is(ctx.Err(), context.Canceled) {
		return tagger.ReasonCanceled
	}
	return ReasonFor(err)
}

// IsHTML reports whether a Content-Type header denotes an HTML document.
// A missing header counts as HTML.
func IsHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	media, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		media = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	return media == "text/html" || media == "application/xhtml+xml"
}
