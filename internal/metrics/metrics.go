// Package metrics exposes Prometheus collectors for the tagging service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagger_fetch_total",
			Help: "Total number of page fetches, labeled by outcome reason (ok on success).",
		},
		[]string{"reason"},
	)

	fetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagger_fetch_bytes_total",
			Help: "Total number of bytes fetched, labeled by site.",
		},
		[]string{"site"},
	)

	headlessPromotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagger_headless_promotions_total",
			Help: "Total number of fetches promoted to the headless browser, labeled by result.",
		},
		[]string{"result"},
	)

	classifyDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagger_classify_duration_seconds",
			Help:    "Histogram of classifier inference latencies, labeled by backend and outcome.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"backend", "outcome"},
	)

	tagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagger_tags_total",
			Help: "Total number of tags returned in responses, labeled by tag.",
		},
		[]string{"tag"},
	)

	contentLanguageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagger_content_language_total",
			Help: "Total number of classified pages, labeled by detected language.",
		},
		[]string{"language"},
	)

	classifierInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tagger_classifier_inflight",
			Help: "Number of classifier inferences currently running.",
		},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveFetch counts a fetch outcome and the bytes it returned.
func ObserveFetch(site, reason string, bytesFetched int) {
	if reason == "" {
		reason = "ok"
	}
	fetchTotal.WithLabelValues(reason).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(SanitizeSite(site)).Add(float64(bytesFetched))
	}
}

// ObserveHeadlessPromotion counts a headless render attempt.
func ObserveHeadlessPromotion(ok bool) {
	result := "ok"
	if !ok {
		result = "fallback"
	}
	headlessPromotionsTotal.WithLabelValues(result).Inc()
}

// ObserveClassify records an inference latency.
func ObserveClassify(backend, outcome string, duration time.Duration) {
	classifyDurationSeconds.WithLabelValues(backend, outcome).Observe(duration.Seconds())
}

// ObserveTags counts every tag in a response.
func ObserveTags(tags []string) {
	for _, tag := range tags {
		tagsTotal.WithLabelValues(tag).Inc()
	}
}

// ObserveLanguage counts a detected content language; empty means unknown.
func ObserveLanguage(language string) {
	if language == "" {
		language = "unknown"
	}
	contentLanguageTotal.WithLabelValues(language).Inc()
}

// IncClassifierInflight increments the in-flight inference gauge.
func IncClassifierInflight() {
	classifierInflight.Inc()
}

// DecClassifierInflight decrements the in-flight inference gauge.
func DecClassifierInflight() {
	classifierInflight.Dec()
}
