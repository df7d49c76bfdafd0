package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-tagger/internal/logging"
	"github.com/JakeFAU/page-tagger/internal/metrics"
	"github.com/JakeFAU/page-tagger/internal/tagger"
)

const (
	defaultRequestTimeout = 120 * time.Second
	maxRequestBytes       = 64 << 10
	msgInvalidJSON        = "invalid JSON"
	msgInternal           = "internal server error"
)

// Classifier is the pipeline the server exposes.
type Classifier interface {
	Classify(ctx context.Context, rawURL string) (tagger.Result, error)
	Labels() []string
}

// Config tunes the server middleware.
type Config struct {
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the classification pipeline.
type Server struct {
	router  chi.Router
	service Classifier
	idGen   tagger.IDGenerator
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(service Classifier, idGen tagger.IDGenerator, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	s := &Server{
		service: service,
		idGen:   idGen,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware(idGen))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/classify", s.classify)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/classify", s.classify)
		r.Get("/tags", s.tags)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "labels": len(s.service.Labels())})
}

func (s *Server) tags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"tags": s.service.Labels()})
}

type classifyRequest struct {
	URL json.RawMessage `json:"url"`
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	rawURL, err := decodeURL(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.service.Classify(r.Context(), rawURL)
	if err != nil {
		s.writeClassifyError(w, r, err)
		return
	}

	names := make([]string, 0, len(result.Tags))
	for _, t := range result.Tags {
		names = append(names, t.Tag)
	}
	metrics.ObserveTags(names)
	metrics.ObserveLanguage(result.Language)
	writeJSON(w, http.StatusOK, result)
}

// decodeURL reads {"url": "..."}. An empty body, JSON null, a missing or
// non-string url all count as a missing URL.
func decodeURL(body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxRequestBytes))
	if err != nil {
		return "", errors.New(msgInvalidJSON)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", errors.New(tagger.MsgURLRequired)
	}
	var req *classifyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return "", errors.New(tagger.MsgURLRequired)
		}
		return "", errors.New(msgInvalidJSON)
	}
	if req == nil || len(req.URL) == 0 {
		return "", errors.New(tagger.MsgURLRequired)
	}
	var rawURL string
	if err := json.Unmarshal(req.URL, &rawURL); err != nil || rawURL == "" {
		return "", errors.New(tagger.MsgURLRequired)
	}
	return rawURL, nil
}

// ErrorResponse maps a pipeline error to an HTTP status and JSON body.
// The bool is false for errors outside the pipeline's error types.
func ErrorResponse(err error) (int, map[string]string, bool) {
	var (
		validationErr *tagger.ValidationError
		extractionErr *tagger.ExtractionError
		classifyErr   *tagger.ClassificationError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, map[string]string{"error": validationErr.Msg}, true
	case errors.As(err, &extractionErr):
		return http.StatusInternalServerError, map[string]string{
			"error":  tagger.MsgExtractionFailed,
			"reason": string(extractionErr.Reason),
		}, true
	case errors.As(err, &classifyErr):
		return http.StatusInternalServerError, map[string]string{"error": classifyErr.Error()}, true
	default:
		return http.StatusInternalServerError, map[string]string{"error": msgInternal}, false
	}
}

func (s *Server) writeClassifyError(w http.ResponseWriter, r *http.Request, err error) {
	status, body, known := ErrorResponse(err)
	if !known {
		logging.FromContext(r.Context(), s.logger).Error("unexpected classify error", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
