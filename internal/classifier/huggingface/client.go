// Package huggingface scores text with a zero-shot classification model
// served by the Hugging Face Inference API (or any server speaking the same
// zero-shot-classification protocol).
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JakeFAU/page-tagger/internal/tagger"
)

// Defaults for the hosted inference API. The router serves the same
// /models/{model} protocol as the retired api-inference host.
const (
	DefaultEndpoint = "https://router.huggingface.co/hf-inference"
	DefaultModel    = "joeddav/xlm-roberta-large-xnli"
)

const maxResponseBytes = 1 << 20

// Config controls the inference client.
type Config struct {
	Endpoint   string
	Model      string
	APIToken   string
	HTTPClient *http.Client
}

var _ tagger.Classifier = (*Classifier)(nil)

// Classifier implements tagger.Classifier over HTTP. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	url    string
	token  string
	client *http.Client
}

// New builds a Classifier, filling in defaults for empty fields.
func New(cfg Config) (*Classifier, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	target, err := url.JoinPath(endpoint, "models", model)
	if err != nil {
		return nil, fmt.Errorf("build inference url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Classifier{url: target, token: cfg.APIToken, client: client}, nil
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

type zeroShotOutput struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type errorBody struct {
	Error         any     `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// Classify scores every label independently (multi-label mode).
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) (tagger.Scores, error) {
	if len(labels) == 0 {
		return nil, errors.New("no candidate labels")
	}
	payload, err := json.Marshal(request{
		Inputs:     text,
		Parameters: parameters{CandidateLabels: labels, MultiLabel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully read below

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}
	return ParseScores(body)
}

// ParseScores decodes the supported response shapes: a single
// {"labels","scores"} object, a list holding such objects, or a flat list of
// {"label","score"} pairs.
func ParseScores(body []byte) (tagger.Scores, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty inference response")
	}

	if trimmed[0] == '{' {
		var out zeroShotOutput
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("decode inference response: %w", err)
		}
		return zip(out)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	scores := tagger.Scores{}
	for _, item := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			return nil, fmt.Errorf("decode inference item: %w", err)
		}
		if _, ok := fields["labels"]; ok {
			var out zeroShotOutput
			if err := json.Unmarshal(item, &out); err != nil {
				return nil, fmt.Errorf("decode inference item: %w", err)
			}
			return zip(out)
		}
		var ls labelScore
		if err := json.Unmarshal(item, &ls); err != nil {
			return nil, fmt.Errorf("decode inference item: %w", err)
		}
		scores[ls.Label] = ls.Score
	}
	return scores, nil
}

func zip(out zeroShotOutput) (tagger.Scores, error) {
	if len(out.Labels) != len(out.Scores) {
		return nil, fmt.Errorf("inference returned %d labels and %d scores", len(out.Labels), len(out.Scores))
	}
	scores := make(tagger.Scores, len(out.Labels))
	for i, label := range out.Labels {
		scores[label] = out.Scores[i]
	}
	return scores, nil
}

func apiError(status int, body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != nil {
		msg := fmt.Sprint(eb.Error)
		if list, ok := eb.Error.([]any); ok {
			parts := make([]string, 0, len(list))
			for _, p := range list {
				parts = append(parts, fmt.Sprint(p))
			}
			msg = strings.Join(parts, "; ")
		}
		if eb.EstimatedTime > 0 {
			return fmt.Errorf("%s (status %d, retry in %.0fs)", msg, status, eb.EstimatedTime)
		}
		return fmt.Errorf("%s (status %d)", msg, status)
	}
	snippet := strings.TrimSpace(string(body))
	snippet = tagger.TruncateRunes(snippet, 200)
	if snippet == "" {
		snippet = http.StatusText(status)
	}
	return fmt.Errorf("inference failed with status %d: %s", status, snippet)
}
