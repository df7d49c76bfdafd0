// Package gemini scores candidate labels with a Gemini model constrained to
// a JSON response schema.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/JakeFAU/page-tagger/internal/tagger"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const systemInstruction = "You are a multi-label topic classifier for web pages. " +
	"For each candidate label, independently estimate the probability between 0 and 1 that the text is about that topic. " +
	"Scores need not sum to 1. Answer with JSON only, using the candidate labels verbatim as keys."

var _ tagger.Classifier = (*Classifier)(nil)

// Classifier implements tagger.Classifier using Google Gemini.
type Classifier struct {
	client *genai.Client
	model  string
}

// New creates a Classifier. An empty model selects DefaultModel.
func New(client *genai.Client, model string) *Classifier {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Classifier{client: client, model: model}
}

// Classify asks the model for an independent score per label.
func (c *Classifier) Classify(ctx context.Context, text string, labels []string) (tagger.Scores, error) {
	if c.client == nil {
		return nil, errors.New("gemini client not configured")
	}
	if len(labels) == 0 {
		return nil, errors.New("no candidate labels")
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: BuildPrompt(text, labels)}},
		}},
		BuildConfig(labels),
	)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, errors.New("gemini returned nil result")
	}
	return ParseScores(result.Text(), labels)
}

// BuildConfig returns a deterministic config whose response schema has one
// required number property per label.
func BuildConfig(labels []string) *genai.GenerateContentConfig {
	temp := float32(0)
	minScore, maxScore := 0.0, 1.0
	props := make(map[string]*genai.Schema, len(labels))
	for _, label := range labels {
		props[label] = &genai.Schema{Type: genai.TypeNumber, Minimum: &minScore, Maximum: &maxScore}
	}
	ordering := append([]string(nil), labels...)
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		Temperature:      &temp,
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type:             genai.TypeObject,
			Properties:       props,
			Required:         ordering,
			PropertyOrdering: ordering,
		},
	}
}

// BuildPrompt lists the candidate labels followed by the page text.
func BuildPrompt(text string, labels []string) string {
	var sb strings.Builder
	sb.WriteString("<labels>\n")
	for _, label := range labels {
		fmt.Fprintf(&sb, "<label>%s</label>\n", label)
	}
	sb.WriteString("</labels>\n\n")
	fmt.Fprintf(&sb, "<text>%s</text>", text)
	return sb.String()
}

// ParseScores decodes the model's JSON object. Keys outside labels are
// dropped; labels the model skipped are left for the guard to zero-fill.
func ParseScores(raw string, labels []string) (tagger.Scores, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("gemini returned empty response")
	}

	var decoded map[string]float64
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("decode gemini scores: %w", err)
	}
	scores := make(tagger.Scores, len(labels))
	for _, label := range labels {
		if v, ok := decoded[label]; ok {
			scores[label] = v
		}
	}
	return scores, nil
}
