package gemini_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/JakeFAU/page-tagger/internal/classifier/gemini"
	"github.com/JakeFAU/page-tagger/internal/tagger"
)

func TestClassifier_RequiresClient(t *testing.T) {
	t.Parallel()

	c := gemini.New(nil, "")

	_, err := c.Classify(context.Background(), "text", []string{"спорт"})

	require.ErrorContains(t, err, "not configured")
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	labels := []string{"спорт", "еда"}
	cfg := gemini.BuildConfig(labels)

	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0, *cfg.Temperature, 0.0001)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.ResponseSchema)
	assert.Equal(t, genai.TypeObject, cfg.ResponseSchema.Type)
	assert.Equal(t, labels, cfg.ResponseSchema.Required)
	require.Len(t, cfg.ResponseSchema.Properties, 2)
	assert.Equal(t, genai.TypeNumber, cfg.ResponseSchema.Properties["еда"].Type)
	require.NotNil(t, cfg.SystemInstruction)
	assert.Contains(t, cfg.SystemInstruction.Parts[0].Text, "multi-label")
	assert.Contains(t, cfg.SystemInstruction.Parts[0].Text, "need not sum to 1")
	assert.NotContains(t, cfg.SystemInstruction.Parts[0].Text, "must not sum")
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	got := gemini.BuildPrompt("Рецепт борща", []string{"спорт", "еда"})

	assert.Equal(t, "<labels>\n<label>спорт</label>\n<label>еда</label>\n</labels>\n\n<text>Рецепт борща</text>", got)
}

func TestParseScores(t *testing.T) {
	t.Parallel()

	labels := []string{"спорт", "еда"}
	tests := []struct {
		name    string
		raw     string
		want    tagger.Scores
		wantErr bool
	}{
		{name: "plain", raw: `{"спорт":0.1,"еда":0.9}`, want: tagger.Scores{"спорт": 0.1, "еда": 0.9}},
		{name: "fenced", raw: "```json\n{\"еда\":0.7}\n```", want: tagger.Scores{"еда": 0.7}},
		{name: "unknown keys dropped", raw: `{"еда":0.5,"политика":0.9}`, want: tagger.Scores{"еда": 0.5}},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "not json", raw: "sports, probably", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := gemini.ParseScores(tt.raw, labels)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
