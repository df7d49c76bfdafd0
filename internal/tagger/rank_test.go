package tagger

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLabels = []string{"технологии", "спорт", "путешествия", "еда", "кино", "музыка"}

func TestRank_FiltersAndOrders(t *testing.T) {
	t.Parallel()

	scores := Scores{
		"путешествия": 0.92,
		"спорт":       0.05,
		"еда":         0.15,
		"технологии":  0,
		"кино":        0,
		"музыка":      0,
	}

	got := Rank(scores, testLabels, 0.1, 5)

	require.Equal(t, []TagScore{
		{Tag: "путешествия", Confidence: 0.92},
		{Tag: "еда", Confidence: 0.15},
	}, got)
}

func TestRank_StableOnTies(t *testing.T) {
	t.Parallel()

	scores := Scores{"кино": 0.5, "спорт": 0.5, "технологии": 0.5}

	got := Rank(scores, testLabels, 0.1, 5)

	require.Len(t, got, 3)
	assert.Equal(t, "технологии", got[0].Tag)
	assert.Equal(t, "спорт", got[1].Tag)
	assert.Equal(t, "кино", got[2].Tag)
}

func TestRank_TruncatesToTopK(t *testing.T) {
	t.Parallel()

	scores := Scores{}
	for i, label := range testLabels {
		scores[label] = 0.2 + float64(i)*0.1
	}

	got := Rank(scores, testLabels, 0.1, 5)

	require.Len(t, got, 5)
	assert.Equal(t, "музыка", got[0].Tag)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Confidence, got[i].Confidence)
	}
}

func TestRank_RoundsAndKeepsInvariant(t *testing.T) {
	t.Parallel()

	scores := Scores{
		"спорт":       0.12345,
		"еда":         0.1002,
		"путешествия": 0.98765,
	}

	got := Rank(scores, testLabels, 0.1, 5)

	require.Equal(t, []TagScore{
		{Tag: "путешествия", Confidence: 0.988},
		{Tag: "спорт", Confidence: 0.123},
	}, got)
	for _, ts := range got {
		assert.Greater(t, ts.Confidence, 0.1)
	}
}

func TestRank_IgnoresUnknownLabels(t *testing.T) {
	t.Parallel()

	got := Rank(Scores{"weather": 0.9, "спорт": 0.3}, testLabels, 0.1, 5)

	require.Equal(t, []TagScore{{Tag: "спорт", Confidence: 0.3}}, got)
}

func TestRank_EmptyIsNotNil(t *testing.T) {
	t.Parallel()

	got := Rank(Scores{}, testLabels, 0.1, 5)

	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "short text still gets suffix", text: "привет", want: "привет..."},
		{name: "empty", text: "", want: "..."},
		{name: "long text cut at 300 runes", text: strings.Repeat("ж", 500), want: strings.Repeat("ж", 300) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Preview(tt.text, 300)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasSuffix(got, PreviewSuffix))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), 303)
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "абв", TruncateRunes("абвгд", 3))
	assert.Equal(t, "абвгд", TruncateRunes("абвгд", 10))
	assert.Equal(t, "", TruncateRunes("абвгд", 0))
}
