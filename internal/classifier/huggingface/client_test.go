package huggingface

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/page-tagger/internal/tagger"
)

func TestClassifier_SendsZeroShotRequest(t *testing.T) {
	t.Parallel()

	var (
		gotPath string
		gotAuth string
		gotBody request
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sequence":"x","labels":["еда","спорт"],"scores":[0.81,0.02]}`))
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL, APIToken: "hf_secret"})
	require.NoError(t, err)

	scores, err := c.Classify(context.Background(), "Рецепт борща", []string{"спорт", "еда"})

	require.NoError(t, err)
	assert.Equal(t, "/models/joeddav/xlm-roberta-large-xnli", gotPath)
	assert.Equal(t, "Bearer hf_secret", gotAuth)
	assert.Equal(t, "Рецепт борща", gotBody.Inputs)
	assert.Equal(t, []string{"спорт", "еда"}, gotBody.Parameters.CandidateLabels)
	assert.True(t, gotBody.Parameters.MultiLabel)
	assert.Equal(t, tagger.Scores{"еда": 0.81, "спорт": 0.02}, scores)
}

func TestClassifier_OmitsAuthWithoutToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"label":"спорт","score":0.4}]`))
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL, Model: "custom/model"})
	require.NoError(t, err)

	scores, err := c.Classify(context.Background(), "text", []string{"спорт"})

	require.NoError(t, err)
	assert.Equal(t, tagger.Scores{"спорт": 0.4}, scores)
}

func TestClassifier_SurfacesAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model joeddav/xlm-roberta-large-xnli is currently loading","estimated_time":20.0}`))
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "text", []string{"спорт"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "currently loading")
	assert.Contains(t, err.Error(), "status 503")
}

func TestClassifier_NonJSONError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "text", []string{"спорт"})

	require.ErrorContains(t, err, "status 502: Bad Gateway")
}

func TestClassifier_LongErrorBodyKeepsWholeRunes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("x" + strings.Repeat("ошибка", 100)))
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "text", []string{"спорт"})

	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()), "error must stay valid UTF-8: %q", err.Error())
	_, snippet, found := strings.Cut(err.Error(), "status 503: ")
	require.True(t, found)
	assert.Equal(t, 200, utf8.RuneCountInString(snippet))
}

func TestNewDefaultsToRouterEndpoint(t *testing.T) {
	t.Parallel()

	c, err := New(Config{})
	require.NoError(t, err)

	assert.Equal(t, "https://router.huggingface.co/hf-inference/models/joeddav/xlm-roberta-large-xnli", c.url)
}

func TestClassifier_HonorsContext(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"labels":[],"scores":[]}`))
	}))
	defer server.Close()

	c, err := New(Config{Endpoint: server.URL})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.Classify(ctx, "text", []string{"спорт"})

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClassifier_RequiresLabels(t *testing.T) {
	t.Parallel()

	c, err := New(Config{})
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), "text", nil)
	require.Error(t, err)
}

func TestParseScores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    tagger.Scores
		wantErr bool
	}{
		{name: "object", body: `{"labels":["a","b"],"scores":[0.9,0.1]}`, want: tagger.Scores{"a": 0.9, "b": 0.1}},
		{name: "wrapped object", body: `[{"sequence":"s","labels":["a"],"scores":[0.3]}]`, want: tagger.Scores{"a": 0.3}},
		{name: "pairs", body: `[{"label":"a","score":0.2},{"label":"b","score":0.7}]`, want: tagger.Scores{"a": 0.2, "b": 0.7}},
		{name: "mismatched", body: `{"labels":["a","b"],"scores":[0.9]}`, wantErr: true},
		{name: "empty", body: `  `, wantErr: true},
		{name: "garbage", body: `<html>`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseScores([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
