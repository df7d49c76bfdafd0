package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-tagger/internal/config"
	"github.com/JakeFAU/page-tagger/internal/extract"
	"github.com/JakeFAU/page-tagger/internal/mock"
	"github.com/JakeFAU/page-tagger/internal/tagger"
)

type fakeApp struct {
	service *tagger.Service
	runErr  error
	ran     bool
	closed  bool
}

func (f *fakeApp) Run(context.Context) error {
	f.ran = true
	return f.runErr
}

func (f *fakeApp) Close(context.Context) error {
	f.closed = true
	return nil
}

func (f *fakeApp) Service() *tagger.Service { return f.service }

func (f *fakeApp) Logger() *zap.Logger { return zap.NewNop() }

func newFakeApp(t *testing.T, fetch func(context.Context, tagger.FetchRequest) (tagger.FetchResult, error)) *fakeApp {
	t.Helper()
	extractor, err := extract.New(extract.StrategyFull, extract.DefaultMaxChars)
	require.NoError(t, err)
	svc, err := tagger.NewService(
		&mock.Fetcher{FetchFn: fetch},
		extractor,
		&mock.Classifier{ClassifyFn: func(context.Context, string, []string) (tagger.Scores, error) {
			return tagger.Scores{"еда": 0.8766, "спорт": 0.01}, nil
		}},
		tagger.Options{Labels: []string{"спорт", "еда"}},
		zap.NewNop(),
	)
	require.NoError(t, err)
	return &fakeApp{service: svc}
}

// useApp swaps the application factory for the duration of the test.
func useApp(t *testing.T, app App, err error) {
	t.Helper()
	prev := newApp
	newApp = func(context.Context, *config.Config) (App, error) { return app, err }
	t.Cleanup(func() { newApp = prev })
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClassifyCommandPrintsResult(t *testing.T) {
	app := newFakeApp(t, func(context.Context, tagger.FetchRequest) (tagger.FetchResult, error) {
		return tagger.FetchResult{StatusCode: 200, Body: []byte("<p>Борщ и пельмени</p>")}, nil
	})
	useApp(t, app, nil)

	out, err := execute("classify", "https://example.com/food")

	require.NoError(t, err)
	assert.JSONEq(t, `{
		"url": "https://example.com/food",
		"content_sample": "Борщ и пельмени...",
		"tags": [{"tag": "еда", "confidence": 0.877}]
	}`, out)
	assert.True(t, app.closed)
}

func TestClassifyCommandPrintsErrorBody(t *testing.T) {
	app := newFakeApp(t, func(context.Context, tagger.FetchRequest) (tagger.FetchResult, error) {
		return tagger.FetchResult{}, &tagger.FetchError{Reason: tagger.ReasonNonHTML, StatusCode: 200, Err: errors.New("content type \"application/pdf\" is not html")}
	})
	useApp(t, app, nil)

	out, err := execute("classify", "https://example.com/report.pdf")

	require.Error(t, err)
	assert.JSONEq(t, `{"error":"Failed to extract content","reason":"non_html"}`, out)
	assert.True(t, app.closed)
}

func TestClassifyCommandRequiresURL(t *testing.T) {
	useApp(t, &fakeApp{}, nil)

	_, err := execute("classify")

	require.Error(t, err)
}

func TestServeCommandRunsApp(t *testing.T) {
	app := &fakeApp{}
	useApp(t, app, nil)

	_, err := execute("serve")

	require.NoError(t, err)
	assert.True(t, app.ran)
}

func TestServeCommandPropagatesRunError(t *testing.T) {
	useApp(t, &fakeApp{runErr: errors.New("address in use")}, nil)

	_, err := execute("serve")

	require.ErrorContains(t, err, "address in use")
}

func TestAppFactoryError(t *testing.T) {
	useApp(t, nil, errors.New("taxonomy load failed"))

	_, err := execute("serve")

	require.ErrorContains(t, err, "failed to initialize application services")
}

func TestMissingConfigFile(t *testing.T) {
	useApp(t, &fakeApp{}, nil)

	_, err := execute("serve", "--config", "/nonexistent/tagger.yaml")

	require.ErrorContains(t, err, "read config")
}
