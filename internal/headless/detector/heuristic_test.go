package detector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/page-tagger/internal/tagger"
)

func TestHeuristic_ShouldPromote_EmptyBody(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.True(t, h.ShouldPromote(tagger.FetchResult{StatusCode: 200, Body: []byte("  \n")}))
}

func TestHeuristic_ShouldPromote_SPAMarkers(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	for _, body := range []string{`<div id="__next"></div>`, `<div id="__nuxt"></div>`, `<app-root ng-version="17.0.0"></app-root>`} {
		require.True(t, h.ShouldPromote(tagger.FetchResult{StatusCode: 200, Body: []byte(body)}), body)
	}
}

func TestHeuristic_ShouldPromote_ScriptDensity(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(1000)
	resp := tagger.FetchResult{
		StatusCode: 200,
		Body:       []byte(`<html><script>var a=1;</script><p>t</p></html>`),
	}
	require.True(t, h.ShouldPromote(resp))
}

func TestHeuristic_ShouldPromote_LargeServerRenderedPage(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	body := `<div id="root">` + strings.Repeat("<p>Статья о путешествиях.</p>", 100) + `</div>`
	require.False(t, h.ShouldPromote(tagger.FetchResult{StatusCode: 200, Body: []byte(body)}))
}

func TestHeuristic_ShouldPromote_PlainArticle(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	body := "<html><body><p>" + strings.Repeat("Спорт ", 50) + "</p></body></html>"
	require.False(t, h.ShouldPromote(tagger.FetchResult{StatusCode: 200, Body: []byte(body)}))
}

func TestHeuristic_ShouldPromote_DisabledForNon200(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.False(t, h.ShouldPromote(tagger.FetchResult{StatusCode: 404, Body: []byte("not found")}))
}

func TestHeuristic_ShouldPromote_AlreadyHeadless(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(100)
	require.False(t, h.ShouldPromote(tagger.FetchResult{StatusCode: 200, UsedHeadless: true}))
}
