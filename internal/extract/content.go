package extract

import (
	"bytes"

	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
)

// readabilityText isolates the main article with go-readability and returns
// its visible text. Pages readability cannot score yield "".
func readabilityText(rawHTML []byte) string {
	article, err := readability.FromReader(bytes.NewReader(rawHTML), nil)
	if err != nil || article.Content == "" {
		return ""
	}
	text, err := VisibleText([]byte(article.Content))
	if err != nil {
		return ""
	}
	return text
}

// trafilaturaText isolates the main content with go-trafilatura.
func trafilaturaText(rawHTML []byte) string {
	result, err := trafilatura.Extract(bytes.NewReader(rawHTML), trafilatura.Options{
		EnableFallback: true,
	})
	if err != nil || result == nil {
		return ""
	}
	return result.ContentText
}
