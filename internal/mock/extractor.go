package mock

import "github.com/JakeFAU/page-tagger/internal/tagger"

var _ tagger.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of tagger.Extractor.
type Extractor struct {
	ExtractFn func(rawHTML []byte) (string, error)
}

func (e *Extractor) Extract(rawHTML []byte) (string, error) {
	return e.ExtractFn(rawHTML)
}

var _ tagger.LanguageDetector = (*LanguageDetector)(nil)

// LanguageDetector is a mock implementation of tagger.LanguageDetector.
type LanguageDetector struct {
	DetectFn func(text string) (string, bool)
}

func (d *LanguageDetector) Detect(text string) (string, bool) {
	return d.DetectFn(text)
}
