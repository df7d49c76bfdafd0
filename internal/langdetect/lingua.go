// Package langdetect reports the language of extracted page text using lingua-go.
package langdetect

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/JakeFAU/page-tagger/internal/tagger"
)

var _ tagger.LanguageDetector = (*Detector)(nil)

// Detector implements tagger.LanguageDetector over a fixed language set.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector restricted to the given ISO 639-1 codes
// (case-insensitive). lingua needs at least two candidate languages.
func New(codes []string) (*Detector, error) {
	languages, err := resolve(codes)
	if err != nil {
		return nil, err
	}
	if len(languages) < 2 {
		return nil, fmt.Errorf("language detection needs at least 2 languages, got %d", len(languages))
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()
	return &Detector{detector: detector}, nil
}

// Detect returns the lower-case ISO 639-1 code of text's language.
func (d *Detector) Detect(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(language.IsoCode639_1().String()), true
}

func resolve(codes []string) ([]lingua.Language, error) {
	byCode := make(map[string]lingua.Language)
	for _, language := range lingua.AllLanguages() {
		byCode[strings.ToLower(language.IsoCode639_1().String())] = language
	}

	seen := make(map[lingua.Language]bool, len(codes))
	languages := make([]lingua.Language, 0, len(codes))
	for _, code := range codes {
		language, ok := byCode[strings.ToLower(strings.TrimSpace(code))]
		if !ok {
			return nil, fmt.Errorf("unsupported language code %q", code)
		}
		if seen[language] {
			continue
		}
		seen[language] = true
		languages = append(languages, language)
	}
	return languages, nil
}
