// Package extract turns raw HTML into the bounded visible text fed to the classifier.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/page-tagger/internal/tagger"
)

// DefaultMaxChars is the character budget of extracted content.
const DefaultMaxChars = 2000

// Strategy selects how the content region of a page is found before the
// visible text is collected.
type Strategy string

// Supported strategies.
const (
	StrategyFull        Strategy = "full"
	StrategyReadability Strategy = "readability"
	StrategyTrafilatura Strategy = "trafilatura"
)

// denylist holds elements that never carry narrative content.
var denylist = []string{"script", "style", "header", "footer", "nav"}

var _ tagger.Extractor = (*Extractor)(nil)

// Extractor implements tagger.Extractor.
type Extractor struct {
	strategy Strategy
	maxChars int
}

// ParseStrategy validates a strategy name. An empty name means StrategyFull.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return StrategyFull, nil
	case StrategyFull, StrategyReadability, StrategyTrafilatura:
		return s, nil
	default:
		return "", fmt.Errorf("unknown extract strategy %q", name)
	}
}

// New builds an Extractor. A non-positive maxChars uses DefaultMaxChars.
func New(strategy Strategy, maxChars int) (*Extractor, error) {
	s, err := ParseStrategy(string(strategy))
	if err != nil {
		return nil, err
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{strategy: s, maxChars: maxChars}, nil
}

// Extract returns the page's visible text, whitespace-collapsed and cut to
// the character budget. The result may be empty.
func (e *Extractor) Extract(rawHTML []byte) (string, error) {
	switch e.strategy {
	case StrategyReadability:
		if text := readabilityText(rawHTML); text != "" {
			return Clean(text, e.maxChars), nil
		}
	case StrategyTrafilatura:
		if text := trafilaturaText(rawHTML); text != "" {
			return Clean(text, e.maxChars), nil
		}
	}

	text, err := VisibleText(rawHTML)
	if err != nil {
		return "", err
	}
	return Clean(text, e.maxChars), nil
}

// VisibleText parses rawHTML, drops denylisted elements and joins every
// remaining text node with a single space. Comments are not text.
func VisibleText(rawHTML []byte) (string, error) {
	// Scripting off so <noscript> children parse as markup, not raw text.
	root, err := html.ParseWithOptions(bytes.NewReader(rawHTML), html.ParseOptionEnableScripting(false))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	doc.Find(strings.Join(denylist, ",")).Remove()

	var parts []string
	for _, n := range doc.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " "), nil
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// Clean collapses whitespace runs to a single space and truncates to
// maxChars characters without regard for word boundaries.
func Clean(text string, maxChars int) string {
	return tagger.TruncateRunes(strings.Join(strings.Fields(text), " "), maxChars)
}
