package tagger

import (
	"cmp"
	"math"
	"slices"
	"unicode/utf8"
)

// PreviewSuffix is appended to every content sample.
const PreviewSuffix = "..."

// Rank keeps labels scoring strictly above threshold, orders them by
// descending score and cuts the list to topK entries. Ties keep the order of
// labels. Labels outside the provided set are ignored. Confidences are
// rounded to three decimals, and an entry whose rounded confidence no longer
// clears the threshold is dropped.
func Rank(scores Scores, labels []string, threshold float64, topK int) []TagScore {
	ranked := make([]TagScore, 0, len(labels))
	for _, label := range labels {
		score, ok := scores[label]
		if !ok || !(score > threshold) {
			continue
		}
		ranked = append(ranked, TagScore{Tag: label, Confidence: score})
	}

	slices.SortStableFunc(ranked, func(a, b TagScore) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	out := ranked[:0]
	for _, ts := range ranked {
		ts.Confidence = Round(ts.Confidence, 3)
		if !(ts.Confidence > threshold) {
			continue
		}
		out = append(out, ts)
		if topK > 0 && len(out) == topK {
			break
		}
	}
	return out
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Preview returns the first n characters of text followed by PreviewSuffix.
// The suffix is appended even when text is shorter than n.
func Preview(text string, n int) string {
	return TruncateRunes(text, n) + PreviewSuffix
}

// TruncateRunes cuts s to at most n Unicode code points.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
