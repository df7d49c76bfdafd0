// Package taxonomy holds the closed vocabulary of topic tags.
//
// A Taxonomy is loaded once at startup (built-in default, local YAML file, or
// a gs:// object), validated, and never mutated afterwards.
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var defaultLabels = []string{
	"технологии", "авто", "спорт", "мода", "красота",
	"путешествия", "еда", "финансы", "образование", "игры",
	"кино", "музыка", "здоровье", "политика", "бизнес",
	"дети", "домашний_очаг", "наука", "хобби", "животные",
	"электроника", "книги", "юмор", "религия", "экология", "государство",
}

// Taxonomy is an ordered, duplicate-free set of labels.
type Taxonomy struct {
	labels []string
}

// ObjectReader reads objects from blob storage.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// New validates labels and builds a Taxonomy. Labels are trimmed; empty
// labels and duplicates are rejected.
func New(labels []string) (*Taxonomy, error) {
	if len(labels) == 0 {
		return nil, errors.New("taxonomy must contain at least one label")
	}
	t := &Taxonomy{labels: make([]string, 0, len(labels))}
	seen := make(map[string]struct{}, len(labels))
	for i, raw := range labels {
		label := strings.TrimSpace(raw)
		if label == "" {
			return nil, fmt.Errorf("label %d is empty", i)
		}
		if _, dup := seen[label]; dup {
			return nil, fmt.Errorf("duplicate label %q", label)
		}
		seen[label] = struct{}{}
		t.labels = append(t.labels, label)
	}
	return t, nil
}

// Default returns the built-in 26-label taxonomy.
func Default() *Taxonomy {
	t, err := New(defaultLabels)
	if err != nil {
		panic(err)
	}
	return t
}

// Labels returns a copy of the labels in taxonomy order.
func (t *Taxonomy) Labels() []string {
	return append([]string(nil), t.labels...)
}

// Len reports the number of labels.
func (t *Taxonomy) Len() int {
	return len(t.labels)
}

type document struct {
	Labels []string `yaml:"labels"`
}

// Parse decodes a YAML taxonomy. Both a top-level list and a mapping with a
// "labels" list are accepted.
func Parse(data []byte) (*Taxonomy, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Labels) > 0 {
		return New(doc.Labels)
	}
	var list []string
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	return New(list)
}

// Load resolves source into a Taxonomy. An empty source yields Default,
// a gs://bucket/object source is read through objects, anything else is a
// local file path.
func Load(ctx context.Context, source string, objects ObjectReader) (*Taxonomy, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return Default(), nil
	}

	var (
		data []byte
		err  error
	)
	if bucket, object, ok := splitGCSURI(source); ok {
		if objects == nil {
			return nil, fmt.Errorf("taxonomy source %q needs a storage client", source)
		}
		data, err = objects.ReadObject(ctx, bucket, object)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %q: %w", source, err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("taxonomy %q: %w", source, err)
	}
	return t, nil
}

// IsGCS reports whether source points at a Cloud Storage object.
func IsGCS(source string) bool {
	_, _, ok := splitGCSURI(strings.TrimSpace(source))
	return ok
}

func splitGCSURI(uri string) (string, string, bool) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", false
	}
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}
