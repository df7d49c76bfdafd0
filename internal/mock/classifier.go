package mock

import (
	"context"

	"github.com/JakeFAU/page-tagger/internal/tagger"
)

var _ tagger.Classifier = (*Classifier)(nil)

// Classifier is a mock implementation of tagger.Classifier.
type Classifier struct {
	ClassifyFn func(ctx context.Context, text string, labels []string) (tagger.Scores, error)
}

func (c *Classifier) Classify(ctx context.Context, text string, labels []string) (tagger.Scores, error) {
	return c.ClassifyFn(ctx, text, labels)
}

var _ tagger.Publisher = (*Publisher)(nil)

// Publisher is a mock implementation of tagger.Publisher.
type Publisher struct {
	PublishFn func(ctx context.Context, topic string, payload any) (string, error)
}

func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	return p.PublishFn(ctx, topic, payload)
}

var _ tagger.IDGenerator = (*IDGenerator)(nil)

// IDGenerator is a mock implementation of tagger.IDGenerator.
type IDGenerator struct {
	NewIDFn func() (string, error)
}

func (g *IDGenerator) NewID() (string, error) {
	return g.NewIDFn()
}
