// Package publisher announces flushed batches to downstream consumers.
package publisher

import (
	"context"
	"fmt"
	"strconv"

	"github.com/JakeFAU/placescraper/internal/batch"
)

// Publisher sends one JSON payload to a topic and returns the message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any, attrs map[string]string) (string, error)
}

// Notifier publishes a message per flushed batch.
type Notifier struct {
	pub   Publisher
	topic string
}

var _ batch.Notifier = (*Notifier)(nil)

// NewNotifier returns a Notifier publishing to topic.
func NewNotifier(pub Publisher, topic string) *Notifier {
	return &Notifier{pub: pub, topic: topic}
}

// Notify publishes f with its run id and sequence number as attributes.
func (n *Notifier) Notify(ctx context.Context, f batch.Flush) error {
	attrs := map[string]string{
		"run_id": f.RunID,
		"seq":    strconv.Itoa(f.Seq),
		"rows":   strconv.Itoa(f.Rows),
	}
	if _, err := n.pub.Publish(ctx, n.topic, f, attrs); err != nil {
		return fmt.Errorf("publish batch %d: %w", f.Seq, err)
	}
	return nil
}
