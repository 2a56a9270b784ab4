package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRequiresPublisher(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "t", map[string]int{"rows": 1}, nil)
	require.ErrorContains(t, err, "not configured")
}

func TestAttributesAddsContentType(t *testing.T) {
	t.Parallel()

	attrs := attributes(map[string]string{"run_id": "r"})
	require.Equal(t, map[string]string{"run_id": "r", "content_type": "application/json"}, attrs)
}
