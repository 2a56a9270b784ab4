package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "topic-a", map[string]string{"k": "v"}, nil)
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)

	attrs := map[string]string{"seq": "1"}
	id2, err := pub.Publish(context.Background(), "topic-b", "payload", attrs)
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)
	attrs["seq"] = "mutated"

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "topic-a", msgs[0].Topic)
	require.Equal(t, "1", msgs[1].Attributes["seq"])

	msgs[0].Topic = "modified"
	require.Equal(t, "topic-a", pub.Messages()[0].Topic, "Messages returns a copy")
}
