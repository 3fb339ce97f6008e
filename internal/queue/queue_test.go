package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samithreddychinni/anokha-2025-attendex/internal/queue"
)

func TestInMemoryRoundTrip(t *testing.T) {
	q := queue.NewInMemory(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Publish(ctx, queue.Message{Type: "transition", Body: []byte(`{"id":"1"}`)}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "transition", Body: []byte(`{"id":"2"}`)}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	first := <-msgs
	require.Equal(t, "transition", first.Type)
	require.JSONEq(t, `{"id":"1"}`, string(first.Body))

	second := <-msgs
	require.JSONEq(t, `{"id":"2"}`, string(second.Body))
}

func TestInMemoryPublishHonorsContext(t *testing.T) {
	q := queue.NewInMemory(1)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, queue.Message{Type: "transition"}))

	// Queue is full; a cancelled context must unblock the publisher.
	cancelled, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err := q.Publish(cancelled, queue.Message{Type: "transition"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryConsumeStopsOnCancel(t *testing.T) {
	q := queue.NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-msgs:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("consume channel did not close after cancel")
	}
}
