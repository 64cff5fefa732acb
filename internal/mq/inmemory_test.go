package mq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMQPublishReceive(t *testing.T) {
	queue, err := NewInMemoryMQ(10)
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, "jobs", []byte("one")))
	require.NoError(t, queue.Publish(ctx, "jobs", []byte("two")))

	msg, err := queue.Receive(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), msg)

	msg, err = queue.Receive(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), msg)
}

func TestInMemoryMQTopicsIsolated(t *testing.T) {
	queue, err := NewInMemoryMQ(10)
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, "a", []byte("for-a")))
	require.NoError(t, queue.Publish(ctx, "b", []byte("for-b")))

	msg, err := queue.Receive(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("for-b"), msg)
}

func TestInMemoryMQFull(t *testing.T) {
	queue, err := NewInMemoryMQ(1)
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, "jobs", []byte("fits")))
	assert.ErrorIs(t, queue.Publish(ctx, "jobs", []byte("overflow")), ErrQueueFull)
}

func TestInMemoryMQReceiveCancelled(t *testing.T) {
	queue, err := NewInMemoryMQ(1)
	require.NoError(t, err)
	defer queue.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = queue.Receive(ctx, "empty")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryMQCloseTopic(t *testing.T) {
	queue, err := NewInMemoryMQ(1)
	require.NoError(t, err)
	defer queue.Close()

	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, "jobs", []byte("last")))
	require.NoError(t, queue.CloseTopic("jobs"))

	msg, err := queue.Receive(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, []byte("last"), msg)

	_, err = queue.Receive(ctx, "jobs")
	assert.ErrorIs(t, err, ErrTopicClosed)

	assert.ErrorIs(t, queue.CloseTopic("missing"), ErrTopicNotExists)
}

func TestInMemoryMQClose(t *testing.T) {
	queue, err := NewInMemoryMQ(1)
	require.NoError(t, err)
	require.NoError(t, queue.Close())

	_, err = queue.Receive(context.Background(), "jobs")
	assert.ErrorIs(t, err, ErrQueueClosed)
}
