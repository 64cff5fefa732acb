package mq

import (
	"context"
	"errors"
)

var (
	ErrTopicNotExists = errors.New("topic does not exist")
	ErrQueueFull      = errors.New("queue is full")
	ErrQueueClosed    = errors.New("queue closed")
	ErrTopicClosed    = errors.New("topic closed")
)

type MQ interface {
	Publish(ctx context.Context, topic string, message []byte) error
	Receive(ctx context.Context, topic string) ([]byte, error)
	CloseTopic(topic string) error
	Close() error
}

// NewMQ returns the in-memory queue. Generation requests never leave the
// process, so no external broker is involved.
func NewMQ(maxSize int) (MQ, error) {
	return NewInMemoryMQ(maxSize)
}
