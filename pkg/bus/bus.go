package bus

import (
	"context"
	"errors"
	"sync/atomic"
)

const DefaultCapacity = 200

var (
	// ErrBusClosed is returned when publishing to a closed MessageBus.
	ErrBusClosed = errors.New("message bus closed")
	// ErrBusFull is returned by TryPublishOutbound when the queue is at capacity.
	ErrBusFull = errors.New("message bus full")
)

type MessageBus struct {
	outbound chan OutboundMessage
	done     chan struct{}
	closed   atomic.Bool
	dropped  atomic.Uint64
}

func NewMessageBus(capacity int) *MessageBus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MessageBus{
		outbound: make(chan OutboundMessage, capacity),
		done:     make(chan struct{}),
	}
}

func (mb *MessageBus) PublishOutbound(ctx context.Context, msg OutboundMessage) error {
	if mb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case mb.outbound <- msg:
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPublishOutbound enqueues without blocking. Messages that do not fit are
// counted and dropped.
func (mb *MessageBus) TryPublishOutbound(msg OutboundMessage) error {
	if mb.closed.Load() {
		return ErrBusClosed
	}
	select {
	case mb.outbound <- msg:
		return nil
	default:
		mb.dropped.Add(1)
		return ErrBusFull
	}
}

func (mb *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg, ok := <-mb.outbound:
		return msg, ok
	case <-mb.done:
		return OutboundMessage{}, false
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

// Dropped reports how many messages TryPublishOutbound has discarded.
func (mb *MessageBus) Dropped() uint64 {
	return mb.dropped.Load()
}

func (mb *MessageBus) Close() {
	if mb.closed.CompareAndSwap(false, true) {
		close(mb.done)
	}
}
