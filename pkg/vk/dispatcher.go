package vk

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/verbsbot/pkg/intent"
	"github.com/tinyland-inc/verbsbot/pkg/logger"
)

const (
	defaultIntentTimeout = 10 * time.Second
	defaultSendTimeout   = 10 * time.Second
)

// EventHandler consumes validated events in arrival order.
type EventHandler interface {
	Dispatch(ctx context.Context, ev Event)
}

// MessageSender delivers a reply to a VK user.
type MessageSender interface {
	SendMessage(ctx context.Context, userID int64, text string, randomID int32) error
}

// RandomIDs generates random_id values for messages.send. Values are unique
// within the process and always positive.
type RandomIDs struct {
	next atomic.Uint32
}

func NewRandomIDs() *RandomIDs {
	r := &RandomIDs{}
	seed := uuid.New()
	r.next.Store(binary.BigEndian.Uint32(seed[:4]) & 0x3fffffff)
	return r
}

func (r *RandomIDs) Next() int32 {
	for {
		id := int32(r.next.Add(1) & 0x7fffffff)
		if id != 0 {
			return id
		}
	}
}

type DispatcherOption func(*Dispatcher)

// WithAllow restricts replies to users for which allow returns true.
func WithAllow(allow func(userID int64) bool) DispatcherOption {
	return func(d *Dispatcher) { d.allow = allow }
}

func WithTimeouts(intentTimeout, sendTimeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if intentTimeout > 0 {
			d.intentTimeout = intentTimeout
		}
		if sendTimeout > 0 {
			d.sendTimeout = sendTimeout
		}
	}
}

// Dispatcher answers each event through the intent detector. Fallback results
// are never sent back to VK, and a failure on one event never affects the next.
type Dispatcher struct {
	detector      intent.Detector
	sender        MessageSender
	ids           *RandomIDs
	allow         func(int64) bool
	intentTimeout time.Duration
	sendTimeout   time.Duration
}

func NewDispatcher(detector intent.Detector, sender MessageSender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		detector:      detector,
		sender:        sender,
		ids:           NewRandomIDs(),
		intentTimeout: defaultIntentTimeout,
		sendTimeout:   defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	if d.allow != nil && !d.allow(ev.UserID) {
		logger.DebugCF(component, "Message from user outside allow list ignored", map[string]any{
			"user_id": ev.UserID,
		})
		return
	}

	result, err := d.detect(ctx, ev)
	if err != nil {
		logger.ErrorCF(component, "Intent detection failed", map[string]any{
			"user_id": ev.UserID,
			"error":   err.Error(),
		})
		return
	}
	if result.IsFallback {
		logger.DebugCF(component, "Fallback intent, reply suppressed", map[string]any{
			"user_id": ev.UserID,
		})
		return
	}

	if err := d.send(ctx, ev.UserID, result.Reply); err != nil {
		logger.ErrorCF(component, "Failed to send reply", map[string]any{
			"user_id": ev.UserID,
			"error":   err.Error(),
		})
		return
	}
	logger.DebugCF(component, "Reply sent", map[string]any{"user_id": ev.UserID})
}

func (d *Dispatcher) detect(ctx context.Context, ev Event) (intent.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, d.intentTimeout)
	defer cancel()
	return d.detector.DetectIntent(ctx, intent.SessionID("vk", ev.UserID), ev.Text)
}

func (d *Dispatcher) send(ctx context.Context, userID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return d.sender.SendMessage(ctx, userID, text, d.ids.Next())
}
