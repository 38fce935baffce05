package vk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/verbsbot/pkg/intent"
)

type sentMessage struct {
	UserID   int64
	Text     string
	RandomID int32
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, userID int64, text string, randomID int32) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{UserID: userID, Text: text, RandomID: randomID})
	return nil
}

func TestDispatcher_SendsReply(t *testing.T) {
	var gotSession, gotText string
	detector := intent.DetectorFunc(func(_ context.Context, sessionID, text string) (intent.Result, error) {
		gotSession, gotText = sessionID, text
		return intent.Result{Reply: "hello"}, nil
	})
	sender := &fakeSender{}

	NewDispatcher(detector, sender).Dispatch(context.Background(), Event{UserID: 42, Text: "hi"})

	assert.Equal(t, "vk-42", gotSession)
	assert.Equal(t, "hi", gotText)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].UserID)
	assert.Equal(t, "hello", sender.sent[0].Text)
	assert.Positive(t, sender.sent[0].RandomID)
}

func TestDispatcher_FallbackSuppressed(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(intent.Static{Reply: "I did not get that", Fallback: true}, sender)

	d.Dispatch(context.Background(), Event{UserID: 42, Text: "asdf"})

	assert.Empty(t, sender.sent)
}

func TestDispatcher_DetectorErrorDoesNotStopNextEvent(t *testing.T) {
	calls := 0
	detector := intent.DetectorFunc(func(_ context.Context, _, text string) (intent.Result, error) {
		calls++
		if text == "boom" {
			return intent.Result{}, errors.New("backend unavailable")
		}
		return intent.Result{Reply: "ok"}, nil
	})
	sender := &fakeSender{}
	d := NewDispatcher(detector, sender)

	d.Dispatch(context.Background(), Event{UserID: 1, Text: "boom"})
	d.Dispatch(context.Background(), Event{UserID: 2, Text: "fine"})

	assert.Equal(t, 2, calls)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(2), sender.sent[0].UserID)
}

func TestDispatcher_SendErrorIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: &APIError{Method: methodSendMessage, Code: 901, Message: "Can't send messages"}}
	d := NewDispatcher(intent.Static{Reply: "ok"}, sender)

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), Event{UserID: 1, Text: "hi"})
	})
}

func TestDispatcher_AllowList(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(intent.Static{Reply: "ok"}, sender, WithAllow(func(id int64) bool { return id == 7 }))

	d.Dispatch(context.Background(), Event{UserID: 1, Text: "hi"})
	d.Dispatch(context.Background(), Event{UserID: 7, Text: "hi"})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(7), sender.sent[0].UserID)
}

func TestRandomIDs_UniqueAndPositive(t *testing.T) {
	ids := NewRandomIDs()
	seen := make(map[int32]struct{})
	for range 1000 {
		id := ids.Next()
		require.Positive(t, id)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestRandomIDs_SkipsZeroOnWrap(t *testing.T) {
	ids := &RandomIDs{}
	ids.next.Store(0x7fffffff)
	assert.Equal(t, int32(1), ids.Next())
}
