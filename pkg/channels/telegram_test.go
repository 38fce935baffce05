package channels

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/verbsbot/pkg/bus"
	"github.com/tinyland-inc/verbsbot/pkg/config"
	"github.com/tinyland-inc/verbsbot/pkg/intent"
)

type fakeTelegramAPI struct {
	sent []*telego.SendMessageParams
	err  error
}

func (f *fakeTelegramAPI) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &telego.Message{}, nil
}

func TestTelegramChannel_AnswerUsesDetector(t *testing.T) {
	var gotSession string
	detector := intent.DetectorFunc(func(_ context.Context, sessionID, text string) (intent.Result, error) {
		gotSession = sessionID
		return intent.Result{Reply: "reply to " + text}, nil
	})
	api := &fakeTelegramAPI{}
	c := newTelegramChannel(config.TelegramConfig{}, detector, time.Second, api)

	require.NoError(t, c.answer(context.Background(), 500, &telego.User{ID: 42}, "hi"))

	assert.Equal(t, "tg-42", gotSession)
	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(500), api.sent[0].ChatID.ID)
	assert.Equal(t, "reply to hi", api.sent[0].Text)
}

func TestTelegramChannel_FallbackReplies(t *testing.T) {
	api := &fakeTelegramAPI{}
	c := newTelegramChannel(config.TelegramConfig{}, intent.Static{Reply: "Не понял", Fallback: true}, time.Second, api)

	require.NoError(t, c.answer(context.Background(), 1, &telego.User{ID: 1}, "???"))
	require.Len(t, api.sent, 1)
	assert.Equal(t, "Не понял", api.sent[0].Text)
}

func TestTelegramChannel_SkipFallback(t *testing.T) {
	api := &fakeTelegramAPI{}
	c := newTelegramChannel(config.TelegramConfig{SkipFallback: true}, intent.Static{Reply: "Не понял", Fallback: true}, time.Second, api)

	require.NoError(t, c.answer(context.Background(), 1, &telego.User{ID: 1}, "???"))
	assert.Empty(t, api.sent)
}

func TestTelegramChannel_AllowList(t *testing.T) {
	api := &fakeTelegramAPI{}
	c := newTelegramChannel(config.TelegramConfig{AllowFrom: []string{"@alice"}}, intent.Static{Reply: "ok"}, time.Second, api)

	require.NoError(t, c.answer(context.Background(), 1, &telego.User{ID: 1, Username: "bob"}, "hi"))
	require.NoError(t, c.answer(context.Background(), 2, &telego.User{ID: 2, Username: "alice"}, "hi"))

	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(2), api.sent[0].ChatID.ID)
}

func TestTelegramChannel_DetectorErrorSwallowed(t *testing.T) {
	api := &fakeTelegramAPI{}
	detector := intent.DetectorFunc(func(context.Context, string, string) (intent.Result, error) {
		return intent.Result{}, errors.New("deadline exceeded")
	})
	c := newTelegramChannel(config.TelegramConfig{}, detector, time.Second, api)

	assert.NoError(t, c.answer(context.Background(), 1, &telego.User{ID: 1}, "hi"))
	assert.Empty(t, api.sent)
}

func TestTelegramChannel_SendAlert(t *testing.T) {
	api := &fakeTelegramAPI{}
	c := newTelegramChannel(config.TelegramConfig{ChatID: 777}, intent.Static{}, time.Second, api)

	require.NoError(t, c.Send(context.Background(), bus.OutboundMessage{
		Channel:   "telegram",
		Content:   "<b>alert</b>",
		ParseMode: telego.ModeHTML,
	}))

	require.Len(t, api.sent, 1)
	p := api.sent[0]
	assert.Equal(t, int64(777), p.ChatID.ID)
	assert.Equal(t, telego.ModeHTML, p.ParseMode)
	require.NotNil(t, p.LinkPreviewOptions)
	assert.True(t, p.LinkPreviewOptions.IsDisabled)
}

func TestTelegramChannel_SendErrors(t *testing.T) {
	api := &fakeTelegramAPI{err: errors.New("chat not found")}
	c := newTelegramChannel(config.TelegramConfig{ChatID: 1}, intent.Static{}, time.Second, api)

	assert.ErrorContains(t, c.Send(context.Background(), bus.OutboundMessage{Content: "x"}), "chat not found")
	assert.ErrorContains(t, c.Send(context.Background(), bus.OutboundMessage{ChatID: "abc", Content: "x"}), "invalid telegram chat id")
}
