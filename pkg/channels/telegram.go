package channels

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/tinyland-inc/verbsbot/pkg/bus"
	"github.com/tinyland-inc/verbsbot/pkg/config"
	"github.com/tinyland-inc/verbsbot/pkg/intent"
	"github.com/tinyland-inc/verbsbot/pkg/logger"
)

const greeting = "Здравствуйте!"

type messageSender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramChannel answers Telegram users through the intent detector and
// delivers outbound alerts to the admin chat.
type TelegramChannel struct {
	*BaseChannel
	cfg           config.TelegramConfig
	detector      intent.Detector
	intentTimeout time.Duration
	bot           *telego.Bot
	api           messageSender

	mu      sync.Mutex
	handler *th.BotHandler
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewTelegramChannel(cfg config.TelegramConfig, detector intent.Detector, intentTimeout time.Duration) (*TelegramChannel, error) {
	bot, err := telego.NewBot(cfg.Token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	c := newTelegramChannel(cfg, detector, intentTimeout, bot)
	c.bot = bot
	return c, nil
}

func newTelegramChannel(cfg config.TelegramConfig, detector intent.Detector, intentTimeout time.Duration, api messageSender) *TelegramChannel {
	if intentTimeout <= 0 {
		intentTimeout = 10 * time.Second
	}
	return &TelegramChannel{
		BaseChannel:   NewBaseChannel("telegram", cfg.AllowFrom),
		cfg:           cfg,
		detector:      detector,
		intentTimeout: intentTimeout,
		api:           api,
	}
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return errors.New("telegram channel already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	updates, err := c.bot.UpdatesViaLongPolling(runCtx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	bh, err := th.NewBotHandler(c.bot, updates)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create bot handler: %w", err)
	}
	bh.HandleMessage(c.handleStart, th.CommandEqual("start"))
	bh.HandleMessage(c.handleText, th.AnyMessageWithText(), th.Not(th.AnyCommand()))

	done := make(chan struct{})
	c.handler, c.cancel, c.done = bh, cancel, done
	c.SetRunning(true)

	go func() {
		defer close(done)
		defer c.SetRunning(false)

		logger.InfoC("telegram", "Telegram bot started")
		if err := bh.Start(); err != nil {
			logger.ErrorCF("telegram", "Telegram bot stopped", map[string]any{"error": err.Error()})
			c.ReportFailure(err)
			return
		}
		logger.InfoC("telegram", "Telegram bot stopped")
	}()

	return nil
}

func (c *TelegramChannel) Stop(ctx context.Context) error {
	c.mu.Lock()
	bh, cancel, done := c.handler, c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	if err := bh.StopWithContext(ctx); err != nil {
		return fmt.Errorf("failed to stop bot handler: %w", err)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send posts an HTML message to msg.ChatID, or to the configured admin chat
// when ChatID is empty.
func (c *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	chatID := c.cfg.ChatID
	if msg.ChatID != "" {
		id, err := strconv.ParseInt(msg.ChatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid telegram chat id %q: %w", msg.ChatID, err)
		}
		chatID = id
	}

	params := tu.Message(tu.ID(chatID), msg.Content).
		WithLinkPreviewOptions(&telego.LinkPreviewOptions{IsDisabled: true})
	if msg.ParseMode != "" {
		params = params.WithParseMode(msg.ParseMode)
	}
	if _, err := c.api.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (c *TelegramChannel) handleStart(ctx *th.Context, msg telego.Message) error {
	return c.reply(ctx, msg.Chat.ID, greeting)
}

func (c *TelegramChannel) handleText(ctx *th.Context, msg telego.Message) error {
	if msg.From == nil {
		return nil
	}
	return c.answer(ctx, msg.Chat.ID, msg.From, msg.Text)
}

// answer runs the detector for one user message and replies in chatID.
// Errors are logged and swallowed so the handler keeps serving other updates.
func (c *TelegramChannel) answer(ctx context.Context, chatID int64, from *telego.User, text string) error {
	senderID := strconv.FormatInt(from.ID, 10)
	if from.Username != "" {
		senderID += "|" + from.Username
	}
	if !c.IsAllowed(senderID) {
		logger.DebugCF("telegram", "Message from user outside allow list ignored", map[string]any{
			"user_id": from.ID,
		})
		return nil
	}

	dctx, cancel := context.WithTimeout(ctx, c.intentTimeout)
	result, err := c.detector.DetectIntent(dctx, intent.SessionID("tg", from.ID), text)
	cancel()
	if err != nil {
		logger.ErrorCF("telegram", "Intent detection failed", map[string]any{
			"user_id": from.ID,
			"error":   err.Error(),
		})
		return nil
	}
	if result.IsFallback && c.cfg.SkipFallback {
		logger.DebugCF("telegram", "Fallback intent, reply suppressed", map[string]any{"user_id": from.ID})
		return nil
	}
	if result.Reply == "" {
		return nil
	}
	return c.reply(ctx, chatID, result.Reply)
}

func (c *TelegramChannel) reply(ctx context.Context, chatID int64, text string) error {
	if _, err := c.api.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		logger.ErrorCF("telegram", "Failed to send reply", map[string]any{
			"chat_id": chatID,
			"error":   err.Error(),
		})
	}
	return nil
}
