package channels

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tinyland-inc/verbsbot/pkg/bus"
	"github.com/tinyland-inc/verbsbot/pkg/config"
	"github.com/tinyland-inc/verbsbot/pkg/intent"
	"github.com/tinyland-inc/verbsbot/pkg/logger"
	"github.com/tinyland-inc/verbsbot/pkg/vk"
)

// VKChannel runs the community long-poll loop on its own goroutine.
type VKChannel struct {
	*BaseChannel
	cfg           config.VKConfig
	detector      intent.Detector
	intentTimeout time.Duration
	ids           *vk.RandomIDs

	mu     sync.Mutex
	client *vk.Client
	cancel context.CancelFunc
	done   chan struct{}
}

func NewVKChannel(cfg config.VKConfig, detector intent.Detector, intentTimeout time.Duration) *VKChannel {
	return &VKChannel{
		BaseChannel:   NewBaseChannel("vk", cfg.AllowFrom),
		cfg:           cfg,
		detector:      detector,
		intentTimeout: intentTimeout,
		ids:           vk.NewRandomIDs(),
	}
}

func (c *VKChannel) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return errors.New("vk channel already started")
	}

	client := vk.NewClient(vk.ClientConfig{
		APIURL:         c.cfg.APIURL,
		APIVersion:     c.cfg.APIVersion,
		Token:          c.cfg.Token,
		RequestTimeout: c.cfg.RequestTimeout,
		PollTimeout:    c.cfg.PollTimeout(),
	})
	dispatcher := vk.NewDispatcher(c.detector, client,
		vk.WithAllow(func(userID int64) bool { return c.IsAllowed(strconv.FormatInt(userID, 10)) }),
		vk.WithTimeouts(c.intentTimeout, c.cfg.RequestTimeout),
	)
	poller := vk.NewPoller(
		vk.NewSessionAcquirer(client, c.cfg.GroupID, c.cfg.Wait),
		client,
		dispatcher,
		vk.WithBackoff(c.cfg.Backoff),
	)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.client, c.cancel, c.done = client, cancel, done
	c.SetRunning(true)

	go func() {
		defer close(done)
		defer client.Close()
		defer c.SetRunning(false)

		logger.InfoCF("vk", "VK bot started", map[string]any{"group_id": c.cfg.GroupID})
		if err := poller.Run(runCtx); err != nil {
			logger.ErrorCF("vk", "VK bot stopped", map[string]any{"error": err.Error()})
			c.ReportFailure(err)
			return
		}
		logger.InfoC("vk", "VK bot stopped")
	}()

	return nil
}

func (c *VKChannel) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send delivers msg.Content to the VK user whose id is msg.ChatID.
func (c *VKChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil || !c.IsRunning() {
		return errors.New("vk channel not running")
	}

	userID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid vk user id %q: %w", msg.ChatID, err)
	}
	return client.SendMessage(ctx, userID, msg.Content, c.ids.Next())
}
