package channels

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tinyland-inc/verbsbot/pkg/bus"
	"github.com/tinyland-inc/verbsbot/pkg/config"
	"github.com/tinyland-inc/verbsbot/pkg/intent"
	"github.com/tinyland-inc/verbsbot/pkg/logger"
)

// ChannelFailure is a terminal error reported by a channel's background task.
type ChannelFailure struct {
	Channel string
	Err     error
}

func (f *ChannelFailure) Error() string {
	return fmt.Sprintf("channel %s failed: %v", f.Channel, f.Err)
}

func (f *ChannelFailure) Unwrap() error {
	return f.Err
}

type Manager struct {
	channels map[string]Channel
	bus      *bus.MessageBus
	failures chan error
	mu       sync.RWMutex
}

// NewManager creates the channels enabled in cfg. Pass a nil cfg to start
// empty and Register channels by hand.
func NewManager(cfg *config.Config, msgBus *bus.MessageBus, detector intent.Detector) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		bus:      msgBus,
		failures: make(chan error, 4),
	}
	if cfg == nil {
		return m, nil
	}
	if err := m.initChannels(cfg, detector); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) initChannels(cfg *config.Config, detector intent.Detector) error {
	if cfg.VK.Enabled {
		m.Register(NewVKChannel(cfg.VK, detector, cfg.Intent.Timeout))
		logger.InfoC("channels", "VK channel enabled")
	}

	if cfg.Telegram.Enabled {
		tg, err := NewTelegramChannel(cfg.Telegram, detector, cfg.Intent.Timeout)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		m.Register(tg)
		logger.InfoC("channels", "Telegram channel enabled")
	}

	return nil
}

func (m *Manager) Register(ch Channel) {
	if fr, ok := ch.(FailureReporter); ok {
		fr.SetFailureHandler(m.reportFailure)
	}
	m.mu.Lock()
	m.channels[ch.Name()] = ch
	m.mu.Unlock()
}

func (m *Manager) reportFailure(channel string, err error) {
	select {
	case m.failures <- &ChannelFailure{Channel: channel, Err: err}:
	default:
		logger.WarnCF("channels", "Failure queue full, dropping report", map[string]any{
			"channel": channel,
			"error":   err.Error(),
		})
	}
}

// Failures delivers terminal errors of channel tasks.
func (m *Manager) Failures() <-chan error {
	return m.failures
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

func (m *Manager) GetEnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartAll starts every registered channel. If one fails to start, the ones
// already started are stopped again.
func (m *Manager) StartAll(ctx context.Context) error {
	var started []Channel
	for _, name := range m.GetEnabledChannels() {
		ch, _ := m.GetChannel(name)
		logger.InfoCF("channels", "Starting channel", map[string]any{"channel": name})
		if err := ch.Start(ctx); err != nil {
			for _, s := range started {
				_ = s.Stop(ctx)
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		started = append(started, ch)
	}
	return nil
}

func (m *Manager) StopAll(ctx context.Context) error {
	var errs []error
	for _, name := range m.GetEnabledChannels() {
		ch, _ := m.GetChannel(name)
		if err := ch.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Status reports whether each registered channel is running.
func (m *Manager) Status() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		status[name] = ch.IsRunning()
	}
	return status
}

// DispatchOutbound drains the bus until ctx is done or the bus is closed.
func (m *Manager) DispatchOutbound(ctx context.Context) {
	for {
		msg, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}

		ch, exists := m.GetChannel(msg.Channel)
		if !exists {
			logger.WarnCF("channels", "Unknown channel for outbound message", map[string]any{
				"channel": msg.Channel,
			})
			continue
		}
		if err := ch.Send(ctx, msg); err != nil {
			logger.ErrorCF("channels", "Error sending message to channel", map[string]any{
				"channel": msg.Channel,
				"error":   err.Error(),
			})
		}
	}
}
