package vk

import (
	"context"
	"fmt"
	"time"

	"github.com/tinyland-inc/verbsbot/pkg/logger"
)

const (
	component      = "vk"
	defaultBackoff = 5 * time.Second
)

// PollTransport performs one long-poll request and returns the raw body.
type PollTransport interface {
	Poll(ctx context.Context, s *Session) ([]byte, error)
}

type PollerOption func(*Poller)

// WithBackoff sets the pause after a failed or undecodable poll.
func WithBackoff(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.backoff = d
		}
	}
}

// Poller drives the long-poll state machine. It owns the current session
// exclusively and runs on a single goroutine.
type Poller struct {
	sessions  SessionSource
	transport PollTransport
	handler   EventHandler
	backoff   time.Duration

	sleep func(ctx context.Context, d time.Duration) bool
}

func NewPoller(sessions SessionSource, transport PollTransport, handler EventHandler, opts ...PollerOption) *Poller {
	p := &Poller{
		sessions:  sessions,
		transport: transport,
		handler:   handler,
		backoff:   defaultBackoff,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run acquires a session and polls until ctx is cancelled (returns nil) or a
// fatal condition occurs: the initial or a re-acquisition fails, or the server
// reports an unrecognized failure code.
func (p *Poller) Run(ctx context.Context) error {
	sess, err := p.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	logger.InfoCF(component, "Long poll session acquired", map[string]any{"ts": sess.TS})

	for {
		if ctx.Err() != nil {
			logger.InfoC(component, "Long poll stopped")
			return nil
		}

		raw, err := p.transport.Poll(ctx, sess)
		if err != nil {
			if ctx.Err() != nil {
				logger.InfoC(component, "Long poll stopped")
				return nil
			}
			p.pause(ctx, "Long poll request failed", err)
			continue
		}

		outcome, err := Parse(raw)
		if err != nil {
			p.pause(ctx, "Long poll response rejected", err)
			continue
		}

		switch outcome.Failure {
		case FailureNone:
			sess.TS = outcome.TS
			p.dispatch(ctx, outcome.Events)

		case FailureResumable:
			logger.DebugCF(component, "History outdated, resuming from new ts", map[string]any{"ts": outcome.TS})
			sess.TS = outcome.TS

		case FailureKeyExpired, FailureInfoLost:
			logger.InfoCF(component, "Long poll session lost, reacquiring", map[string]any{
				"reason": outcome.Failure.String(),
			})
			next, err := p.sessions.Acquire(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("reacquire after %s: %w", outcome.Failure, err)
			}
			sess = next

		default:
			return &ProtocolError{Code: outcome.Code}
		}
	}
}

// dispatch handles a batch to completion even if ctx is cancelled meanwhile.
func (p *Poller) dispatch(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}
	dctx := context.WithoutCancel(ctx)
	for _, ev := range events {
		p.handler.Dispatch(dctx, ev)
	}
}

func (p *Poller) pause(ctx context.Context, msg string, err error) {
	logger.WarnCF(component, msg, map[string]any{
		"error":   err.Error(),
		"backoff": p.backoff.String(),
	})
	p.sleep(ctx, p.backoff)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
