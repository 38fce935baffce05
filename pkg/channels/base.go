package channels

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tinyland-inc/verbsbot/pkg/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

// FailureReporter is implemented by channels whose background task can die on
// its own. The Manager installs a handler that receives the terminal error.
type FailureReporter interface {
	SetFailureHandler(fn func(channel string, err error))
}

type BaseChannel struct {
	running   atomic.Bool
	name      string
	allowList []string

	mu        sync.Mutex
	onFailure func(channel string, err error)
}

func NewBaseChannel(name string, allowList []string) *BaseChannel {
	return &BaseChannel{
		name:      name,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

// IsAllowed matches senderID against the allow list. An empty list allows
// everyone. Entries may use the "id|username" form, and a leading "@" on an
// entry is ignored.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range c.allowList {
		trimmed := strings.TrimPrefix(strings.TrimSpace(allowed), "@")
		allowedID := trimmed
		allowedUser := ""
		if idx := strings.Index(trimmed, "|"); idx > 0 {
			allowedID = trimmed[:idx]
			allowedUser = trimmed[idx+1:]
		}

		if senderID == trimmed ||
			idPart == trimmed ||
			idPart == allowedID ||
			(userPart != "" && (userPart == trimmed || userPart == allowedUser)) {
			return true
		}
	}

	return false
}

func (c *BaseChannel) SetFailureHandler(fn func(channel string, err error)) {
	c.mu.Lock()
	c.onFailure = fn
	c.mu.Unlock()
}

// ReportFailure hands a terminal error of the channel's task to the handler, if any.
func (c *BaseChannel) ReportFailure(err error) {
	c.mu.Lock()
	fn := c.onFailure
	c.mu.Unlock()
	if fn != nil {
		fn(c.name, err)
	}
}
