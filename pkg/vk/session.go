package vk

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultWait = 25 * time.Second

// SessionSource hands out fresh long-poll sessions.
type SessionSource interface {
	Acquire(ctx context.Context) (*Session, error)
}

// SessionAcquirer obtains sessions through groups.getLongPollServer.
// It makes exactly one API call per Acquire and never retries.
type SessionAcquirer struct {
	client  *Client
	groupID int64
	wait    time.Duration
}

func NewSessionAcquirer(client *Client, groupID int64, wait time.Duration) *SessionAcquirer {
	if wait <= 0 {
		wait = defaultWait
	}
	return &SessionAcquirer{client: client, groupID: groupID, wait: wait}
}

func (a *SessionAcquirer) Acquire(ctx context.Context) (*Session, error) {
	result, err := a.client.call(ctx, methodGetLongPollServer, map[string]string{
		"group_id": strconv.FormatInt(a.groupID, 10),
	})
	if err != nil {
		return nil, &AcquisitionError{Err: err}
	}

	server := result.Get("server").String()
	key := result.Get("key").String()
	ts, ok := cursor(result.Get("ts"))
	if server == "" || key == "" || !ok {
		return nil, &AcquisitionError{Err: fmt.Errorf("%w: incomplete server data", ErrMalformedResponse)}
	}

	return &Session{
		Server: normalizeServerURL(server),
		Key:    key,
		TS:     ts,
		Wait:   a.wait,
	}, nil
}

// normalizeServerURL adds a scheme when the server is returned as a bare host/path.
func normalizeServerURL(server string) string {
	if strings.Contains(server, "://") {
		return server
	}
	return "https://" + server
}
