// Package vk implements the VK community long-poll client: session acquisition,
// the poll/recovery loop, response validation and reply dispatch.
package vk

import (
	"net/url"
	"strconv"
	"time"
)

// Session authorizes and positions poll requests. The poller replaces it as a
// whole on reacquisition; only TS is advanced in place.
type Session struct {
	Server string
	Key    string
	TS     string
	Wait   time.Duration
}

func (s *Session) waitSeconds() int {
	secs := int(s.Wait / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (s *Session) queryParams() url.Values {
	q := url.Values{}
	q.Set("act", "a_check")
	q.Set("key", s.Key)
	q.Set("ts", s.TS)
	q.Set("wait", strconv.Itoa(s.waitSeconds()))
	return q
}

// Event is a validated incoming message.
type Event struct {
	UserID int64
	Text   string
}

// FailureKind tags the outcome of one poll response.
type FailureKind int

const (
	// FailureNone marks a batch of events.
	FailureNone FailureKind = iota
	// FailureResumable (code 1): history is outdated, continue from the returned ts.
	FailureResumable
	// FailureKeyExpired (code 2): the session key expired.
	FailureKeyExpired
	// FailureInfoLost (code 3): the server lost the session.
	FailureInfoLost
	// FailureUnrecognized: any other code.
	FailureUnrecognized
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureResumable:
		return "resumable"
	case FailureKeyExpired:
		return "key_expired"
	case FailureInfoLost:
		return "info_lost"
	default:
		return "unrecognized"
	}
}

// Outcome is the parsed form of a poll response: either a batch (Failure ==
// FailureNone, TS and Events set) or a failure signal (TS set only for
// FailureResumable, Code set only for FailureUnrecognized).
type Outcome struct {
	Failure FailureKind
	Code    int64
	TS      string
	Events  []Event
}

func (o Outcome) IsBatch() bool {
	return o.Failure == FailureNone
}
