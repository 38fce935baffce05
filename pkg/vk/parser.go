package vk

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

const (
	failedHistoryOutdated = 1
	failedKeyExpired      = 2
	failedInfoLost        = 3

	updateMessageNew = "message_new"
)

// Parse classifies a raw poll response. A non-nil error means the body could not
// be decoded at all; every protocol-level condition is reported through Outcome.
//
// Records are validated one by one: anything that is not a well-formed
// message_new record is skipped without failing the batch.
func Parse(raw []byte) (Outcome, error) {
	if !gjson.ValidBytes(raw) {
		return Outcome{}, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return Outcome{}, fmt.Errorf("%w: not an object", ErrMalformedResponse)
	}

	if failed := root.Get("failed"); failed.Exists() {
		return parseFailure(root, failed)
	}

	ts, ok := cursor(root.Get("ts"))
	if !ok {
		return Outcome{}, fmt.Errorf("%w: missing ts", ErrMalformedResponse)
	}
	updates := root.Get("updates")
	if !updates.IsArray() {
		return Outcome{}, fmt.Errorf("%w: missing updates", ErrMalformedResponse)
	}

	records := updates.Array()
	events := make([]Event, 0, len(records))
	for _, rec := range records {
		if ev, ok := eventFromRecord(rec); ok {
			events = append(events, ev)
		}
	}
	return Outcome{Failure: FailureNone, TS: ts, Events: events}, nil
}

func parseFailure(root, failed gjson.Result) (Outcome, error) {
	code, ok := integer(failed)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: non-integer failed code %s", ErrMalformedResponse, failed.Raw)
	}

	switch code {
	case failedHistoryOutdated:
		ts, ok := cursor(root.Get("ts"))
		if !ok {
			return Outcome{}, fmt.Errorf("%w: failed=1 without ts", ErrMalformedResponse)
		}
		return Outcome{Failure: FailureResumable, TS: ts}, nil
	case failedKeyExpired:
		return Outcome{Failure: FailureKeyExpired}, nil
	case failedInfoLost:
		return Outcome{Failure: FailureInfoLost}, nil
	default:
		return Outcome{Failure: FailureUnrecognized, Code: code}, nil
	}
}

func eventFromRecord(rec gjson.Result) (Event, bool) {
	if rec.Get("type").String() != updateMessageNew {
		return Event{}, false
	}
	msg := rec.Get("object.message")
	if !msg.IsObject() {
		return Event{}, false
	}
	userID, ok := integer(msg.Get("from_id"))
	if !ok {
		return Event{}, false
	}
	text := msg.Get("text")
	if text.Type != gjson.String {
		return Event{}, false
	}
	return Event{UserID: userID, Text: text.Str}, true
}

// cursor reads a ts value. VK sends it as a string; a bare number is accepted too.
func cursor(r gjson.Result) (string, bool) {
	switch r.Type {
	case gjson.String:
		return r.Str, r.Str != ""
	case gjson.Number:
		return r.Raw, true
	default:
		return "", false
	}
}

func integer(r gjson.Result) (int64, bool) {
	if r.Type != gjson.Number {
		return 0, false
	}
	n, err := strconv.ParseInt(r.Raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
