package vk

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a poll or API response that could not be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is an {"error": {...}} payload returned by a VK API method.
type APIError struct {
	Method  string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk %s: error %d: %s", e.Method, e.Code, e.Message)
}

// AcquisitionError reports that a long-poll session could not be obtained.
type AcquisitionError struct {
	Err error
}

func (e *AcquisitionError) Error() string {
	return "acquiring long poll server: " + e.Err.Error()
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned by the poller when the server sends a failure code
// it does not understand.
type ProtocolError struct {
	Code int64
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("long poll: unrecognized failure code %d", e.Code)
}
