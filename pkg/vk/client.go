package vk

import (
	"context"
	"fmt"
	"maps"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const (
	methodGetLongPollServer = "groups.getLongPollServer"
	methodSendMessage       = "messages.send"

	defaultAPIURL         = "https://api.vk.com/method"
	defaultAPIVersion     = "5.199"
	defaultRequestTimeout = 10 * time.Second
	defaultConnectTimeout = 10 * time.Second

	// minPollMargin keeps the poll deadline strictly above the session wait.
	minPollMargin = 5 * time.Second
)

type ClientConfig struct {
	APIURL     string
	APIVersion string
	Token      string
	// RequestTimeout bounds API method calls (acquire, send).
	RequestTimeout time.Duration
	// PollTimeout bounds a single long-poll call. Raised to Session.Wait plus a
	// margin when it is not larger than that.
	PollTimeout    time.Duration
	ConnectTimeout time.Duration
}

// Client talks to the VK API and to the long-poll server of a session.
type Client struct {
	cfg       ClientConfig
	http      *resty.Client
	transport *http.Transport
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	// No overall client timeout: each call sets its own deadline, and the poll
	// deadline has to outlive the server-side wait window.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	rc := resty.New().
		SetTransport(transport).
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetHeader("Accept", "application/json")

	return &Client{cfg: cfg, http: rc, transport: transport}
}

// Close releases idle connections held by the transport.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}

// call invokes an API method and returns its "response" member.
func (c *Client) call(ctx context.Context, method string, params map[string]string) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	form := map[string]string{
		"access_token": c.cfg.Token,
		"v":            c.cfg.APIVersion,
	}
	maps.Copy(form, params)

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post("/" + method)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("vk %s: %w", method, err)
	}
	if resp.IsError() {
		return gjson.Result{}, fmt.Errorf("vk %s: http %d", method, resp.StatusCode())
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("vk %s: %w", method, ErrMalformedResponse)
	}
	root := gjson.ParseBytes(body)
	if apiErr := root.Get("error"); apiErr.Exists() {
		return gjson.Result{}, &APIError{
			Method:  method,
			Code:    int(apiErr.Get("error_code").Int()),
			Message: apiErr.Get("error_msg").String(),
		}
	}
	result := root.Get("response")
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("vk %s: %w: no response member", method, ErrMalformedResponse)
	}
	return result, nil
}

// Poll performs one long-poll request for the session and returns the raw body.
func (c *Client) Poll(ctx context.Context, s *Session) ([]byte, error) {
	timeout := c.cfg.PollTimeout
	if floor := s.Wait + minPollMargin; timeout < floor {
		timeout = floor
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(s.queryParams()).
		Get(s.Server)
	if err != nil {
		return nil, fmt.Errorf("long poll request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("long poll request: http %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// SendMessage calls messages.send. randomID makes the send idempotent on the VK side.
func (c *Client) SendMessage(ctx context.Context, userID int64, text string, randomID int32) error {
	_, err := c.call(ctx, methodSendMessage, map[string]string{
		"user_id":   strconv.FormatInt(userID, 10),
		"message":   text,
		"random_id": strconv.FormatInt(int64(randomID), 10),
	})
	return err
}
