package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	consoleerrors "github.com/cryostatio/cryostat-sub001/internal/errors"
	"github.com/cryostatio/cryostat-sub001/pkg/notify"
	"github.com/cryostatio/cryostat-sub001/pkg/target"
)

// Status codes routed to the target link.
const (
	StatusJMXAuthRequired = 427
	StatusSSLFailure      = http.StatusBadGateway
)

// NotificationsURLPath is the endpoint naming the push socket URL.
const NotificationsURLPath = "/api/v1/notifications_url"

// HeaderSource supplies per-request auth headers.
type HeaderSource interface {
	Headers(ctx context.Context) http.Header
}

// Client issues backend requests.
type Client struct {
	base    *url.URL
	retry   *retryablehttp.Client
	headers HeaderSource
	link    *target.Link
	notes   *notify.Store
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying client, typically one whose transport
// carries tracing and metrics.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.retry.HTTPClient = c }
}

// WithRetry sets the retry policy for idempotent requests.
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(cl *Client) {
		cl.retry.RetryMax = max
		cl.retry.RetryWaitMin = waitMin
		cl.retry.RetryWaitMax = waitMax
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a Client for base.
func New(base *url.URL, headers HeaderSource, link *target.Link, notes *notify.Store, opts ...Option) *Client {
	c := &Client{
		base:    base,
		retry:   retryablehttp.NewClient(),
		headers: headers,
		link:    link,
		notes:   notes,
		logger:  slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.Logger = c.logger
	c.retry.CheckRetry = checkRetry
	c.retry.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

type noRetryKey struct{}

// checkRetry never retries non-idempotent requests or answers routed to the
// target link.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Value(noRetryKey{}) != nil {
		return false, ctx.Err()
	}
	if resp != nil && (resp.StatusCode == StatusJMXAuthRequired || resp.StatusCode == StatusSSLFailure) {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Do sends a request to path and returns the response when it is 2xx.
// The caller must close the body. Failures are routed and returned as
// *errors.ConsoleError.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	return c.do(ctx, method, path, body, true)
}

// GetJSON issues a GET and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	return c.decode(c.do(ctx, http.MethodGet, path, nil, true))(v)
}

// PostJSON issues a POST with in encoded as JSON and decodes the answer
// into out when out is not nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return consoleerrors.New("E400").Wrap(err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, raw, true)
	if out == nil {
		if err == nil {
			resp.Body.Close()
		}
		return err
	}
	return c.decode(resp, err)(out)
}

// NotificationsURL resolves the push socket URL. Failures are returned
// without a notification.
func (c *Client) NotificationsURL(ctx context.Context) (string, error) {
	var body struct {
		NotificationsURL string `json:"notificationsUrl"`
	}
	resp, err := c.do(ctx, http.MethodGet, NotificationsURLPath, nil, false)
	if err := c.decode(resp, err)(&body); err != nil {
		return "", err
	}
	if body.NotificationsURL == "" {
		return "", consoleerrors.New("E401").WithDetail("notificationsUrl is empty")
	}
	return body.NotificationsURL, nil
}

func (c *Client) decode(resp *http.Response, err error) func(any) error {
	return func(v any) error {
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return consoleerrors.New("E401").WithStatus(resp.StatusCode).Wrap(err)
		}
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, surface bool) (*http.Response, error) {
	if !idempotent(method) {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}

	endpoint := c.resolve(path)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, consoleerrors.New("E400").Wrap(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.headers != nil {
		for k, vs := range c.headers.Headers(ctx) {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	resp, err := c.retry.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		cerr := consoleerrors.New("E400").WithDetail(fmt.Sprintf("%s %s", method, path)).Wrap(err)
		c.logger.Warn("request failed", "method", method, "path", path, "error", err)
		if surface {
			c.notes.Danger("Request failed", cerr, "", false)
		}
		return nil, cerr
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return resp, nil

	case resp.StatusCode == StatusJMXAuthRequired:
		resp.Body.Close()
		sel := c.link.Selected()
		c.link.SetAuthFailure(target.AuthFailure{
			Target: sel.ConnectURL,
			Scheme: resp.Header.Get("X-JMX-Authenticate"),
		})
		c.logger.Info("target requires JMX credentials", "target", sel.ConnectURL)
		return nil, consoleerrors.New("E200").WithStatus(resp.StatusCode)

	case resp.StatusCode == StatusSSLFailure:
		resp.Body.Close()
		sel := c.link.Selected()
		c.link.SetSSLFailure(target.SSLFailure{Target: sel.ConnectURL})
		c.logger.Info("target SSL trust failure", "target", sel.ConnectURL)
		return nil, consoleerrors.New("E201").WithStatus(resp.StatusCode)
	}

	detail := readDetail(resp)
	cerr := consoleerrors.New("E400").WithStatus(resp.StatusCode).WithDetail(detail)
	c.logger.Warn("request failed", "method", method, "path", path, "status", resp.StatusCode)
	if surface {
		c.notes.Danger(fmt.Sprintf("Request failed (%d %s)", resp.StatusCode, path), detail, "", false)
	}
	return nil, cerr
}

func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return c.base.ResolveReference(ref).String()
}

// readDetail returns the response text, falling back to the status line.
func readDetail(resp *http.Response) string {
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return resp.Status
	}
	return text
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}
