// Package client is the HTTP transport to the EasyRouter backend.
//
// Every call carries the session cookie held in the client's jar, sends and
// receives JSON, and fails with a *Error whose message is safe to show users.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"

	"github.com/j-veylop/easyrouter-dashboard-tui/internal/logger"
	"github.com/j-veylop/easyrouter-dashboard-tui/internal/version"
)

// Request describes one backend call.
type Request struct {
	Body   any
	Header map[string]string
	Method string
	Path   string
	// Route is the path template used as the metrics label, e.g. "/api-key/{id}".
	// It defaults to Path.
	Route string
}

// Call is reported to the Observer after every request.
type Call struct {
	Err      error
	Method   string
	Route    string
	Duration time.Duration
	Status   int
}

// Options configures a Client.
type Options struct {
	Observer func(Call)
	Timeout  time.Duration
}

// Client performs JSON requests against one base URL.
type Client struct {
	rc       *resty.Client
	jar      *sessionJar
	baseURL  *url.URL
	observer func(Call)
}

// New creates a client for baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetCookieJar(jar).
		SetLogger(restyLogger{}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent())
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}

	return &Client{
		rc:       rc,
		jar:      jar,
		baseURL:  u,
		observer: opts.Observer,
	}, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Get performs a GET request decoding the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}

// Do sends req and decodes a successful response body into out when out is
// non-nil and the body is non-empty. Any non-2xx status is returned as *Error.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	route := req.Route
	if route == "" {
		route = req.Path
	}
	op := req.Method + " " + route

	r := c.rc.R().SetContext(ctx)
	if req.Body != nil {
		r.SetBody(req.Body)
	}
	if len(req.Header) > 0 {
		r.SetHeaders(req.Header)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}

	callErr := c.result(ctx, op, resp, err, out)
	c.record(Call{
		Method:   req.Method,
		Route:    route,
		Status:   status,
		Duration: duration,
		Err:      callErr,
	})

	return callErr
}

func (c *Client) result(ctx context.Context, op string, resp *resty.Response, err error, out any) error {
	if err != nil {
		if ctx.Err() != nil {
			return &Error{Op: op, Kind: KindCanceled, Message: "request canceled", Err: ctx.Err()}
		}
		return &Error{Op: op, Kind: KindNetwork, Message: fmt.Sprintf("network error: %v", err), Err: err}
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return &Error{
			Op:      op,
			Kind:    kindForStatus(status),
			Status:  status,
			Message: messageFromBody(resp.Body(), status),
		}
	}

	body := bytes.TrimSpace(resp.Body())
	if out == nil || len(body) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{
			Op:      op,
			Kind:    KindDecode,
			Status:  status,
			Message: "malformed response from server",
			Err:     err,
		}
	}
	return nil
}

func (c *Client) record(call Call) {
	observeMetrics(call)

	if call.Err != nil {
		logger.Debug("backend call failed",
			"method", call.Method, "route", call.Route,
			"status", call.Status, "kind", KindOf(call.Err).String(), "error", call.Err)
	}

	if c.observer != nil {
		c.observer(call)
	}
}

// HasCredentials reports whether the jar holds any cookie for the backend.
// Cookie values are never inspected.
func (c *Client) HasCredentials() bool {
	return len(c.jar.Cookies(c.baseURL)) > 0
}

// ExpireCredentials drops every stored cookie immediately. No request is sent.
func (c *Client) ExpireCredentials() error {
	return c.jar.reset()
}

// sessionJar lets the cookie store be swapped while requests are in flight.
type sessionJar struct {
	mu  sync.RWMutex
	jar http.CookieJar
}

func newSessionJar() (*sessionJar, error) {
	j := &sessionJar{}
	if err := j.reset(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *sessionJar) reset() error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
	return nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	jar := j.jar
	j.mu.RUnlock()
	jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	jar := j.jar
	j.mu.RUnlock()
	return jar.Cookies(u)
}

// restyLogger routes resty's internal messages to the application logger.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...any) {
	logger.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (restyLogger) Warnf(format string, v ...any) {
	logger.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (restyLogger) Debugf(format string, v ...any) {
	logger.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
