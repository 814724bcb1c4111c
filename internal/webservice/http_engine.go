package webservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a whole request, body included.
const DefaultTimeout = 30 * time.Second

var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// HTTPEngine is an Engine backed by an http.Client. Every request runs on
// its own goroutine.
type HTTPEngine struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	success   func(status int) bool
}

// HTTPOption configures an HTTPEngine.
type HTTPOption func(*HTTPEngine)

// WithClient replaces the underlying client.
func WithClient(client *http.Client) HTTPOption {
	return func(e *HTTPEngine) {
		e.client = client
	}
}

// WithTimeout sets the client timeout. A client given through WithClient is
// copied rather than modified.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(e *HTTPEngine) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// WithSuccessStatus restricts the statuses treated as success to codes.
// Any other status is reported as a TransportError. The default is 2xx.
func WithSuccessStatus(codes ...int) HTTPOption {
	return func(e *HTTPEngine) {
		e.success = func(status int) bool {
			for _, code := range codes {
				if status == code {
					return true
				}
			}
			return false
		}
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(userAgent string) HTTPOption {
	return func(e *HTTPEngine) {
		e.userAgent = userAgent
	}
}

// NewHTTPEngine creates an engine with a tuned default client.
func NewHTTPEngine(opts ...HTTPOption) *HTTPEngine {
	e := &HTTPEngine{
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: defaultTransport.Clone(),
		},
		success: isSuccess,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.timeout > 0 {
		client := *e.client
		client.Timeout = e.timeout
		e.client = &client
	}
	return e
}

// Request performs req in the background and hands the body to handler.
// Responses outside the success statuses are reported as a TransportError
// carrying the upstream status, headers and body.
func (e *HTTPEngine) Request(ctx context.Context, req Request, handler Handler) {
	go func() {
		data, resp, err := e.do(ctx, req)
		handler(data, resp, err)
	}()
}

func (e *HTTPEngine) do(ctx context.Context, req Request) ([]byte, *Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, nil, &TransportError{URL: req.URL, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	if e.userAgent != "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}

	start := time.Now()
	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, nil, &TransportError{URL: req.URL, Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header}
	if err != nil {
		return nil, resp, &TransportError{URL: req.URL, StatusCode: httpResp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	logrus.Debugf("Fetched %s %s -> %d in %s", req.Method, req.URL, httpResp.StatusCode, time.Since(start))

	if !e.success(httpResp.StatusCode) {
		return data, resp, &TransportError{
			URL:        req.URL,
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header,
			Body:       data,
		}
	}
	return data, resp, nil
}
