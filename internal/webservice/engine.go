// Package webservice executes resources against a network engine, optionally
// reading through a local cache.
package webservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrTransport matches every TransportError through errors.Is.
var ErrTransport = errors.New("transport failed")

// Request is what an Engine is asked to perform.
type Request struct {
	URL    string
	Method string
	Body   []byte
}

// Response carries the transport metadata of a completed request.
type Response struct {
	StatusCode int
	Header     http.Header
}

// Handler receives the outcome of a request. It is called exactly once, on
// whatever goroutine the engine chooses.
type Handler func(data []byte, resp *Response, err error)

// Engine performs network requests.
type Engine interface {
	Request(ctx context.Context, req Request, handler Handler)
}

// TransportError reports that a request produced no usable response. When
// the upstream answered with an unaccepted status, StatusCode, Header and Body
// hold that answer.
type TransportError struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("request to %s failed with status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
