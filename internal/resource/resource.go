// Package resource describes what to fetch and how to turn the fetched bytes
// into a typed value.
package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// Parser converts raw response bytes into a value. A non-nil error means the
// bytes could not be turned into an A.
type Parser[A any] func(data []byte) (A, error)

// Resource is an immutable description of a network resource: its absolute
// address, its verb and the parser for its body. The parser is not part of
// the identity of the resource.
type Resource[A any] struct {
	url    *url.URL
	method Method
	parse  Parser[A]
}

// New builds a resource for rawURL. The URL must be absolute.
func New[A any](rawURL string, method Method, parse Parser[A]) (Resource[A], error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Resource[A]{}, fmt.Errorf("invalid resource URL %q: %w", rawURL, err)
	}
	return FromURL(u, method, parse)
}

// FromURL builds a resource for an already parsed URL.
func FromURL[A any](u *url.URL, method Method, parse Parser[A]) (Resource[A], error) {
	if u == nil || !u.IsAbs() || u.Host == "" {
		return Resource[A]{}, fmt.Errorf("resource URL must be absolute, got %q", u)
	}
	if parse == nil {
		return Resource[A]{}, errors.New("resource parser is required")
	}
	clone := *u
	return Resource[A]{url: &clone, method: method, parse: parse}, nil
}

// Get is New with MethodGet.
func Get[A any](rawURL string, parse Parser[A]) (Resource[A], error) {
	return New(rawURL, MethodGet, parse)
}

// Raw builds a resource whose value is the response body itself.
func Raw(rawURL string, method Method) (Resource[[]byte], error) {
	return New(rawURL, method, Identity)
}

// JSON builds a resource decoding a JSON body into an A.
func JSON[A any](rawURL string, method Method) (Resource[A], error) {
	return New(rawURL, method, DecodeJSON[A])
}

// Identity is the parser that returns its input.
func Identity(data []byte) ([]byte, error) {
	return data, nil
}

// DecodeJSON unmarshals data into a new A.
func DecodeJSON[A any](data []byte) (A, error) {
	var v A
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decoding JSON: %w", err)
	}
	return v, nil
}

// Address returns the absolute address string of the resource.
func (r Resource[A]) Address() string {
	if r.url == nil {
		return ""
	}
	return r.url.String()
}

// URL returns a copy of the resource URL.
func (r Resource[A]) URL() *url.URL {
	if r.url == nil {
		return nil
	}
	clone := *r.url
	return &clone
}

// Method returns the verb of the resource.
func (r Resource[A]) Method() Method {
	return r.method
}

// Parse applies the parser without tagging the error.
func (r Resource[A]) Parse(data []byte) (A, error) {
	return r.parse(data)
}

// Decode applies the parser and wraps a failure in a ParseError tagged with
// source.
func (r Resource[A]) Decode(data []byte, source string) (A, error) {
	v, err := r.parse(data)
	if err != nil {
		var zero A
		return zero, &ParseError{Source: source, URL: r.Address(), Err: err}
	}
	return v, nil
}

// Raw returns a resource with the same address and verb whose value is the
// undecoded body.
func (r Resource[A]) Raw() Resource[[]byte] {
	return Resource[[]byte]{url: r.url, method: r.method, parse: Identity}
}

// BaseURL builds the root URL of a host. The scheme defaults to https.
func BaseURL(scheme, host string) (*url.URL, error) {
	if scheme == "" {
		scheme = "https"
	}
	if host == "" {
		return nil, errors.New("host is required")
	}
	u, err := url.Parse(scheme + "://" + host)
	if err != nil {
		return nil, fmt.Errorf("could not create base url from scheme %q and host %q: %w", scheme, host, err)
	}
	if u.Host == "" || u.Path != "" {
		return nil, fmt.Errorf("could not create base url from scheme %q and host %q", scheme, host)
	}
	return u, nil
}
