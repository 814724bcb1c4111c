package webservice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iTrooz/resource-cache/internal/result"
)

// mockEngine answers synchronously with whatever the expectation returns.
type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Request(_ context.Context, req Request, handler Handler) {
	args := m.Called(req)
	data, _ := args.Get(0).([]byte)
	resp, _ := args.Get(1).(*Response)
	handler(data, resp, args.Error(2))
}

func requestFor(method, url string) any {
	return mock.MatchedBy(func(req Request) bool {
		return req.Method == method && req.URL == url
	})
}

// collector records every completion so tests can check there is exactly one.
type collector[A any] struct {
	results chan result.Result[A]
}

func newCollector[A any]() *collector[A] {
	return &collector[A]{results: make(chan result.Result[A], 8)}
}

func (c *collector[A]) complete(r result.Result[A]) {
	c.results <- r
}

func (c *collector[A]) wait(t *testing.T) result.Result[A] {
	t.Helper()
	select {
	case r := <-c.results:
		select {
		case extra := <-c.results:
			t.Fatalf("completion called more than once, extra result: %+v", extra)
		case <-time.After(20 * time.Millisecond):
		}
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("completion was never called")
	}
	return result.Result[A]{}
}

type resultItem = result.Result[item]
