package webservice

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/iTrooz/resource-cache/internal/cache"
	"github.com/iTrooz/resource-cache/internal/resource"
	"github.com/iTrooz/resource-cache/internal/result"
)

// Cached coordinates a Webservice and a Cache into a read-through loader.
type Cached struct {
	webservice *Webservice
	cache      *cache.Cache

	coalesce bool
	inflight singleflight.Group
}

// CachedOption configures a Cached.
type CachedOption func(*Cached)

// WithCoalescing shares one network fetch between concurrent misses on the
// same cache key. Without it, concurrent misses each fetch and the last write
// wins.
func WithCoalescing() CachedOption {
	return func(c *Cached) {
		c.coalesce = true
	}
}

// NewCached creates a read-through loader.
func NewCached(ws *Webservice, c *cache.Cache, opts ...CachedOption) *Cached {
	cw := &Cached{
		webservice: ws,
		cache:      c,
	}
	for _, opt := range opts {
		opt(cw)
	}
	return cw
}

// Cache returns the cache the loader reads through.
func (cw *Cached) Cache() *cache.Cache {
	return cw.cache
}

// LoadCached delivers the value of res to completion, exactly once.
//
// A cache hit completes synchronously without touching the network. On a
// miss the raw body is fetched, written to the cache, and only then parsed,
// so a body the parser rejects is still kept for a later, fixed parser.
// A failed fetch leaves the cache untouched and its error is passed on
// unchanged; a parse failure is reported as a ParseError tagged "cache".
func LoadCached[A any](ctx context.Context, cw *Cached, res resource.Resource[A], completion func(result.Result[A])) {
	if value, ok := cache.Load(cw.cache, res); ok {
		completion(result.Success(value))
		return
	}

	finish := func(data []byte, err error) {
		if err != nil {
			logrus.Debugf("Fetching %s failed: %v", res.Address(), err)
			completion(result.Failure[A](err))
			return
		}
		value, err := res.Decode(data, resource.SourceCache)
		completion(result.From(value, err))
	}

	if cw.coalesce {
		go func() {
			data, err := cw.fetchShared(ctx, res.Raw())
			finish(data, err)
		}()
		return
	}

	logrus.Debugf("Fetching %s from network", res.Address())
	Load(ctx, cw.webservice, res.Raw(), func(r result.Result[[]byte]) {
		data, err := r.Unwrap()
		if err == nil {
			cache.Save(cw.cache, data, res)
		}
		finish(data, err)
	})
}

// fetchShared runs at most one fetch-and-save per key at a time. The shared
// fetch is detached from the cancellation of whichever caller started it and
// is bounded by the engine's own timeout; each caller stops waiting when its
// own ctx ends.
func (cw *Cached) fetchShared(ctx context.Context, raw resource.Resource[[]byte]) ([]byte, error) {
	key := cache.Key(raw.Address())
	detached := context.WithoutCancel(ctx)
	ch := cw.inflight.DoChan(key, func() (any, error) {
		logrus.Debugf("Fetching %s from network", raw.Address())
		done := make(chan result.Result[[]byte], 1)
		Load(detached, cw.webservice, raw, func(r result.Result[[]byte]) {
			done <- r
		})
		data, err := (<-done).Unwrap()
		if err != nil {
			return nil, err
		}
		cache.Save(cw.cache, data, raw)
		return data, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			logrus.Debugf("Shared in-flight fetch of %s", raw.Address())
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch is LoadCached for callers that want to block. If ctx ends first its
// error is returned.
func Fetch[A any](ctx context.Context, cw *Cached, res resource.Resource[A]) (A, error) {
	done := make(chan result.Result[A], 1)
	LoadCached(ctx, cw, res, func(r result.Result[A]) {
		done <- r
	})

	select {
	case r := <-done:
		return r.Unwrap()
	case <-ctx.Done():
		var zero A
		return zero, ctx.Err()
	}
}
