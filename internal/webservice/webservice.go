package webservice

import (
	"context"

	"github.com/iTrooz/resource-cache/internal/resource"
	"github.com/iTrooz/resource-cache/internal/result"
)

// Webservice loads resources through an Engine.
type Webservice struct {
	engine Engine
}

// New creates a webservice over engine.
func New(engine Engine) *Webservice {
	return &Webservice{
		engine: engine,
	}
}

// Load requests res and delivers exactly one result to completion. Transport
// errors are passed through unchanged; a body the parser rejects becomes a
// ParseError tagged "webservice". Nothing is retried. completion may run on
// another goroutine.
func Load[A any](ctx context.Context, ws *Webservice, res resource.Resource[A], completion func(result.Result[A])) {
	method := res.Method()
	req := Request{
		URL:    res.Address(),
		Method: method.String(),
		Body:   method.Body(),
	}

	ws.engine.Request(ctx, req, func(data []byte, _ *Response, err error) {
		if err != nil {
			completion(result.Failure[A](err))
			return
		}
		value, err := res.Decode(data, resource.SourceWebservice)
		completion(result.From(value, err))
	})
}
