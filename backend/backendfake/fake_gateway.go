package backendfake

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jrsteele09/storefront-relay/backend"
)

var _ backend.Gateway = (*FakeGateway)(nil)

// Responder answers one call to a path
type Responder func(req backend.Request) (backend.Result, error)

// FakeGateway answers backend calls from per-path scripts and records every call
type FakeGateway struct {
	lock   sync.Mutex
	routes map[string][]Responder
	calls  []backend.Request
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		routes: make(map[string][]Responder),
	}
}

// On queues responders for path. Each call consumes one responder; the last
// one keeps answering once the queue is down to it.
func (g *FakeGateway) On(path string, responders ...Responder) *FakeGateway {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.routes[path] = append(g.routes[path], responders...)
	return g
}

func (g *FakeGateway) Do(_ context.Context, req backend.Request) (backend.Result, error) {
	g.lock.Lock()
	g.calls = append(g.calls, req)
	queue := g.routes[req.Path]
	if len(queue) == 0 {
		g.lock.Unlock()
		return backend.Result{}, fmt.Errorf("backendfake: no responder for %s %s", req.Method, req.Path)
	}
	next := queue[0]
	if len(queue) > 1 {
		g.routes[req.Path] = queue[1:]
	}
	g.lock.Unlock()

	return next(req)
}

// Calls returns the requests made to path, or every request when path is empty
func (g *FakeGateway) Calls(path string) []backend.Request {
	g.lock.Lock()
	defer g.lock.Unlock()

	calls := make([]backend.Request, 0)
	for _, c := range g.calls {
		if path == "" || c.Path == path {
			calls = append(calls, c)
		}
	}
	return calls
}

// JSON answers with status and v encoded as JSON
func JSON(status int, v any) Responder {
	return func(backend.Request) (backend.Result, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return backend.Result{}, err
		}
		return backend.Result{Status: status, Body: backend.JSONBody(data)}, nil
	}
}

// Text answers with status and a plain text body
func Text(status int, text string) Responder {
	return func(backend.Request) (backend.Result, error) {
		return backend.Result{Status: status, Body: backend.TextBody(text)}, nil
	}
}

// Fail answers with a transport error
func Fail(err error) Responder {
	return func(backend.Request) (backend.Result, error) {
		return backend.Result{}, err
	}
}

// ByToken answers with the responder registered for the request's bearer
// token, or fallback when none matches
func ByToken(byToken map[string]Responder, fallback Responder) Responder {
	return func(req backend.Request) (backend.Result, error) {
		if r, ok := byToken[req.Token]; ok {
			return r(req)
		}
		return fallback(req)
	}
}
