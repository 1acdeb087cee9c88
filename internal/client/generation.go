package client

import "sync/atomic"

// Generation tells whether a finished request is still the latest one
// issued from a call site. Superseded results are dropped by the caller
// instead of cancelling the request in flight.
type Generation struct {
	n atomic.Uint64
}

// Next starts a new request and returns its token.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// Invalidate drops every request issued so far, e.g. when a view closes.
func (g *Generation) Invalidate() {
	g.n.Add(1)
}

// Current returns the latest token without starting a request.
func (g *Generation) Current() uint64 {
	return g.n.Load()
}

func (g *Generation) IsCurrent(token uint64) bool {
	return g.n.Load() == token
}
