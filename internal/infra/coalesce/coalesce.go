// Package coalesce guards upstream fetches so that at most one call per key
// is in flight. Near-simultaneous list refreshes from the frontend (double
// renders, rapid re-clicks) collapse into a single upstream request whose
// result, success or failure, every caller observes. The slot for a key is
// cleared unconditionally when its flight completes.
//
// The table is owned by one injected Group, so nothing bleeds across tests
// or sessions.
package coalesce

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group is a keyed single-flight table. The zero value is not usable; use New.
type Group struct {
	sf singleflight.Group
}

// New creates an empty flight table.
func New() *Group {
	return &Group{}
}

// Do executes fn under key, or joins the flight already running for key.
// shared is true for callers that joined rather than led.
//
// Cancellation is deliberately unsupported: fn runs on a context detached
// from the leader's, so one caller giving up cannot fail the shared result.
// The upstream client's own timeout bounds a hung flight.
func Do[T any](g *Group, ctx context.Context, key string, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	detached := context.WithoutCancel(ctx)

	v, err, shared := g.sf.Do(key, func() (any, error) {
		return fn(detached)
	})
	if err != nil {
		var zero T
		return zero, shared, err
	}
	return v.(T), shared, nil
}

// Forget removes any pending flight for key so the next Do leads a fresh
// fetch. Used after mutations that invalidate the listed data.
func (g *Group) Forget(key string) {
	g.sf.Forget(key)
}
