package coldcache

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/coldcache/provider"
)

// Status of a single-value cold query result.
type Status string

const (
	// StatusInitializing: neither a cached nor a live value is available.
	StatusInitializing Status = "initializing"
	// StatusStale: serving the durable snapshot; live subscription still loading.
	StatusStale Status = "stale"
	// StatusFresh: the live value has arrived and is authoritative.
	StatusFresh Status = "fresh"
)

// Result is the externally visible state of a single-value cold query.
// HasData distinguishes "no value yet" from a legitimately cached zero
// value or tombstone.
type Result[T any] struct {
	Data    T
	HasData bool
	Status  Status
}

// PageResult is the externally visible state of a paginated cold query.
// Results is either the live list (with pending optimistic predictions
// applied) or the last-known-good cached list - never a merge of the two
// page sets, since the live layer owns the pagination cursor.
type PageResult[T any] struct {
	Results   []T
	Status    PageStatus
	IsLoading bool
	IsStale   bool
}

// Options configure a Cache. Slot and Live are required.
type Options struct {
	// Slot is the durable medium holding this session's snapshot.
	Slot provider.Slot
	// Live is the authoritative query/subscription layer.
	Live LiveClient

	Logger Logger    // nil => NopLogger
	Hooks  Hooks     // nil => NopHooks
	Auth   AuthProbe // nil => always AuthSignedIn
}

// Cache owns the one engine of an application session and hands out query
// bindings. Construct exactly one per session and pass it where needed;
// the one-engine-per-session constraint is a constructor argument here, not
// an accident of package-level state.
type Cache struct {
	engine *Engine
	live   LiveClient
	log    Logger
	hooks  Hooks
	auth   AuthProbe
}

// New builds a Cache and synchronously loads the durable snapshot. It only
// fails on construction errors; a bad snapshot is recovered from, not
// reported (see Engine).
func New(opts Options) (*Cache, error) {
	if opts.Slot == nil {
		return nil, fmt.Errorf("coldcache: slot is required")
	}
	if opts.Live == nil {
		return nil, fmt.Errorf("coldcache: live client is required")
	}

	c := &Cache{
		live: opts.Live,
		auth: opts.Auth,
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.engine = newEngine(opts.Slot, c.log, c.hooks)
	return c, nil
}

// Engine exposes the session's cache engine: Ready, Take, Set, SetNoData.
func (c *Cache) Engine() *Engine { return c.engine }

// Close releases the durable slot. Open bindings should be closed first.
func (c *Cache) Close(ctx context.Context) error {
	return c.engine.slot.Close(ctx)
}

func (c *Cache) authState() AuthState {
	if c.auth == nil {
		return AuthSignedIn
	}
	return c.auth()
}
