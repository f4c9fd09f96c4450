package coldcache

import (
	"fmt"
	"sync"

	cd "github.com/unkn0wn-root/coldcache/codec"
)

// QueryOptions configure a single-value cold query binding.
type QueryOptions[T any] struct {
	// Identity is the logical query name, e.g. "threads.get".
	Identity string
	// Args are the query arguments, or Skip.
	Args any
	// Codec decodes live payloads into T. nil => CBOR.
	Codec cd.Codec[T]
	// OnChange, if set, is invoked after every externally visible state
	// transition with the new result. Called without internal locks held.
	OnChange func(Result[T])
}

// Query is one cold-cached single-value binding: a live subscription plus a
// stale seed taken once from the engine. The cached value is served (marked
// stale) until the live layer's first delivery, which then becomes the new
// source of truth and is written back through the engine.
type Query[T any] struct {
	c        *Cache
	identity string
	codec    cd.Codec[T]
	onChange func(Result[T])

	mu     sync.Mutex
	seq    int
	closed bool
	skip   bool
	key    string
	sub    Subscription

	// stale seed for the current key. staleChecked records that the engine
	// was consulted, so "known empty" is distinguishable from "not yet
	// checked" and the engine is never re-read for this binding.
	staleVal     T
	staleHas     bool
	staleNoData  bool
	staleChecked bool

	liveVal    T
	liveHas    bool
	liveLoaded bool
}

// NewQuery opens a binding for (identity, args) on the given cache.
func NewQuery[T any](c *Cache, opts QueryOptions[T]) (*Query[T], error) {
	if c == nil {
		return nil, fmt.Errorf("coldcache: cache is required")
	}
	if opts.Identity == "" {
		return nil, fmt.Errorf("coldcache: query identity is required")
	}

	q := &Query[T]{
		c:        c,
		identity: opts.Identity,
		onChange: opts.OnChange,
	}
	if opts.Codec != nil {
		q.codec = opts.Codec
	} else {
		q.codec = cd.MustCBOR[T](false)
	}

	q.mu.Lock()
	err := q.bindLocked(opts.Args)
	q.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Rebind switches the binding to new args: the old subscription and stale
// seed are torn down and the new key starts fresh. The old key's stale data
// never bleeds into the new one.
func (q *Query[T]) Rebind(args any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("coldcache: query is closed")
	}
	return q.bindLocked(args)
}

// Close tears down the live subscription. Current keeps returning the last
// state, but no further transitions happen.
func (q *Query[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	if q.sub != nil {
		q.sub.Close()
		q.sub = nil
	}
}

// Current resolves the externally visible result: live value if the
// subscription has delivered, else the stale seed, else initializing.
func (q *Query[T]) Current() Result[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.currentLocked()
}

func (q *Query[T]) currentLocked() Result[T] {
	switch {
	case q.liveLoaded:
		return Result[T]{Data: q.liveVal, HasData: q.liveHas, Status: StatusFresh}
	case q.staleChecked && (q.staleHas || q.staleNoData):
		return Result[T]{Data: q.staleVal, HasData: q.staleHas, Status: StatusStale}
	default:
		return Result[T]{Status: StatusInitializing}
	}
}

func (q *Query[T]) bindLocked(args any) error {
	if q.sub != nil {
		q.sub.Close()
		q.sub = nil
	}
	q.seq++
	var zero T
	q.staleVal, q.staleHas, q.staleNoData, q.staleChecked = zero, false, false, false
	q.liveVal, q.liveHas, q.liveLoaded = zero, false, false
	q.skip = false
	q.key = ""

	if _, isSkip := args.(skipSentinel); isSkip {
		// Skip short-circuits to initializing with no engine interaction.
		q.skip = true
		return nil
	}

	key, err := queryKey(q.identity, args, nil)
	if err != nil {
		return err
	}
	q.key = key

	if q.c.engine.Ready() {
		if ent, ok := q.c.engine.Take(key); ok {
			if ent.NoData {
				q.staleNoData = true
			} else if v, err := q.codec.Decode(ent.Payload); err != nil {
				// undecodable seed degrades to a cache miss
				q.c.log.Warn("stale seed decode failed; treating as miss", Fields{"key": key, "err": err})
			} else {
				q.staleVal = v
				q.staleHas = true
			}
		}
		q.staleChecked = true
	}

	// Subscribe may invoke deliver synchronously, and deliver takes q.mu;
	// drop the lock across the call. The seq guard covers a Rebind or Close
	// racing the unlocked window.
	bound := q.seq
	q.mu.Unlock()
	sub, err := q.c.live.Subscribe(q.identity, args, func(payload []byte, loaded bool) {
		q.deliver(bound, payload, loaded)
	})
	q.mu.Lock()
	if err != nil {
		return fmt.Errorf("coldcache: subscribe %s: %w", q.identity, err)
	}
	if q.closed || q.seq != bound {
		sub.Close()
		return nil
	}
	q.sub = sub
	return nil
}

// deliver applies one live emission. Deliveries for a superseded binding
// (old args after a Rebind) are dropped by the sequence check.
func (q *Query[T]) deliver(bound int, payload []byte, loaded bool) {
	q.mu.Lock()
	if q.closed || q.seq != bound {
		q.mu.Unlock()
		return
	}
	if !loaded {
		// still loading; no externally visible transition
		q.mu.Unlock()
		return
	}

	if payload == nil {
		// explicit "no data" from the authority; cache the fact itself
		var zero T
		q.liveVal, q.liveHas, q.liveLoaded = zero, false, true
		q.c.engine.SetNoData(q.key)
	} else {
		v, err := q.codec.Decode(payload)
		if err != nil {
			q.c.log.Warn("live payload decode failed; delivery dropped", Fields{"key": q.key, "err": err})
			q.mu.Unlock()
			return
		}
		q.liveVal, q.liveHas, q.liveLoaded = v, true, true
		q.c.engine.Set(q.key, payload)
	}

	res := q.currentLocked()
	cb := q.onChange
	q.mu.Unlock()

	if cb != nil {
		cb(res)
	}
}
