package coldcache

import (
	"fmt"
	"sync"

	cd "github.com/unkn0wn-root/coldcache/codec"
	"github.com/unkn0wn-root/coldcache/internal/wire"
)

// PaginatedQueryOptions configure a paginated cold query binding.
type PaginatedQueryOptions[T any] struct {
	// Identity is the logical query name, e.g. "threads.list".
	Identity string
	// Args are the query arguments, or Skip.
	Args any
	// Page is the pagination shape; it participates in key derivation.
	Page PageOpts
	// Codec decodes live list items into T. nil => CBOR.
	Codec cd.Codec[T]
	// OnChange, if set, is invoked after every externally visible state
	// transition. Called without internal locks held.
	OnChange func(PageResult[T])
}

// PaginatedQuery is the cold-cached binding for an incrementally-paged,
// ordered list. It presents either the live page set (with pending
// optimistic predictions applied) or the last-known-good cached list, never
// a merge of both: the live layer owns the pagination cursor and the cached
// snapshot is a fixed point-in-time page set used only for the first paint.
type PaginatedQuery[T any] struct {
	c        *Cache
	identity string
	codec    cd.Codec[T]
	pageOpts PageOpts
	onChange func(PageResult[T])

	mu     sync.Mutex
	seq    int
	closed bool
	skip   bool
	key    string
	sub    PaginatedSubscription

	stale        []T
	staleHas     bool
	staleChecked bool

	// visible is the live list after prediction overlay; valid once
	// liveUsable. suppressing marks a transient settled-empty page being
	// masked by the snapshot.
	visible          []T
	liveUsable       bool
	liveSeen         bool
	liveNonEmptySeen bool
	liveStatus       PageStatus
	liveLoading      bool
	suppressing      bool
	suppressedOnce   bool

	queue *PredictionQueue[T]
}

// NewPaginatedQuery opens a paginated binding for (identity, args, page).
func NewPaginatedQuery[T any](c *Cache, opts PaginatedQueryOptions[T]) (*PaginatedQuery[T], error) {
	if c == nil {
		return nil, fmt.Errorf("coldcache: cache is required")
	}
	if opts.Identity == "" {
		return nil, fmt.Errorf("coldcache: query identity is required")
	}

	q := &PaginatedQuery[T]{
		c:        c,
		identity: opts.Identity,
		pageOpts: opts.Page,
		onChange: opts.OnChange,
		queue:    NewPredictionQueue[T](),
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

// Rebind switches the binding to new args. The live subscription and stale
// seed restart for the new key; pending optimistic predictions survive (the
// list they target is identity-stable across navigation).
func (q *PaginatedQuery[T]) Rebind(args any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("coldcache: query is closed")
	}
	return q.bindLocked(args)
}

// Close tears down the live subscription.
func (q *PaginatedQuery[T]) Close() {
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

// LoadMore asks the live layer for n more items. Always delegated; the
// cached snapshot is never paginated locally. A no-op in skip mode.
func (q *PaginatedQuery[T]) LoadMore(n int) {
	q.mu.Lock()
	sub := q.sub
	q.mu.Unlock()
	if sub != nil {
		sub.LoadMore(n)
	}
}

// Queue exposes the binding's prediction queue (e.g. for depth monitoring).
func (q *PaginatedQuery[T]) Queue() *PredictionQueue[T] { return q.queue }

// ApplyPrediction applies an optimistic prediction to the externally
// visible list immediately and queues it for retirement once matching
// server data arrives. Returns the prediction id.
func (q *PaginatedQuery[T]) ApplyPrediction(p Prediction[T]) string {
	q.mu.Lock()
	// Push under q.mu: a delivery interleaving between push and the visible
	// mutation would apply the prediction through ApplyAllPending and then
	// see it applied a second time below.
	id := q.queue.Push(p)
	switch {
	case q.liveUsable:
		q.visible = p.Mutate(q.visible)
	case q.staleHas:
		// display-only; the snapshot itself is rewritten solely from live
		// deliveries, so predictions never persist across reload
		q.stale = p.Mutate(q.stale)
	default:
		q.stale = p.Mutate(nil)
		q.staleHas = len(q.stale) > 0
		q.staleChecked = true
	}
	res := q.currentLocked()
	cb := q.onChange
	depth := q.queue.Len()
	q.mu.Unlock()

	q.c.hooks.PredictionPushed(id, depth)
	if cb != nil {
		cb(res)
	}
	return id
}

// Current resolves the externally visible page result.
func (q *PaginatedQuery[T]) Current() PageResult[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.currentLocked()
}

func (q *PaginatedQuery[T]) currentLocked() PageResult[T] {
	// Auth gating first: a signed-in user must never see a false "no
	// items" flash during the handshake; an anonymous user sees a
	// deliberate empty list, not a spinner.
	switch q.c.authState() {
	case AuthEstablishing:
		return PageResult[T]{
			Results:   q.stale,
			Status:    PageLoadingFirstPage,
			IsLoading: true,
			IsStale:   q.staleHas,
		}
	case AuthSignedOut:
		return PageResult[T]{Status: PageExhausted}
	}

	if q.skip {
		return PageResult[T]{Status: PageLoadingFirstPage, IsLoading: true}
	}

	if q.suppressing {
		return PageResult[T]{
			Results: q.stale,
			Status:  q.liveStatus,
			IsStale: true,
		}
	}

	if q.liveUsable {
		return PageResult[T]{
			Results:   q.visible,
			Status:    q.liveStatus,
			IsLoading: q.liveLoading,
		}
	}

	if q.staleChecked && q.staleHas {
		status := PageLoadingFirstPage
		if q.liveSeen {
			status = q.liveStatus
		}
		return PageResult[T]{
			Results:   q.stale,
			Status:    status,
			IsLoading: true,
			IsStale:   true,
		}
	}

	return PageResult[T]{Status: PageLoadingFirstPage, IsLoading: true}
}

func (q *PaginatedQuery[T]) bindLocked(args any) error {
	if q.sub != nil {
		q.sub.Close()
		q.sub = nil
	}
	q.seq++
	q.stale, q.staleHas, q.staleChecked = nil, false, false
	q.visible, q.liveUsable, q.liveSeen = nil, false, false
	q.liveNonEmptySeen, q.suppressing, q.suppressedOnce = false, false, false
	q.liveStatus, q.liveLoading = PageLoadingFirstPage, true
	q.skip = false
	q.key = ""

	if _, isSkip := args.(skipSentinel); isSkip {
		q.skip = true
		return nil
	}

	key, err := queryKey(q.identity, args, &q.pageOpts)
	if err != nil {
		return err
	}
	q.key = key

	if q.c.engine.Ready() {
		if ent, ok := q.c.engine.Take(key); ok && !ent.NoData {
			if items, err := q.decodeList(ent.Payload); err != nil {
				q.c.log.Warn("stale page snapshot decode failed; treating as miss", Fields{"key": key, "err": err})
			} else {
				q.stale = items
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
	sub, err := q.c.live.SubscribePaginated(q.identity, args, q.pageOpts, func(p Page) {
		q.deliver(bound, p)
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

// deliver applies one live page emission.
func (q *PaginatedQuery[T]) deliver(bound int, p Page) {
	q.mu.Lock()
	if q.closed || q.seq != bound {
		q.mu.Unlock()
		return
	}

	q.liveSeen = true
	q.liveStatus = p.Status
	q.liveLoading = p.IsLoading

	items := make([]T, 0, len(p.Results))
	for _, raw := range p.Results {
		v, err := q.codec.Decode(raw)
		if err != nil {
			q.c.log.Warn("live page item decode failed; item dropped", Fields{"key": q.key, "err": err})
			continue
		}
		items = append(items, v)
	}

	var retired []string
	settled := !p.IsLoading

	switch {
	case len(items) == 0 && settled && q.staleHas && len(q.stale) > 0 && !q.liveNonEmptySeen:
		// The live pagination layer can report "exhausted, not loading,
		// zero results" for one emission right before the real first page.
		// Substitute the snapshot instead of flashing an empty list.
		q.suppressing = true
		if !q.suppressedOnce {
			q.suppressedOnce = true
			q.c.hooks.EmptyPageSuppressed(q.key)
		}
	case len(items) == 0 && !settled:
		// ordinary first-page loading; no visible change yet
	default:
		if len(items) > 0 {
			q.liveNonEmptySeen = true
		}
		q.suppressing = false
		retired = q.queue.RetireMatching(items)
		q.visible = q.queue.ApplyAllPending(items)
		q.liveUsable = true
		// persist the authoritative list only - predictions are
		// display-state and never reach the snapshot
		q.c.engine.Set(q.key, wire.EncodeList(p.Results))
	}

	res := q.currentLocked()
	cb := q.onChange
	depth := q.queue.Len()
	q.mu.Unlock()

	for _, id := range retired {
		q.c.hooks.PredictionRetired(id, depth)
	}
	if cb != nil {
		cb(res)
	}
}

func (q *PaginatedQuery[T]) decodeList(payload []byte) ([]T, error) {
	raw, err := wire.DecodeList(payload)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(raw))
	for _, rb := range raw {
		v, err := q.codec.Decode(rb)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}
