package coldcache

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Prediction is a locally-synthesized mutation effect: Mutate rewrites the
// externally visible list (insert a synthetic pending item, patch a field
// by id), and Match recognizes the authoritative server data that makes the
// prediction obsolete.
type Prediction[T any] struct {
	Match  func(item T) bool
	Mutate func(list []T) []T
}

type pendingPrediction[T any] struct {
	id string
	p  Prediction[T]
}

// PredictionQueue holds pending optimistic predictions in FIFO order.
// It is deliberately free of any binding state so its invariants - FIFO
// application, retirement-on-match, retired-stays-retired - test standalone.
//
// A prediction whose server mutation never completes is never retired and
// its synthetic effect persists until the session is torn down; the queue
// has no timeout. Watch queue depth via the PredictionPushed/Retired hooks
// if that matters to you.
type PredictionQueue[T any] struct {
	mu      sync.Mutex
	pending []pendingPrediction[T]
}

func NewPredictionQueue[T any]() *PredictionQueue[T] {
	return &PredictionQueue[T]{}
}

// Push appends a prediction and returns its id for log correlation.
func (q *PredictionQueue[T]) Push(p Prediction[T]) string {
	id := uuid.NewString()
	q.mu.Lock()
	q.pending = append(q.pending, pendingPrediction[T]{id: id, p: p})
	q.mu.Unlock()
	return id
}

// RetireMatching drops every pending prediction whose Match is satisfied by
// any item in the incoming live list, and returns the retired ids. Once
// retired, a prediction is gone for good - a later snapshot transiently
// omitting the matched item does not resurrect it.
func (q *PredictionQueue[T]) RetireMatching(items []T) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var retired []string
	kept := q.pending[:0]
	for _, pp := range q.pending {
		matched := false
		for _, it := range items {
			if pp.p.Match(it) {
				matched = true
				break
			}
		}
		if matched {
			retired = append(retired, pp.id)
		} else {
			kept = append(kept, pp)
		}
	}
	q.pending = kept
	return retired
}

// ApplyAllPending re-applies every pending prediction to the incoming live
// list, in push order: a later prediction always sees the list with earlier
// still-pending predictions already applied.
func (q *PredictionQueue[T]) ApplyAllPending(items []T) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := items
	for _, pp := range q.pending {
		out = pp.p.Mutate(out)
	}
	return out
}

// Len reports the pending queue depth.
func (q *PredictionQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Mutator pairs the live mutation primitive with a paginated binding: the
// prediction is applied to the visible list synchronously, before the
// network round trip, and retired by the binding once matching server data
// arrives.
type Mutator[T any] struct {
	c    *Cache
	list *PaginatedQuery[T]
}

func NewMutator[T any](c *Cache, list *PaginatedQuery[T]) *Mutator[T] {
	return &Mutator[T]{c: c, list: list}
}

// Mutate fires the server mutation, first applying the optional local
// prediction. If the mutation ultimately fails on the server, the
// prediction stays pending (stuck synthetic item); see PredictionQueue.
func (m *Mutator[T]) Mutate(ctx context.Context, name string, args any, p *Prediction[T]) ([]byte, error) {
	if p != nil && m.list != nil {
		m.list.ApplyPrediction(*p)
	}
	return m.c.live.Mutate(ctx, name, args)
}
