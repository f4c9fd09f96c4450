package coldcache

import (
	"context"
	"sync"
	"time"
)

// fakeSlot is an in-memory Slot with spies and failure injection.
type fakeSlot struct {
	mu      sync.Mutex
	data    []byte
	has     bool
	saves   int
	wipes   int
	saveErr error
	loadErr error
}

func (s *fakeSlot) Load(_ context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, false, s.loadErr
	}
	if !s.has {
		return nil, false, nil
	}
	return s.data, true, nil
}

func (s *fakeSlot) Save(_ context.Context, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.data = append([]byte(nil), snapshot...)
	s.has = true
	return nil
}

func (s *fakeSlot) Wipe(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipes++
	s.data, s.has = nil, false
	return nil
}

func (s *fakeSlot) Close(_ context.Context) error { return nil }

func (s *fakeSlot) snapshot() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...), s.has
}

func (s *fakeSlot) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// spyHooks counts hook invocations.
type spyHooks struct {
	mu         sync.Mutex
	discarded  int
	persist    int
	suppressed int
	pushed     []string
	retired    []string
}

func (h *spyHooks) SnapshotDiscarded(error)    { h.mu.Lock(); h.discarded++; h.mu.Unlock() }
func (h *spyHooks) PersistFailed(error)        { h.mu.Lock(); h.persist++; h.mu.Unlock() }
func (h *spyHooks) EmptyPageSuppressed(string) { h.mu.Lock(); h.suppressed++; h.mu.Unlock() }
func (h *spyHooks) PredictionPushed(id string, _ int) {
	h.mu.Lock()
	h.pushed = append(h.pushed, id)
	h.mu.Unlock()
}
func (h *spyHooks) PredictionRetired(id string, _ int) {
	h.mu.Lock()
	h.retired = append(h.retired, id)
	h.mu.Unlock()
}

type fakeSub struct{ onClose func() }

func (s *fakeSub) Close() {
	if s.onClose != nil {
		s.onClose()
	}
}

type fakePagSub struct {
	fakeSub
	loadMore []int
}

func (s *fakePagSub) LoadMore(n int) { s.loadMore = append(s.loadMore, n) }

// fakeLive is a hand-driven live layer: tests push deliveries through the
// captured callbacks.
type fakeLive struct {
	subscribes     int
	pageSubscribes int
	subsClosed     int

	deliver     func(payload []byte, loaded bool)
	pageDeliver func(Page)
	pagSub      *fakePagSub

	mutations  []string
	onMutate   func(name string, args any)
	mutateResp []byte
	mutateErr  error
}

func (f *fakeLive) Subscribe(_ string, _ any, deliver func([]byte, bool)) (Subscription, error) {
	f.subscribes++
	f.deliver = deliver
	return &fakeSub{onClose: func() { f.subsClosed++ }}, nil
}

func (f *fakeLive) SubscribePaginated(_ string, _ any, _ PageOpts, deliver func(Page)) (PaginatedSubscription, error) {
	f.pageSubscribes++
	f.pageDeliver = deliver
	f.pagSub = &fakePagSub{fakeSub: fakeSub{onClose: func() { f.subsClosed++ }}}
	return f.pagSub, nil
}

func (f *fakeLive) Mutate(_ context.Context, name string, args any) ([]byte, error) {
	f.mutations = append(f.mutations, name)
	if f.onMutate != nil {
		f.onMutate(name, args)
	}
	return f.mutateResp, f.mutateErr
}

// eagerLive delivers the first value from inside Subscribe itself, which
// the contract permits when the value is already available.
type eagerLive struct {
	fakeLive
	payload []byte
	page    Page
}

func (f *eagerLive) Subscribe(identity string, args any, deliver func([]byte, bool)) (Subscription, error) {
	sub, err := f.fakeLive.Subscribe(identity, args, deliver)
	if err == nil {
		deliver(f.payload, true)
	}
	return sub, err
}

func (f *eagerLive) SubscribePaginated(identity string, args any, opts PageOpts, deliver func(Page)) (PaginatedSubscription, error) {
	sub, err := f.fakeLive.SubscribePaginated(identity, args, opts, deliver)
	if err == nil {
		deliver(f.page)
	}
	return sub, err
}

// thread is the payload type used across the tests.
type thread struct {
	ID        string    `cbor:"id"`
	Title     string    `cbor:"title"`
	LiveState string    `cbor:"liveState"`
	UpdatedAt time.Time `cbor:"updatedAt"`
}
