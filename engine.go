package coldcache

import (
	"context"
	"sort"
	"sync"

	"github.com/unkn0wn-root/coldcache/internal/wire"
	"github.com/unkn0wn-root/coldcache/provider"
)

// Entry is a cached record handed out by Engine.Take. NoData marks a
// tombstone: the server answered "nothing here", which is different from
// the key never having been cached.
type Entry struct {
	Payload []byte
	NoData  bool
}

// Engine is the in-memory cache over one durable Slot. One engine per
// application session; construct it through New and share the owning Cache.
//
// Take is consume-on-read: once an entry is handed to a consumer to seed its
// stale display, the engine drops its own reference. The consumer holds the
// value for its binding's lifetime; this keeps the engine from later
// overriding fresher in-memory state with a stale re-read.
//
// Set writes through to the Slot synchronously. A crash never loses the most
// recent successfully-fetched value, at the cost of rewriting the snapshot
// on every mutation.
type Engine struct {
	mu      sync.Mutex
	entries map[string]Entry
	ready   bool
	memOnly bool

	slot  provider.Slot
	log   Logger
	hooks Hooks
}

func newEngine(slot provider.Slot, log Logger, hooks Hooks) *Engine {
	e := &Engine{
		entries: make(map[string]Entry),
		slot:    slot,
		log:     log,
		hooks:   hooks,
	}
	e.load()
	return e
}

// load runs once at construction. Whatever the slot holds, the engine comes
// up ready: a missing snapshot starts empty, a malformed one is discarded
// wholesale and the medium wiped. A broken cache must never block startup.
func (e *Engine) load() {
	defer func() { e.ready = true }()

	raw, ok, err := e.slot.Load(context.Background())
	if err != nil {
		e.log.Warn("snapshot load failed; starting with empty cache", Fields{"err": err})
		return
	}
	if !ok {
		return
	}

	entries, err := wire.DecodeSnapshot(raw)
	if err != nil {
		serr := &SnapshotError{DecodeErr: err}
		if werr := e.slot.Wipe(context.Background()); werr != nil {
			serr.WipeErr = werr
		}
		e.log.Warn("snapshot corrupt; discarded wholesale", Fields{"err": serr})
		e.hooks.SnapshotDiscarded(serr)
		return
	}

	for _, we := range entries {
		e.entries[we.Key] = Entry{Payload: we.Payload, NoData: we.NoData()}
	}
}

// Ready reports whether the initial load has completed. Bindings do not
// read stale seeds from an engine that is not ready.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// Take returns the entry for key and removes the engine's reference to it.
// The second Take for the same key misses until the next Set.
func (e *Engine) Take(key string) (Entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.entries[key]
	if !ok {
		return Entry{}, false
	}
	delete(e.entries, key)
	return ent, ok
}

// Set stores payload under key and persists the snapshot synchronously.
func (e *Engine) Set(key string, payload []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries[key] = Entry{Payload: payload}
	e.persistLocked()
}

// SetNoData stores a tombstone under key: the live layer confirmed there is
// no data, and that fact itself is worth caching.
func (e *Engine) SetNoData(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries[key] = Entry{NoData: true}
	e.persistLocked()
}

// Len reports the number of live entries. Introspection only.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// persistLocked writes the whole snapshot through to the slot. Keys are
// sorted first, so equal logical content always yields identical bytes.
// The first failed save flips the engine to memory-only for the session:
// losing the durable cache is not data loss (the live layer remains the
// authority), so the failure is logged and swallowed, and the hot path
// stops paying for a dead medium.
func (e *Engine) persistLocked() {
	if e.memOnly {
		return
	}

	keys := make([]string, 0, len(e.entries))
	for k := range e.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	wentries := make([]wire.Entry, 0, len(keys))
	for _, k := range keys {
		ent := e.entries[k]
		var flags byte
		if ent.NoData {
			flags |= wire.FlagNoData
		}
		wentries = append(wentries, wire.Entry{Key: k, Flags: flags, Payload: ent.Payload})
	}

	snap, err := wire.EncodeSnapshot(wentries)
	if err != nil {
		e.log.Error("snapshot encode failed; entry not persisted", Fields{"err": err})
		return
	}

	if err := e.slot.Save(context.Background(), snap); err != nil {
		e.memOnly = true
		e.log.Warn("snapshot persist failed; cache is memory-only for this session", Fields{"err": err})
		e.hooks.PersistFailed(err)
	}
}
