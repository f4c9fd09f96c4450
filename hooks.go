package coldcache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the cache calls them
// synchronously on delivery and mutation paths.
type Hooks interface {
	// The durable snapshot failed to decode and was discarded wholesale.
	// The medium was wiped and the session starts with an empty cache.
	SnapshotDiscarded(err error)

	// A Slot.Save failed. The engine goes memory-only for the rest of the
	// session; fired once.
	PersistFailed(err error)

	// A paginated binding masked a transient empty page from the live layer
	// by substituting the cached snapshot.
	EmptyPageSuppressed(key string)

	// An optimistic prediction entered the pending queue.
	// pending is the queue depth after the push.
	PredictionPushed(id string, pending int)

	// A live snapshot satisfied a prediction's match and retired it.
	PredictionRetired(id string, pending int)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) SnapshotDiscarded(error)       {}
func (NopHooks) PersistFailed(error)           {}
func (NopHooks) EmptyPageSuppressed(string)    {}
func (NopHooks) PredictionPushed(string, int)  {}
func (NopHooks) PredictionRetired(string, int) {}
