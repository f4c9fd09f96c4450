// Package coldcache implements a stale-while-revalidate query cache for
// clients of a live query/subscription layer. Query results are persisted
// to a durable Slot and replayed on the next session's first paint, marked
// stale until the live subscription confirms; an optimistic overlay shows
// locally-predicted mutation effects until matching server data arrives.
//
// Components:
//   - provider.Slot: durable byte slot holding the whole snapshot
//     (file, SQLite, redis).
//   - Engine: in-memory map over the Slot; consume-on-read Take,
//     synchronous write-through Set.
//   - Query[T] / PaginatedQuery[T]: cold bindings pairing one live
//     subscription with a stale seed; results carry an explicit
//     stale/fresh status so the UI can dim rather than hide.
//   - PredictionQueue[T] / Mutator[T]: FIFO optimistic-prediction overlay,
//     retired when the live feed delivers matching data.
//
// The live layer stays authoritative throughout: losing the durable cache
// is never data loss, and every internal failure (corrupt snapshot, failed
// persist, undecodable payload) degrades to a cache miss instead of an
// error at the binding surface.
package coldcache
