// Package provider defines the durable storage abstraction used by coldcache.
//
// A Slot is a single named blob of bytes: the whole cache snapshot is loaded
// from it once at startup and rewritten on every cache mutation. Slots MUST
// be byte-for-byte transparent: Load must return exactly the bytes most
// recently passed to Save (no metadata, no transcoding). Snapshot framing
// and corruption detection are the engine's job, not the slot's.
//
// Multiple processes may point at the same slot; there is no invalidation
// signal between them, so the last writer to Save wins. That is acceptable
// for a single-user client and a deliberate non-goal beyond it.
package provider

import "context"

// Slot is a durable byte slot.
type Slot interface {
	// Load returns (snapshot, true, nil) when the slot holds bytes,
	// (nil, false, nil) when it has never been written or was wiped, and
	// (nil, false, err) on a medium error.
	Load(ctx context.Context) ([]byte, bool, error)

	// Save replaces the slot contents. Implementations should make the
	// replacement atomic where the medium allows it; a torn write shows up
	// later as a corrupt snapshot, which the engine discards wholesale.
	Save(ctx context.Context, snapshot []byte) error

	// Wipe clears the slot. Wiping an empty slot is not an error.
	Wipe(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}
