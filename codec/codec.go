// Package codec defines the value (de)serialization used by coldcache.
//
// Cached payloads survive process restarts, so codecs must round-trip the
// structure the application cares about: timestamps, nested records, and the
// difference between an absent field and a null one. CBOR is the default for
// exactly that reason; JSON is available when payloads are simple.
package codec

// Codec encodes/decodes values V to []byte for the durable snapshot.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
