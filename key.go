package coldcache

import (
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
)

// canonicalEnc encodes args for key derivation. Core Deterministic encoding
// sorts map keys, so two structurally equal argument sets hash identically
// regardless of how the caller assembled them.
var canonicalEnc cbor.EncMode

func init() {
	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		panic(fmt.Sprintf("coldcache: canonical enc mode: %v", err))
	}
	canonicalEnc = em
}

// queryKey derives the snapshot key for one logical query. Same query
// identity + structurally equal args (+ same pagination shape) must always
// produce the same key; that is the whole contract.
//
// The identity stays readable in the key for debuggability; the hash
// disambiguates args.
func queryKey(identity string, args any, page *PageOpts) (string, error) {
	argb, err := canonicalEnc.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("coldcache: args not encodable for key derivation: %w", err)
	}

	d := xxhash.New()
	_, _ = d.WriteString(identity)
	_, _ = d.Write([]byte{0})
	_, _ = d.Write(argb)
	if page != nil {
		pb, err := canonicalEnc.Marshal(page)
		if err != nil {
			return "", fmt.Errorf("coldcache: page opts not encodable: %w", err)
		}
		_, _ = d.Write([]byte{0})
		_, _ = d.Write(pb)
	}

	var sum [8]byte
	s := d.Sum64()
	for i := 0; i < 8; i++ {
		sum[i] = byte(s >> (56 - 8*i))
	}
	return "q:" + identity + ":" + hex.EncodeToString(sum[:]), nil
}
