package codec

import "encoding/json"

// JSON is a Codec backed by encoding/json. Fine for flat payloads; note that
// JSON collapses absent-vs-null and loses time zone precision on some types,
// which is why CBOR is the default elsewhere.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
