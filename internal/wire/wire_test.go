package wire

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	in := []Entry{
		{Key: "q:threads:aa", Payload: []byte("one")},
		{Key: "q:threads:bb", Flags: FlagNoData, Payload: nil},
		{Key: "q:threads:cc", Payload: []byte{}},
	}
	b, err := EncodeSnapshot(in)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	out, err := DecodeSnapshot(b)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("entry count: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Key != in[i].Key || out[i].Flags != in[i].Flags || !bytes.Equal(out[i].Payload, in[i].Payload) {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, out[i], in[i])
		}
	}
	if !out[1].NoData() {
		t.Fatalf("expected tombstone flag on entry 1")
	}
	if out[0].NoData() {
		t.Fatalf("unexpected tombstone flag on entry 0")
	}
}

func TestSnapshotDeterministicBytes(t *testing.T) {
	in := []Entry{
		{Key: "a", Payload: []byte("x")},
		{Key: "b", Payload: []byte("y")},
	}
	b1, err := EncodeSnapshot(in)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	b2, err := EncodeSnapshot(in)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("snapshot bytes not stable across encodes")
	}
}

func TestDecodeSnapshotRejectsTrailing(t *testing.T) {
	b, err := EncodeSnapshot([]Entry{{Key: "k", Payload: []byte("v")}})
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	b = append(b, 0xDE, 0xAD)
	if _, err := DecodeSnapshot(b); err == nil {
		t.Fatalf("DecodeSnapshot should reject trailing bytes")
	}
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":      nil,
		"not_wire":   []byte("definitely not a snapshot"),
		"bad_magic":  {'W', 'A', 'R', 'M', 1, 1, 0, 0, 0, 0},
		"bad_kind":   {'C', 'O', 'L', 'D', 1, 9, 0, 0, 0, 0},
		"truncated":  {'C', 'O', 'L', 'D', 1, 1, 0, 0, 0, 2, 0, 1, 'k'},
		"bad_keylen": {'C', 'O', 'L', 'D', 1, 1, 0, 0, 0, 1, 0, 0},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeSnapshot(b); err == nil {
				t.Fatalf("DecodeSnapshot should reject %s input", name)
			}
		})
	}
}

// Bogus n must not preallocate huge capacity and must error cleanly.
func TestDecodeSnapshotFakeN(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{'C', 'O', 'L', 'D'})
	buf.WriteByte(1)
	buf.WriteByte(1)
	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], ^uint32(0))
	buf.Write(u4[:])

	if _, err := DecodeSnapshot(buf.Bytes()); err == nil {
		t.Fatalf("DecodeSnapshot should fail on wrong n with insufficient bytes")
	}
}

func TestEncodeSnapshotKeyLengthValidation(t *testing.T) {
	if _, err := EncodeSnapshot([]Entry{{Key: "", Payload: []byte("x")}}); err == nil {
		t.Fatalf("EncodeSnapshot should error on empty key")
	}
	longKey := strings.Repeat("a", 0x10000)
	if _, err := EncodeSnapshot([]Entry{{Key: longKey, Payload: []byte("x")}}); err == nil {
		t.Fatalf("EncodeSnapshot should error on key length > 0xFFFF")
	}
	boundaryKey := strings.Repeat("b", 0xFFFF)
	if _, err := EncodeSnapshot([]Entry{{Key: boundaryKey, Payload: []byte("x")}}); err != nil {
		t.Fatalf("EncodeSnapshot should succeed at 0xFFFF key length, got: %v", err)
	}
}

func TestListRoundTripPreservesOrder(t *testing.T) {
	in := [][]byte{[]byte("newest"), []byte("older"), {}, []byte("oldest")}
	out, err := DecodeList(EncodeList(in))
	if err != nil {
		t.Fatalf("DecodeList: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("item count: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if !bytes.Equal(out[i], in[i]) {
			t.Fatalf("item %d mismatch: %q vs %q", i, out[i], in[i])
		}
	}
}

func TestDecodeListRejectsTrailing(t *testing.T) {
	b := EncodeList([][]byte{[]byte("v")})
	b = append(b, 0xBE, 0xEF)
	if _, err := DecodeList(b); err == nil {
		t.Fatalf("DecodeList should reject trailing bytes")
	}
}

func TestListKindsDoNotCross(t *testing.T) {
	snap, err := EncodeSnapshot([]Entry{{Key: "k", Payload: []byte("v")}})
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	if _, err := DecodeList(snap); err == nil {
		t.Fatalf("DecodeList should reject snapshot-kind frames")
	}
	if _, err := DecodeSnapshot(EncodeList(nil)); err == nil {
		t.Fatalf("DecodeSnapshot should reject list-kind frames")
	}
}
