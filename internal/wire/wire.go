package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	version      byte = 1
	kindSnapshot byte = 1
	kindList     byte = 2

	// FlagNoData marks a tombstone: the server answered and the answer was
	// "no data". Distinct from a key simply being absent from the snapshot.
	FlagNoData byte = 1 << 0
)

var (
	ErrCorrupt = errors.New("coldcache: corrupt snapshot")
	magic4     = [...]byte{'C', 'O', 'L', 'D'}
)

// Entry is one persisted cache record.
type Entry struct {
	Key     string
	Flags   byte
	Payload []byte
}

func (e Entry) NoData() bool { return e.Flags&FlagNoData != 0 }

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// EncodeSnapshot frames the whole cache as one blob:
//
//	magic(4) | ver(1) | kind(1=snapshot) | n(u32 be)
//	keyLen(u16 be) | key | flags(u8) | vlen(u32 be) | payload * n
//
// Entries must already be in ascending key order; equal logical content then
// always produces identical bytes, so re-persisting an unchanged cache is a
// byte-stable no-op at the medium.
func EncodeSnapshot(entries []Entry) ([]byte, error) {
	total := 4 + 1 + 1 + 4
	for _, e := range entries {
		total += 2 + len(e.Key) + 1 + 4 + len(e.Payload)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindSnapshot)

	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(entries)))
	buf.Write(u4[:])

	for _, e := range entries {
		if l := len(e.Key); l == 0 || l > 0xFFFF {
			return nil, fmt.Errorf("coldcache: invalid key length %d in snapshot", l)
		}
		binary.BigEndian.PutUint16(u2[:], uint16(len(e.Key)))
		buf.Write(u2[:])
		buf.WriteString(e.Key)

		buf.WriteByte(e.Flags)

		binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
		buf.Write(u4[:])
		buf.Write(e.Payload)
	}

	return buf.Bytes(), nil
}

// DecodeSnapshot parses a snapshot blob. Any framing violation, including
// trailing bytes, returns ErrCorrupt; the caller discards the whole snapshot.
func DecodeSnapshot(b []byte) ([]Entry, error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindSnapshot {
		return nil, ErrCorrupt
	}

	off := 6

	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if n < 0 {
		return nil, ErrCorrupt
	}

	// do not trust n for preallocation; a bogus header must not OOM
	entries := make([]Entry, 0, min(n, 1024))
	for i := 0; i < n; i++ {
		if off+2 > len(b) {
			return nil, ErrCorrupt
		}
		klen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if klen <= 0 || klen > len(b)-off {
			return nil, ErrCorrupt
		}
		keyBytes := b[off : off+klen]
		off += klen

		if off+1 > len(b) {
			return nil, ErrCorrupt
		}
		flags := b[off]
		off++

		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if vlen < 0 || vlen > len(b)-off {
			return nil, ErrCorrupt
		}
		payload := b[off : off+vlen]
		off += vlen

		entries = append(entries, Entry{
			Key:     string(keyBytes),
			Flags:   flags,
			Payload: payload,
		})
	}

	if off != len(b) {
		return nil, ErrCorrupt
	}
	return entries, nil
}

// EncodeList frames an ordered page set as one snapshot value:
//
//	magic(4) | ver(1) | kind(2=list) | n(u32 be) | (vlen(u32 be) | payload) * n
//
// Item order is preserved; a cached page set is a fixed point-in-time list.
func EncodeList(items [][]byte) []byte {
	total := 4 + 1 + 1 + 4
	for _, it := range items {
		total += 4 + len(it)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindList)

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(items)))
	buf.Write(u4[:])

	for _, it := range items {
		binary.BigEndian.PutUint32(u4[:], uint32(len(it)))
		buf.Write(u4[:])
		buf.Write(it)
	}

	return buf.Bytes()
}

// DecodeList parses a list value. Strict framing, same rules as DecodeSnapshot.
func DecodeList(b []byte) ([][]byte, error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindList {
		return nil, ErrCorrupt
	}

	off := 6

	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if n < 0 {
		return nil, ErrCorrupt
	}

	items := make([][]byte, 0, min(n, 1024))
	for i := 0; i < n; i++ {
		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if vlen < 0 || vlen > len(b)-off {
			return nil, ErrCorrupt
		}
		items = append(items, b[off:off+vlen])
		off += vlen
	}

	if off != len(b) {
		return nil, ErrCorrupt
	}
	return items, nil
}
