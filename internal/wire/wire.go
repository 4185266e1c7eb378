// Package wire defines the framed snapshot format used by cache dump
// files. A snapshot is a header followed by length-prefixed entry
// records; all integers are big-endian.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

var (
	ErrCorrupt = errors.New("wire: corrupt snapshot")
	magic4     = [...]byte{'C', 'X', 'S', 'N'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Record is one serialized cache entry. Touched and TTL carry the
// entry's expiration fields in milliseconds (TTL 0 = no expiration);
// Payload is the codec-encoded value.
type Record struct {
	Key     string
	Touched int64
	TTL     int64
	Payload []byte
}

// Snapshot layout:
//
//	magic(4) | ver(1) | n(u32 be)
//	keyLen(u16 be) | key | touched(i64 be) | ttl(i64 be) | vlen(u32 be) | payload * n
func EncodeSnapshot(recs []Record) []byte {
	total := 4 + 1 + 4
	for _, r := range recs {
		total += 2 + len(r.Key) + 8 + 8 + 4 + len(r.Payload)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)

	var u8 [8]byte
	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(recs)))
	buf.Write(u4[:])

	for _, r := range recs {
		if l := len(r.Key); l > 0xFFFF {
			panic("wire: invalid key length in snapshot")
		}
		binary.BigEndian.PutUint16(u2[:], uint16(len(r.Key)))
		buf.Write(u2[:])
		buf.WriteString(r.Key)

		binary.BigEndian.PutUint64(u8[:], uint64(r.Touched))
		buf.Write(u8[:])

		binary.BigEndian.PutUint64(u8[:], uint64(r.TTL))
		buf.Write(u8[:])

		binary.BigEndian.PutUint32(u4[:], uint32(len(r.Payload)))
		buf.Write(u4[:])
		buf.Write(r.Payload)
	}

	return buf.Bytes()
}

func DecodeSnapshot(b []byte) ([]Record, error) {
	const hdr = 4 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version {
		return nil, ErrCorrupt
	}

	off := 5

	n := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if n < 0 {
		return nil, ErrCorrupt
	}

	recs := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		if off+2 > len(b) {
			return nil, ErrCorrupt
		}
		klen := int(binary.BigEndian.Uint16(b[off : off+2]))
		off += 2
		if klen > len(b)-off {
			return nil, ErrCorrupt
		}

		keyBytes := b[off : off+klen]
		off += klen

		if off+16 > len(b) {
			return nil, ErrCorrupt
		}
		touched := int64(binary.BigEndian.Uint64(b[off : off+8]))
		off += 8
		ttl := int64(binary.BigEndian.Uint64(b[off : off+8]))
		off += 8

		if off+4 > len(b) {
			return nil, ErrCorrupt
		}
		vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if vlen < 0 || vlen > len(b)-off { // overflow-safe bound check
			return nil, ErrCorrupt
		}

		payload := b[off : off+vlen]
		off += vlen

		recs = append(recs, Record{
			Key:     string(keyBytes),
			Touched: touched,
			TTL:     ttl,
			Payload: payload,
		})
	}

	return recs, nil
}
