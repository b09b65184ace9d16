package lintflow

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// cacheRecord is the minimal value stored per cache entry: enough to decide
// whether a future run may skip the file, nothing more.
type cacheRecord struct {
	Path       string // normalized file path
	Clean      bool   // true when the analysis found zero violations
	Violations int    // violation count of the recorded run
}

// marshalCacheRecord serializes a cacheRecord using MUS with varint encoding.
func marshalCacheRecord(rec cacheRecord) []byte {
	buf := make([]byte, cacheRecordSize(rec))
	n := ord.MarshalString(rec.Path, varint.PositiveInt, buf)
	n += ord.Bool.Marshal(rec.Clean, buf[n:])
	n += varint.PositiveInt.Marshal(rec.Violations, buf[n:])
	return buf[:n]
}

// unmarshalCacheRecord deserializes a cacheRecord from MUS format.
func unmarshalCacheRecord(buf []byte) (cacheRecord, error) {
	var rec cacheRecord
	var n int

	length, m, err := varint.PositiveInt.Unmarshal(buf)
	if err != nil {
		return rec, fmt.Errorf("failed to read Path length: %w", err)
	}
	n += m
	if len(buf[n:]) < length {
		return rec, fmt.Errorf("buffer too small for Path of length %d", length)
	}
	rec.Path = string(buf[n : n+length])
	n += length

	clean, m, err := ord.Bool.Unmarshal(buf[n:])
	if err != nil {
		return rec, fmt.Errorf("failed to unmarshal Clean: %w", err)
	}
	rec.Clean = clean
	n += m

	count, _, err := varint.PositiveInt.Unmarshal(buf[n:])
	if err != nil {
		return rec, fmt.Errorf("failed to unmarshal Violations: %w", err)
	}
	rec.Violations = count

	return rec, nil
}

// cacheRecordSize calculates the exact buffer size needed for MUS encoding.
func cacheRecordSize(rec cacheRecord) int {
	size := ord.SizeString(rec.Path, varint.PositiveInt)
	size += ord.Bool.Size(rec.Clean)
	size += varint.PositiveInt.Size(rec.Violations)
	return size
}
