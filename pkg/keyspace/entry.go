package keyspace

import (
	"sync"
	"time"
)

// valueType tags which of the three variants an entry currently holds. A key has exactly one type at any
// instant; type-mismatched operations fail without mutating the entry.
type valueType uint8

const (
	typeString valueType = iota
	typeList
	typeHash
)

func (vt valueType) String() string {
	switch vt {
	case typeString:
		return "string"
	case typeList:
		return "list"
	case typeHash:
		return "hash"
	default:
		return "none"
	}
}

// entry is one keyspace slot. Every field access goes through the entry's own mutex: per-key operations
// are individually atomic, but the Store never holds more than one entry lock at a time (multi-key
// operations like MSET/DEL/MGET are atomic per-key, not across keys, per §5).
type entry struct {
	mu sync.Mutex

	typ valueType
	str []byte
	list *dlist
	hash map[string][]byte

	expireAt  time.Time // Zero value means no TTL.
	lastWrite int64     // UnixNano of the last successful mutation; enforces monotonic last-write-wins.
}

func newStringEntry(v []byte) *entry {
	return &entry{typ: typeString, str: v}
}

func newListEntry() *entry {
	return &entry{typ: typeList, list: newDList()}
}

func newHashEntry() *entry {
	return &entry{typ: typeHash, hash: make(map[string][]byte)}
}

// expired reports whether e has a TTL that has already elapsed, as of now.
func (e *entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// touch enforces the monotonic-timestamp write discipline (§4.2, §9): a write's assigned timestamp must be
// strictly greater than the entry's stored one. The decision recorded for the "timestamp resolution" open
// question is to preserve the observable collision error rather than add a tiebreaker, so this is the only
// place that decision is encoded.
func (e *entry) touch(now time.Time) error {
	ts := now.UnixNano()
	if ts <= e.lastWrite {
		return ErrStaleTimestamp
	}
	e.lastWrite = ts
	return nil
}

// assignTimestamp enforces the same monotonic discipline as touch, but against an explicit previous
// timestamp rather than an entry's own field. It exists because a write that replaces an entry wholesale
// (SET, MSET, a fresh CAS) allocates a new *entry and must still be compared against whatever timestamp
// the key previously carried, not against the fresh zero-valued entry's own field.
func assignTimestamp(prevLastWrite int64, now time.Time) (int64, error) {
	ts := now.UnixNano()
	if ts <= prevLastWrite {
		return 0, ErrStaleTimestamp
	}
	return ts, nil
}

// ttlSeconds returns the TTL encoding used by the TTL/EXPIRE family: -1 means no expiry, a non-negative
// integer is seconds remaining. Callers are expected to have already checked existence (-2 is handled by
// the Store, which is the only layer that knows about absence).
func (e *entry) ttlSeconds(now time.Time) int64 {
	if e.expireAt.IsZero() {
		return -1
	}
	remaining := e.expireAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return int64(remaining.Seconds())
}
