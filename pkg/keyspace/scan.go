package keyspace

import (
	"iter"
	"sort"

	"github.com/mehrantsi/feox/pkg/scan"
	"github.com/mehrantsi/feox/pkg/utils"
)

// scanSnapshotCacheKey is the sole key used in s.scanCache: the store has exactly one keyspace, so there is
// only ever one live-key snapshot to cache.
const scanSnapshotCacheKey = 0

// sortedLiveKeys returns a sorted snapshot of every live (non-expired) key, reusing a recent snapshot from
// s.scanCache when available instead of re-walking and re-sorting every shard on every call.
func (s *Store) sortedLiveKeys() []string {
	if cached, ok := s.scanCache.Get(scanSnapshotCacheKey); ok {
		return cached
	}

	now := s.now()
	keys := make([]string, 0)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, e := range sh.entries {
			if !e.expired(now) {
				keys = append(keys, k)
			}
		}
		sh.mu.RUnlock()
	}
	sort.Strings(keys)
	s.scanCache.Add(scanSnapshotCacheKey, keys, scanSnapshotTTL)
	return keys
}

// liveKeyPairs yields every live key as a BytePair with an empty value, in sorted order (so repeated KEYS
// calls against an unchanging keyspace are deterministic — useful for tests and diffable output).
func (s *Store) liveKeyPairs() iter.Seq[utils.BytePair] {
	keys := s.sortedLiveKeys()
	return func(yield func(utils.BytePair) bool) {
		for _, k := range keys {
			if !yield(utils.BytePair{Key: []byte(k)}) {
				return
			}
		}
	}
}

// Keys implements `keys(glob)`: a snapshot list of matching keys.
func (s *Store) Keys(pattern []byte) [][]byte {
	out := make([][]byte, 0)
	for pair := range scan.MatchGlob(pattern, s.liveKeyPairs()) {
		out = append(out, pair.Key)
	}
	return out
}

// ScanResult is returned by Scan: NextCursor is 0 once the scan has covered every key.
type ScanResult struct {
	NextCursor uint64
	Keys       [][]byte
}

// Scan implements `scan(cursor, match?, count?)`. Since the keyspace is an ordinary Go map rather than a
// structure with stable bucket addressing, the cursor is a plain offset into the sorted key snapshot from
// sortedLiveKeys, which is reused for up to scanSnapshotTTL and then recomputed — this trades "keys added or
// removed during a scan might be missed or repeated" (already allowed by Redis's own loose guarantees) for a
// simple, restartable, allocation-bounded cursor.
func (s *Store) Scan(cursor uint64, match []byte, count int) ScanResult {
	if count <= 0 {
		count = 10
	}
	if count > 10000 {
		count = 10000
	}

	keys := s.sortedLiveKeys()

	start := int(cursor)
	if start >= len(keys) {
		return ScanResult{NextCursor: 0, Keys: [][]byte{}}
	}
	end := min(start+count, len(keys))

	batch := make([]utils.BytePair, end-start)
	for i, k := range keys[start:end] {
		batch[i] = utils.BytePair{Key: []byte(k)}
	}

	matched := make([][]byte, 0, len(batch))
	if match != nil {
		seq := func(yield func(utils.BytePair) bool) {
			for _, p := range batch {
				if !yield(p) {
					return
				}
			}
		}
		for pair := range scan.MatchGlob(match, seq) {
			matched = append(matched, pair.Key)
		}
	} else {
		for _, p := range batch {
			matched = append(matched, p.Key)
		}
	}

	next := uint64(end)
	if end >= len(keys) {
		next = 0
	}
	return ScanResult{NextCursor: next, Keys: matched}
}
