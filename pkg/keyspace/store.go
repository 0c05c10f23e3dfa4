// Package keyspace implements the typed in-memory associative store described in §3/§4.2: a sharded
// concurrent map from opaque byte-string keys to one of {string, list, hash}, with TTL, atomic numeric
// mutations, compare-and-swap, and RFC 6902 JSON Patch. Keys are bucketed into fixed xxhash shards, each
// behind its own mutex, so keys in different shards never contend with each other.
package keyspace

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mehrantsi/feox/pkg/cache"
)

// scanSnapshotTTL bounds how long a sorted key snapshot is reused across successive KEYS/SCAN calls before
// it is recomputed from the live shards. SCAN pages through whichever cached snapshot is current (see
// scan.go); caching it lets back-to-back pages against an actively-written keyspace skip a full re-sort on
// every page while still picking up new keys within a bounded staleness window.
const scanSnapshotTTL = 2 * time.Second

// DefaultShardCount is used when a caller doesn't have a more specific number of workers in mind. Redis
// workloads are key-skew-sensitive enough that a fixed, fairly large shard count amortises hot keys better
// than sizing it to the thread count.
const DefaultShardCount = 256

// shard owns a slice of the keyspace behind its own RWMutex. Reads and the list/hash operations take the
// shard lock only long enough to find/insert the *entry pointer and do the rest under the entry's own
// mutex; Set, MSet, IncrBy, CAS, Append and Rename hold the shard lock for the whole write.
type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Store is the process-global keyspace. It is safe for concurrent use by every connection worker.
type Store struct {
	shards []*shard
	now    func() time.Time // Overridable in tests; defaults to time.Now.

	scanCache       *cache.HyperClock[int, []string]
	scanCacheCancel context.CancelFunc
}

// NewStore builds a Store with shardCount shards. shardCount <= 0 falls back to DefaultShardCount.
func NewStore(shardCount int) *Store {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		shards:          make([]*shard, shardCount),
		now:             time.Now,
		scanCache:       cache.NewHyperClock[int, []string](ctx, 1, scanSnapshotTTL, nil),
		scanCacheCancel: cancel,
	}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return s
}

// Close stops the Store's background goroutines (currently just the scan-snapshot cache's reaper). Safe to
// call once, at process shutdown.
func (s *Store) Close() {
	s.scanCacheCancel()
}

func (s *Store) shardFor(key string) *shard {
	h := xxhash.Sum64String(key)
	return s.shards[h%uint64(len(s.shards))]
}

// getLive returns the entry for key if present and not expired, deleting it eagerly if found expired (§3:
// "a lookup that finds an expired key treats it as absent and removes it"). The shard lock is held only for
// the map lookup (and the delete of an expired entry); the returned entry is not locked.
func (s *Store) getLive(key string) (*shard, *entry, bool) {
	sh := s.shardFor(key)
	now := s.now()
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if !ok {
		return sh, nil, false
	}
	if e.expired(now) {
		sh.mu.Lock()
		if cur, still := sh.entries[key]; still && cur == e {
			delete(sh.entries, key)
		}
		sh.mu.Unlock()
		return sh, nil, false
	}
	return sh, e, true
}

func (s *Store) delete(sh *shard, key string) {
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
}

// Get implements the `get(k)` operation.
func (s *Store) Get(key string) ([]byte, error) {
	_, e, ok := s.getLive(key)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeString {
		return nil, ErrWrongType
	}
	return e.str, nil
}

// SetOpts controls the SET family per §4.6: EX/PX/KEEPTTL/NX/XX.
type SetOpts struct {
	TTL        time.Duration // Zero means "no explicit TTL in this call".
	KeepTTL    bool
	OnlyIfAbs  bool // NX
	OnlyIfPres bool // XX
}

// Set implements `set(k, v, ttl?)` including the NX/XX/KEEPTTL option surface. ok is false when NX/XX
// preconditions blocked the write (caller should reply with a null bulk in that case, per §4.6).
func (s *Store) Set(key string, value []byte, opts SetOpts) (ok bool, err error) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	e, exists := sh.entries[key]
	if exists && e.expired(now) {
		delete(sh.entries, key)
		exists = false
	}
	if opts.OnlyIfAbs && exists {
		sh.mu.Unlock()
		return false, nil
	}
	if opts.OnlyIfPres && !exists {
		sh.mu.Unlock()
		return false, nil
	}

	var prevLastWrite int64
	var prevExpireAt time.Time
	if exists {
		prevLastWrite = e.lastWrite
		prevExpireAt = e.expireAt
	}
	ts, err := assignTimestamp(prevLastWrite, now)
	if err != nil {
		sh.mu.Unlock()
		return false, err
	}

	newEntry := newStringEntry(value)
	newEntry.lastWrite = ts
	if opts.KeepTTL {
		newEntry.expireAt = prevExpireAt
	} else if opts.TTL > 0 {
		newEntry.expireAt = now.Add(opts.TTL)
	}
	sh.entries[key] = newEntry
	sh.mu.Unlock()
	return true, nil
}

// Del implements `del(k…)`, returning the count of keys actually removed.
func (s *Store) Del(keys ...string) int {
	removed := 0
	for _, key := range keys {
		_, e, ok := s.getLive(key)
		if !ok {
			continue
		}
		sh := s.shardFor(key)
		sh.mu.Lock()
		if cur, still := sh.entries[key]; still && cur == e {
			delete(sh.entries, key)
			removed++
		}
		sh.mu.Unlock()
	}
	return removed
}

// Exists implements `exists(k…)`, counting duplicates per §4.2.
func (s *Store) Exists(keys ...string) int {
	count := 0
	for _, key := range keys {
		if _, _, ok := s.getLive(key); ok {
			count++
		}
	}
	return count
}

// Expire implements `expire(k, s)`. Returns false if the key doesn't exist.
func (s *Store) Expire(key string, ttl time.Duration) bool {
	_, e, ok := s.getLive(key)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expireAt = s.now().Add(ttl)
	return true
}

// Persist implements `persist(k)`. Returns false if the key doesn't exist or already had no TTL.
func (s *Store) Persist(key string) bool {
	_, e, ok := s.getLive(key)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.expireAt.IsZero() {
		return false
	}
	e.expireAt = time.Time{}
	return true
}

// TTL implements `ttl(k)`: -2 absent, -1 no expiry, else seconds remaining.
func (s *Store) TTL(key string) int64 {
	_, e, ok := s.getLive(key)
	if !ok {
		return -2
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ttlSeconds(s.now())
}

// IncrBy implements `incr_by(k, Δ)`.
func (s *Store) IncrBy(key string, delta int64) (int64, error) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, exists := sh.entries[key]
	if exists && e.expired(now) {
		delete(sh.entries, key)
		exists = false
	}

	if !exists {
		if err := checkOverflowAdd(0, delta); err != nil {
			return 0, err
		}
		ts, err := assignTimestamp(0, now)
		if err != nil {
			return 0, err
		}
		ne := newStringEntry([]byte(strconv.FormatInt(delta, 10)))
		ne.lastWrite = ts
		sh.entries[key] = ne
		return delta, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeString {
		return 0, ErrWrongType
	}
	cur, err := parseInt64(e.str)
	if err != nil {
		return 0, ErrNotInteger
	}
	if err := checkOverflowAdd(cur, delta); err != nil {
		return 0, err
	}
	next := cur + delta
	if err := e.touch(now); err != nil {
		return 0, err
	}
	e.str = []byte(strconv.FormatInt(next, 10))
	return next, nil
}

func parseInt64(b []byte) (int64, error) {
	return strconv.ParseInt(string(b), 10, 64)
}

func checkOverflowAdd(cur, delta int64) error {
	if delta > 0 && cur > (1<<63-1)-delta {
		return ErrOverflow
	}
	if delta < 0 && cur < -(1<<63)-delta {
		return ErrOverflow
	}
	return nil
}

// MGet implements `mget(k…)`, returning a parallel slice where a missing/wrong-typed key yields nil.
func (s *Store) MGet(keys ...string) [][]byte {
	out := make([][]byte, len(keys))
	for i, key := range keys {
		if v, err := s.Get(key); err == nil {
			out[i] = v
		}
	}
	return out
}

// MSet implements `mset((k,v)…)`: pairs are written one key at a time, each under its own shard lock, so the
// call is atomic per key but not across keys. Each pair is subject to the same per-key monotonic-timestamp
// discipline as any other write; a stale-timestamp collision on one key aborts the remaining pairs (pairs
// already written stay written) rather than masking the error.
func (s *Store) MSet(pairs map[string][]byte) error {
	now := s.now()
	for key, value := range pairs {
		sh := s.shardFor(key)
		sh.mu.Lock()
		var prevLastWrite int64
		if cur, exists := sh.entries[key]; exists {
			prevLastWrite = cur.lastWrite
		}
		ts, err := assignTimestamp(prevLastWrite, now)
		if err != nil {
			sh.mu.Unlock()
			return err
		}
		ne := newStringEntry(value)
		ne.lastWrite = ts
		sh.entries[key] = ne
		sh.mu.Unlock()
	}
	return nil
}

// CAS implements `cas(k, expected, new)`. expectedPresent distinguishes "expected absent" from "expected
// empty string".
func (s *Store) CAS(key string, expectedPresent bool, expected, newValue []byte) (bool, error) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, exists := sh.entries[key]
	if exists && e.expired(now) {
		delete(sh.entries, key)
		exists = false
		e = nil
	}

	if exists {
		e.mu.Lock()
		if e.typ != typeString {
			e.mu.Unlock()
			return false, ErrWrongType
		}
	}

	matches := false
	switch {
	case exists && expectedPresent:
		matches = string(e.str) == string(expected)
	case !exists && !expectedPresent:
		matches = true
	}
	if exists {
		e.mu.Unlock()
	}
	if !matches {
		return false, nil
	}

	var prevLastWrite int64
	if exists {
		prevLastWrite = e.lastWrite
	}
	ts, err := assignTimestamp(prevLastWrite, now)
	if err != nil {
		return false, err
	}
	ne := newStringEntry(newValue)
	ne.lastWrite = ts
	sh.entries[key] = ne
	return true, nil
}

// Type implements the supplemented TYPE command.
func (s *Store) Type(key string) string {
	_, e, ok := s.getLive(key)
	if !ok {
		return "none"
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.typ.String()
}

// ObjectEncoding implements the supplemented OBJECT ENCODING command with a fixed constant per type.
func (s *Store) ObjectEncoding(key string) (string, bool) {
	_, e, ok := s.getLive(key)
	if !ok {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.typ {
	case typeString:
		return "raw", true
	case typeList:
		return "listpack", true
	case typeHash:
		return "hashtable", true
	default:
		return "raw", true
	}
}

// Rename implements RENAME/RENAMENX. onlyIfDestAbsent implements the NENX half.
func (s *Store) Rename(src, dst string, onlyIfDestAbsent bool) error {
	if src == dst {
		if _, _, ok := s.getLive(src); !ok {
			return ErrNotFound
		}
		return nil
	}

	srcSh, srcEntry, ok := s.getLive(src)
	if !ok {
		return ErrNotFound
	}
	dstSh := s.shardFor(dst)

	// Lock in a fixed order (by shard slice index) to avoid lock-order deadlocks between concurrent
	// renames that cross the same two shards in opposite directions.
	first, second := srcSh, dstSh
	if shardIndex(s, first) > shardIndex(s, second) {
		first, second = second, first
	}
	first.mu.Lock()
	if second != first {
		second.mu.Lock()
	}
	defer func() {
		if second != first {
			second.mu.Unlock()
		}
		first.mu.Unlock()
	}()

	cur, stillThere := srcSh.entries[src]
	if !stillThere || cur != srcEntry {
		return ErrNotFound
	}
	if onlyIfDestAbsent {
		if existing, present := dstSh.entries[dst]; present && !existing.expired(s.now()) {
			return ErrKeyExistsAtDest
		}
	}
	delete(srcSh.entries, src)
	dstSh.entries[dst] = cur
	return nil
}

func shardIndex(s *Store, target *shard) int {
	for i, sh := range s.shards {
		if sh == target {
			return i
		}
	}
	return -1
}

// Append implements the supplemented APPEND command, returning the new length.
func (s *Store) Append(key string, suffix []byte) (int, error) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, exists := sh.entries[key]
	if exists && e.expired(now) {
		delete(sh.entries, key)
		exists = false
	}
	if !exists {
		ts, err := assignTimestamp(0, now)
		if err != nil {
			return 0, err
		}
		ne := newStringEntry(append([]byte{}, suffix...))
		ne.lastWrite = ts
		sh.entries[key] = ne
		return len(ne.str), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeString {
		return 0, ErrWrongType
	}
	if err := e.touch(now); err != nil {
		return 0, err
	}
	e.str = append(e.str, suffix...)
	return len(e.str), nil
}

// StrLen implements the supplemented STRLEN command.
func (s *Store) StrLen(key string) (int, error) {
	v, err := s.Get(key)
	if err != nil {
		if err == ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return len(v), nil
}

// DBSize implements the supplemented DBSIZE command: the count of live (non-expired) keys.
func (s *Store) DBSize() int {
	now := s.now()
	count := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, e := range sh.entries {
			if !e.expired(now) {
				count++
			}
		}
		sh.mu.RUnlock()
	}
	return count
}

// FlushAll implements the supplemented FLUSHALL command: clears every shard synchronously.
func (s *Store) FlushAll() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = make(map[string]*entry)
		sh.mu.Unlock()
	}
}
