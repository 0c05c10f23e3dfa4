package keyspace

import "strconv"

// HSet implements hset(k, (f,v)…), returning the count of fields that were newly added (not merely
// overwritten), per §4.2.
func (s *Store) HSet(key string, fields map[string][]byte) (int, error) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	e, exists := sh.entries[key]
	if exists && e.expired(now) {
		delete(sh.entries, key)
		exists = false
	}
	if !exists {
		e = newHashEntry()
		sh.entries[key] = e
	}
	sh.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeHash {
		return 0, ErrWrongType
	}
	if err := e.touch(now); err != nil {
		return 0, err
	}
	added := 0
	for field, value := range fields {
		if _, existed := e.hash[field]; !existed {
			added++
		}
		e.hash[field] = value
	}
	return added, nil
}

// HGet implements hget(k, f).
func (s *Store) HGet(key, field string) ([]byte, bool, error) {
	_, e, ok := s.getLive(key)
	if !ok {
		return nil, false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeHash {
		return nil, false, ErrWrongType
	}
	v, found := e.hash[field]
	return v, found, nil
}

// HMGet implements hmget(k, f…): a parallel slice, missing fields represented as (nil, false).
func (s *Store) HMGet(key string, fields ...string) ([][]byte, []bool, error) {
	_, e, ok := s.getLive(key)
	if !ok {
		return make([][]byte, len(fields)), make([]bool, len(fields)), nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeHash {
		return nil, nil, ErrWrongType
	}
	values := make([][]byte, len(fields))
	found := make([]bool, len(fields))
	for i, f := range fields {
		if v, ok := e.hash[f]; ok {
			values[i] = v
			found[i] = true
		}
	}
	return values, found, nil
}

// HDel implements hdel(k, f…), returning the count removed. Deletes the key entirely once the hash is
// emptied, per §3.
func (s *Store) HDel(key string, fields ...string) (int, error) {
	sh := s.shardFor(key)
	_, e, ok := s.getLive(key)
	if !ok {
		return 0, nil
	}
	now := s.now()

	e.mu.Lock()
	if e.typ != typeHash {
		e.mu.Unlock()
		return 0, ErrWrongType
	}
	removed := 0
	for _, f := range fields {
		if _, existed := e.hash[f]; existed {
			delete(e.hash, f)
			removed++
		}
	}
	if removed > 0 {
		if err := e.touch(now); err != nil {
			e.mu.Unlock()
			return 0, err
		}
	}
	empty := len(e.hash) == 0
	e.mu.Unlock()

	if empty {
		sh.mu.Lock()
		if cur, still := sh.entries[key]; still && cur == e {
			delete(sh.entries, key)
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// HExists implements hexists(k, f).
func (s *Store) HExists(key, field string) (bool, error) {
	_, e, ok := s.getLive(key)
	if !ok {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeHash {
		return false, ErrWrongType
	}
	_, found := e.hash[field]
	return found, nil
}

// HGetAll implements hgetall(k), returning fields in no particular order (Go map iteration order).
func (s *Store) HGetAll(key string) (map[string][]byte, error) {
	_, e, ok := s.getLive(key)
	if !ok {
		return map[string][]byte{}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeHash {
		return nil, ErrWrongType
	}
	out := make(map[string][]byte, len(e.hash))
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}

// HLen implements hlen(k).
func (s *Store) HLen(key string) (int, error) {
	_, e, ok := s.getLive(key)
	if !ok {
		return 0, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeHash {
		return 0, ErrWrongType
	}
	return len(e.hash), nil
}

// HKeys implements hkeys(k).
func (s *Store) HKeys(key string) ([]string, error) {
	all, err := s.HGetAll(key)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	return keys, nil
}

// HVals implements hvals(k).
func (s *Store) HVals(key string) ([][]byte, error) {
	all, err := s.HGetAll(key)
	if err != nil {
		return nil, err
	}
	vals := make([][]byte, 0, len(all))
	for _, v := range all {
		vals = append(vals, v)
	}
	return vals, nil
}

// HIncrBy implements hincrby(k, f, Δ).
func (s *Store) HIncrBy(key, field string, delta int64) (int64, error) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	e, exists := sh.entries[key]
	if exists && e.expired(now) {
		delete(sh.entries, key)
		exists = false
	}
	if !exists {
		e = newHashEntry()
		sh.entries[key] = e
	}
	sh.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeHash {
		return 0, ErrWrongType
	}
	var cur int64
	if raw, found := e.hash[field]; found {
		parsed, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		cur = parsed
	}
	if err := checkOverflowAdd(cur, delta); err != nil {
		return 0, err
	}
	if err := e.touch(now); err != nil {
		return 0, err
	}
	next := cur + delta
	e.hash[field] = []byte(strconv.FormatInt(next, 10))
	return next, nil
}
