package keyspace

// Side picks which end of the list an operation targets.
type Side int

const (
	Left Side = iota
	Right
)

// Push implements lpush/rpush(k, v…): creates the list if absent, WRONGTYPE if it holds another type.
func (s *Store) Push(key string, side Side, values ...[]byte) (int, error) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	e, exists := sh.entries[key]
	if exists && e.expired(now) {
		delete(sh.entries, key)
		exists = false
	}
	if !exists {
		e = newListEntry()
		sh.entries[key] = e
	}
	sh.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeList {
		return 0, ErrWrongType
	}
	if err := e.touch(now); err != nil {
		return 0, err
	}
	if side == Left {
		e.list.PushLeft(values...)
	} else {
		e.list.PushRight(values...)
	}
	return e.list.Len(), nil
}

// Pop implements lpop/rpop(k, n?). A nil result with ok=false means the key is absent; an empty, non-nil
// result means the key existed but n was 0. Popping the last element(s) deletes the now-empty list, per §3.
func (s *Store) Pop(key string, side Side, n int) ([][]byte, bool, error) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	e, exists := sh.entries[key]
	if exists && e.expired(now) {
		delete(sh.entries, key)
		exists = false
	}
	if !exists {
		sh.mu.Unlock()
		return nil, false, nil
	}
	sh.mu.Unlock()

	e.mu.Lock()
	if e.typ != typeList {
		e.mu.Unlock()
		return nil, false, ErrWrongType
	}
	if err := e.touch(now); err != nil {
		e.mu.Unlock()
		return nil, false, err
	}
	var popped [][]byte
	if side == Left {
		popped = e.list.PopLeft(n)
	} else {
		popped = e.list.PopRight(n)
	}
	empty := e.list.Len() == 0
	e.mu.Unlock()

	if empty {
		sh.mu.Lock()
		if cur, still := sh.entries[key]; still && cur == e {
			delete(sh.entries, key)
		}
		sh.mu.Unlock()
	}
	return popped, true, nil
}

// LLen implements llen(k): 0 if absent.
func (s *Store) LLen(key string) (int, error) {
	_, e, ok := s.getLive(key)
	if !ok {
		return 0, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeList {
		return 0, ErrWrongType
	}
	return e.list.Len(), nil
}

// normalizeRange resolves negative indices as offsets from the tail and clamps to [0, length), matching
// Redis's LRANGE semantics exactly.
func normalizeRange(start, end, length int) (int, int) {
	if start < 0 {
		start = max(length+start, 0)
	}
	if end < 0 {
		end += length
	}
	if end >= length {
		end = length - 1
	}
	return start, end
}

// LRange implements lrange(k, s, e).
func (s *Store) LRange(key string, start, end int) ([][]byte, error) {
	_, e, ok := s.getLive(key)
	if !ok {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeList {
		return nil, ErrWrongType
	}
	ns, ne := normalizeRange(start, end, e.list.Len())
	return e.list.Range(ns, ne), nil
}

// LIndex implements lindex(k, i): nil, true when in range with a nil element value is impossible (values
// are never nil), nil, false when out of range or key absent.
func (s *Store) LIndex(key string, index int) ([]byte, bool, error) {
	_, e, ok := s.getLive(key)
	if !ok {
		return nil, false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.typ != typeList {
		return nil, false, ErrWrongType
	}
	length := e.list.Len()
	if index < 0 {
		index += length
	}
	v, found := e.list.Index(index)
	return v, found, nil
}
