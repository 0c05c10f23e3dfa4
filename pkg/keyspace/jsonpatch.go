package keyspace

import (
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch"
)

// JSONPatch implements `jsonpatch(k, patch)`: the stored string is parsed as JSON, an RFC 6902 patch
// document is applied, and the result replaces the value. This is a feox extension command (§C of
// SPEC_FULL.md) with no real-Redis equivalent; it exists to give the Store's value a structured-edit path
// without requiring a round trip through the client for read-modify-write.
func (s *Store) JSONPatch(key string, patch []byte) ([]byte, error) {
	decodedPatch, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, ErrPatchFailed
	}

	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	e, exists := sh.entries[key]
	if exists && e.expired(now) {
		delete(sh.entries, key)
		exists = false
	}
	sh.mu.Unlock()

	var current []byte
	if exists {
		e.mu.Lock()
		if e.typ != typeString {
			e.mu.Unlock()
			return nil, ErrWrongType
		}
		current = e.str
		e.mu.Unlock()
	} else {
		current = []byte("null")
	}

	if !json.Valid(current) {
		return nil, ErrInvalidJSON
	}

	patched, err := decodedPatch.Apply(current)
	if err != nil {
		return nil, ErrPatchFailed
	}

	if _, err := s.Set(key, patched, SetOpts{KeepTTL: true}); err != nil {
		return nil, err
	}
	return patched, nil
}
