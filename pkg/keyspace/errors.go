package keyspace

import "errors"

// Sentinel errors returned by Store operations. The dispatcher (pkg/dispatch) is the only place these get
// translated into the wire-level error taxonomy of §7; every other caller should match on these values,
// not on string content.
var (
	ErrNotFound        = errors.New("key not found")
	ErrWrongType       = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrNotInteger      = errors.New("value is not an integer or out of range")
	ErrOverflow        = errors.New("increment or decrement would overflow")
	ErrStaleTimestamp  = errors.New("Timestamp is older than existing record")
	ErrNoSuchField     = errors.New("no such hash field")
	ErrInvalidJSON     = errors.New("value is not valid JSON")
	ErrPatchFailed     = errors.New("failed to apply JSON patch")
	ErrSyntax          = errors.New("syntax error")
	ErrKeyExistsAtDest = errors.New("destination key already exists")
)
