package dispatch

import (
	"errors"

	"github.com/mehrantsi/feox/pkg/keyspace"
	"github.com/mehrantsi/feox/pkg/resp"
)

// storeError translates a keyspace sentinel error into the wire-level taxonomy of §7. This is the one
// place internal Store errors cross into RESP error replies; every other package deals in Go errors.
func storeError(err error) resp.Reply {
	switch {
	case errors.Is(err, keyspace.ErrWrongType):
		return resp.Error("WRONGTYPE Operation against a key holding the wrong kind of value")
	case errors.Is(err, keyspace.ErrNotInteger), errors.Is(err, keyspace.ErrOverflow):
		return resp.Error("ERR value is not an integer or out of range")
	case errors.Is(err, keyspace.ErrStaleTimestamp):
		return resp.Error("ERR Timestamp is older than existing record")
	case errors.Is(err, keyspace.ErrSyntax):
		return resp.Error("ERR syntax error")
	case errors.Is(err, keyspace.ErrInvalidJSON), errors.Is(err, keyspace.ErrPatchFailed):
		return resp.Error("ERR " + err.Error())
	case errors.Is(err, keyspace.ErrKeyExistsAtDest):
		return resp.Integer(0) // RENAMENX's "destination exists" is a 0 reply, not an error, in real Redis.
	case errors.Is(err, keyspace.ErrNotFound):
		return resp.Error("ERR no such key")
	default:
		return resp.Error("ERR store error: " + err.Error())
	}
}
