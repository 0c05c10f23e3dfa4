package dispatch

import (
	"strconv"
	"time"

	"github.com/mehrantsi/feox/pkg/keyspace"
	"github.com/mehrantsi/feox/pkg/resp"
)

func registerStringCommands(table map[string]handlerFunc) {
	table["SET"] = cmdSet
	table["GET"] = cmdGet
	table["INCR"] = cmdIncr
	table["DECR"] = cmdDecr
	table["INCRBY"] = cmdIncrBy
	table["DECRBY"] = cmdDecrBy
	table["APPEND"] = cmdAppend
	table["STRLEN"] = cmdStrLen
	table["CAS"] = cmdCAS
	table["JSONPATCH"] = cmdJSONPatch
}

func cmdGet(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	v, err := d.Store.Get(string(args[0]))
	if err == keyspace.ErrNotFound {
		return resp.NullBulk()
	}
	if err != nil {
		return storeError(err)
	}
	return resp.BulkString(v)
}

// cmdSet parses the EX/PX/NX/XX/KEEPTTL option surface of §4.6.
func cmdSet(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	key, value := args[0], args[1]
	opts := keyspace.SetOpts{}

	i := 2
	for i < len(args) {
		switch upperString(args[i]) {
		case "NX":
			opts.OnlyIfAbs = true
			i++
		case "XX":
			opts.OnlyIfPres = true
			i++
		case "KEEPTTL":
			opts.KeepTTL = true
			i++
		case "EX":
			if i+1 >= len(args) {
				return resp.Error("ERR syntax error")
			}
			seconds, err := strconv.ParseInt(string(args[i+1]), 10, 64)
			if err != nil || seconds < 0 {
				return resp.Error("ERR value is not an integer or out of range")
			}
			opts.TTL = time.Duration(seconds) * time.Second
			i += 2
		case "PX":
			if i+1 >= len(args) {
				return resp.Error("ERR syntax error")
			}
			millis, err := strconv.ParseInt(string(args[i+1]), 10, 64)
			if err != nil || millis < 0 {
				return resp.Error("ERR value is not an integer or out of range")
			}
			opts.TTL = time.Duration(millis) * time.Millisecond
			i += 2
		default:
			return resp.Error("ERR syntax error")
		}
	}
	if opts.KeepTTL && opts.TTL > 0 {
		return resp.Error("ERR syntax error")
	}
	if opts.OnlyIfAbs && opts.OnlyIfPres {
		return resp.Error("ERR syntax error")
	}

	ok, err := d.Store.Set(string(key), value, opts)
	if err != nil {
		return storeError(err)
	}
	if !ok {
		return resp.NullBulk()
	}
	return resp.OK()
}

func cmdIncr(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	return incrByReply(d, args[0], 1)
}

func cmdDecr(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	return incrByReply(d, args[0], -1)
}

func cmdIncrBy(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	delta, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return resp.Error("ERR value is not an integer or out of range")
	}
	return incrByReply(d, args[0], delta)
}

func cmdDecrBy(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	delta, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return resp.Error("ERR value is not an integer or out of range")
	}
	return incrByReply(d, args[0], -delta)
}

func incrByReply(d *Dispatcher, key []byte, delta int64) resp.Reply {
	n, err := d.Store.IncrBy(string(key), delta)
	if err != nil {
		return storeError(err)
	}
	return resp.Integer(n)
}

func cmdAppend(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	n, err := d.Store.Append(string(args[0]), args[1])
	if err != nil {
		return storeError(err)
	}
	return resp.Integer(int64(n))
}

func cmdStrLen(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	n, err := d.Store.StrLen(string(args[0]))
	if err != nil {
		return storeError(err)
	}
	return resp.Integer(int64(n))
}

// cmdCAS implements the feox extension `CAS key expected new` (§C): expected may be the literal string
// "" to mean "key must be absent" is NOT representable, so a dedicated absent marker isn't exposed over
// the wire — callers that want compare-against-absent use SET with NX instead. Over the wire CAS always
// compares against a present expected value.
func cmdCAS(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	ok, err := d.Store.CAS(string(args[0]), true, args[1], args[2])
	if err != nil {
		return storeError(err)
	}
	if ok {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

// cmdJSONPatch implements the feox extension `JSONPATCH key patch` (§C).
func cmdJSONPatch(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	result, err := d.Store.JSONPatch(string(args[0]), args[1])
	if err != nil {
		return storeError(err)
	}
	return resp.BulkString(result)
}
