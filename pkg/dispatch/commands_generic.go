package dispatch

import (
	"strconv"
	"time"

	"github.com/mehrantsi/feox/pkg/resp"
)

func registerGenericCommands(table map[string]handlerFunc) {
	table["DEL"] = cmdDel
	table["EXISTS"] = cmdExists
	table["EXPIRE"] = cmdExpire
	table["PERSIST"] = cmdPersist
	table["TTL"] = cmdTTL
	table["TYPE"] = cmdType
	table["OBJECT"] = cmdObject
	table["RENAME"] = cmdRename
	table["RENAMENX"] = cmdRenameNX
	table["DBSIZE"] = cmdDBSize
	table["FLUSHALL"] = cmdFlushAll
	table["KEYS"] = cmdKeys
	table["SCAN"] = cmdScan
	table["MGET"] = cmdMGet
	table["MSET"] = cmdMSet
}

func cmdDel(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	keys := toStrings(args)
	return resp.Integer(int64(d.Store.Del(keys...)))
}

func cmdExists(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	keys := toStrings(args)
	return resp.Integer(int64(d.Store.Exists(keys...)))
}

func cmdExpire(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	seconds, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return resp.Error("ERR value is not an integer or out of range")
	}
	if d.Store.Expire(string(args[0]), time.Duration(seconds)*time.Second) {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdPersist(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	if d.Store.Persist(string(args[0])) {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdTTL(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	return resp.Integer(d.Store.TTL(string(args[0])))
}

func cmdType(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	return resp.SimpleString(d.Store.Type(string(args[0])))
}

func cmdObject(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	if upperString(args[0]) != "ENCODING" {
		return resp.Error("ERR syntax error")
	}
	enc, ok := d.Store.ObjectEncoding(string(args[1]))
	if !ok {
		return resp.NullBulk()
	}
	return resp.BulkString([]byte(enc))
}

func cmdRename(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	if err := d.Store.Rename(string(args[0]), string(args[1]), false); err != nil {
		return storeError(err)
	}
	return resp.OK()
}

func cmdRenameNX(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	err := d.Store.Rename(string(args[0]), string(args[1]), true)
	if err == nil {
		return resp.Integer(1)
	}
	return storeError(err)
}

func cmdDBSize(d *Dispatcher, _ *Conn, _ [][]byte) resp.Reply {
	return resp.Integer(int64(d.Store.DBSize()))
}

func cmdFlushAll(d *Dispatcher, _ *Conn, _ [][]byte) resp.Reply {
	d.Store.FlushAll()
	return resp.OK()
}

func cmdKeys(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	matches := d.Store.Keys(args[0])
	items := make([]resp.Reply, len(matches))
	for i, k := range matches {
		items[i] = resp.BulkString(k)
	}
	return resp.Array(items)
}

func cmdScan(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	cursor, err := strconv.ParseUint(string(args[0]), 10, 64)
	if err != nil {
		return resp.Error("ERR invalid cursor")
	}

	var match []byte
	count := 0
	i := 1
	for i < len(args) {
		switch upperString(args[i]) {
		case "MATCH":
			if i+1 >= len(args) {
				return resp.Error("ERR syntax error")
			}
			match = args[i+1]
			i += 2
		case "COUNT":
			if i+1 >= len(args) {
				return resp.Error("ERR syntax error")
			}
			n, err := strconv.Atoi(string(args[i+1]))
			if err != nil {
				return resp.Error("ERR value is not an integer or out of range")
			}
			count = n
			i += 2
		default:
			return resp.Error("ERR syntax error")
		}
	}

	result := d.Store.Scan(cursor, match, count)
	items := make([]resp.Reply, len(result.Keys))
	for i, k := range result.Keys {
		items[i] = resp.BulkString(k)
	}
	return resp.Array([]resp.Reply{
		resp.BulkString([]byte(strconv.FormatUint(result.NextCursor, 10))),
		resp.Array(items),
	})
}

func cmdMGet(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	keys := toStrings(args)
	values := d.Store.MGet(keys...)
	items := make([]resp.Reply, len(values))
	for i, v := range values {
		items[i] = resp.BulkStringOrNull(v, v != nil)
	}
	return resp.Array(items)
}

func cmdMSet(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	if len(args)%2 != 0 {
		return resp.Error("ERR wrong number of arguments for 'mset' command")
	}
	pairs := make(map[string][]byte, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		pairs[string(args[i])] = args[i+1]
	}
	if err := d.Store.MSet(pairs); err != nil {
		return storeError(err)
	}
	return resp.OK()
}

func toStrings(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}
