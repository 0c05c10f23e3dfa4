package dispatch

import (
	"strconv"

	"github.com/mehrantsi/feox/pkg/resp"
)

func registerHashCommands(table map[string]handlerFunc) {
	table["HSET"] = cmdHSet
	table["HGET"] = cmdHGet
	table["HMGET"] = cmdHMGet
	table["HDEL"] = cmdHDel
	table["HEXISTS"] = cmdHExists
	table["HGETALL"] = cmdHGetAll
	table["HLEN"] = cmdHLen
	table["HKEYS"] = cmdHKeys
	table["HVALS"] = cmdHVals
	table["HINCRBY"] = cmdHIncrBy
}

func cmdHSet(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	rest := args[1:]
	if len(rest)%2 != 0 {
		return resp.Error("ERR wrong number of arguments for 'hset' command")
	}
	fields := make(map[string][]byte, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		fields[string(rest[i])] = rest[i+1]
	}
	n, err := d.Store.HSet(string(args[0]), fields)
	if err != nil {
		return storeError(err)
	}
	return resp.Integer(int64(n))
}

func cmdHGet(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	v, found, err := d.Store.HGet(string(args[0]), string(args[1]))
	if err != nil {
		return storeError(err)
	}
	if !found {
		return resp.NullBulk()
	}
	return resp.BulkString(v)
}

func cmdHMGet(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	fields := make([]string, len(args)-1)
	for i, f := range args[1:] {
		fields[i] = string(f)
	}
	values, found, err := d.Store.HMGet(string(args[0]), fields...)
	if err != nil {
		return storeError(err)
	}
	items := make([]resp.Reply, len(values))
	for i := range values {
		if found[i] {
			items[i] = resp.BulkString(values[i])
		} else {
			items[i] = resp.NullBulk()
		}
	}
	return resp.Array(items)
}

func cmdHDel(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	fields := make([]string, len(args)-1)
	for i, f := range args[1:] {
		fields[i] = string(f)
	}
	n, err := d.Store.HDel(string(args[0]), fields...)
	if err != nil {
		return storeError(err)
	}
	return resp.Integer(int64(n))
}

func cmdHExists(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	found, err := d.Store.HExists(string(args[0]), string(args[1]))
	if err != nil {
		return storeError(err)
	}
	if found {
		return resp.Integer(1)
	}
	return resp.Integer(0)
}

func cmdHGetAll(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	all, err := d.Store.HGetAll(string(args[0]))
	if err != nil {
		return storeError(err)
	}
	items := make([]resp.Reply, 0, len(all)*2)
	for k, v := range all {
		items = append(items, resp.BulkString([]byte(k)), resp.BulkString(v))
	}
	return resp.Array(items)
}

func cmdHLen(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	n, err := d.Store.HLen(string(args[0]))
	if err != nil {
		return storeError(err)
	}
	return resp.Integer(int64(n))
}

func cmdHKeys(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	keys, err := d.Store.HKeys(string(args[0]))
	if err != nil {
		return storeError(err)
	}
	items := make([]resp.Reply, len(keys))
	for i, k := range keys {
		items[i] = resp.BulkString([]byte(k))
	}
	return resp.Array(items)
}

func cmdHVals(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	vals, err := d.Store.HVals(string(args[0]))
	if err != nil {
		return storeError(err)
	}
	items := make([]resp.Reply, len(vals))
	for i, v := range vals {
		items[i] = resp.BulkString(v)
	}
	return resp.Array(items)
}

func cmdHIncrBy(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	delta, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return resp.Error("ERR value is not an integer or out of range")
	}
	n, err := d.Store.HIncrBy(string(args[0]), string(args[1]), delta)
	if err != nil {
		return storeError(err)
	}
	return resp.Integer(n)
}
