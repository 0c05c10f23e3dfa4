package dispatch

import (
	"strconv"

	"github.com/mehrantsi/feox/pkg/keyspace"
	"github.com/mehrantsi/feox/pkg/resp"
)

func registerListCommands(table map[string]handlerFunc) {
	table["LPUSH"] = cmdLPush
	table["RPUSH"] = cmdRPush
	table["LPOP"] = cmdLPop
	table["RPOP"] = cmdRPop
	table["LLEN"] = cmdLLen
	table["LRANGE"] = cmdLRange
	table["LINDEX"] = cmdLIndex
}

func cmdLPush(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	return pushReply(d, args, keyspace.Left)
}

func cmdRPush(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	return pushReply(d, args, keyspace.Right)
}

func pushReply(d *Dispatcher, args [][]byte, side keyspace.Side) resp.Reply {
	n, err := d.Store.Push(string(args[0]), side, args[1:]...)
	if err != nil {
		return storeError(err)
	}
	return resp.Integer(int64(n))
}

func cmdLPop(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	return popReply(d, args, keyspace.Left)
}

func cmdRPop(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	return popReply(d, args, keyspace.Right)
}

func popReply(d *Dispatcher, args [][]byte, side keyspace.Side) resp.Reply {
	n := 1
	hasCount := len(args) == 2
	if hasCount {
		parsed, err := strconv.Atoi(string(args[1]))
		if err != nil || parsed < 0 {
			return resp.Error("ERR value is not an integer or out of range")
		}
		n = parsed
	}

	popped, ok, err := d.Store.Pop(string(args[0]), side, n)
	if err != nil {
		return storeError(err)
	}
	if !ok {
		if hasCount {
			return resp.NullArray()
		}
		return resp.NullBulk()
	}
	if !hasCount {
		if len(popped) == 0 {
			return resp.NullBulk()
		}
		return resp.BulkString(popped[0])
	}
	items := make([]resp.Reply, len(popped))
	for i, v := range popped {
		items[i] = resp.BulkString(v)
	}
	return resp.Array(items)
}

func cmdLLen(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	n, err := d.Store.LLen(string(args[0]))
	if err != nil {
		return storeError(err)
	}
	return resp.Integer(int64(n))
}

func cmdLRange(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	start, err1 := strconv.Atoi(string(args[1]))
	end, err2 := strconv.Atoi(string(args[2]))
	if err1 != nil || err2 != nil {
		return resp.Error("ERR value is not an integer or out of range")
	}
	vals, err := d.Store.LRange(string(args[0]), start, end)
	if err != nil {
		return storeError(err)
	}
	items := make([]resp.Reply, len(vals))
	for i, v := range vals {
		items[i] = resp.BulkString(v)
	}
	return resp.Array(items)
}

func cmdLIndex(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	index, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return resp.Error("ERR value is not an integer or out of range")
	}
	v, found, err := d.Store.LIndex(string(args[0]), index)
	if err != nil {
		return storeError(err)
	}
	if !found {
		return resp.NullBulk()
	}
	return resp.BulkString(v)
}
