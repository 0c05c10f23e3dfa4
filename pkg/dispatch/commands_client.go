package dispatch

import (
	"strconv"

	"github.com/mehrantsi/feox/pkg/registry"
	"github.com/mehrantsi/feox/pkg/resp"
)

func registerClientCommands(table map[string]handlerFunc) {
	table["CLIENT"] = cmdClient
}

func cmdClient(d *Dispatcher, conn *Conn, args [][]byte) resp.Reply {
	switch upperString(args[0]) {
	case "LIST":
		lines := d.Registry.List(d.Now())
		out := ""
		for _, line := range lines {
			out += line + "\n"
		}
		return resp.BulkString([]byte(out))
	case "GETNAME":
		return resp.BulkString([]byte(conn.Record.Name()))
	case "SETNAME":
		if len(args) != 2 {
			return resp.Error("ERR wrong number of arguments for 'client|setname' command")
		}
		conn.Record.SetName(string(args[1]))
		return resp.OK()
	case "ID":
		return resp.Integer(int64(conn.Record.ID))
	case "KILL":
		return cmdClientKill(d, args[1:])
	case "PAUSE":
		if len(args) != 2 {
			return resp.Error("ERR wrong number of arguments for 'client|pause' command")
		}
		ms, err := strconv.ParseInt(string(args[1]), 10, 64)
		if err != nil || ms < 0 {
			return resp.Error("ERR timeout is not an integer or out of range")
		}
		d.Registry.Pause(ms, d.Now())
		return resp.OK()
	case "UNPAUSE":
		d.Registry.Unpause()
		return resp.OK()
	default:
		return resp.Error("ERR Unknown CLIENT subcommand or wrong number of arguments")
	}
}

// cmdClientKill parses the filter-form `CLIENT KILL ID id | ADDR addr | TYPE normal|pubsub [...]`. Real Redis
// also accepts a single bare `ADDR` argument form; feox only implements the filter form.
func cmdClientKill(d *Dispatcher, filters [][]byte) resp.Reply {
	if len(filters)%2 != 0 || len(filters) == 0 {
		return resp.Error("ERR syntax error")
	}
	var sel registry.KillSelector
	for i := 0; i < len(filters); i += 2 {
		switch upperString(filters[i]) {
		case "ID":
			id, err := strconv.ParseUint(string(filters[i+1]), 10, 64)
			if err != nil {
				return resp.Error("ERR client-id should be greater than 0")
			}
			sel.ID = &id
		case "ADDR":
			sel.Addr = string(filters[i+1])
		case "TYPE":
			t := string(filters[i+1])
			if t != "normal" && t != "pubsub" {
				return resp.Error("ERR Unknown client type")
			}
			sel.Type = t
		default:
			return resp.Error("ERR syntax error")
		}
	}
	killed := d.Registry.Kill(sel)
	return resp.Integer(int64(killed))
}
