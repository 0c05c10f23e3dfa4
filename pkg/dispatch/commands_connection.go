package dispatch

import (
	"github.com/mehrantsi/feox/pkg/registry"
	"github.com/mehrantsi/feox/pkg/resp"
	"github.com/mehrantsi/feox/pkg/utils"
)

func registerConnectionCommands(table map[string]handlerFunc) {
	table["PING"] = cmdPing
	table["QUIT"] = cmdQuit
	table["RESET"] = cmdReset
	table["HELLO"] = cmdHello
	table["AUTH"] = cmdAuth
}

func cmdPing(_ *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	if len(args) == 1 {
		return resp.BulkString(args[0])
	}
	return resp.SimpleString("PONG")
}

func cmdQuit(_ *Dispatcher, conn *Conn, _ [][]byte) resp.Reply {
	conn.Close = true
	return resp.OK()
}

func cmdReset(d *Dispatcher, conn *Conn, _ [][]byte) resp.Reply {
	conn.Record.Authorized.Store(d.RequirePass == "")
	conn.Record.SetMode(registry.Normal)
	d.Hub.UnsubscribeAll(conn.Sub)
	conn.Record.TrackUnsubscribeAll()
	return resp.SimpleString("RESET")
}

// cmdHello implements the supplemented HELLO handshake, RESP2-only (§C): it reports proto 2 and honors the
// AUTH/SETNAME sub-options real client libraries send on connect.
func cmdHello(d *Dispatcher, conn *Conn, args [][]byte) resp.Reply {
	i := 0
	if i < len(args) {
		if string(args[i]) != "2" {
			return resp.Error("NOPROTO unsupported protocol version")
		}
		i++
	}
	for i < len(args) {
		switch upperString(args[i]) {
		case "AUTH":
			if i+2 >= len(args) {
				return resp.Error("ERR syntax error")
			}
			if reply := authenticate(d, conn, args[i+2]); reply.IsError() {
				return reply
			}
			i += 3
		case "SETNAME":
			if i+1 >= len(args) {
				return resp.Error("ERR syntax error")
			}
			conn.Record.SetName(string(args[i+1]))
			i += 2
		default:
			return resp.Error("ERR syntax error")
		}
	}

	if !conn.Record.Authorized.Load() && d.RequirePass != "" {
		return resp.Error("NOAUTH HELLO must be called with the client already authenticated, otherwise the HELLO <proto> AUTH <user> <pass> option can be used to authenticate the client and select the RESP protocol version at the same time")
	}

	items := []resp.Reply{
		resp.BulkString([]byte("server")), resp.BulkString([]byte("feox")),
		resp.BulkString([]byte("version")), resp.BulkString([]byte(utils.Version)),
		resp.BulkString([]byte("proto")), resp.Integer(2),
		resp.BulkString([]byte("id")), resp.Integer(int64(conn.Record.ID)),
		resp.BulkString([]byte("mode")), resp.BulkString([]byte("standalone")),
		resp.BulkString([]byte("role")), resp.BulkString([]byte("master")),
		resp.BulkString([]byte("modules")), resp.Array(nil),
	}
	return resp.Array(items)
}

func cmdAuth(d *Dispatcher, conn *Conn, args [][]byte) resp.Reply {
	password := args[len(args)-1] // AUTH [username] password; feox has no multi-user ACLs (Non-goal).
	return authenticate(d, conn, password)
}

func authenticate(d *Dispatcher, conn *Conn, password []byte) resp.Reply {
	if d.RequirePass == "" {
		return resp.Error("ERR Client sent AUTH, but no password is set. Did you mean AUTH <username> <password>?")
	}
	if string(password) != d.RequirePass {
		return resp.Error("WRONGPASS invalid username-password pair or user is disabled.")
	}
	conn.Record.Authorized.Store(true)
	return resp.OK()
}

func upperString(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
