package dispatch

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/mehrantsi/feox/pkg/resp"
	"github.com/mehrantsi/feox/pkg/scan"
	"github.com/mehrantsi/feox/pkg/utils"
)

func registerServerCommands(table map[string]handlerFunc) {
	table["INFO"] = cmdInfo
	table["CONFIG"] = cmdConfig
	table["COMMAND"] = cmdCommand
}

// cmdInfo renders the INFO sections named in §4.6: server/clients/memory/stats/replication/cpu/keyspace.
// feox is always a standalone master with no replicas, so the replication section is fixed.
func cmdInfo(d *Dispatcher, _ *Conn, _ [][]byte) resp.Reply {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	uptime := int64(d.Now().Sub(d.startedAt).Seconds())

	var b strings.Builder
	fmt.Fprintf(&b, "# Server\r\n")
	fmt.Fprintf(&b, "redis_version:%s\r\n", utils.Version)
	fmt.Fprintf(&b, "redis_mode:standalone\r\n")
	fmt.Fprintf(&b, "feox_version:%s\r\n", utils.Version)
	fmt.Fprintf(&b, "os:%s\r\n", runtime.GOOS)
	fmt.Fprintf(&b, "arch_bits:%d\r\n", 32<<(^uint(0)>>63))
	fmt.Fprintf(&b, "process_id:%d\r\n", 1)
	fmt.Fprintf(&b, "tcp_port:%d\r\n", d.port)
	fmt.Fprintf(&b, "uptime_in_seconds:%d\r\n", uptime)
	fmt.Fprintf(&b, "\r\n# Clients\r\n")
	fmt.Fprintf(&b, "connected_clients:%d\r\n", d.Registry.Count())
	fmt.Fprintf(&b, "\r\n# Memory\r\n")
	fmt.Fprintf(&b, "used_memory:%d\r\n", mem.Alloc)
	fmt.Fprintf(&b, "used_memory_rss:%d\r\n", mem.Sys)
	fmt.Fprintf(&b, "\r\n# Stats\r\n")
	fmt.Fprintf(&b, "total_commands_processed:%d\r\n", d.commandCount.Total())
	fmt.Fprintf(&b, "\r\n# Replication\r\n")
	fmt.Fprintf(&b, "role:master\r\n")
	fmt.Fprintf(&b, "connected_slaves:0\r\n")
	fmt.Fprintf(&b, "\r\n# CPU\r\n")
	fmt.Fprintf(&b, "num_cpu_cores:%d\r\n", runtime.NumCPU())
	fmt.Fprintf(&b, "\r\n# Keyspace\r\n")
	if n := d.Store.DBSize(); n > 0 {
		fmt.Fprintf(&b, "db0:keys=%d,expires=0,avg_ttl=0\r\n", n)
	}
	return resp.BulkString([]byte(b.String()))
}

// cmdConfig implements CONFIG GET/SET (§4.6). GET matches its pattern argument against every known option
// name with the same glob engine KEYS uses; unset/unmatched names yield an empty array, never an error.
func cmdConfig(d *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	switch upperString(args[0]) {
	case "GET":
		if len(args) != 2 {
			return resp.Error("ERR wrong number of arguments for 'config|get' command")
		}
		items := make([]resp.Reply, 0)
		for _, name := range d.configNames() {
			if scan.MatchesGlob(args[1], []byte(name)) {
				v, _ := d.configGet(name)
				items = append(items, resp.BulkString([]byte(name)), resp.BulkString([]byte(v)))
			}
		}
		return resp.Array(items)
	case "SET":
		if len(args) != 3 {
			return resp.Error("ERR wrong number of arguments for 'config|set' command")
		}
		name := strings.ToLower(string(args[1]))
		if _, ok := d.configGet(name); !ok {
			return resp.Error("ERR Unsupported CONFIG parameter")
		}
		d.configSet(name, string(args[2]))
		return resp.OK()
	default:
		return resp.Error("ERR Unknown CONFIG subcommand or wrong number of arguments")
	}
}

// cmdCommand implements the minimal COMMAND surface named in §C: COUNT and a stubbed DOCS, enough for
// client libraries that probe the command table on connect without failing the handshake.
func cmdCommand(_ *Dispatcher, _ *Conn, args [][]byte) resp.Reply {
	if len(args) == 0 {
		return resp.Array(nil)
	}
	switch upperString(args[0]) {
	case "COUNT":
		return resp.Integer(int64(len(commandTable)))
	case "DOCS":
		return resp.Array(nil)
	default:
		return resp.Array(nil)
	}
}
