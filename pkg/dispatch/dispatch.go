// Package dispatch implements the command dispatcher of §4.6: a pure function of (decoded command,
// connection context, Store, Hub, Registry) to a reply plus a small set of state transitions (auth,
// mode, close). Arity and mode/auth gating happen in the prologue here; each command's own arm only needs
// to worry about its own argument shape.
package dispatch

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mehrantsi/feox/pkg/keyspace"
	"github.com/mehrantsi/feox/pkg/pubsub"
	"github.com/mehrantsi/feox/pkg/registry"
	"github.com/mehrantsi/feox/pkg/resp"
)

// Subscriber is the thin surface the dispatcher needs to hand a connection to the Hub; pkg/server's
// connection type implements it over its outbound delivery queue.
type Subscriber = pubsub.Subscriber

// Conn is the per-connection context the dispatcher reads and mutates. It is supplied by pkg/server, which
// owns the actual socket and outbound buffer; the dispatcher only ever touches the Record and Sub handle.
type Conn struct {
	Record *registry.Record
	Sub    Subscriber

	// Close is set by the dispatcher when the command (QUIT, a protocol-adjacent condition) means the
	// connection should be closed after this reply is flushed.
	Close bool
}

// Dispatcher holds the process-global collaborators. One Dispatcher is shared by every connection/worker.
type Dispatcher struct {
	Store       *keyspace.Store
	Hub         *pubsub.Hub
	Registry    *registry.Registry
	RequirePass string // Empty means no auth required.

	Now func() time.Time

	startedAt    time.Time
	port         int
	commandCount commandCounter

	// runtimeConfig backs CONFIG GET/SET for parameters that don't have a dedicated typed field. requirepass
	// is stored here too (mirroring RequirePass) so CONFIG SET requirepass can take effect without a data
	// race on the plain RequirePass string, which every Dispatch call reads unsynchronized.
	configMu      sync.RWMutex
	runtimeConfig map[string]string
}

// NewDispatcher wires the three collaborators together. port is echoed by INFO's tcp_port field.
func NewDispatcher(store *keyspace.Store, hub *pubsub.Hub, reg *registry.Registry, requirePass string, port int) *Dispatcher {
	return &Dispatcher{
		Store:       store,
		Hub:         hub,
		Registry:    reg,
		RequirePass: requirePass,
		Now:         time.Now,
		startedAt:   time.Now(),
		port:        port,
		runtimeConfig: map[string]string{
			"requirepass":      requirePass,
			"maxmemory":        "0",
			"maxmemory-policy": "noeviction",
			"timeout":          "0",
		},
	}
}

// configGet reads a CONFIG parameter from runtimeConfig; requirepass there starts as the requirePass given to
// NewDispatcher and changes only through configSet.
func (d *Dispatcher) configGet(name string) (string, bool) {
	d.configMu.RLock()
	defer d.configMu.RUnlock()
	v, ok := d.runtimeConfig[name]
	return v, ok
}

// configNames lists every known CONFIG parameter, for CONFIG GET's glob match.
func (d *Dispatcher) configNames() []string {
	d.configMu.RLock()
	defer d.configMu.RUnlock()
	names := make([]string, 0, len(d.runtimeConfig))
	for name := range d.runtimeConfig {
		names = append(names, name)
	}
	return names
}

// configSet updates a CONFIG parameter; requirepass also updates d.RequirePass so the auth gate sees it.
func (d *Dispatcher) configSet(name, value string) {
	d.configMu.Lock()
	d.runtimeConfig[name] = value
	d.configMu.Unlock()
	if name == "requirepass" {
		d.RequirePass = value
	}
}

// subscribedOnlyCommands is the command allow-list while a connection is in Subscribed mode (§4.3).
var subscribedOnlyCommands = map[string]bool{
	"SUBSCRIBE": true, "UNSUBSCRIBE": true, "PSUBSCRIBE": true, "PUNSUBSCRIBE": true,
	"PING": true, "QUIT": true, "RESET": true,
}

// unauthenticatedCommands is the command allow-list before AUTH succeeds (§4.5).
var unauthenticatedCommands = map[string]bool{
	"AUTH": true, "HELLO": true, "QUIT": true, "RESET": true,
}

// writeCommands is consulted by the CLIENT PAUSE deferral: any command that mutates the Store. Reads
// proceed even while paused (§4.4).
var writeCommands = map[string]bool{
	"SET": true, "SETNX": true, "APPEND": true, "DEL": true, "EXPIRE": true, "PERSIST": true,
	"INCR": true, "INCRBY": true, "DECR": true, "DECRBY": true, "LPUSH": true, "RPUSH": true,
	"LPOP": true, "RPOP": true, "HSET": true, "HDEL": true, "HINCRBY": true, "MSET": true,
	"CAS": true, "JSONPATCH": true, "RENAME": true, "RENAMENX": true, "FLUSHALL": true,
}

// Dispatch routes cmd to its command arm, after the shared arity/auth/mode prologue. conn is mutated in
// place for auth/mode/close transitions.
func (d *Dispatcher) Dispatch(cmd resp.Command, conn *Conn) resp.Reply {
	if len(cmd.Args) == 0 {
		return resp.SimpleString("") // Degenerate empty command; the state machine skips replying to it.
	}
	name := strings.ToUpper(string(cmd.Args[0]))
	args := cmd.Args[1:]
	d.commandCount.Inc(name)
	conn.Record.NoteCommand(strings.ToLower(name), d.Now())

	if !conn.Record.Authorized.Load() && d.RequirePass != "" {
		if !unauthenticatedCommands[name] {
			return resp.Error("NOAUTH Authentication required.")
		}
	}

	if conn.Record.Mode() == registry.Subscribed && !subscribedOnlyCommands[name] {
		return resp.Error(fmt.Sprintf(
			"ERR Can't execute '%s': only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT allowed in this context",
			strings.ToLower(name)))
	}

	if writeCommands[name] && d.Registry.Paused(d.Now()) {
		// §9: pause overflow is treated as ordinary backpressure, not a distinct policy; the state
		// machine is what actually stops reading, so here we simply block until unpaused.
		d.waitForUnpause()
	}

	if arityErr := checkArity(name, args); arityErr != "" {
		return resp.Error(arityErr)
	}

	handler, known := commandTable[name]
	if !known {
		return resp.Error(fmt.Sprintf("ERR unknown command '%s'", string(cmd.Args[0])))
	}
	return handler(d, conn, args)
}

// waitForUnpause blocks the calling worker goroutine until CLIENT PAUSE's deadline passes. Per §5, a
// worker must not hold any Store lock while suspended; this runs before any Store access for the command,
// so nothing is held here.
func (d *Dispatcher) waitForUnpause() {
	for d.Registry.Paused(d.Now()) {
		time.Sleep(time.Millisecond)
	}
}

type handlerFunc func(d *Dispatcher, conn *Conn, args [][]byte) resp.Reply

var commandTable map[string]handlerFunc

func init() {
	commandTable = make(map[string]handlerFunc)
	registerConnectionCommands(commandTable)
	registerStringCommands(commandTable)
	registerListCommands(commandTable)
	registerHashCommands(commandTable)
	registerGenericCommands(commandTable)
	registerPubSubCommands(commandTable)
	registerClientCommands(commandTable)
	registerServerCommands(commandTable)
}
