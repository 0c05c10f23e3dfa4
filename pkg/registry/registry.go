// Package registry implements the process-wide table of live connections described in §4.4: id assignment,
// CLIENT LIST/KILL formatting and selection, and the CLIENT PAUSE deadline.
package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Mode mirrors the connection state machine's mode field (§4.5); the registry only needs to know it for
// formatting and for CLIENT KILL TYPE filtering, not to enforce it.
type Mode int

const (
	Normal Mode = iota
	Subscribed
)

func (m Mode) String() string {
	if m == Subscribed {
		return "pubsub"
	}
	return "normal"
}

// Record is one connection's registry entry. The immutable identity fields (ID, RemoteAddr, CreatedAt) are
// set once at Register; the auth and kill flags are atomics; every other field (name, mode, subscriptions,
// last command) goes through the Record's own mutex, so CLIENT LIST readers lock one Record at a time rather
// than contending with the data path of unrelated connections.
type Record struct {
	ID          uint64
	RemoteAddr  string
	CreatedAt   time.Time
	Authorized  atomic.Bool
	killPending atomic.Bool

	mu          sync.Mutex
	name        string
	mode        Mode
	channels    map[string]bool
	patterns    map[string]bool
	lastCommand string
	lastCmdAt   time.Time
}

// SetName sets the client-assigned name (CLIENT SETNAME).
func (r *Record) SetName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
}

// Name returns the client-assigned name, or "" if unset.
func (r *Record) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// SetMode updates the connection's Normal/Subscribed mode.
func (r *Record) SetMode(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
}

// Mode returns the connection's current mode.
func (r *Record) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// NoteCommand records the most recently dispatched command name and the time it ran, for CLIENT LIST's
// `cmd=` and `idle=` fields.
func (r *Record) NoteCommand(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastCommand = name
	r.lastCmdAt = at
}

// SubCount returns the total channel+pattern subscription count tracked for formatting; the Hub remains
// the source of truth for actual delivery, this is a mirror kept for CLIENT LIST's sub=/psub= fields.
func (r *Record) SubCount() (channels, patterns int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels), len(r.patterns)
}

// TrackSubscribe/TrackUnsubscribe keep the Record's mirror of subscription counts in sync with the Hub.
func (r *Record) TrackSubscribe(channel string, pattern bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pattern {
		if r.patterns == nil {
			r.patterns = make(map[string]bool)
		}
		r.patterns[channel] = true
	} else {
		if r.channels == nil {
			r.channels = make(map[string]bool)
		}
		r.channels[channel] = true
	}
}

func (r *Record) TrackUnsubscribe(channel string, pattern bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pattern {
		delete(r.patterns, channel)
	} else {
		delete(r.channels, channel)
	}
}

func (r *Record) TrackUnsubscribeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = nil
	r.patterns = nil
}

// MarkKillPending schedules the connection for close after its current in-flight reply (§4.4).
func (r *Record) MarkKillPending() { r.killPending.Store(true) }

// KillPending reports whether MarkKillPending was called.
func (r *Record) KillPending() bool { return r.killPending.Load() }

// FormatLine renders the CLIENT LIST line for r, as of now.
func (r *Record) FormatLine(now time.Time) string {
	r.mu.Lock()
	name := r.name
	mode := r.mode
	nCh, nPat := len(r.channels), len(r.patterns)
	lastCmd := r.lastCommand
	lastCmdAt := r.lastCmdAt
	r.mu.Unlock()

	idle := int64(0)
	if !lastCmdAt.IsZero() {
		idle = int64(now.Sub(lastCmdAt).Seconds())
	}
	flags := "N"
	if mode == Subscribed {
		flags = "P"
	}
	return fmt.Sprintf("id=%d addr=%s name=%s age=%d idle=%d flags=%s db=0 sub=%d psub=%d cmd=%s",
		r.ID, r.RemoteAddr, name, int64(now.Sub(r.CreatedAt).Seconds()), idle, flags, nCh, nPat, lastCmd)
}

// Registry is the process-global connection table.
type Registry struct {
	mu         sync.RWMutex
	records    map[uint64]*Record
	nextID     atomic.Uint64
	pauseUntil atomic.Int64 // UnixNano deadline; 0 means not paused.
}

// NewRegistry constructs an empty Registry. IDs start at 1, matching real Redis's CLIENT LIST output.
func NewRegistry() *Registry {
	return &Registry{records: make(map[uint64]*Record)}
}

// Register creates and stores a new Record for an accepted connection.
func (reg *Registry) Register(remoteAddr string, createdAt time.Time) *Record {
	id := reg.nextID.Add(1)
	rec := &Record{ID: id, RemoteAddr: remoteAddr, CreatedAt: createdAt, mode: Normal}
	reg.mu.Lock()
	reg.records[id] = rec
	reg.mu.Unlock()
	return rec
}

// Unregister removes rec on connection close.
func (reg *Registry) Unregister(rec *Record) {
	reg.mu.Lock()
	delete(reg.records, rec.ID)
	reg.mu.Unlock()
}

// List returns every live Record's CLIENT LIST line, ordered by id.
func (reg *Registry) List(now time.Time) []string {
	reg.mu.RLock()
	recs := make([]*Record, 0, len(reg.records))
	for _, r := range reg.records {
		recs = append(recs, r)
	}
	reg.mu.RUnlock()

	sortRecordsByID(recs)
	lines := make([]string, len(recs))
	for i, r := range recs {
		lines[i] = r.FormatLine(now)
	}
	return lines
}

func sortRecordsByID(recs []*Record) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j-1].ID > recs[j].ID; j-- {
			recs[j-1], recs[j] = recs[j], recs[j-1]
		}
	}
}

// KillSelector picks targets for CLIENT KILL: by ID, by ADDR, or by TYPE (normal/pubsub).
type KillSelector struct {
	ID   *uint64
	Addr string
	Type string // "normal" | "pubsub"; "" means unfiltered.
}

// Kill marks every matching Record for close and returns the count matched.
func (reg *Registry) Kill(sel KillSelector) int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	killed := 0
	for _, r := range reg.records {
		if sel.ID != nil && r.ID != *sel.ID {
			continue
		}
		if sel.Addr != "" && r.RemoteAddr != sel.Addr {
			continue
		}
		if sel.Type != "" && r.Mode().String() != sel.Type {
			continue
		}
		r.MarkKillPending()
		killed++
	}
	return killed
}

// Pause sets the process-global pause deadline ms milliseconds from now (CLIENT PAUSE).
func (reg *Registry) Pause(ms int64, at time.Time) {
	reg.pauseUntil.Store(at.Add(time.Duration(ms) * time.Millisecond).UnixNano())
}

// Unpause clears the pause deadline (CLIENT UNPAUSE).
func (reg *Registry) Unpause() {
	reg.pauseUntil.Store(0)
}

// Paused reports whether now is still before the pause deadline.
func (reg *Registry) Paused(now time.Time) bool {
	deadline := reg.pauseUntil.Load()
	return deadline != 0 && now.UnixNano() < deadline
}

// Count returns the number of live connections, used by INFO's `connected_clients`.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.records)
}
