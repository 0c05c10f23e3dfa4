// Package pubsub implements the global channel/pattern subscription registry and message fan-out described
// in §4.3: a connection subscribes to literal channels and/or glob patterns, and PUBLISH delivers to every
// matching subscriber without blocking on a slow one.
package pubsub

import (
	"sync"

	"github.com/mehrantsi/feox/pkg/scan"
)

// Subscriber is the delivery target the Hub knows about: just enough surface to enqueue a message and to
// identify the connection for introspection/teardown. pkg/server's connection wraps its outbound queue to
// satisfy this.
type Subscriber interface {
	// ID is the connection's registry id, used as the map key so a connection's various subscriptions
	// all point back to the same identity regardless of channel/pattern text.
	ID() uint64
	// Deliver enqueues a Pub/Sub message frame. ok is false when the subscriber's outbound queue is over
	// its high-water mark; the Hub drops the delivery and lets the connection's owning worker schedule
	// an asynchronous disconnect, mirroring §4.3's backpressure policy.
	Deliver(frame [][]byte) (ok bool)
}

// Hub is the process-global Pub/Sub registry. Safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[uint64]Subscriber
	patterns map[string]map[uint64]Subscriber
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[uint64]Subscriber),
		patterns: make(map[string]map[uint64]Subscriber),
	}
}

// Subscribe adds sub to each named channel. It returns nothing; the running count SUBSCRIBE's reply reports
// per channel comes from the connection's registry Record.
func (h *Hub) Subscribe(sub Subscriber, channels ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		set, ok := h.channels[ch]
		if !ok {
			set = make(map[uint64]Subscriber)
			h.channels[ch] = set
		}
		set[sub.ID()] = sub
	}
}

// Unsubscribe removes sub from the named channels, or from every channel it holds when channels is empty
// (the "UNSUBSCRIBE with no arguments" form).
func (h *Hub) Unsubscribe(sub Subscriber, channels ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(channels) == 0 {
		for ch, set := range h.channels {
			delete(set, sub.ID())
			if len(set) == 0 {
				delete(h.channels, ch)
			}
		}
		return
	}
	for _, ch := range channels {
		if set, ok := h.channels[ch]; ok {
			delete(set, sub.ID())
			if len(set) == 0 {
				delete(h.channels, ch)
			}
		}
	}
}

// PSubscribe adds sub to each glob pattern.
func (h *Hub) PSubscribe(sub Subscriber, patterns ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range patterns {
		set, ok := h.patterns[p]
		if !ok {
			set = make(map[uint64]Subscriber)
			h.patterns[p] = set
		}
		set[sub.ID()] = sub
	}
}

// PUnsubscribe removes sub from the named patterns, or every pattern when patterns is empty.
func (h *Hub) PUnsubscribe(sub Subscriber, patterns ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(patterns) == 0 {
		for p, set := range h.patterns {
			delete(set, sub.ID())
			if len(set) == 0 {
				delete(h.patterns, p)
			}
		}
		return
	}
	for _, p := range patterns {
		if set, ok := h.patterns[p]; ok {
			delete(set, sub.ID())
			if len(set) == 0 {
				delete(h.patterns, p)
			}
		}
	}
}

// UnsubscribeAll tears down every subscription (channel and pattern) sub holds; used on disconnect and on
// RESET.
func (h *Hub) UnsubscribeAll(sub Subscriber) {
	h.Unsubscribe(sub)
	h.PUnsubscribe(sub)
}

// Publish delivers msg to every literal subscriber of channel, then every pattern subscriber whose glob
// matches channel — a connection subscribed via both paths receives two deliveries, matching real Redis
// (§4.3). Returns the count of deliveries scheduled, not confirmed received.
func (h *Hub) Publish(channel string, msg []byte) int {
	type patternDelivery struct {
		pattern string
		sub     Subscriber
	}

	h.mu.RLock()
	channelSubs := snapshot(h.channels[channel])
	var patternMatches []patternDelivery
	for pattern, subs := range h.patterns {
		if scan.MatchesGlob([]byte(pattern), []byte(channel)) {
			for _, sub := range snapshot(subs) {
				patternMatches = append(patternMatches, patternDelivery{pattern: pattern, sub: sub})
			}
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range channelSubs {
		frame := [][]byte{[]byte("message"), []byte(channel), msg}
		if sub.Deliver(frame) {
			delivered++
		}
	}
	for _, pd := range patternMatches {
		frame := [][]byte{[]byte("pmessage"), []byte(pd.pattern), []byte(channel), msg}
		if pd.sub.Deliver(frame) {
			delivered++
		}
	}
	return delivered
}

func snapshot(set map[uint64]Subscriber) []Subscriber {
	out := make([]Subscriber, 0, len(set))
	for _, sub := range set {
		out = append(out, sub)
	}
	return out
}

// Channels implements the introspection `channels(pattern?)`.
func (h *Hub) Channels(pattern []byte) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.channels))
	for ch, subs := range h.channels {
		if len(subs) == 0 {
			continue
		}
		if pattern == nil || scan.MatchesGlob(pattern, []byte(ch)) {
			out = append(out, ch)
		}
	}
	return out
}

// NumSub implements `numsub(channel…)`, returning the subscriber count per channel in request order.
func (h *Hub) NumSub(channels ...string) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]int, len(channels))
	for i, ch := range channels {
		out[i] = len(h.channels[ch])
	}
	return out
}

// NumPat implements `numpat()`: the total number of distinct patterns with at least one subscriber.
func (h *Hub) NumPat() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, subs := range h.patterns {
		if len(subs) > 0 {
			count++
		}
	}
	return count
}
