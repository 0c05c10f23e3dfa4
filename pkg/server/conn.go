// Package server implements the per-connection state machine and thread-per-core acceptor described in
// §4.5 and §5: decode → authorize → dispatch → encode, with pipelined reply ordering, Pub/Sub delivery
// interleaved only between reply frames, and outbound backpressure.
package server

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mehrantsi/feox/pkg/dispatch"
	"github.com/mehrantsi/feox/pkg/registry"
	"github.com/mehrantsi/feox/pkg/resp"
)

const (
	// highWaterMark and lowWaterMark govern the per-connection outbound buffer backpressure of §4.5: once
	// buffered bytes pass highWaterMark the worker stops decoding new commands until drained below
	// lowWaterMark.
	highWaterMark = 8 * 1024 * 1024
	lowWaterMark  = 4 * 1024 * 1024

	// pubsubHighWaterMark is the separate, larger threshold §4.3 gives the Hub: past this many buffered
	// bytes a subscriber's deliveries are dropped and the connection scheduled for async disconnect, rather
	// than the command-reply path simply pausing reads.
	pubsubHighWaterMark = 32 * 1024 * 1024
)

// outboundQueue buffers encoded reply/Pub/Sub frames for one connection. The owning worker goroutine is the
// only reader (via drain); Publish from other goroutines only appends, so the mutex only ever guards the
// slice and byte counter, never the socket write itself.
type outboundQueue struct {
	mu       sync.Mutex
	frames   [][]byte
	buffered int
	closed   bool
}

func (q *outboundQueue) push(b []byte) (ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if q.buffered >= pubsubHighWaterMark {
		// Drop this frame and close the queue: every later push fails, so further deliveries are dropped
		// and the owning worker's serve loop ends the connection when it next tries to queue a reply.
		q.closed = true
		return false
	}
	q.frames = append(q.frames, b)
	q.buffered += len(b)
	return true
}

func (q *outboundQueue) drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return nil
	}
	out := q.frames
	q.frames = nil
	q.buffered = 0
	return out
}

func (q *outboundQueue) bufferedBytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buffered
}

func (q *outboundQueue) markClosed() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// subscriber adapts a Conn's outboundQueue to pubsub.Subscriber: Deliver is called from whichever
// goroutine is running PUBLISH, which is almost always a different worker than the one owning this
// connection, so delivered frames must only ever be appended here, never written to the socket directly.
type subscriber struct {
	id    uint64
	queue *outboundQueue
}

func (s *subscriber) ID() uint64 { return s.id }

func (s *subscriber) Deliver(frame [][]byte) bool {
	encoded, err := encodeFrame(frame)
	if err != nil {
		return false
	}
	return s.queue.push(encoded)
}

// encodeFrame renders a Pub/Sub delivery frame (e.g. ["message", channel, payload]) as a standalone RESP2
// array, matching the wire shape described in §8 scenario D.
func encodeFrame(frame [][]byte) ([]byte, error) {
	items := make([]resp.Reply, len(frame))
	for i, part := range frame {
		items[i] = resp.BulkString(part)
	}
	return encodeReply(resp.Array(items))
}

// encodeReply renders r into a standalone byte slice via a throwaway Encoder, so the result can be handed
// to outboundQueue.push regardless of which goroutine (the owning worker, or another one running PUBLISH)
// produced it.
func encodeReply(r resp.Reply) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	enc := resp.NewEncoder(w)
	if err := r.Write(enc); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Conn is one accepted connection, owned by exactly one worker for its lifetime (§5).
type Conn struct {
	netConn net.Conn
	dec     *resp.Decoder
	queue   *outboundQueue
	sub     *subscriber

	record *registry.Record
}

func newConn(netConn net.Conn, rec *registry.Record) *Conn {
	queue := &outboundQueue{}
	return &Conn{
		netConn: netConn,
		dec:     resp.NewDecoder(bufio.NewReaderSize(netConn, resp.MaxInlineLen+2)),
		queue:   queue,
		sub:     &subscriber{id: rec.ID, queue: queue},
		record:  rec,
	}
}

// serve runs c's state machine until the connection closes. It is the cooperative per-connection loop §5
// describes: read-ready wait (inside Decode), write-ready wait (inside the socket Write), and store-entry
// suspension are its only blocking points.
func (c *Conn) serve(d *dispatch.Dispatcher) {
	dconn := &dispatch.Conn{Record: c.record, Sub: c.sub}
	for {
		if err := c.drainOutbound(); err != nil {
			return
		}
		if c.record.KillPending() {
			return
		}

		for c.queue.bufferedBytes() >= highWaterMark {
			if err := c.drainOutbound(); err != nil {
				return
			}
			if c.queue.bufferedBytes() < lowWaterMark {
				break
			}
			time.Sleep(time.Millisecond)
		}

		cmd, err := c.dec.Decode()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("connection decode error", "addr", c.record.RemoteAddr, "error", err)
			}
			return
		}

		reply := d.Dispatch(cmd, dconn)
		if len(cmd.Args) > 0 {
			encoded, err := encodeReply(reply)
			if err != nil {
				return
			}
			if !c.queue.push(encoded) {
				return
			}
		}

		if dconn.Close || c.record.KillPending() {
			_ = c.drainOutbound()
			return
		}
	}
}

// drainOutbound flushes every frame queued so far (command replies and any interleaved Pub/Sub deliveries)
// directly to the socket, preserving the order they were enqueued in — which is itself order-preserving
// since both paths only ever append.
func (c *Conn) drainOutbound() error {
	frames := c.queue.drain()
	if len(frames) == 0 {
		return nil
	}
	for _, f := range frames {
		if _, err := c.netConn.Write(f); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) close() {
	c.queue.markClosed()
	_ = c.netConn.Close()
}
