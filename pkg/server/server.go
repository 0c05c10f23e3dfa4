package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/mehrantsi/feox/pkg/dispatch"
	"github.com/mehrantsi/feox/pkg/registry"
)

// worker owns a set of connections handed to it by the acceptor and serves each on its own goroutine. Real
// thread-per-core designs multiplex many connections per OS thread via edge-triggered I/O; feox instead
// gives each accepted connection its own goroutine and lets the Go scheduler multiplex goroutines onto
// GOMAXPROCS OS threads, which is the idiomatic Go rendition of the same "bounded worker count, no
// cross-thread handoff once assigned" shape (§5) without hand-rolling an event loop.
type worker struct {
	id     int
	assign atomic.Uint64
}

// Server is the acceptor: it owns the listener and distributes accepted connections round-robin across N
// workers, matching §5's scheduling model.
type Server struct {
	listener   net.Listener
	dispatcher *dispatch.Dispatcher
	registry   *registry.Registry
	workers    []*worker
	nextWorker atomic.Uint64
}

// New binds a listener on addr (host:port) and constructs a Server ready to Serve, with threadCount workers
// among which accepted connections are distributed round-robin.
func New(addr string, d *dispatch.Dispatcher, reg *registry.Registry, threadCount int) (*Server, error) {
	if threadCount <= 0 {
		threadCount = 1
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	workers := make([]*worker, threadCount)
	for i := range workers {
		workers[i] = &worker{id: i}
	}
	return &Server{listener: ln, dispatcher: d, registry: reg, workers: workers}, nil
}

// Addr returns the listener's bound address, useful when addr was given with a ":0" port.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts connections until ctx is cancelled or the listener errors. It blocks until one of those
// happens, mirroring the teacher's context-cancellation/error-channel shape.
func (s *Server) Serve(ctx context.Context) error {
	acceptErrSignal := make(chan error, 1)
	go func() {
		for {
			netConn, err := s.listener.Accept()
			if err != nil {
				acceptErrSignal <- err
				close(acceptErrSignal)
				return
			}
			s.handle(netConn)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("server context cancelled, closing listener", "err", ctx.Err())
		if err := s.listener.Close(); err != nil {
			return fmt.Errorf("failed to close listener: %w", err)
		}
		return nil
	case err := <-acceptErrSignal:
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		return fmt.Errorf("accept loop stopped unexpectedly: %w", err)
	}
}

// handle registers netConn in the Registry, assigns it round-robin to a worker, and runs its state machine
// to completion on a dedicated goroutine.
func (s *Server) handle(netConn net.Conn) {
	addr := netConn.RemoteAddr().String()
	rec := s.registry.Register(addr, s.dispatcher.Now())
	rec.Authorized.Store(s.dispatcher.RequirePass == "")

	w := s.workers[s.nextWorker.Add(1)%uint64(len(s.workers))]
	w.assign.Add(1)

	conn := newConn(netConn, rec)
	slog.Info("accepted connection", "addr", addr, "worker", w.id, "client_id", rec.ID)

	go func() {
		defer func() {
			conn.close()
			s.registry.Unregister(rec)
			s.dispatcher.Hub.UnsubscribeAll(conn.sub)
			w.assign.Add(^uint64(0)) // decrement
			slog.Debug("connection closed", "addr", addr, "client_id", rec.ID)
		}()
		conn.serve(s.dispatcher)
	}()
}

// Close closes the underlying listener immediately, without waiting for in-flight connections.
func (s *Server) Close() error {
	return s.listener.Close()
}
