// Package server wires together the accept loop, the bounded connection
// queue, and the fixed worker pool described in spec.md §4.7, replacing
// this codebase's own goroutine-per-connection Server.Run
// (server/server.go) with the queue-based design spec.md explicitly
// prescribes (spec.md §9's resolved Open Question).
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/curol/staticd/internal/conn"
	"github.com/curol/staticd/internal/config"
	"github.com/curol/staticd/internal/pathresolver"
	"github.com/curol/staticd/internal/queue"
	"github.com/curol/staticd/internal/worker"
)

// Server owns the listening socket and every worker. Workers share no
// mutable state beyond the queue; each accepted socket is owned
// exclusively by whichever worker dequeues it.
type Server struct {
	cfg     config.Config
	logger  *zap.Logger
	queue   *queue.Queue
	workers []*worker.Worker
	handler *conn.Handler

	mu       sync.Mutex
	listener net.Listener
	stopping bool
}

// New builds a Server from cfg. cfg.Validate must have already been called
// successfully; New does not re-validate the document root.
func New(cfg config.Config, logger *zap.Logger) *Server {
	resolver := pathresolver.New(cfg.DocumentRoot, cfg.IndexPageName)
	handler := &conn.Handler{
		Resolver:         resolver,
		Logger:           logger,
		ClientTimeout:    cfg.ClientTimeout,
		RequestMaxSize:   cfg.RequestMaxSize,
		RequestChunkSize: cfg.RequestChunkSize,
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		queue:   queue.New(cfg.QueueCapacity()),
		handler: handler,
	}

	for i := 0; i < cfg.NumWorkers; i++ {
		w := worker.New(i, s.queue, s.handleItem, logger)
		s.workers = append(s.workers, w)
	}
	return s
}

func (s *Server) handleItem(item queue.Item) {
	s.handler.Handle(item.Conn, item.Peer)
}

// Addr returns the actual bound address once Run has started listening,
// useful when cfg.Port is 0 and the kernel picked an ephemeral port. It
// returns "" before the listener is up.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// reuseAddrControl sets SO_REUSEADDR on the listening socket before bind,
// matching this codebase's own socket.setsockopt(SO_REUSEADDR) call in the
// original implementation (original_source/HW5/httpd.py).
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// Run binds the listening socket, starts every worker, and runs the
// accept loop until ctx is cancelled. Cancelling ctx triggers spec.md
// §4.7's shutdown sequence: stop accepting, signal every worker, and join
// with a bounded timeout before returning.
//
// Go's net package does not expose the raw listen(2) backlog argument the
// way the specification's "listen with backlog num_workers*backlog"
// describes; that value is used here to size the user-space
// ConnectionQueue instead, and the kernel's own listen backlog is left at
// the runtime's default. This is documented in DESIGN.md as a stdlib
// limitation, not a deviation from the queue/backpressure semantics
// spec.md actually tests.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("server listening",
		zap.String("address", s.cfg.Addr()),
		zap.Int("num_workers", s.cfg.NumWorkers),
		zap.Int("backlog", s.cfg.Backlog),
		zap.String("document_root", s.cfg.DocumentRoot),
	)

	g := &errgroup.Group{}
	for _, w := range s.workers {
		w := w
		g.Go(func() error {
			w.Run()
			return nil
		})
	}
	g.Go(func() error {
		return s.acceptLoop(ln)
	})

	// Watches ctx independently of the errgroup: cancellation must unblock
	// Accept and every worker's queue wait, not just signal completion.
	go func() {
		<-ctx.Done()
		s.triggerShutdown(ln)
	}()

	drained := make(chan error, 1)
	go func() { drained <- g.Wait() }()

	select {
	case err := <-drained:
		return err
	case <-ctx.Done():
		select {
		case err := <-drained:
			return err
		case <-time.After(s.cfg.ShutdownTimeout):
			s.logger.Warn("shutdown timeout elapsed; abandoning in-flight workers",
				zap.Duration("timeout", s.cfg.ShutdownTimeout))
			return nil
		}
	}
}

// acceptLoop accepts connections and enqueues them, blocking on Put when
// the queue is full — the admission-control backpressure spec.md §4.7 and
// §5 require.
func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := s.stopping
			s.mu.Unlock()
			if stopping {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.queue.Put(queue.Item{Conn: c, Peer: c.RemoteAddr().String()})
	}
}

// triggerShutdown implements spec.md §4.7's shutdown trigger: stop
// accepting and signal every worker. The errgroup in Run joins on its own;
// triggerShutdown only has to make that join actually terminate.
func (s *Server) triggerShutdown(ln net.Listener) {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	ln.Close()
	for _, w := range s.workers {
		w.Stop()
	}
}

// Shutdown stops accepting new connections and waits up to
// cfg.ShutdownTimeout for in-flight requests to finish. It is equivalent
// to cancelling the context passed to Run; callers that already manage
// their own cancellation should prefer that instead.
func (s *Server) Shutdown() {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return
	}
	s.triggerShutdown(ln)

	done := make(chan struct{})
	go func() {
		for _, w := range s.workers {
			w.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		s.logger.Warn("shutdown timeout elapsed; abandoning in-flight workers",
			zap.Duration("timeout", s.cfg.ShutdownTimeout))
	}
}
