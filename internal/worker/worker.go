// Package worker implements the fixed-size worker pool of spec.md §4.6:
// pull an accepted connection from the queue, run the connection handler,
// and never let a handler panic take the worker down.
package worker

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/curol/staticd/internal/queue"
)

// State is a worker's lifecycle stage, per spec.md §3: created → running →
// stopping → stopped.
type State int32

const (
	Created State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// HandleFunc processes one dequeued connection to completion. Workers
// don't know or care what it does beyond that it returns.
type HandleFunc func(item queue.Item)

// Worker repeatedly dequeues from q and invokes handle until told to stop.
// Workers are anonymous and interchangeable: none of them hold state that
// outlives a single Handle call, matching spec.md §3's ownership model.
type Worker struct {
	ID      int
	queue   *queue.Queue
	handle  HandleFunc
	logger  *zap.Logger
	state   int32
	stop    chan struct{}
	stopped chan struct{}
}

// New returns a Worker bound to q, invoking handle for each dequeued item.
func New(id int, q *queue.Queue, handle HandleFunc, logger *zap.Logger) *Worker {
	return &Worker{
		ID:      id,
		queue:   q,
		handle:  handle,
		logger:  logger,
		state:   int32(Created),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() State {
	return State(atomic.LoadInt32(&w.state))
}

// Run loops: dequeue with a short poll so Stop is observed promptly, run
// the handler, and catch any handler-level panic so the worker itself
// never dies, per spec.md §4.6. Run blocks until Stop is called and the
// in-flight item (if any) finishes.
func (w *Worker) Run() {
	atomic.StoreInt32(&w.state, int32(Running))
	defer func() {
		atomic.StoreInt32(&w.state, int32(Stopped))
		close(w.stopped)
	}()

	for {
		select {
		case <-w.stop:
			return
		case item, ok := <-w.queue.Chan():
			if !ok {
				return
			}
			w.safeHandle(item)
		case <-time.After(200 * time.Millisecond):
			// Short poll timeout so Stop is observed even when the queue
			// is empty and never closed.
		}
	}
}

func (w *Worker) safeHandle(item queue.Item) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker recovered from panic in handler",
				zap.Int("worker_id", w.ID),
				zap.Any("panic", r),
			)
			item.Conn.Close()
		}
	}()
	w.handle(item)
}

// Stop signals the worker to finish its current item and exit. Stop does
// not block; use Wait to block until the worker has actually stopped.
func (w *Worker) Stop() {
	atomic.StoreInt32(&w.state, int32(Stopping))
	select {
	case <-w.stop:
		// already closed
	default:
		close(w.stop)
	}
}

// Wait blocks until the worker's Run loop has returned.
func (w *Worker) Wait() {
	<-w.stopped
}
