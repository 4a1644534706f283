package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultShipQueueSize    = 1024
	defaultShipFlushTimeout = 5 * time.Second
)

// ShipOptions tunes the queue in front of a remote log sink.
type ShipOptions struct {
	QueueSize    int
	FlushTimeout time.Duration
}

type shipment struct {
	ctx    context.Context
	record slog.Record
	dst    slog.Handler
}

// shipQueue hands records to remote handlers on a single goroutine.
// A full queue drops the record instead of blocking the caller.
type shipQueue struct {
	mu      sync.RWMutex
	closed  bool
	items   chan shipment
	done    chan struct{}
	dropped atomic.Uint64
	timeout time.Duration
}

func newShipQueue(opts ShipOptions) *shipQueue {
	size := opts.QueueSize
	if size <= 0 {
		size = defaultShipQueueSize
	}
	timeout := opts.FlushTimeout
	if timeout <= 0 {
		timeout = defaultShipFlushTimeout
	}

	q := &shipQueue{
		items:   make(chan shipment, size),
		done:    make(chan struct{}),
		timeout: timeout,
	}
	go q.drain()
	return q
}

func (q *shipQueue) drain() {
	defer close(q.done)
	for s := range q.items {
		_ = s.dst.Handle(s.ctx, s.record)
	}
}

func (q *shipQueue) push(s shipment) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.items <- s:
	default:
		q.dropped.Add(1)
	}
}

// close stops intake and waits for queued records until ctx ends, or the
// flush timeout when ctx has no deadline.
func (q *shipQueue) close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("log shipping: %d records unsent: %w", len(q.items), ctx.Err())
	}
}

// ShipHandler forwards records to a remote handler through a bounded queue,
// so a slow log endpoint never stalls a conversation turn.
type ShipHandler struct {
	queue *shipQueue
	next  slog.Handler
}

// NewShipHandler starts the queue worker for next.
func NewShipHandler(next slog.Handler, opts ShipOptions) *ShipHandler {
	return &ShipHandler{queue: newShipQueue(opts), next: next}
}

func (h *ShipHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ShipHandler) Handle(ctx context.Context, r slog.Record) error {
	h.queue.push(shipment{ctx: context.WithoutCancel(ctx), record: r.Clone(), dst: h.next})
	return nil
}

func (h *ShipHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ShipHandler{queue: h.queue, next: h.next.WithAttrs(attrs)}
}

func (h *ShipHandler) WithGroup(name string) slog.Handler {
	return &ShipHandler{queue: h.queue, next: h.next.WithGroup(name)}
}

// Dropped returns how many records were discarded because the queue was full.
func (h *ShipHandler) Dropped() uint64 {
	return h.queue.dropped.Load()
}

// Shutdown flushes queued records. Records logged afterwards are discarded.
func (h *ShipHandler) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return h.queue.close(ctx)
}

// teeHandler writes every record to the local output and the remote sink.
type teeHandler struct {
	local, remote slog.Handler
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.local.Enabled(ctx, level) || t.remote.Enabled(ctx, level)
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if t.local.Enabled(ctx, r.Level) {
		errs = append(errs, t.local.Handle(ctx, r))
	}
	if t.remote.Enabled(ctx, r.Level) {
		errs = append(errs, t.remote.Handle(ctx, r))
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return teeHandler{local: t.local.WithAttrs(attrs), remote: t.remote.WithAttrs(attrs)}
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return teeHandler{local: t.local.WithGroup(name), remote: t.remote.WithGroup(name)}
}
