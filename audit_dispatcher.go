package blogauth

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher moves sink calls off request goroutines. Emit enqueues on
// a bounded channel; one worker drains it into the sink.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool

	queue   chan AuditEvent
	stopCtx context.Context
	stop    context.CancelFunc
	worker  sync.WaitGroup
	once    sync.Once

	dropped atomic.Uint64
}

// newAuditDispatcher returns nil when audit is disabled; every method is a
// no-op on a nil dispatcher.
func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, max(cfg.BufferSize, 1)),
		stopCtx:    ctx,
		stop:       cancel,
	}
	d.worker.Go(d.drain)
	return d
}

func (d *auditDispatcher) drain() {
	// sink calls outlive stop so the final flush is delivered
	sinkCtx := context.WithoutCancel(d.stopCtx)
	for {
		select {
		case ev := <-d.queue:
			d.sink.Emit(sinkCtx, ev)
		case <-d.stopCtx.Done():
			for {
				select {
				case ev := <-d.queue:
					d.sink.Emit(sinkCtx, ev)
				default:
					return
				}
			}
		}
	}
}

// Emit enqueues event. With dropIfFull a full queue drops and counts the
// event; otherwise Emit waits for room, for ctx to end or for Close.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.stopCtx.Err() != nil {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stopCtx.Done():
	}
}

// Close stops intake, delivers what is queued and waits for the worker.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.stop()
		d.worker.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
