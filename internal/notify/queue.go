package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/timmy/catalogsync/internal/logger"
)

const (
	DefaultQueueSize      = 256
	DefaultPublishTimeout = 10 * time.Second
)

var (
	// ErrQueueFull is returned by Queue.Publish when the message was dropped.
	ErrQueueFull = errors.New("notification queue is full")
	// ErrQueueClosed is returned by Queue.Publish after Close.
	ErrQueueClosed = errors.New("notification queue is closed")
)

type pending struct {
	ctx context.Context
	msg Message
}

// Queue hands messages to a background worker that delivers them to next in
// publish order. Publish never waits on delivery: when the buffer is full the
// message is dropped and ErrQueueFull is returned.
type Queue struct {
	next    Notifier
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	msgs   chan pending
	done   chan struct{}
}

// NewQueue starts a delivery worker for next.
// Parameters:
//   - next: sink receiving every accepted message.
//   - size: buffered messages; zero means DefaultQueueSize.
//   - timeout: per-delivery deadline; zero means DefaultPublishTimeout.
//
// Returns:
//   - *Queue: running queue; call Close to drain and stop it.
func NewQueue(next Notifier, size int, timeout time.Duration) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	q := &Queue{
		next:    next,
		timeout: timeout,
		msgs:    make(chan pending, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Publish buffers msg for delivery. The caller's cancellation does not reach
// the delivery; its logger fields do.
func (q *Queue) Publish(ctx context.Context, msg Message) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.msgs <- pending{ctx: context.WithoutCancel(ctx), msg: msg}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits until the buffered ones are
// delivered or ctx ends. Closing twice is a no-op.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.msgs)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for p := range q.msgs {
		q.deliver(p)
	}
}

func (q *Queue) deliver(p pending) {
	ctx, cancel := context.WithTimeout(p.ctx, q.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			logger.CtxError(ctx, "Notifier panicked delivering %s: %v", p.msg.Event, rec)
		}
	}()

	if err := q.next.Publish(ctx, p.msg); err != nil {
		logger.FromContext(ctx).WithField("event", p.msg.Event).WithError(err).Warn("Failed to deliver notification")
	}
}
