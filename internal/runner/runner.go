// Package runner dispatches upload jobs to a fixed pool of workers.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/repository"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueFull is returned by Enqueue when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
)

// JobFunc processes one job. A non-nil error asks for another attempt, except
// repository.ErrUploadNotFound which no retry can fix.
type JobFunc func(ctx context.Context, jobID string) error

// Config holds the dispatch policy.
type Config struct {
	Workers     int
	QueueSize   int
	Timeout     time.Duration
	MaxAttempts int
}

// Runner drains a bounded queue of job IDs. Each attempt runs under its own
// timeout and failed attempts are retried immediately up to MaxAttempts.
type Runner struct {
	run   JobFunc
	queue chan string
	cfg   Config
}

// New creates a Runner. Zero config values fall back to 2 workers, a queue of
// 100, a 5 minute timeout and 3 attempts.
func New(run JobFunc, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Runner{
		run:   run,
		queue: make(chan string, cfg.QueueSize),
		cfg:   cfg,
	}
}

// Enqueue schedules jobID without blocking.
func (r *Runner) Enqueue(ctx context.Context, jobID string) error {
	select {
	case r.queue <- jobID:
		logger.With(logger.Fields{logger.FieldUploadID: jobID}).Debug(ctx, "Job queued")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("%w: cannot queue %s", ErrQueueFull, jobID)
	}
}

// Pending returns the number of queued jobs not yet picked up.
func (r *Runner) Pending() int {
	return len(r.queue)
}

// Start runs the workers until ctx is cancelled. Jobs in flight when ctx ends
// keep running until their attempt finishes or times out; queued jobs are left
// for the next start.
func (r *Runner) Start(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)

	for i := range r.cfg.Workers {
		group.Go(func() error {
			workerCtx := logger.WithField(groupCtx, "worker", i)
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case id := <-r.queue:
					r.dispatch(workerCtx, id)
				}
			}
		})
	}

	logger.With(logger.Fields{"workers": r.cfg.Workers}).Info(ctx, "Job runner started")
	err := group.Wait()
	logger.CtxInfo(ctx, "Job runner stopped")
	return err
}

// dispatch runs one job until it succeeds or runs out of attempts.
func (r *Runner) dispatch(ctx context.Context, jobID string) {
	ctx = logger.SetUploadID(ctx, jobID)

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		err := r.attempt(ctx, jobID)
		entry := logger.With(logger.Fields{logger.FieldAttempt: attempt}).WithDuration(time.Since(start).Milliseconds())
		if err == nil {
			entry.Info(ctx, "Job finished")
			return
		}

		if errors.Is(err, repository.ErrUploadNotFound) {
			entry.With(logger.Fields{"error": err.Error()}).Warn(ctx, "Dropping unknown job")
			return
		}
		entry.With(logger.Fields{"error": err.Error()}).Warn(ctx, "Job attempt failed")
		if ctx.Err() != nil {
			break
		}
	}
	logger.With(logger.Fields{logger.FieldAttempt: r.cfg.MaxAttempts}).Error(ctx, "Giving up on job %s", jobID)
}

func (r *Runner) attempt(ctx context.Context, jobID string) (err error) {
	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()
	return r.run(attemptCtx, jobID)
}
