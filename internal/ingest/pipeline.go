package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/notify"
)

// Options tunes a Pipeline. Zero values use the defaults.
type Options struct {
	ChunkSize int
	Columns   Columns
	Topic     string
	Event     string
	Comma     rune

	// Progress notifications are delivered off the run through a bounded
	// queue; updates beyond NotifyQueueSize are dropped.
	NotifyQueueSize int
	NotifyTimeout   time.Duration
}

// Pipeline drives one upload job from pending to completed or failed.
type Pipeline struct {
	files     FileStore
	jobs      JobStore
	parser    *Parser
	chunks    *ChunkProcessor
	reporter  *ProgressReporter
	queue     *notify.Queue
	chunkSize int
	now       func() time.Time
}

// NewPipeline wires the collaborators into a Pipeline.
// Parameters:
//   - files: source file store.
//   - jobs: upload job store.
//   - catalog: product store receiving upserts.
//   - notifier: progress observer; nil disables publishing. Delivery runs on
//     a background queue so a slow observer never holds up a run.
//   - opts: chunk size, column layout and notification names.
//
// Returns:
//   - *Pipeline: ready to Run.
func NewPipeline(files FileStore, jobs JobStore, catalog CatalogStore, notifier Notifier, opts Options) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Columns.UniqueKey == "" {
		opts.Columns = DefaultColumns()
	}
	p := &Pipeline{
		files:     files,
		jobs:      jobs,
		parser:    &Parser{Comma: opts.Comma},
		chunks:    NewChunkProcessor(catalog, NewMapper(opts.Columns)),
		chunkSize: opts.ChunkSize,
		now:       time.Now,
	}
	if notifier != nil {
		p.queue = notify.NewQueue(notifier, opts.NotifyQueueSize, opts.NotifyTimeout)
		notifier = p.queue
	}
	p.reporter = NewProgressReporter(jobs, notifier, opts.Topic, opts.Event)
	return p
}

// Close waits for queued progress notifications to be delivered or for ctx
// to end. Runs after Close still persist progress but publish nothing.
func (p *Pipeline) Close(ctx context.Context) error {
	if p.queue == nil {
		return nil
	}
	return p.queue.Close(ctx)
}

// Run processes the job identified by jobID in a single attempt, starting
// from scratch. Every failure during processing ends in a failed job; Run
// only returns an error when the job cannot be loaded or its final status
// cannot be saved, which is the signal for a caller to retry.
func (p *Pipeline) Run(ctx context.Context, jobID string) (err error) {
	job, err := p.jobs.Load(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load upload %s: %w", jobID, err)
	}

	ctx = logger.SetUploadID(ctx, job.ID)
	log := logger.FromContext(ctx)

	if job.Status.IsTerminal() {
		log.WithField(logger.FieldStatus, job.Status).Warn("Upload already finished, skipping")
		return nil
	}

	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Upload processing panicked")
			err = p.fail(ctx, job, fmt.Errorf("internal error: %v", r))
		}
	}()

	if procErr := p.process(ctx, job); procErr != nil {
		return p.fail(ctx, job, procErr)
	}

	if err := job.MarkCompleted(p.now()); err != nil {
		return p.fail(ctx, job, err)
	}
	if err := p.reporter.Report(context.WithoutCancel(ctx), job); err != nil {
		return fmt.Errorf("failed to save completed upload %s: %w", job.ID, err)
	}

	logger.With(logger.Fields{
		logger.FieldStatus:    job.Status,
		logger.FieldProcessed: job.ProcessedRecords,
		logger.FieldFailed:    job.FailedRecords,
	}).WithDuration(time.Since(startTime).Milliseconds()).Info(ctx, "Upload completed")
	return nil
}

func (p *Pipeline) process(ctx context.Context, job *domain.UploadJob) error {
	if err := job.Transition(domain.UploadStatusProcessing); err != nil {
		return err
	}
	job.TotalRecords = nil
	job.ProcessedRecords = 0
	job.FailedRecords = 0
	job.ErrorMessage = nil
	if err := p.reporter.Report(ctx, job); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}

	total, err := p.count(ctx, job.SourcePath)
	if err != nil {
		return err
	}
	job.TotalRecords = &total
	if err := p.reporter.Report(ctx, job); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	logger.With(logger.Fields{logger.FieldCount: total}).Info(ctx, "Counted %d records", total)

	if err := p.stream(ctx, job); err != nil {
		return err
	}

	if job.ProcessedRecords+job.FailedRecords != total {
		logger.With(logger.Fields{
			logger.FieldCount:     total,
			logger.FieldProcessed: job.ProcessedRecords,
			logger.FieldFailed:    job.FailedRecords,
		}).Warn(ctx, "Row count changed between passes")
	}
	return nil
}

func (p *Pipeline) count(ctx context.Context, path string) (int, error) {
	rc, err := p.open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	total, err := p.parser.Count(rc)
	if err != nil {
		return 0, readError(path, err)
	}
	return total, nil
}

func (p *Pipeline) stream(ctx context.Context, job *domain.UploadJob) error {
	rc, err := p.open(ctx, job.SourcePath)
	if err != nil {
		return err
	}
	defer rc.Close()

	_, records, err := p.parser.Records(rc)
	if err != nil {
		return readError(job.SourcePath, err)
	}

	chunk := make([]Row, 0, p.chunkSize)
	seq := 0
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		seq++
		tally, err := p.chunks.Process(logger.WithField(ctx, logger.FieldChunk, seq), job, chunk)
		job.ProcessedRecords += tally.Processed
		job.FailedRecords += tally.Failed
		chunk = chunk[:0]
		if err != nil {
			return err
		}
		if err := p.reporter.Report(ctx, job); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
		return ctx.Err()
	}

	for rec, err := range records {
		if err != nil && !IsRowError(err) {
			return readError(job.SourcePath, err)
		}
		chunk = append(chunk, Row{Record: rec, Err: err})
		if len(chunk) >= p.chunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (p *Pipeline) open(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := p.files.Open(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &IOError{Kind: KindFileNotFound, Path: path, Err: err}
	}
	if err != nil {
		return nil, &IOError{Kind: KindUnreadable, Path: path, Err: err}
	}
	return rc, nil
}

// fail records cause on the job and saves it even when ctx is already done.
func (p *Pipeline) fail(ctx context.Context, job *domain.UploadJob, cause error) error {
	logger.FromContext(ctx).WithError(cause).Error("Upload processing failed")

	if err := job.MarkFailed(cause.Error()); err != nil {
		return fmt.Errorf("cannot fail upload %s: %w", job.ID, err)
	}
	if err := p.reporter.Report(context.WithoutCancel(ctx), job); err != nil {
		return fmt.Errorf("failed to save failed upload %s: %w", job.ID, err)
	}
	return nil
}

// readError keeps typed parse errors and wraps anything else as unreadable.
func readError(path string, err error) error {
	var parseErr *ParseError
	var ioErr *IOError
	if errors.As(err, &parseErr) || errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Kind: KindUnreadable, Path: path, Err: err}
}
