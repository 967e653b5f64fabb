package ingest

import (
	"context"
	"time"

	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/notify"
)

const (
	DefaultTopic = "file-processing"
	DefaultEvent = "file.processing.update"
)

// Progress is the observer-facing view of an upload job.
type Progress struct {
	ID                 string              `json:"id"`
	Filename           string              `json:"filename"`
	Status             domain.UploadStatus `json:"status"`
	TotalRecords       *int                `json:"total_records"`
	ProcessedRecords   int                 `json:"processed_records"`
	FailedRecords      int                 `json:"failed_records"`
	ProgressPercentage int                 `json:"progress_percentage"`
	ErrorMessage       *string             `json:"error_message"`
	CreatedAt          time.Time           `json:"created_at"`
	CompletedAt        *time.Time          `json:"completed_at"`
}

// NewProgress snapshots job. Filename is the name the user uploaded.
func NewProgress(job *domain.UploadJob) Progress {
	p := Progress{
		ID:                 job.ID,
		Filename:           job.OriginalName,
		Status:             job.Status,
		ProcessedRecords:   job.ProcessedRecords,
		FailedRecords:      job.FailedRecords,
		ProgressPercentage: job.ProgressPercentage(),
		CreatedAt:          job.CreatedAt,
	}
	if job.TotalRecords != nil {
		total := *job.TotalRecords
		p.TotalRecords = &total
	}
	if job.ErrorMessage != nil {
		msg := *job.ErrorMessage
		p.ErrorMessage = &msg
	}
	if job.CompletedAt != nil {
		at := *job.CompletedAt
		p.CompletedAt = &at
	}
	if p.Filename == "" {
		p.Filename = job.Filename
	}
	return p
}

// ProgressReporter persists a job and then tells observers about it.
type ProgressReporter struct {
	jobs     JobStore
	notifier Notifier
	topic    string
	event    string
}

// NewProgressReporter creates a reporter publishing on topic/event. Empty
// values fall back to DefaultTopic and DefaultEvent.
func NewProgressReporter(jobs JobStore, notifier Notifier, topic, event string) *ProgressReporter {
	if topic == "" {
		topic = DefaultTopic
	}
	if event == "" {
		event = DefaultEvent
	}
	return &ProgressReporter{jobs: jobs, notifier: notifier, topic: topic, event: event}
}

// Report performs exactly one save and one publish. Only the save error is
// returned; a failed publish is logged.
func (r *ProgressReporter) Report(ctx context.Context, job *domain.UploadJob) error {
	if err := r.jobs.Save(ctx, job); err != nil {
		return err
	}
	if r.notifier == nil {
		return nil
	}

	progress := NewProgress(job)
	if err := r.notifier.Publish(ctx, notify.NewMessage(r.topic, r.event, progress)); err != nil {
		logger.FromContext(ctx).WithFields(logger.Fields{
			logger.FieldStatus: job.Status,
		}).WithError(err).Warn("Failed to publish progress update")
	}
	return nil
}
