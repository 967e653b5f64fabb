package domain

import (
	"fmt"
	"math"
	"time"
)

// UploadStatus represents the lifecycle status of an upload job.
// Values include UploadStatusPending, UploadStatusProcessing, UploadStatusCompleted, and UploadStatusFailed.
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

// CanTransition reports whether a job in status s may move to next.
// Processing -> Processing is allowed so that a crashed run can be re-invoked from scratch.
func (s UploadStatus) CanTransition(next UploadStatus) bool {
	switch s {
	case UploadStatusPending:
		return next == UploadStatusProcessing || next == UploadStatusFailed
	case UploadStatusProcessing:
		return next == UploadStatusProcessing || next == UploadStatusCompleted || next == UploadStatusFailed
	default:
		return false
	}
}

// UploadJob represents one user-submitted file and its processing progress.
type UploadJob struct {
	ID               string       `gorm:"type:text;primaryKey" json:"id"`
	Filename         string       `gorm:"type:text;not null" json:"filename"`
	OriginalName     string       `gorm:"type:text;not null" json:"original_name"`
	SourcePath       string       `gorm:"type:text;not null" json:"source_path"`
	FileSize         int64        `gorm:"default:0" json:"file_size"`
	Status           UploadStatus `gorm:"type:text;index:idx_uploads_status;default:pending" json:"status"`
	TotalRecords     *int         `json:"total_records"`
	ProcessedRecords int          `gorm:"default:0" json:"processed_records"`
	FailedRecords    int          `gorm:"default:0" json:"failed_records"`
	ErrorMessage     *string      `gorm:"type:text" json:"error_message"`
	CompletedAt      *time.Time   `json:"completed_at"`
	CreatedAt        time.Time    `gorm:"index:idx_uploads_created_at" json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// TableName returns the database table name for UploadJob.
func (UploadJob) TableName() string {
	return "file_uploads"
}

// Transition moves the job to next, enforcing the pending -> processing -> {completed|failed} lifecycle.
// Parameters:
//   - next: desired status.
//
// Returns:
//   - error: non-nil if the transition is not allowed.
func (j *UploadJob) Transition(next UploadStatus) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("invalid status transition %s -> %s", j.Status, next)
	}
	j.Status = next
	return nil
}

// MarkFailed transitions the job to failed and records msg as the error message.
func (j *UploadJob) MarkFailed(msg string) error {
	if err := j.Transition(UploadStatusFailed); err != nil {
		return err
	}
	j.ErrorMessage = &msg
	return nil
}

// MarkCompleted transitions the job to completed and stamps the completion time.
func (j *UploadJob) MarkCompleted(at time.Time) error {
	if err := j.Transition(UploadStatusCompleted); err != nil {
		return err
	}
	j.CompletedAt = &at
	return nil
}

// ProgressPercentage returns round(processed / total * 100), or 0 when the total is unknown or zero.
func (j *UploadJob) ProgressPercentage() int {
	if j.TotalRecords == nil || *j.TotalRecords <= 0 {
		return 0
	}
	pct := int(math.Round(float64(j.ProcessedRecords) / float64(*j.TotalRecords) * 100))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
