package ingest

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/logger"
)

// DefaultMaxUploadBytes is the largest accepted source file.
const DefaultMaxUploadBytes = 100 << 20

// FileSaver stores an uploaded file under key.
type FileSaver interface {
	Save(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
}

// JobCreator inserts a new upload job.
type JobCreator interface {
	Create(ctx context.Context, job *domain.UploadJob) error
}

// ValidationError rejects an upload before anything is stored.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Uploader stores incoming files and registers a pending job for each.
type Uploader struct {
	files      FileSaver
	jobs       JobCreator
	extensions []string
	maxBytes   int64
}

// NewUploader creates an Uploader. An empty extension list allows .csv and .txt;
// maxBytes <= 0 uses DefaultMaxUploadBytes.
func NewUploader(files FileSaver, jobs JobCreator, extensions []string, maxBytes int64) *Uploader {
	if len(extensions) == 0 {
		extensions = []string{".csv", ".txt"}
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Uploader{files: files, jobs: jobs, extensions: normalized, maxBytes: maxBytes}
}

// Validate checks the name and size of a file before it is read.
func (u *Uploader) Validate(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	allowed := false
	for _, e := range u.extensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return &ValidationError{Field: "file", Message: fmt.Sprintf("the file must be of type: %s", strings.Join(u.extensions, ", "))}
	}
	if size <= 0 {
		return &ValidationError{Field: "file", Message: "the file is empty"}
	}
	if size > u.maxBytes {
		return &ValidationError{Field: "file", Message: fmt.Sprintf("the file may not be greater than %d kilobytes", u.maxBytes>>10)}
	}
	return nil
}

// Register validates, stores and registers one upload.
// Parameters:
//   - ctx: context for cancellation and logging.
//   - name: original file name as supplied by the user.
//   - size: content length in bytes.
//   - content: file body.
//
// Returns:
//   - *domain.UploadJob: the pending job.
//   - error: *ValidationError for rejected input, otherwise a storage error.
func (u *Uploader) Register(ctx context.Context, name string, size int64, content io.Reader) (*domain.UploadJob, error) {
	if err := u.Validate(name, size); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(name))
	stored := id + ext
	key := "uploads/" + stored

	if err := u.files.Save(ctx, key, io.LimitReader(content, size), size, "text/csv"); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	job := &domain.UploadJob{
		ID:           id,
		Filename:     stored,
		OriginalName: filepath.Base(name),
		SourcePath:   key,
		FileSize:     size,
		Status:       domain.UploadStatusPending,
	}
	if err := u.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to register upload: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldUploadID: job.ID,
		logger.FieldSize:     size,
	}).Info(ctx, "Registered upload %s", job.OriginalName)
	return job, nil
}
