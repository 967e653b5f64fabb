package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/ingest"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/repository"
)

const recentUploadsLimit = 50

// Registrar stores a file and creates its pending job.
type Registrar interface {
	Register(ctx context.Context, name string, size int64, content io.Reader) (*domain.UploadJob, error)
}

// Queue hands a job to the background runner.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
}

// UploadReader reads upload jobs for status endpoints.
type UploadReader interface {
	Load(ctx context.Context, id string) (*domain.UploadJob, error)
	ListRecent(ctx context.Context, limit int) ([]domain.UploadJob, error)
}

// UploadHandler handles file upload and progress endpoints.
type UploadHandler struct {
	registrar Registrar
	queue     Queue
	uploads   UploadReader
	maxBytes  int64
}

// NewUploadHandler creates a new upload handler.
// Parameters:
//   - registrar: stores files and registers jobs.
//   - queue: background job queue.
//   - uploads: job reader for status endpoints.
//   - maxBytes: request body limit for uploads.
//
// Returns:
//   - *UploadHandler: initialized handler.
func NewUploadHandler(registrar Registrar, queue Queue, uploads UploadReader, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = ingest.DefaultMaxUploadBytes
	}
	return &UploadHandler{
		registrar: registrar,
		queue:     queue,
		uploads:   uploads,
		maxBytes:  maxBytes,
	}
}

// Upload handles POST /api/upload.
// Parameters:
//   - c: Gin request context with a multipart "file" field.
//
// Returns: none (writes JSON response).
func (h *UploadHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	// multipart framing adds a little on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		validationFailed(c, "the file field is required")
		return
	}

	file, err := header.Open()
	if err != nil {
		validationFailed(c, "the file failed to upload")
		return
	}
	defer file.Close()

	job, err := h.registrar.Register(ctx, header.Filename, header.Size, file)
	if err != nil {
		var vErr *ingest.ValidationError
		if errors.As(err, &vErr) {
			validationFailed(c, vErr.Message)
			return
		}
		logger.FromContext(ctx).WithError(err).Error("Failed to register upload")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to store upload",
		})
		return
	}

	if err := h.queue.Enqueue(ctx, job.ID); err != nil {
		// the job stays pending and is picked up again on the next start
		logger.FromContext(ctx).WithField(logger.FieldUploadID, job.ID).WithError(err).Warn("Failed to queue upload")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File uploaded successfully",
		"data": gin.H{
			"id":       job.ID,
			"filename": job.OriginalName,
		},
	})
}

// Status handles GET /api/status?id=.
func (h *UploadHandler) Status(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		invalidID(c)
		return
	}

	job, err := h.uploads.Load(c.Request.Context(), id)
	if errors.Is(err, repository.ErrUploadNotFound) {
		invalidID(c)
		return
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to load upload")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to load upload",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ingest.NewProgress(job),
	})
}

// List handles GET /api/uploads, newest first.
func (h *UploadHandler) List(c *gin.Context) {
	jobs, err := h.uploads.ListRecent(c.Request.Context(), recentUploadsLimit)
	if err != nil {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Failed to list uploads")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to list uploads",
		})
		return
	}

	data := make([]ingest.Progress, 0, len(jobs))
	for i := range jobs {
		data = append(data, ingest.NewProgress(&jobs[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func validationFailed(c *gin.Context, msg string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"success": false,
		"message": "Validation failed",
		"errors": gin.H{
			"file": []string{msg},
		},
	})
}

func invalidID(c *gin.Context) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"success": false,
		"message": "Invalid upload ID",
	})
}
