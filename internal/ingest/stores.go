package ingest

import (
	"context"
	"io"

	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/notify"
)

// FileStore opens stored source files. A missing file must yield an error
// matching fs.ErrNotExist.
type FileStore interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// JobStore loads and saves upload jobs. Save writes the full record atomically.
type JobStore interface {
	Load(ctx context.Context, id string) (*domain.UploadJob, error)
	Save(ctx context.Context, job *domain.UploadJob) error
}

// CatalogStore upserts products by unique key, atomically per product.
// Errors matching repository.ErrStoreUnavailable abort the run; any other
// error only fails the row.
type CatalogStore interface {
	Upsert(ctx context.Context, product *domain.Product) error
}

// Notifier publishes progress updates. Failures are logged and never affect the job.
type Notifier interface {
	Publish(ctx context.Context, msg notify.Message) error
}
