package ingest

import (
	"context"
	"fmt"

	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/logger"
	"github.com/timmy/catalogsync/internal/repository"
)

// DefaultChunkSize is the number of rows between two progress reports.
const DefaultChunkSize = 100

// Row is one entry of a chunk: a parsed record, or the row-scoped error the
// parser raised for it.
type Row struct {
	Record Record
	Err    error
}

// Tally counts the outcome of one chunk.
type Tally struct {
	Processed int
	Failed    int
}

// ChunkProcessor upserts a batch of rows one at a time. Each row is its own
// transaction, so a bad row never rolls back its siblings.
type ChunkProcessor struct {
	catalog CatalogStore
	mapper  *Mapper
}

// NewChunkProcessor creates a ChunkProcessor.
func NewChunkProcessor(catalog CatalogStore, mapper *Mapper) *ChunkProcessor {
	return &ChunkProcessor{catalog: catalog, mapper: mapper}
}

// Process maps and upserts each row in order.
// Parameters:
//   - ctx: context for cancellation and logging.
//   - job: upload the products are attributed to.
//   - rows: batch to process.
//
// Returns:
//   - Tally: processed and failed counts for the rows handled.
//   - error: non-nil only when the catalog store is unavailable. The tally then
//     covers the rows handled before the failing one.
func (c *ChunkProcessor) Process(ctx context.Context, job *domain.UploadJob, rows []Row) (Tally, error) {
	var tally Tally
	for _, row := range rows {
		err := row.Err
		if err == nil {
			err = c.upsert(ctx, job, row.Record)
		}
		if err == nil {
			tally.Processed++
			continue
		}
		if repository.IsUnavailable(err) {
			return tally, fmt.Errorf("catalog store unavailable at line %d: %w", row.Record.Line, err)
		}

		tally.Failed++
		logger.FromContext(ctx).WithFields(logger.Fields{
			logger.FieldLine: row.Record.Line,
			"row":            row.Record.Map(),
		}).WithError(err).Warn("Failed to process row")
	}
	return tally, nil
}

func (c *ChunkProcessor) upsert(ctx context.Context, job *domain.UploadJob, rec Record) error {
	product, err := c.mapper.Map(rec, job.ID)
	if err != nil {
		return err
	}
	return c.catalog.Upsert(ctx, product)
}
