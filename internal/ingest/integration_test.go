package ingest_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/domain"
	"github.com/timmy/catalogsync/internal/ingest"
	"github.com/timmy/catalogsync/internal/repository"
	"github.com/timmy/catalogsync/internal/storage"
	"github.com/timmy/catalogsync/internal/testutil"
)

// TestPipeline_EndToEnd runs an upload through local storage and a sqlite catalog.
func TestPipeline_EndToEnd(t *testing.T) {
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         "file:pipeline_end_to_end?mode=memory&cache=shared",
		MaxOpenConns: 1,
		AutoMigrate:  true,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	uploads := repository.NewUploadRepository(db)
	products := repository.NewProductRepository(db)
	notifier := &testutil.Notifier{}

	ctx := context.Background()
	uploader := ingest.NewUploader(files, uploads, nil, 0)
	pipeline := ingest.NewPipeline(files, uploads, products, notifier, ingest.Options{ChunkSize: 2})

	first := "\uFEFFUNIQUE_KEY,PRODUCT_TITLE,PIECE_PRICE\nA1,Widget,$12.50\nA2,Gadget,\n,Orphan,1\n"
	job, err := uploader.Register(ctx, "products.csv", int64(len(first)), strings.NewReader(first))
	require.NoError(t, err)
	require.NoError(t, pipeline.Run(ctx, job.ID))

	done, err := uploads.Load(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusCompleted, done.Status)
	require.NotNil(t, done.TotalRecords)
	assert.Equal(t, 3, *done.TotalRecords)
	assert.Equal(t, 2, done.ProcessedRecords)
	assert.Equal(t, 1, done.FailedRecords)

	a1, err := products.GetByUniqueKey(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, a1.Title)
	assert.Equal(t, "Widget", *a1.Title)
	require.True(t, a1.UnitPrice.Valid)
	assert.True(t, a1.UnitPrice.Decimal.Equal(decimal.RequireFromString("12.5")))

	second := "UNIQUE_KEY,PRODUCT_TITLE\nA1,Widget v2\n"
	rerun, err := uploader.Register(ctx, "update.csv", int64(len(second)), strings.NewReader(second))
	require.NoError(t, err)
	require.NoError(t, pipeline.Run(ctx, rerun.ID))

	a1, err = products.GetByUniqueKey(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", *a1.Title)
	require.NotNil(t, a1.SourceUploadID)
	assert.Equal(t, rerun.ID, *a1.SourceUploadID)

	count, err := products.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, pipeline.Close(ctx))
	msgs := notifier.Messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, ingest.DefaultEvent, msgs[len(msgs)-1].Event)
}
