package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/catalogsync/internal/config"
	"github.com/timmy/catalogsync/internal/domain"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
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
	return db
}

func strPtr(s string) *string { return &s }

func createUpload(t *testing.T, repo *UploadRepository, id string) *domain.UploadJob {
	t.Helper()
	job := &domain.UploadJob{
		ID:           id,
		Filename:     id + ".csv",
		OriginalName: "products.csv",
		SourcePath:   "uploads/" + id + ".csv",
		Status:       domain.UploadStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), job))
	return job
}

func TestUploadRepository_LoadSave(t *testing.T) {
	ctx := context.Background()
	repo := NewUploadRepository(newTestDB(t))
	job := createUpload(t, repo, "job-1")

	loaded, err := repo.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusPending, loaded.Status)
	assert.Nil(t, loaded.TotalRecords)

	total := 10
	require.NoError(t, job.Transition(domain.UploadStatusProcessing))
	job.TotalRecords = &total
	job.ProcessedRecords = 7
	job.FailedRecords = 1
	require.NoError(t, repo.Save(ctx, job))

	loaded, err = repo.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusProcessing, loaded.Status)
	require.NotNil(t, loaded.TotalRecords)
	assert.Equal(t, 10, *loaded.TotalRecords)
	assert.Equal(t, 7, loaded.ProcessedRecords)
	assert.Equal(t, 1, loaded.FailedRecords)
}

func TestUploadRepository_LoadMissing(t *testing.T) {
	repo := NewUploadRepository(newTestDB(t))

	_, err := repo.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadNotFound)
	assert.False(t, IsUnavailable(err))
}

func TestUploadRepository_ListRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewUploadRepository(newTestDB(t))
	for i := 0; i < 3; i++ {
		createUpload(t, repo, fmt.Sprintf("job-%d", i))
	}

	jobs, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	pending, err := repo.ListByStatus(ctx, domain.UploadStatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestProductRepository_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	uploads := NewUploadRepository(db)
	products := NewProductRepository(db)
	createUpload(t, uploads, "first")
	createUpload(t, uploads, "second")

	require.NoError(t, products.Upsert(ctx, &domain.Product{
		UniqueKey:      "A1",
		Title:          strPtr("Widget"),
		Size:           strPtr("L"),
		UnitPrice:      decimal.NewNullDecimal(decimal.RequireFromString("12.50")),
		SourceUploadID: strPtr("first"),
	}))
	require.NoError(t, products.Upsert(ctx, &domain.Product{
		UniqueKey:      "A1",
		Title:          strPtr("Widget v2"),
		SourceUploadID: strPtr("second"),
	}))

	count, err := products.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	got, err := products.GetByUniqueKey(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, got.Title)
	assert.Equal(t, "Widget v2", *got.Title)
	assert.Nil(t, got.Size, "unset fields are overwritten too")
	assert.False(t, got.UnitPrice.Valid)
	require.NotNil(t, got.SourceUploadID)
	assert.Equal(t, "second", *got.SourceUploadID)

	n, err := products.CountByUpload(ctx, "second")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestProductRepository_UpsertKeepsPrice(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepository(newTestDB(t))

	require.NoError(t, products.Upsert(ctx, &domain.Product{
		UniqueKey: "P1",
		UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("1234.56")),
	}))

	got, err := products.GetByUniqueKey(ctx, "P1")
	require.NoError(t, err)
	require.True(t, got.UnitPrice.Valid)
	assert.True(t, got.UnitPrice.Decimal.Equal(decimal.RequireFromString("1234.56")), got.UnitPrice.Decimal.String())
}

func TestProductRepository_ClosedStoreIsUnavailable(t *testing.T) {
	db := newTestDB(t)
	products := NewProductRepository(db)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = products.Upsert(context.Background(), &domain.Product{UniqueKey: "X"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestIsUnavailable(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "bad conn", err: fmt.Errorf("exec: %w", driver.ErrBadConn), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "constraint", err: errors.New("UNIQUE constraint failed"), want: false},
		{name: "already classified", err: classify(driver.ErrBadConn), want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUnavailable(tc.err))
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "./data/catalog.db", want: "./data/catalog.db?_foreign_keys=on"},
		{in: "file:test?mode=memory&cache=shared", want: "file:test?mode=memory&cache=shared&_foreign_keys=on"},
		{in: "catalog.db?_foreign_keys=off", want: "catalog.db?_foreign_keys=off"},
		{in: "", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, sqliteDSN(tc.in))
		})
	}
}

func TestInitDB_ForeignKeysOnEveryConnection(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         filepath.Join(t.TempDir(), "catalog.db"),
		MaxOpenConns: 3,
		AutoMigrate:  true,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	ctx := context.Background()
	var conns []*sql.Conn
	for range 3 {
		conn, err := sqlDB.Conn(ctx)
		require.NoError(t, err)
		conns = append(conns, conn)
	}
	for i, conn := range conns {
		var enabled int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled))
		assert.Equal(t, 1, enabled, "connection %d", i)
		require.NoError(t, conn.Close())
	}
}
