package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 100, cfg.Ingest.ChunkSize)
	assert.Equal(t, 3, cfg.Ingest.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Ingest.Timeout)
	assert.Equal(t, "file-processing", cfg.Notify.Topic)
	assert.Equal(t, "UNIQUE_KEY", cfg.Ingest.Columns["unique_key"])
	assert.Equal(t, "PIECE_PRICE", cfg.Ingest.Columns["unit_price"])
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ingest:
  chunk_size: 25
  columns:
    unique_key: SKU
database:
  driver: postgres
  host: db.internal
  port: 5433
  user: catalog
  password: secret
  dbname: catalog
  sslmode: require
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Ingest.ChunkSize)
	assert.Equal(t, "SKU", cfg.Ingest.Columns["unique_key"])
	// untouched mappings keep their defaults
	assert.Equal(t, "PRODUCT_TITLE", cfg.Ingest.Columns["title"])
	assert.Equal(t, "host=db.internal port=5433 user=catalog password=secret dbname=catalog sslmode=require", cfg.Database.DSN())
}

func TestDatabaseConfig_DSN_SQLite(t *testing.T) {
	cfg := DatabaseConfig{Driver: "sqlite", Path: "./data/catalog.db"}
	assert.Equal(t, "./data/catalog.db", cfg.DSN())
}
