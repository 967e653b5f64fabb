package storage

import (
	"fmt"
	"strings"

	"github.com/timmy/catalogsync/internal/config"
)

// NewFileStore creates a FileStore based on the configuration.
// Parameters:
//   - cfg: storage configuration; type "local" (default) or an S3-compatible type.
//
// Returns:
//   - FileStore: initialized store.
//   - error: non-nil if the store cannot be created.
func NewFileStore(cfg *config.StorageConfig) (FileStore, error) {
	switch StorageType(strings.ToLower(cfg.Type)) {
	case "", StorageTypeLocal:
		return NewLocalStorage(cfg.LocalDir)
	case StorageTypeS3, StorageTypeR2, StorageTypeS3Compatible, "auto":
		return NewS3Storage(&S3Config{
			Type:      resolveType(cfg.Type, cfg.Endpoint),
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

func resolveType(t, endpoint string) StorageType {
	if t == "" || strings.EqualFold(t, "auto") {
		return detectStorageType(endpoint)
	}
	return StorageType(strings.ToLower(t))
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
