package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
)

// FileStore defines the operations on stored upload files.
// Open and Exists report a missing key with an error matching fs.ErrNotExist.
type FileStore interface {
	// Save stores the content of reader under key
	Save(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Open streams the file stored under key
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if a file is stored under key
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the file stored under key
	Delete(ctx context.Context, key string) error
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", fs.ErrNotExist, key)
}
