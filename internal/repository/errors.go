package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"gorm.io/gorm"
)

var (
	// ErrStoreUnavailable marks a store-wide failure (lost connection, closed pool, cancelled context).
	// Callers must treat it as fatal for the whole run rather than for a single record.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrUploadNotFound is returned when no upload job exists for an ID.
	ErrUploadNotFound = errors.New("upload not found")
)

// classify wraps store-wide failures with ErrStoreUnavailable and leaves row-scoped errors as they are.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsUnavailable(err) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}

// IsUnavailable reports whether err means the store as a whole cannot be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// database/sql reports a closed pool with an untyped error
	return err.Error() == "sql: database is closed"
}
