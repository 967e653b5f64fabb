package ingest

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline errors.
type ErrorKind string

const (
	KindFileNotFound     ErrorKind = "file_not_found"
	KindUnreadable       ErrorKind = "unreadable"
	KindNoHeader         ErrorKind = "no_header"
	KindMalformed        ErrorKind = "malformed"
	KindMissingUniqueKey ErrorKind = "missing_unique_key"
	KindTooManyFields    ErrorKind = "too_many_fields"
)

// IOError means the source file is missing or cannot be read. It is fatal for the run.
type IOError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Kind == KindFileNotFound {
		return fmt.Sprintf("source file not found: %s", e.Path)
	}
	if e.Err == nil {
		return fmt.Sprintf("source file unreadable: %s", e.Path)
	}
	return fmt.Sprintf("source file unreadable: %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError describes a structural defect of the source file.
// KindNoHeader is fatal; KindMalformed is scoped to a single row.
type ParseError struct {
	Kind ErrorKind
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindNoHeader:
		return "invalid file: missing header row"
	case KindMalformed:
		return fmt.Sprintf("malformed row at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse error at line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MappingError is a single-row defect. The row is counted as failed and the run continues.
type MappingError struct {
	Kind   ErrorKind
	Line   int
	Column string
	Got    int
	Want   int
}

func (e *MappingError) Error() string {
	switch e.Kind {
	case KindMissingUniqueKey:
		return fmt.Sprintf("missing %s in row", e.Column)
	case KindTooManyFields:
		return fmt.Sprintf("row at line %d has %d fields, header has %d", e.Line, e.Got, e.Want)
	}
	return fmt.Sprintf("cannot map row at line %d", e.Line)
}

// IsRowError reports whether err only affects the row it was raised for.
func IsRowError(err error) bool {
	var mapErr *MappingError
	if errors.As(err, &mapErr) {
		return true
	}
	var parseErr *ParseError
	return errors.As(err, &parseErr) && parseErr.Kind == KindMalformed
}
