package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch a required column is absent from the header.
	ErrSchemaMismatch = errors.New("dataset schema mismatch")
	// ErrMalformedInput the file is empty, unreadable or holds unparsable cells.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnsupportedFormat the file extension is neither .csv nor .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
)

// SchemaError names the missing column.
type SchemaError struct {
	Column string
	Header []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required column %q not found in dataset header %q", e.Column, e.Header)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }

// RowError points at an unparsable cell. Line is 1-based and counts the header.
type RowError struct {
	Line   int
	Column string
	Value  string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: cannot parse %q in column %q", e.Line, e.Value, e.Column)
}

func (e *RowError) Unwrap() error { return ErrMalformedInput }
