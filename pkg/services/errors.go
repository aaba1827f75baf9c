package services

import (
	"errors"
	"fmt"

	"budget-insight-api/pkg/dataset"
)

var (
	// ErrSchemaMismatch a required dataset column is absent.
	ErrSchemaMismatch = dataset.ErrSchemaMismatch
	// ErrMalformedInput bad request values or an unreadable dataset.
	ErrMalformedInput = dataset.ErrMalformedInput
	// ErrClassifierUnavailable the classification backend failed. Never used for aggregation errors.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrDatasetUnavailable no reference dataset snapshot is loaded.
	ErrDatasetUnavailable = errors.New("reference dataset not loaded")
)

// ClassifierError wraps a backend failure. It matches both
// ErrClassifierUnavailable and the underlying cause with errors.Is.
type ClassifierError struct {
	Backend string
	Err     error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("%s classifier: %v", e.Backend, e.Err)
}

func (e *ClassifierError) Unwrap() []error {
	return []error{ErrClassifierUnavailable, e.Err}
}

func classifierError(backend string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ClassifierError
	if errors.As(err, &ce) {
		return err
	}
	return &ClassifierError{Backend: backend, Err: err}
}
