package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Model routing errors.

	// ErrUnknownModel indicates a model id that is not registered.
	ErrUnknownModel = errors.New("unknown model")

	// ErrNoModelAvailable indicates selection produced an empty candidate set.
	ErrNoModelAvailable = errors.New("no model available")

	// ErrBackendUnavailable indicates the backend could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendTimeout indicates the backend did not answer within the deadline.
	ErrBackendTimeout = errors.New("backend timeout")

	// ErrBackendRejected indicates the backend answered with an error status.
	ErrBackendRejected = errors.New("backend rejected request")

	// ErrMissingCredential indicates a cloud model has no API key configured.
	ErrMissingCredential = errors.New("missing credential")

	// ErrAdapterDisposed indicates a call on an adapter after Cleanup.
	ErrAdapterDisposed = errors.New("adapter disposed")

	// Index errors.

	// ErrDimensionMismatch indicates two vectors of different length were compared.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexingFailure indicates a single file could not be indexed.
	ErrIndexingFailure = errors.New("indexing failure")

	// ErrEmbeddingUnavailable indicates no embedding service is configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// BackendError describes a failed call to a model backend.
// It matches both its kind sentinel and the underlying cause with errors.Is.
type BackendError struct {
	// ModelID is the registered id of the model that failed.
	ModelID string

	// Operation is the adapter call, e.g. "chat" or "initialize".
	Operation string

	// Kind is one of ErrBackendUnavailable, ErrBackendTimeout or ErrBackendRejected.
	Kind error

	// StatusCode is the HTTP status for rejected calls, 0 otherwise.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.ModelID, e.Operation, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *BackendError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
