// Package failures carries the error taxonomy shared by the storage-facing services.
package failures

import (
	"errors"
	"fmt"
)

// Kind classifies a ServiceError for the caller.
type Kind string

const (
	// KindValidation marks missing or malformed caller input.
	KindValidation Kind = "validation"
	// KindStorage marks connection or query failures reported by the backend.
	KindStorage Kind = "storage"
)

// ServiceError is returned by every service operation that fails.
type ServiceError struct {
	code string
	kind Kind
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the "<operation>.<reason>" identifier.
func (e *ServiceError) Code() string {
	return e.code
}

func (e *ServiceError) Kind() Kind {
	return e.kind
}

// Message returns the underlying cause text without the code prefix.
func (e *ServiceError) Message() string {
	if e.err == nil {
		return e.code
	}
	return e.err.Error()
}

// Validation builds a KindValidation error.
func Validation(operation, reason string, cause error) error {
	return newServiceError(operation, reason, KindValidation, cause)
}

// Storage builds a KindStorage error.
func Storage(operation, reason string, cause error) error {
	return newServiceError(operation, reason, KindStorage, cause)
}

func newServiceError(operation, reason string, kind Kind, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), kind: kind, err: cause}
}

// IsValidation reports whether err wraps a validation failure.
func IsValidation(err error) bool {
	return kindOf(err) == KindValidation
}

// IsStorage reports whether err wraps a storage failure.
func IsStorage(err error) bool {
	return kindOf(err) == KindStorage
}

func kindOf(err error) Kind {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.kind
	}
	return ""
}
