package common

import (
	"errors"
	"fmt"
)

var (
	ErrNoFiles          = errors.New("no files uploaded")
	ErrTooManyFiles     = errors.New("too many files")
	ErrFileTooLarge     = errors.New("file too large")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrInvalidParameter = errors.New("invalid parameter")

	ErrArchiveNotFound = errors.New("no compressed files found")
	ErrBatchNotFound   = errors.New("batch not found")
	ErrInvalidBatchID  = errors.New("invalid batch id")
)

// ValidationError is returned for client mistakes that must be reported as 400.
type ValidationError struct {
	Kind    error
	Message string
}

func NewValidationError(kind error, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// ArchiveError wraps an I/O failure while writing the archive container.
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("failed to write archive %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// CleanupError wraps an I/O failure while removing temporary paths.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("failed to remove %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
