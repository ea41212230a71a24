package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the two locally-recovered failure classes. Both
// are converted to ERROR responses inside Resolve and never escape it.
var (
	ErrValidation  = errors.New("invalid input")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// StorageError marks a collaborator failure at the storage boundary. It
// is logged and converted to a generic ERROR response; the engine never
// crashes the caller over a storage failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

const (
	errKindValidation = "invalid_input"
	errKindRateLimit  = "rate_limit_exceeded"
	errKindStorage    = "storage_error"
	errKindUnexpected = "unexpected_error"
)

var errorMessages = map[string]string{
	errKindValidation: "I didn't understand that input. Could you rephrase your question?",
	errKindRateLimit:  "You're asking questions very quickly. Please wait a moment before trying again.",
	errKindStorage:    "I'm having trouble accessing the knowledge base. Please try again in a moment.",
	errKindUnexpected: "Something went wrong on my end. Please try again.",
}

func errorKind(err error) string {
	var storageErr *StorageError
	switch {
	case errors.Is(err, ErrValidation):
		return errKindValidation
	case errors.Is(err, ErrRateLimited):
		return errKindRateLimit
	case errors.As(err, &storageErr):
		return errKindStorage
	default:
		return errKindUnexpected
	}
}
