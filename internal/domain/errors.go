package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when no valid credential accompanies the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when an authenticated actor is not the owner.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable indicates the persistent store is unreachable.
	// Read paths degrade to the fallback set; write paths surface this.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError reports malformed or incomplete input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for a field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateQuestion checks the question invariants shared by create and
// update: a category, non-empty text, at least two options, and an answer
// that matches one of the options. A missing or non-positive level defaults
// to 1 rather than failing.
func ValidateQuestion(q *Question) error {
	if q.Quiz == "" {
		return Invalid("quiz", "category is required")
	}
	if q.Question == "" {
		return Invalid("question", "question text is required")
	}
	if len(q.Options) < 2 {
		return Invalid("options", "at least 2 options are required")
	}
	if q.Answer == "" {
		return Invalid("answer", "answer is required")
	}
	found := false
	for _, opt := range q.Options {
		if opt == q.Answer {
			found = true
			break
		}
	}
	if !found {
		return Invalid("answer", "answer must match one of the options")
	}
	if q.Level < 1 {
		q.Level = 1
	}
	return nil
}
