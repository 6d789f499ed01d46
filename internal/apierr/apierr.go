// Package apierr classifies failures from the forge and tracker APIs into
// the kinds the sync engine routes on: not-found, auth, transient, and
// validation. Callers test with errors.Is against the sentinel values.
package apierr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing issue, record, or repository. Often
	// not an error at all (an absent lookup), sometimes terminal.
	ErrNotFound = errors.New("not found")

	// ErrAuth marks an invalid or unauthorized credential. Fatal for the
	// whole run, never a per-issue failure.
	ErrAuth = errors.New("authorization failed")

	// ErrTransient marks a network or service fault. A per-issue failure
	// in batch mode; retrying is the caller's decision.
	ErrTransient = errors.New("transient service failure")

	// ErrValidation marks a malformed payload caught before a mutating
	// call. Treated as a defect: a correct reconciler never produces one.
	ErrValidation = errors.New("invalid payload")
)

// NotFound wraps a formatted message with ErrNotFound.
func NotFound(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Auth wraps a formatted message with ErrAuth.
func Auth(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrAuth)...)
}

// Transient wraps a formatted message with ErrTransient.
func Transient(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrTransient)...)
}

// Validation wraps a formatted message with ErrValidation.
func Validation(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// Kind returns a short label for the error's classification, for logs and
// per-issue reports.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "unknown"
	}
}
