package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a request fails service-level validation.
var ErrInvalidInput = errors.New("invalid input")

// Auth errors.
var (
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// Session errors.
var (
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionNotFound = errors.New("session not found")
)

// Ledger errors.
var (
	ErrAlreadyResolved = errors.New("message already resolved")
	ErrNotRecipient    = errors.New("not the message recipient")
	ErrMessageNotFound = errors.New("message not found")
)

// ProviderErrorKind classifies AI provider failures for retry decisions.
type ProviderErrorKind string

const (
	ProviderTimeout   ProviderErrorKind = "timeout"
	ProviderTransient ProviderErrorKind = "transient"
	ProviderRejected  ProviderErrorKind = "rejected"
)

// ProviderError wraps a failure returned by the AI provider.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider %s", e.Kind)
	}
	return fmt.Sprintf("provider %s: %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether one more attempt may succeed.
func (e *ProviderError) Retryable() bool { return e.Kind == ProviderTransient }

// ClassifyProviderError returns err as a *ProviderError. Unclassified errors are
// treated as rejected unless they carry a deadline, which counts as a timeout.
func ClassifyProviderError(err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: ProviderTimeout, Err: err}
	}
	return &ProviderError{Kind: ProviderRejected, Err: err}
}
