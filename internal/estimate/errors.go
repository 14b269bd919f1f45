package estimate

import (
	"fmt"

	"github.com/proteinpath/protein-path-go/internal/apperr"
)

// Category classifies an estimation failure.
type Category string

const (
	InvalidCredentials Category = "invalid_credentials"
	QuotaExceeded      Category = "quota_exceeded"
	Transient          Category = "transient"
	Failed             Category = "failed"
)

// Error is returned for any failed, empty or unparseable estimate.
// It matches apperr.ErrEstimation under errors.Is.
type Error struct {
	Category Category
	// Status is the provider's HTTP status, or 0 if no response was received.
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("estimation %s: %s", e.Category, e.Msg)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{apperr.ErrEstimation, e.Err}
	}
	return []error{apperr.ErrEstimation}
}

// Retryable reports whether the same request may succeed later.
func (e *Error) Retryable() bool {
	return e.Category == Transient
}

func categorize(status int) Category {
	switch {
	case status == 401 || status == 403:
		return InvalidCredentials
	case status == 429:
		return QuotaExceeded
	case status >= 500:
		return Transient
	default:
		return Failed
	}
}

func statusError(status int, body string) *Error {
	return &Error{Category: categorize(status), Status: status, Msg: truncate(body, 200)}
}

func transportError(err error) *Error {
	return &Error{Category: Transient, Msg: "request failed", Err: err}
}

func failed(msg string, err error) *Error {
	return &Error{Category: Failed, Msg: msg, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
