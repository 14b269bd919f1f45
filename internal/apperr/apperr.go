// Package apperr defines the error kinds shared by every layer.
//
// Concrete errors wrap one of the kinds with fmt.Errorf("%w: ...") so callers
// can classify any failure with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation reports malformed or insufficient caller input.
	ErrValidation = errors.New("validation failed")
	// ErrAuth reports a missing identity or an identity mismatch.
	ErrAuth = errors.New("not authenticated")
	// ErrEstimation reports a failed, empty or unparseable AI estimate.
	ErrEstimation = errors.New("estimation failed")
	// ErrStorage reports a backend persistence failure.
	ErrStorage = errors.New("storage failure")
)

// Kind returns the kind sentinel err wraps, or nil if it wraps none.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrAuth, ErrEstimation, ErrStorage} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
