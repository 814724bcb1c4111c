// Package result holds the two-variant outcome delivered to load callbacks.
package result

// Result is either a success carrying a value or a failure carrying an error.
// The zero value is a failure with a nil error and should not be used.
type Result[A any] struct {
	value A
	err   error
	ok    bool
}

// Success wraps a value.
func Success[A any](value A) Result[A] {
	return Result[A]{value: value, ok: true}
}

// Failure wraps an error.
func Failure[A any](err error) Result[A] {
	return Result[A]{err: err}
}

// From builds a success when err is nil, and a failure wrapping err otherwise.
func From[A any](value A, err error) Result[A] {
	if err != nil {
		return Failure[A](err)
	}
	return Success(value)
}

// IsSuccess reports whether the result holds a value.
func (r Result[A]) IsSuccess() bool {
	return r.ok
}

// Value returns the value and true on success.
func (r Result[A]) Value() (A, bool) {
	return r.value, r.ok
}

// Err returns the failure, or nil on success.
func (r Result[A]) Err() error {
	return r.err
}

// Unwrap returns the value and the error in the usual Go shape.
func (r Result[A]) Unwrap() (A, error) {
	return r.value, r.err
}
