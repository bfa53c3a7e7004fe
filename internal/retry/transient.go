package retry

import (
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/cenkalti/backoff/v4"
)

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as worth retrying.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Permanent marks err as final even if it would otherwise look transient.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// IsTransient reports whether err is a transport-level failure: a network
// error, a connection reset or refusal, a truncated response, or anything
// wrapped with Transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return false
	}

	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
