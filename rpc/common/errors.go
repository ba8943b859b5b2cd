package common

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// --------------------------------------------------------------------------
// Error Taxonomy
// --------------------------------------------------------------------------

var (
	// ErrServerClosed is returned when the peer closes the connection before a
	// required number of bytes could be read
	ErrServerClosed = errors.New("server closed the connection")

	// ErrResourceLimit is returned when no endpoint or connection is available
	ErrResourceLimit = errors.New("no more available connections")

	// ErrUnavailable is returned when an executor or pool is closed or closing
	ErrUnavailable = errors.New("client unavailable")

	// ErrRetryLimitExceeded matches every *RetryLimitExceededError via errors.Is
	ErrRetryLimitExceeded = errors.New("retry limit exceeded")
)

// RetryLimitExceededError is returned when the reconnect attempts of an executor are exhausted
type RetryLimitExceededError struct {
	Attempts int
	Limit    int
}

func (e *RetryLimitExceededError) Error() string {
	return fmt.Sprintf("exceeded retry limit %d/%d", e.Attempts, e.Limit)
}

// Is makes errors.Is(err, ErrRetryLimitExceeded) work for every instance
func (e *RetryLimitExceededError) Is(target error) bool {
	return target == ErrRetryLimitExceeded
}

// --------------------------------------------------------------------------
// Classification
// --------------------------------------------------------------------------

// retryableErrnos are the low level socket errors a connect attempt may be retried on
var retryableErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.ETIMEDOUT,
}

// IsTimeout reports whether err is a network timeout
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsRetryableConnectError reports whether a failed connect attempt may be retried.
// Timeouts are always retryable, socket errors only if their errno is in the retryable set.
// Everything else (DNS failures, permission errors, ...) is fatal.
func IsRetryableConnectError(err error) bool {
	if err == nil {
		return false
	}
	if IsTimeout(err) {
		return true
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	for _, e := range retryableErrnos {
		if errno == e {
			return true
		}
	}
	return false
}

// IsTransportError reports whether err originates from the socket layer
// (as opposed to a protocol error raised by a transaction)
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var errno syscall.Errno
	return errors.As(err, &errno)
}
