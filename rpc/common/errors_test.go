package common

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timeoutError is a net.Error that reports a timeout
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func dialError(errno syscall.Errno) error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", errno)}
}

func TestRetryLimitExceededError(t *testing.T) {
	err := error(&RetryLimitExceededError{Attempts: 3, Limit: 3})

	assert.True(t, errors.Is(err, ErrRetryLimitExceeded))
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", err), ErrRetryLimitExceeded))
	assert.False(t, errors.Is(err, ErrResourceLimit))
	assert.Equal(t, "exceeded retry limit 3/3", err.Error())

	var rle *RetryLimitExceededError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, 3, rle.Attempts)
	assert.Equal(t, 3, rle.Limit)
}

func TestIsRetryableConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", &net.OpError{Op: "dial", Net: "tcp", Err: timeoutError{}}, true},
		{"refused", dialError(syscall.ECONNREFUSED), true},
		{"reset", dialError(syscall.ECONNRESET), true},
		{"aborted", dialError(syscall.ECONNABORTED), true},
		{"timed out", dialError(syscall.ETIMEDOUT), true},
		{"bare errno", syscall.ECONNREFUSED, true},
		{"permission", dialError(syscall.EACCES), false},
		{"unreachable", dialError(syscall.ENETUNREACH), false},
		{"dns", &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host", Name: "invalid.", IsNotFound: true}}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableConnectError(tt.err))
		})
	}
}

func TestIsTransportError(t *testing.T) {
	assert.True(t, IsTransportError(dialError(syscall.ECONNRESET)))
	assert.True(t, IsTransportError(syscall.EPIPE))
	assert.True(t, IsTransportError(timeoutError{}))
	assert.False(t, IsTransportError(nil))
	assert.False(t, IsTransportError(ErrServerClosed))
	assert.False(t, IsTransportError(errors.New("protocol violation")))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(fmt.Errorf("read: %w", timeoutError{})))
	assert.False(t, IsTimeout(dialError(syscall.ECONNREFUSED)))
	assert.False(t, IsTimeout(nil))
}
