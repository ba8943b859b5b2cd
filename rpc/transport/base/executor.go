package base

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dbnetget/rpc/common"
	"github.com/ValentinKolb/dbnetget/rpc/transport"
	"github.com/jpillora/backoff"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to endpoint within timeout (0 = no timeout)
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Executor
// -----------------------------------------------------------

// Executor owns exactly one connection to one endpoint and executes transactions over it.
// It reconnects transparently on transient network failures.
//
// Execute must not be called concurrently, the pool hands every executor to a single
// borrower at a time. Close may be called from any goroutine.
type Executor struct {
	endpoint  common.Endpoint
	connector IClientConnector
	config    common.ClientConfig

	timeout        time.Duration
	connectTimeout time.Duration
	recvTimeout    time.Duration
	retryMax       int
	retryInterval  time.Duration
	retryCount     int
	delay          *backoff.Backoff

	connMu    sync.Mutex // Protects the connection itself
	conn      net.Conn
	closed    atomic.Bool
	closeOnce sync.Once
	closeCh   chan struct{} // Interrupts the sleep between connect attempts
}

// NewExecutor creates an unconnected executor for endpoint, the first Execute connects it
func NewExecutor(endpoint common.Endpoint, connector IClientConnector, config common.ClientConfig) *Executor {
	maxInterval := config.RetryMaxInterval
	if maxInterval < config.RetryInterval {
		maxInterval = config.RetryInterval
	}

	return &Executor{
		endpoint:       endpoint,
		connector:      connector,
		config:         config,
		timeout:        config.Timeout,
		connectTimeout: config.GetConnectTimeout(),
		recvTimeout:    config.GetRecvTimeout(),
		retryMax:       config.RetryMax,
		retryInterval:  config.RetryInterval,
		delay: &backoff.Backoff{
			Min:    config.RetryInterval,
			Max:    maxInterval,
			Factor: 2,
			Jitter: config.RetryJitter,
		},
		closeCh: make(chan struct{}),
	}
}

// Endpoint returns the endpoint this executor is bound to
func (e *Executor) Endpoint() common.Endpoint {
	return e.endpoint
}

// Connected reports whether the executor currently holds a connection
func (e *Executor) Connected() bool {
	return e.currentConn() != nil
}

// Closed reports whether Close was called
func (e *Executor) Closed() bool {
	return e.closed.Load()
}

// Execute runs the transaction over the connection and returns it once its reply was consumed.
// Transport errors trigger a reconnect and a replay of the whole transaction, bounded by the
// retry limit. ErrServerClosed and protocol errors are returned immediately.
func (e *Executor) Execute(tx transport.Transaction) (transport.Transaction, error) {
	if e.currentConn() == nil {
		if err := e.reconnect(); err != nil {
			return nil, err
		}
	}

	replays := 0
	for {
		err := e.execute(tx)
		if err == nil {
			return tx, nil
		}
		if e.closed.Load() {
			return nil, common.ErrUnavailable
		}
		// the peer is gone, the next Execute has to dial again
		if errors.Is(err, common.ErrServerClosed) {
			e.closeConn()
			return nil, err
		}
		if !common.IsTransportError(err) {
			return nil, err
		}

		Logger.Warningf("Network error on %s: %v", e.endpoint, err)

		// retrying is disabled, surface the raw error
		if e.retryMax <= 0 {
			e.closeConn()
			return nil, err
		}

		replays++
		if replays > e.retryMax {
			e.closeConn()
			return nil, &common.RetryLimitExceededError{Attempts: replays - 1, Limit: e.retryMax}
		}

		if err := e.reconnect(); err != nil {
			return nil, err
		}
	}
}

// Close closes the connection and rejects every further use with ErrUnavailable.
// It is safe to call Close multiple times and concurrently.
func (e *Executor) Close() error {
	e.closed.Store(true)
	e.closeOnce.Do(func() {
		close(e.closeCh)
	})
	e.closeConn()
	return nil
}

// -----------------------------------------------------------
// Helper Methods
// -----------------------------------------------------------

// execute runs a single pass of the transaction over the current connection
func (e *Executor) execute(tx transport.Transaction) error {
	if e.closed.Load() {
		return common.ErrUnavailable
	}
	conn := e.currentConn()
	if conn == nil {
		return common.ErrUnavailable
	}

	// send the request
	up := tx.Upstream()
	for {
		chunk, done := up.NextOutboundChunk()
		if done {
			break
		}
		if err := writeAll(conn, chunk, e.timeout); err != nil {
			return err
		}
	}

	// consume the reply
	down := tx.Downstream()
	size, err := down.SubmitInboundBytes(nil)
	for err == nil && size > 0 {
		var data []byte
		if data, err = readExact(conn, size, e.recvTimeout); err != nil {
			return err
		}
		size, err = down.SubmitInboundBytes(data)
	}
	return err
}

// reconnect establishes or restores the connection to the endpoint
func (e *Executor) reconnect() error {
	for {
		if e.closed.Load() {
			return common.ErrUnavailable
		}

		// Close the old connection if it exists
		e.closeConn()

		conn, err := e.connector.Connect(e.endpoint.String(), e.connectTimeout)
		if err == nil {
			return e.attach(conn)
		}

		// only timeouts and a small set of socket errors are worth another attempt
		if e.retryMax <= 0 || !common.IsRetryableConnectError(err) {
			return err
		}

		e.retryCount++
		if e.retryCount >= e.retryMax {
			Logger.Warningf("Connect error: %v, giving up after %d/%d attempts", err, e.retryCount, e.retryMax)
			break
		}

		delay := e.nextDelay()
		Logger.Warningf("Connect error: %v, retry in %s, retry count %d/%d", err, delay, e.retryCount, e.retryMax)
		if !e.sleep(delay) {
			break
		}
	}

	attempts := e.retryCount
	e.retryCount = 0
	if e.closed.Load() {
		return common.ErrUnavailable
	}
	return &common.RetryLimitExceededError{Attempts: attempts, Limit: e.retryMax}
}

// attach upgrades a freshly dialed connection and makes it the current one
func (e *Executor) attach(conn net.Conn) error {
	if err := e.connector.UpgradeConnection(conn, e.config); err != nil {
		conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %w", e.endpoint, err)
	}

	e.connMu.Lock()
	defer e.connMu.Unlock()

	// closed while dialing
	if e.closed.Load() {
		conn.Close()
		return common.ErrUnavailable
	}

	e.conn = conn
	e.retryCount = 0
	e.delay.Reset()
	Logger.Debugf("Connected to %s using %s transport", e.endpoint, e.connector.GetName())
	return nil
}

// nextDelay returns how long to wait before the next connect attempt
func (e *Executor) nextDelay() time.Duration {
	if e.retryInterval <= 0 {
		return 0
	}
	return e.delay.Duration()
}

// sleep waits for d and returns false if the executor was closed in the meantime
func (e *Executor) sleep(d time.Duration) bool {
	if d <= 0 {
		return !e.closed.Load()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-e.closeCh:
		return false
	}
}

func (e *Executor) currentConn() net.Conn {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.conn
}

// closeConn closes the current connection, if any
func (e *Executor) closeConn() {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
}
