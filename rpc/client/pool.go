package client

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dbnetget/rpc/common"
	"github.com/ValentinKolb/dbnetget/rpc/transport"
	"github.com/ValentinKolb/dbnetget/rpc/transport/base"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("pool")

// closeDrainInterval is how long Close waits for a borrowed executor to come back
const closeDrainInterval = 100 * time.Millisecond

// PoolStats is a snapshot of the pool state
type PoolStats struct {
	Live       int // executors alive (idle or borrowed)
	Idle       int // executors waiting in the idle queue
	Busy       int // executors currently borrowed
	Candidates int // endpoints that may still get a connection
	Created    uint64
	Evicted    uint64
}

// ClientPool hands out connected executors to concurrent callers, one transaction
// at a time, and grows or shrinks the set of live executors as endpoints succeed
// or fail. Every endpoint may get at most MaxConcurrency connections over the
// lifetime of the pool.
type ClientPool struct {
	config       common.ClientConfig
	connector    base.IClientConnector
	pollInterval time.Duration

	mu        sync.Mutex // Protects quota, liveCount, closing and closed
	quota     *EndpointQuota
	liveCount int
	closing   bool
	closed    bool

	createMu  sync.Mutex // Serializes creation, losers do not wait
	idle      chan *base.Executor
	started   atomic.Bool
	closeOnce sync.Once
	busy      *xsync.Counter

	metrics *poolMetrics
}

// NewClientPool creates a pool over the configured endpoints. No connection is
// opened until the first Execute.
func NewClientPool(config common.ClientConfig, connector base.IClientConnector) (*ClientPool, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	endpoints, err := common.ParseEndpoints(config.Endpoints)
	if err != nil {
		return nil, err
	}

	p := &ClientPool{
		config:       config,
		connector:    connector,
		pollInterval: config.GetPollInterval(),
		quota:        NewEndpointQuota(endpoints, config.MaxConcurrency),
		idle:         make(chan *base.Executor, len(endpoints)*config.MaxConcurrency),
		busy:         xsync.NewCounter(),
	}
	p.metrics = newPoolMetrics(p)
	return p, nil
}

// Execute runs the transaction on an idle executor and returns it once done.
// Failing executors are evicted and the transaction is retried on another one,
// so callers only ever see ErrResourceLimit once the pool is exhausted, or
// ErrUnavailable once it is closing or closed.
func (p *ClientPool) Execute(tx transport.Transaction) (res transport.Transaction, err error) {
	start := time.Now()
	defer func() { p.metrics.observe(start, err) }()

	for {
		if !p.Available() {
			return nil, common.ErrUnavailable
		}
		if p.exhausted() {
			return nil, common.ErrResourceLimit
		}

		// prime the pool with a first connection
		if p.started.CompareAndSwap(false, true) {
			if createErr := p.create(); createErr != nil {
				Logger.Debugf("Failed to create initial connection: %v", createErr)
				continue
			}
		}

		exec, ok := p.dequeue()
		if !ok {
			// nothing idle, try to grow. ResourceLimit is caught by the exhaustion check above.
			if createErr := p.tryCreate(); errors.Is(createErr, common.ErrUnavailable) {
				return nil, createErr
			}
			continue
		}

		// closing started while we were waiting
		if !p.Available() {
			p.evict(exec)
			return nil, common.ErrUnavailable
		}

		p.busy.Inc()
		done, execErr := exec.Execute(tx)
		p.busy.Dec()
		if execErr == nil {
			p.idle <- exec
			return done, nil
		}

		if errors.Is(execErr, common.ErrRetryLimitExceeded) || common.IsTransportError(execErr) {
			Logger.Warningf("Evicting connection to %s: %v", exec.Endpoint(), execErr)
		} else {
			Logger.Errorf("Unexpected error on connection to %s, evicting it: %v", exec.Endpoint(), execErr)
		}
		p.evict(exec)
	}
}

// Close evicts every executor and makes the pool permanently unavailable.
// Executions in flight finish first. It is safe to call Close multiple times and
// concurrently, every caller returns once the pool is closed.
func (p *ClientPool) Close() error {
	p.closeOnce.Do(p.close)
	return nil
}

// Closed reports whether the pool is closed
func (p *ClientPool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Available reports whether the pool accepts executions (false once closing or closed)
func (p *ClientPool) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closing && !p.closed
}

// Stats returns a snapshot of the pool state
func (p *ClientPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Live:       p.liveCount,
		Idle:       len(p.idle),
		Busy:       int(p.busy.Value()),
		Candidates: p.quota.Candidates(),
		Created:    p.metrics.created.Get(),
		Evicted:    p.metrics.evicted.Get(),
	}
}

// -----------------------------------------------------------
// Helper Methods
// -----------------------------------------------------------

// exhausted reports whether no live executor and no remaining quota exists
func (p *ClientPool) exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liveCount == 0 && p.quota.Empty()
}

// dequeue waits up to one poll interval for an idle executor
func (p *ClientPool) dequeue() (*base.Executor, bool) {
	select {
	case exec := <-p.idle:
		return exec, true
	default:
	}

	t := time.NewTimer(p.pollInterval)
	defer t.Stop()
	select {
	case exec := <-p.idle:
		return exec, true
	case <-t.C:
		return nil, false
	}
}

// create waits for the creation right and creates one executor
func (p *ClientPool) create() error {
	p.createMu.Lock()
	defer p.createMu.Unlock()
	return p.createLocked()
}

// tryCreate creates one executor unless another creation is in progress,
// in which case it returns nil and the caller simply polls again
func (p *ClientPool) tryCreate() error {
	if !p.createMu.TryLock() {
		return nil
	}
	defer p.createMu.Unlock()
	return p.createLocked()
}

// createLocked creates one executor for a random endpoint with remaining quota
// and pushes it to the idle queue. createMu must be held.
func (p *ClientPool) createLocked() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closing || p.closed {
		return common.ErrUnavailable
	}

	// a concurrent creator already succeeded
	if len(p.idle) > 0 {
		return nil
	}

	ep, ok := p.quota.Take()
	if !ok {
		return common.ErrResourceLimit
	}

	exec := base.NewExecutor(ep, p.connector, p.config)
	p.idle <- exec
	p.liveCount++
	p.metrics.created.Inc()
	Logger.Debugf("Created connection to %s (live %d)", ep, p.liveCount)
	return nil
}

// evict closes the executor and removes it from the live set
func (p *ClientPool) evict(exec *base.Executor) {
	_ = exec.Close()

	p.mu.Lock()
	p.liveCount--
	live := p.liveCount
	p.mu.Unlock()

	p.metrics.evicted.Inc()
	Logger.Debugf("Evicted connection to %s (live %d)", exec.Endpoint(), live)
}

func (p *ClientPool) live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liveCount
}

func (p *ClientPool) close() {
	p.mu.Lock()
	p.closing = true
	p.mu.Unlock()

	// no creation may be in progress while draining
	p.createMu.Lock()
	defer p.createMu.Unlock()

	for p.live() > 0 {
		select {
		case exec := <-p.idle:
			p.evict(exec)
		case <-time.After(closeDrainInterval):
			// a borrowed executor returns itself once its transaction is done
		}
	}

	p.mu.Lock()
	p.closed = true
	p.closing = false
	p.mu.Unlock()
	Logger.Infof("Client pool closed")
}
