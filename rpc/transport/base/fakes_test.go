package base

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ValentinKolb/dbnetget/rpc/common"
	"github.com/ValentinKolb/dbnetget/rpc/transport"
)

// --------------------------------------------------------------------------
// Scripted connection
// --------------------------------------------------------------------------

// scriptedConn replays fixed read fragments and records writes
type scriptedConn struct {
	mu        sync.Mutex
	fragments [][]byte
	readErr   error // returned once all fragments are consumed (default io.EOF)
	writeErr  error
	written   []byte
	closes    atomic.Int32
}

func newScriptedConn(fragments ...string) *scriptedConn {
	c := &scriptedConn{}
	for _, f := range fragments {
		c.fragments = append(c.fragments, []byte(f))
	}
	return c
}

func (c *scriptedConn) Read(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.fragments) == 0 {
		if c.readErr != nil {
			return 0, c.readErr
		}
		return 0, io.EOF
	}
	n := copy(b, c.fragments[0])
	if n < len(c.fragments[0]) {
		c.fragments[0] = c.fragments[0][n:]
	} else {
		c.fragments = c.fragments[1:]
	}
	return n, nil
}

func (c *scriptedConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.written = append(c.written, b...)
	return len(b), nil
}

func (c *scriptedConn) Close() error {
	c.closes.Add(1)
	return nil
}

func (c *scriptedConn) LocalAddr() net.Addr                { return &net.TCPAddr{} }
func (c *scriptedConn) RemoteAddr() net.Addr               { return &net.TCPAddr{} }
func (c *scriptedConn) SetDeadline(_ time.Time) error      { return nil }
func (c *scriptedConn) SetReadDeadline(_ time.Time) error  { return nil }
func (c *scriptedConn) SetWriteDeadline(_ time.Time) error { return nil }

// shortWriteConn accepts at most max bytes per write
type shortWriteConn struct {
	scriptedConn
	max int
}

func (c *shortWriteConn) Write(b []byte) (int, error) {
	if len(b) > c.max {
		b = b[:c.max]
	}
	return c.scriptedConn.Write(b)
}

// --------------------------------------------------------------------------
// Fake connector
// --------------------------------------------------------------------------

// fakeConnector hands out the given connections in order, then fails with err
type fakeConnector struct {
	mu       sync.Mutex
	conns    []net.Conn
	err      error
	connects atomic.Int32
}

func (c *fakeConnector) Connect(_ string, _ time.Duration) (net.Conn, error) {
	c.connects.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.conns) == 0 {
		if c.err != nil {
			return nil, c.err
		}
		return nil, refusedError()
	}
	conn := c.conns[0]
	c.conns = c.conns[1:]
	return conn, nil
}

func (c *fakeConnector) GetName() string { return "fake" }

func (c *fakeConnector) UpgradeConnection(_ net.Conn, _ common.ClientConfig) error { return nil }

func refusedError() error {
	return &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
}

func resetError() error {
	return &net.OpError{Op: "write", Net: "tcp", Err: os.NewSyscallError("write", syscall.ECONNRESET)}
}

// --------------------------------------------------------------------------
// Fake transaction
// --------------------------------------------------------------------------

// sizedTx sends one chunk and then requests reads of the given sizes
type sizedTx struct {
	request []byte
	sizes   []int
	failAt  int // index of the read after which the exchange fails (-1 = never)

	passes   int
	received [][]byte
}

var errProtocol = errors.New("unexpected reply")

func newSizedTx(request string, sizes ...int) *sizedTx {
	return &sizedTx{request: []byte(request), sizes: sizes, failAt: -1}
}

func (tx *sizedTx) Upstream() transport.Upstream {
	tx.passes++
	return &oneChunk{chunk: tx.request}
}

func (tx *sizedTx) Downstream() transport.Downstream {
	tx.received = nil
	return &sizedExchange{tx: tx}
}

type oneChunk struct {
	chunk []byte
	sent  bool
}

func (u *oneChunk) NextOutboundChunk() ([]byte, bool) {
	if u.sent {
		return nil, true
	}
	u.sent = true
	return u.chunk, false
}

type sizedExchange struct {
	tx   *sizedTx
	step int
}

func (e *sizedExchange) SubmitInboundBytes(data []byte) (int, error) {
	if data != nil {
		e.tx.received = append(e.tx.received, data)
		if e.tx.failAt == len(e.tx.received)-1 {
			return 0, errProtocol
		}
	}
	if e.step >= len(e.tx.sizes) {
		return 0, nil
	}
	size := e.tx.sizes[e.step]
	e.step++
	return size, nil
}

func testConfig(retryMax int) common.ClientConfig {
	conf := common.DefaultClientConfig()
	conf.Endpoints = []string{"127.0.0.1:1"}
	conf.Timeout = time.Second
	conf.RetryMax = retryMax
	conf.RetryInterval = 0
	return conf
}

var testEndpoint = common.Endpoint{Host: "127.0.0.1", Port: 1}
