package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/dbnetget/rpc/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(endpoint string) (net.Listener, error)

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport serves fixed size request frames, one at a time per connection
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	frameSize  int
	timeout    time.Duration
	bufferPool *sync.Pool

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, ...)
// -----------------------------------------------------------

// NewBaseServerTransport creates a server transport reading request frames of frameSize bytes.
// timeout bounds reads and writes on every connection (0 = no deadline).
func NewBaseServerTransport(connector IServerConnector, frameSize int, timeout time.Duration) transport.IServerTransport {
	return &serverTransport{
		connector: connector,
		frameSize: frameSize,
		timeout:   timeout,
		conns:     make(map[net.Conn]struct{}),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, frameSize)
			},
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Bind(endpoint string) error {
	listener, err := t.connector.Listen(endpoint)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		listener.Close()
		return net.ErrClosed
	}
	t.listener = listener
	return nil
}

func (t *serverTransport) Serve() error {
	t.mu.Lock()
	listener := t.listener
	t.mu.Unlock()
	if listener == nil {
		return fmt.Errorf("serve called before bind")
	}

	Logger.Infof("Starting %s server on %s", t.connector.GetName(), listener.Addr())

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if !t.track(conn) {
			conn.Close()
			return nil
		}

		// Handle the connection in a goroutine
		go t.handleConnection(conn)
	}
}

func (t *serverTransport) Listen(endpoint string) error {
	if err := t.Bind(endpoint); err != nil {
		return err
	}
	return t.Serve()
}

func (t *serverTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	for conn := range t.conns {
		conn.Close()
	}
	t.mu.Unlock()

	// Wait for all connection handlers to return
	t.wg.Wait()
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *serverTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// track registers an accepted connection, it returns false once the transport is closed
func (t *serverTransport) track(conn net.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.conns[conn] = struct{}{}
	t.wg.Add(1)
	return true
}

func (t *serverTransport) untrack(conn net.Conn) {
	t.mu.Lock()
	delete(t.conns, conn)
	t.mu.Unlock()
	t.wg.Done()
}

// handleConnection handles incoming requests for one connection
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer t.untrack(conn)
	defer conn.Close()

	// Get a buffer from the pool
	buf := t.bufferPool.Get().([]byte)
	defer t.bufferPool.Put(buf)

	for {
		if t.timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
				Logger.Errorf("Failed to set read deadline: %v", err)
				return
			}
		}

		// Read the request frame
		if _, err := io.ReadFull(conn, buf[:t.frameSize]); err != nil {
			// Case EOF: Connection closed by client
			if errors.Is(err, io.EOF) || t.isClosed() {
				Logger.Debugf("Connection closed by client %s", conn.RemoteAddr())
			} else {
				Logger.Errorf("Error reading request from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		resp, keep := t.handler(buf[:t.frameSize])
		if !keep {
			Logger.Debugf("Handler rejected request from %s, closing connection", conn.RemoteAddr())
			return
		}

		if t.timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}

		if _, err := conn.Write(resp); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
			return
		}
	}
}
