package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ValentinKolb/dbnetget/rpc/common"
	"github.com/ValentinKolb/dbnetget/rpc/protocol"
	"github.com/ValentinKolb/dbnetget/rpc/transport"
	"github.com/ValentinKolb/dbnetget/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("server")

// NewQDBServer creates a qdb server answering from an in-memory store
// (or with config.StaticPayload for every get).
//
// Usage:
//
//	s := server.NewQDBServer(common.ServerConfig{Endpoint: "127.0.0.1:7001"}, nil)
//	s.Put(key, []byte("value"))
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewQDBServer(config common.ServerConfig, t transport.IServerTransport) *QDBServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	if t == nil {
		t = tcp.NewTCPServerTransport(protocol.RequestSize, time.Duration(config.TimeoutSecond)*time.Second)
	}

	s := &QDBServer{
		config:    config,
		transport: t,
		store:     xsync.NewMapOf[protocol.Key, []byte](),
		requests:  xsync.NewCounter(),
	}
	s.transport.RegisterHandler(s.handle)

	Logger.Infof("Created qdb server")
	Logger.Infof(config.String())
	return s
}

// QDBServer is a minimal qdb server, used by the serve command and by tests
type QDBServer struct {
	config    common.ServerConfig
	transport transport.IServerTransport
	store     *xsync.MapOf[protocol.Key, []byte]
	requests  *xsync.Counter
}

// Put stores value under key
func (s *QDBServer) Put(key protocol.Key, value []byte) {
	s.store.Store(key, value)
}

// Delete removes key from the store
func (s *QDBServer) Delete(key protocol.Key) {
	s.store.Delete(key)
}

// LoadStore reads "KEY<TAB>VALUE" lines (hex key) into the store and returns the
// number of entries loaded. Empty lines and lines starting with # are skipped.
func (s *QDBServer) LoadStore(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	n := 0
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		keyStr, value, ok := strings.Cut(text, "\t")
		if !ok {
			return n, fmt.Errorf("line %d: expected KEY<TAB>VALUE", line)
		}
		key, err := protocol.ParseKey(strings.TrimSpace(keyStr))
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		s.Put(key, []byte(value))
		n++
	}
	return n, scanner.Err()
}

// Requests returns the number of request frames handled so far
func (s *QDBServer) Requests() int64 {
	return s.requests.Value()
}

// Start binds the configured endpoint and serves in the background.
// Once Start returns Addr is valid.
func (s *QDBServer) Start() error {
	if err := s.transport.Bind(s.config.Endpoint); err != nil {
		return err
	}
	go func() {
		if err := s.transport.Serve(); err != nil {
			Logger.Errorf("qdb server stopped: %v", err)
		}
	}()
	return nil
}

// Serve binds the configured endpoint and serves until Close is called
func (s *QDBServer) Serve() error {
	return s.transport.Listen(s.config.Endpoint)
}

// Addr returns the address the server listens on
func (s *QDBServer) Addr() net.Addr {
	return s.transport.Addr()
}

// Close stops the server and closes all connections
func (s *QDBServer) Close() error {
	return s.transport.Close()
}

// handle answers one request frame, unknown commands close the connection
func (s *QDBServer) handle(frame []byte) ([]byte, bool) {
	s.requests.Inc()

	req, err := protocol.DecodeRequest(frame)
	if err != nil {
		Logger.Warningf("Dropping connection: %v", err)
		return nil, false
	}

	switch req.Cmd {
	case protocol.CmdGet:
		if len(s.config.StaticPayload) > 0 {
			return protocol.EncodeGetResponse(s.config.StaticPayload), true
		}
		value, _ := s.store.Load(req.Key)
		return protocol.EncodeGetResponse(value), true

	case protocol.CmdTest:
		if _, ok := s.store.Load(req.Key); ok {
			return protocol.EncodeStatus(protocol.StatusExists), true
		}
		return protocol.EncodeStatus(protocol.StatusMissing), true

	default:
		Logger.Warningf("Unknown command %d, closing connection", req.Cmd)
		return nil, false
	}
}
