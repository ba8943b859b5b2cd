package transport

import "net"

// --------------------------------------------------------------------------
// Transaction
// --------------------------------------------------------------------------

// Upstream produces the chunks of one request, in order
type Upstream interface {
	// NextOutboundChunk returns the next chunk to write.
	// done is true once the request is complete, chunk is ignored in that case.
	NextOutboundChunk() (chunk []byte, done bool)
}

// Downstream consumes a reply as a resumable exchange of read sizes and bytes
type Downstream interface {
	// SubmitInboundBytes hands the bytes read for the previous size to the exchange
	// and returns the number of bytes to read next. The first call receives nil.
	// A non-positive size ends the exchange. A returned error is a protocol error.
	SubmitInboundBytes(data []byte) (nextReadSize int, err error)
}

// Transaction is one request/response exchange executed over a single connection.
// The transaction keeps its parsed result, executors never interpret payload bytes.
//
// Upstream and Downstream are called once per attempt. After a reconnect the whole
// transaction is replayed, so both must start a fresh pass on every call.
type Transaction interface {
	Upstream() Upstream
	Downstream() Downstream
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles one request frame received by a server transport.
// It returns the reply to write. If keep is false the connection is closed
// without writing anything.
type ServerHandleFunc func(req []byte) (resp []byte, keep bool)

// IServerTransport is the interface for the server side transport layer
type IServerTransport interface {
	// RegisterHandler registers the handler that is called for every request frame
	RegisterHandler(handler ServerHandleFunc)
	// Bind creates the listener for endpoint without accepting connections yet
	Bind(endpoint string) error
	// Serve accepts connections on the bound listener until Close is called
	Serve() error
	// Listen is Bind followed by Serve
	Listen(endpoint string) error
	// Addr returns the address the transport listens on (nil before Listen)
	Addr() net.Addr
	// Close stops accepting connections and closes all open connections
	Close() error
}
