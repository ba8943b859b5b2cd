package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/dbnetget/rpc/transport"
	"github.com/ValentinKolb/dbnetget/rpc/transport/base"
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(endpoint string) (net.Listener, error) {
	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %w", err)
	}
	return listener, nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a TCP server transport for request frames of frameSize bytes
func NewTCPServerTransport(frameSize int, timeout time.Duration) transport.IServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, frameSize, timeout)
}
