package base

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type tcpTestListener struct{}

func (c *tcpTestListener) Listen(endpoint string) (net.Listener, error) {
	return net.Listen("tcp", endpoint)
}

func (c *tcpTestListener) GetName() string { return "tcp" }

// startUpperServer serves 4 byte frames, answers with the upper case frame and
// drops the connection on "quit"
func startUpperServer(t *testing.T) (*serverTransport, string) {
	st := NewBaseServerTransport(&tcpTestListener{}, 4, time.Second).(*serverTransport)
	st.RegisterHandler(func(req []byte) ([]byte, bool) {
		if string(req) == "quit" {
			return nil, false
		}
		return bytes.ToUpper(req), true
	})
	require.NoError(t, st.Bind("127.0.0.1:0"))

	go func() {
		assert.NoError(t, st.Serve())
	}()
	return st, st.Addr().String()
}

func TestServerTransportAnswersFrames(t *testing.T) {
	defer goleak.VerifyNone(t)

	st, addr := startUpperServer(t)
	defer st.Close()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// one frame split in two writes, then two frames in one write
	_, err = conn.Write([]byte("ab"))
	require.NoError(t, err)
	_, err = conn.Write([]byte("cdefghijkl"))
	require.NoError(t, err)

	buf := make([]byte, 12)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJKL", string(buf))
}

func TestServerTransportHandlerDropsConnection(t *testing.T) {
	defer goleak.VerifyNone(t)

	st, addr := startUpperServer(t)
	defer st.Close()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("quit"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	n, err := conn.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestServerTransportCloseClosesConnections(t *testing.T) {
	defer goleak.VerifyNone(t)

	st, addr := startUpperServer(t)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// make sure the connection is tracked
	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	_, err = io.ReadFull(conn, make([]byte, 4))
	require.NoError(t, err)

	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err)

	assert.Error(t, st.Bind("127.0.0.1:0"))
}

func TestServerTransportServeBeforeBind(t *testing.T) {
	st := NewBaseServerTransport(&tcpTestListener{}, 4, 0)
	assert.Error(t, st.Serve())
	assert.Nil(t, st.Addr())
}
