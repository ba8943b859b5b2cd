package server

import (
	"encoding/binary"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dbnetget/rpc/common"
	"github.com/ValentinKolb/dbnetget/rpc/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startServer(t *testing.T, config common.ServerConfig) *QDBServer {
	config.Endpoint = "127.0.0.1:0"
	config.TimeoutSecond = 5
	s := NewQDBServer(config, nil)
	require.NoError(t, s.Start())
	return s
}

func dial(t *testing.T, s *QDBServer) net.Conn {
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readInt32(t *testing.T, conn net.Conn) int32 {
	buf := make([]byte, 4)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return int32(binary.BigEndian.Uint32(buf))
}

func mustKey(t *testing.T, s string) protocol.Key {
	key, err := protocol.ParseKey(s)
	require.NoError(t, err)
	return key
}

func TestServerGetAndTest(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := startServer(t, common.ServerConfig{})
	defer s.Close()

	present := mustKey(t, "00000000000000000000000000000001")
	missing := mustKey(t, "00000000000000000000000000000002")
	s.Put(present, []byte("value"))

	conn := dial(t, s)
	defer conn.Close()

	// get present key
	_, err := conn.Write(protocol.EncodeRequest(protocol.CmdGet, present))
	require.NoError(t, err)
	size := readInt32(t, conn)
	require.Equal(t, int32(5), size)
	value := make([]byte, size)
	_, err = io.ReadFull(conn, value)
	require.NoError(t, err)
	assert.Equal(t, "value", string(value))

	// get missing key
	_, err = conn.Write(protocol.EncodeRequest(protocol.CmdGet, missing))
	require.NoError(t, err)
	assert.Equal(t, int32(0), readInt32(t, conn))

	// test both keys on the same connection
	_, err = conn.Write(protocol.EncodeRequest(protocol.CmdTest, present))
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusExists, readInt32(t, conn))

	_, err = conn.Write(protocol.EncodeRequest(protocol.CmdTest, missing))
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusMissing, readInt32(t, conn))

	s.Delete(present)
	_, err = conn.Write(protocol.EncodeRequest(protocol.CmdTest, present))
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusMissing, readInt32(t, conn))

	assert.Equal(t, int64(5), s.Requests())
}

func TestServerStaticPayload(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := startServer(t, common.ServerConfig{StaticPayload: []byte("hello world!")})
	defer s.Close()

	conn := dial(t, s)
	defer conn.Close()

	_, err := conn.Write(protocol.EncodeRequest(protocol.CmdGet, protocol.Key{}))
	require.NoError(t, err)
	require.Equal(t, int32(12), readInt32(t, conn))
	value := make([]byte, 12)
	_, err = io.ReadFull(conn, value)
	require.NoError(t, err)
	assert.Equal(t, "hello world!", string(value))
}

func TestServerUnknownCommandClosesConnection(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := startServer(t, common.ServerConfig{})
	defer s.Close()

	conn := dial(t, s)
	defer conn.Close()

	_, err := conn.Write(protocol.EncodeRequest(42, protocol.Key{}))
	require.NoError(t, err)

	n, err := conn.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestServerLoadStore(t *testing.T) {
	s := NewQDBServer(common.ServerConfig{Endpoint: "127.0.0.1:0"}, nil)

	data := "# comment\n" +
		"00000000000000000000000000000001\tone\n" +
		"\n" +
		"00000000000000000000000000000002\ttwo words\n"
	n, err := s.LoadStore(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	value, ok := s.store.Load(mustKey(t, "00000000000000000000000000000002"))
	require.True(t, ok)
	assert.Equal(t, "two words", string(value))

	_, err = s.LoadStore(strings.NewReader("no tab here\n"))
	assert.Error(t, err)
	_, err = s.LoadStore(strings.NewReader("xyz\tvalue\n"))
	assert.ErrorIs(t, err, protocol.ErrInvalidKey)
}
