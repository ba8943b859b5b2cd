package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dbnetget/rpc/transport"
)

// --------------------------------------------------------------------------
// Wire format
// --------------------------------------------------------------------------

const (
	// CmdGet fetches the value stored under a key
	CmdGet int8 = 1
	// CmdTest checks whether a key exists
	CmdTest int8 = 12

	// KeySize is the size of a binary qdb key
	KeySize = 16
	// RequestSize is the size of a request frame: cmd(1) | keyLen(4) | key(16) | flag(4)
	RequestSize = 1 + 4 + KeySize + 4

	// MaxValueSize bounds the payload size accepted in a get response
	MaxValueSize = 64 << 20

	// Status codes of a test response (negative values mean unknown)
	StatusMissing int32 = 0
	StatusExists  int32 = 1
)

var (
	// ErrInvalidKey is returned by ParseKey for anything but a 32 char hex string
	ErrInvalidKey = errors.New("invalid qdb key")
	// ErrInvalidFrame is returned for request frames that cannot be decoded
	ErrInvalidFrame = errors.New("invalid qdb request frame")
	// ErrInvalidResponse is returned for replies that violate the protocol
	ErrInvalidResponse = errors.New("invalid qdb response")
)

// Key is a binary qdb key
type Key [KeySize]byte

// String returns the hex form of the key
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ParseKey decodes the hex form of a key
func ParseKey(s string) (Key, error) {
	var k Key
	if len(s) != 2*KeySize {
		return k, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	if _, err := hex.Decode(k[:], []byte(s)); err != nil {
		return k, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return k, nil
}

// Request is a decoded request frame
type Request struct {
	Cmd  int8
	Key  Key
	Flag int32
}

// EncodeRequest builds the request frame for cmd and key
func EncodeRequest(cmd int8, key Key) []byte {
	buf := make([]byte, RequestSize)
	buf[0] = byte(cmd)
	binary.BigEndian.PutUint32(buf[1:5], KeySize)
	copy(buf[5:5+KeySize], key[:])
	binary.BigEndian.PutUint32(buf[5+KeySize:], 0)
	return buf
}

// DecodeRequest parses a request frame
func DecodeRequest(frame []byte) (Request, error) {
	var req Request
	if len(frame) != RequestSize {
		return req, fmt.Errorf("%w: got %d bytes, expected %d", ErrInvalidFrame, len(frame), RequestSize)
	}
	if keyLen := int32(binary.BigEndian.Uint32(frame[1:5])); keyLen != KeySize {
		return req, fmt.Errorf("%w: key length %d", ErrInvalidFrame, keyLen)
	}
	req.Cmd = int8(frame[0])
	copy(req.Key[:], frame[5:5+KeySize])
	req.Flag = int32(binary.BigEndian.Uint32(frame[5+KeySize:]))
	return req, nil
}

// EncodeGetResponse builds the reply to a get request. A nil value means not found.
func EncodeGetResponse(value []byte) []byte {
	if value == nil {
		return EncodeStatus(0)
	}
	buf := make([]byte, 4+len(value))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(value)))
	copy(buf[4:], value)
	return buf
}

// EncodeStatus builds a bare int32 reply
func EncodeStatus(status int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(status))
	return buf
}

func decodeInt32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

// --------------------------------------------------------------------------
// Upstream
// --------------------------------------------------------------------------

// chunkUpstream yields a fixed list of chunks
type chunkUpstream struct {
	chunks [][]byte
	next   int
}

func (u *chunkUpstream) NextOutboundChunk() ([]byte, bool) {
	if u.next >= len(u.chunks) {
		return nil, true
	}
	chunk := u.chunks[u.next]
	u.next++
	return chunk, false
}

// --------------------------------------------------------------------------
// Get
// --------------------------------------------------------------------------

// Get fetches the value of one key
type Get struct {
	key   Key
	value []byte
	found bool
}

// NewGet creates a get transaction for key
func NewGet(key Key) *Get {
	return &Get{key: key}
}

func (g *Get) Name() string { return "get" }

func (g *Get) Key() Key { return g.key }

// Value returns the value read by the last execution
func (g *Get) Value() ([]byte, bool) {
	return g.value, g.found
}

func (g *Get) Upstream() transport.Upstream {
	return &chunkUpstream{chunks: [][]byte{EncodeRequest(CmdGet, g.key)}}
}

func (g *Get) Downstream() transport.Downstream {
	g.value, g.found = nil, false
	return &getExchange{g: g}
}

// getExchange reads size(4) and then size bytes of payload
type getExchange struct {
	g     *Get
	state int
}

func (e *getExchange) SubmitInboundBytes(data []byte) (int, error) {
	switch e.state {
	case 0:
		e.state = 1
		return 4, nil
	case 1:
		size := decodeInt32(data)
		if size <= 0 {
			e.state = 3
			return 0, nil
		}
		if size > MaxValueSize {
			return 0, fmt.Errorf("%w: payload size %d", ErrInvalidResponse, size)
		}
		e.state = 2
		return int(size), nil
	case 2:
		e.g.value, e.g.found = data, true
		e.state = 3
		return 0, nil
	default:
		return 0, nil
	}
}

// --------------------------------------------------------------------------
// Test
// --------------------------------------------------------------------------

// Test checks whether one key exists
type Test struct {
	key    Key
	status int32
	done   bool
}

// NewTest creates a test transaction for key
func NewTest(key Key) *Test {
	return &Test{key: key}
}

func (t *Test) Name() string { return "test" }

func (t *Test) Key() Key { return t.key }

// Status returns the raw status of the last execution
func (t *Test) Status() int32 {
	return t.status
}

// Exists reports whether the key exists. known is false if the server did not know.
func (t *Test) Exists() (exists bool, known bool) {
	if !t.done || t.status < 0 {
		return false, false
	}
	return t.status == StatusExists, true
}

func (t *Test) Upstream() transport.Upstream {
	return &chunkUpstream{chunks: [][]byte{EncodeRequest(CmdTest, t.key)}}
}

func (t *Test) Downstream() transport.Downstream {
	t.status, t.done = 0, false
	return &testExchange{t: t}
}

type testExchange struct {
	t       *Test
	started bool
}

func (e *testExchange) SubmitInboundBytes(data []byte) (int, error) {
	if !e.started {
		e.started = true
		return 4, nil
	}
	if data != nil {
		e.t.status = decodeInt32(data)
		e.t.done = true
	}
	return 0, nil
}
