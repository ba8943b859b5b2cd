package base

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/ValentinKolb/dbnetget/rpc/common"
)

// deadline returns the absolute deadline for an operation bounded by timeout
// (the zero time disables the deadline)
func deadline(timeout time.Duration) (t time.Time) {
	if timeout > 0 {
		t = time.Now().Add(timeout)
	}
	return
}

// writeAll writes data to the connection, retrying short writes until the whole
// chunk is sent or the connection fails
func writeAll(conn net.Conn, data []byte, timeout time.Duration) error {
	for len(data) > 0 {
		if err := conn.SetWriteDeadline(deadline(timeout)); err != nil {
			return err
		}
		n, err := conn.Write(data)
		data = data[n:]
		if err != nil {
			return err
		}
	}
	return nil
}

// readExact reads exactly size bytes from the connection. Every underlying read is
// bounded by timeout. If the peer closes the connection before size bytes arrived
// common.ErrServerClosed is returned.
func readExact(conn net.Conn, size int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, size)
	read := 0
	for read < size {
		if err := conn.SetReadDeadline(deadline(timeout)); err != nil {
			return nil, err
		}
		n, err := conn.Read(buf[read:])
		read += n
		if read >= size {
			break
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			return nil, common.ErrServerClosed
		}
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}
