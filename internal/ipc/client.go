package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultBufferSize caps a single response read.
const DefaultBufferSize = 1024

// Exchange runs one connect/send/receive/close roundtrip against ep.
//
// The payload goes out in a single write and the reply is whatever one read
// returns, at most bufSize bytes. A peer that closes without sending yields an
// empty, non-nil slice. A zero timeout blocks without a deadline.
func Exchange(ctx context.Context, ep Endpoint, payload []byte, bufSize int, timeout time.Duration) ([]byte, error) {
	if bufSize <= 0 {
		return nil, fmt.Errorf("buffer size must be > 0, got %d", bufSize)
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, ep.Network, ep.Address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", ep, err)
	}
	defer conn.Close()

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	buf := make([]byte, bufSize)
	n, err := conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return buf[:n], nil
}

// IsUnavailable reports whether err means nobody is serving the socket.
func IsUnavailable(err error) bool {
	return isSocketMissing(err) || isConnectionRefused(err)
}

// isSocketMissing reports absent-socket failures.
func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, unix.ENOENT) ||
		strings.Contains(err.Error(), "no such file or directory")
}

// isConnectionRefused reports no-listener failures.
func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, unix.ECONNREFUSED)
}
