// Package ipctest provides a fake php-lrpm control socket for tests.
package ipctest

import (
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/lrpmprobe/internal/ipc"
)

// recvBufSize mirrors the php-lrpm server's single-read request buffer.
const recvBufSize = 64 * 1024

// Handler maps one received request to the raw reply bytes.
type Handler func(req []byte) []byte

// Reply returns a Handler that always answers with reply.
func Reply(reply []byte) Handler {
	return func([]byte) []byte { return reply }
}

// Stats is a snapshot of what the server observed.
type Stats struct {
	Accepted   int
	PeerClosed int
	Requests   [][]byte
}

// Server accepts unix or tcp clients, reads one request, writes one reply, then
// half-closes and waits for the client to hang up.
type Server struct {
	Endpoint ipc.Endpoint
	// Addr is Endpoint.Address: the socket path or the bound host:port.
	Addr string

	listener net.Listener
	handler  Handler
	cancel   context.CancelFunc
	done     chan struct{}

	mu    sync.Mutex
	stats Stats
}

// Start listens on a fresh socket under t.TempDir and serves until cleanup.
func Start(t *testing.T, handler Handler) *Server {
	t.Helper()
	return StartAt(t, filepath.Join(t.TempDir(), "socket"), handler)
}

// StartAt listens on the unix socket path and serves until cleanup.
func StartAt(t *testing.T, path string, handler Handler) *Server {
	t.Helper()
	return listen(t, ipc.NetworkUnix, path, handler)
}

// StartTCP listens on an ephemeral loopback port and serves until cleanup.
func StartTCP(t *testing.T, handler Handler) *Server {
	t.Helper()
	return listen(t, ipc.NetworkTCP, "127.0.0.1:0", handler)
}

func listen(t *testing.T, network, address string, handler Handler) *Server {
	t.Helper()

	listener, err := net.Listen(network, address)
	require.NoError(t, err)

	ep := ipc.Endpoint{Network: network, Address: listener.Addr().String()}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Endpoint: ep,
		Addr:     ep.Address,
		listener: listener,
		handler:  handler,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.serve(ctx)
	t.Cleanup(s.Close)
	return s
}

// Close stops accepting and waits for in-flight connections.
func (s *Server) Close() {
	s.cancel()
	<-s.done
}

// Stats returns a copy of the counters collected so far.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.stats
	out.Requests = append([][]byte(nil), s.stats.Requests...)
	return out
}

func (s *Server) serve(ctx context.Context) {
	defer close(s.done)
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return
			}
			continue
		}

		s.mu.Lock()
		s.stats.Accepted++
		s.mu.Unlock()

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			s.handle(c)
		}(conn)
	}
}

func (s *Server) handle(c net.Conn) {
	buf := make([]byte, recvBufSize)
	n, err := c.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return
	}
	req := append([]byte(nil), buf[:n]...)

	s.mu.Lock()
	s.stats.Requests = append(s.stats.Requests, req)
	s.mu.Unlock()

	if reply := s.handler(req); len(reply) > 0 {
		if _, err := c.Write(reply); err != nil {
			return
		}
	}
	if hc, ok := c.(interface{ CloseWrite() error }); ok {
		_ = hc.CloseWrite()
	}

	// Returns on EOF, or ECONNRESET when the client left reply bytes unread.
	_, _ = io.Copy(io.Discard, c)

	s.mu.Lock()
	s.stats.PeerClosed++
	s.mu.Unlock()
}
