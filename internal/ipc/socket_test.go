package ipc_test

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/lrpmprobe/internal/ipc"
	"github.com/stretchr/testify/require"
)

func listenUnix(t *testing.T, path string) {
	t.Helper()
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })
}

func TestFindSocketPathPicksFirstLiveCandidate(t *testing.T) {
	empty := t.TempDir()
	first := t.TempDir()
	second := t.TempDir()
	listenUnix(t, filepath.Join(first, "socket"))
	listenUnix(t, filepath.Join(second, "socket"))

	path, err := ipc.FindSocketPath("socket", []string{empty, first, second})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(first, "socket"), path)
}

func TestFindSocketPathSkipsRegularFiles(t *testing.T) {
	decoy := t.TempDir()
	live := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(decoy, "socket"), []byte("stale"), 0o600))
	listenUnix(t, filepath.Join(live, "socket"))

	path, err := ipc.FindSocketPath("socket", []string{decoy, live})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(live, "socket"), path)
}

func TestFindSocketPathListsEveryCandidateTried(t *testing.T) {
	a := t.TempDir()
	b := filepath.Join(t.TempDir(), "missing")

	_, err := ipc.FindSocketPath("socket", []string{a, b})
	require.Error(t, err)

	var notFound *ipc.SocketNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, []string{filepath.Join(a, "socket"), filepath.Join(b, "socket")}, notFound.Tried)
	require.Contains(t, err.Error(), filepath.Join(a, "socket"))
	require.Contains(t, err.Error(), filepath.Join(b, "socket"))
}

func TestCandidateDirsOrderAndDedupe(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", xdg)

	configured := filepath.Join(xdg, "php-lrpm")
	dirs := ipc.CandidateDirs(configured + "/")
	require.Equal(t, configured, dirs[0])
	require.Contains(t, dirs, filepath.Dir(ipc.DefaultSocketPath()))
	require.Contains(t, dirs, filepath.Join(os.TempDir(), "php-lrpm"))

	seen := map[string]bool{}
	for _, dir := range dirs {
		require.False(t, seen[dir], dir)
		seen[dir] = true
	}
}

func TestEndpointValidate(t *testing.T) {
	tests := []struct {
		name    string
		ep      ipc.Endpoint
		wantErr string
	}{
		{name: "unix absolute", ep: ipc.UnixEndpoint("/run/user/1000/php-lrpm/socket")},
		{name: "tcp host port", ep: ipc.Endpoint{Network: "tcp", Address: "127.0.0.1:1414"}},
		{name: "tcp6 literal", ep: ipc.Endpoint{Network: "tcp6", Address: "[::1]:1616"}},
		{name: "unix relative", ep: ipc.UnixEndpoint("run/socket"), wantErr: "absolute"},
		{name: "unix empty", ep: ipc.UnixEndpoint(" "), wantErr: "must not be empty"},
		{name: "tcp missing port", ep: ipc.Endpoint{Network: "tcp", Address: "127.0.0.1"}, wantErr: "tcp address"},
		{name: "tcp zero port", ep: ipc.Endpoint{Network: "tcp", Address: "127.0.0.1:0"}, wantErr: "needs a port"},
		{name: "udp rejected", ep: ipc.Endpoint{Network: "udp", Address: "127.0.0.1:53"}, wantErr: "network must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ep.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
