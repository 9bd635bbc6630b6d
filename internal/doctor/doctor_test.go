package doctor

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/lrpmprobe/internal/config"
	"github.com/rbright/lrpmprobe/internal/ipc"
	"github.com/rbright/lrpmprobe/internal/ipc/ipctest"
	"github.com/stretchr/testify/require"
)

func loadedFor(socket string) config.Loaded {
	cfg := config.Default()
	cfg.Probe.Network = ipc.NetworkUnix
	cfg.Probe.Address = socket
	return config.Loaded{Path: "/tmp/lrpmprobe.ini", Config: cfg}
}

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckRuntimeEnvIsInformational(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	check := checkRuntimeEnv()
	require.True(t, check.Pass)
	require.Equal(t, "/run/user/1000", check.Message)

	t.Setenv("XDG_RUNTIME_DIR", " ")
	check = checkRuntimeEnv()
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "derives from the euid")
}

func TestRunAllChecksPassAgainstLiveSocket(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	srv := ipctest.Start(t, ipctest.Reply([]byte("OK")))

	report := Run(context.Background(), loadedFor(srv.Addr))
	require.True(t, report.OK(), report.String())
	require.Contains(t, report.String(), "[OK] socket.roundtrip: 2 bytes")
	require.Contains(t, report.String(), "b'OK'")
	require.Contains(t, report.String(), "not found; using defaults")
}

func TestRunMissingSocketSkipsRoundtrip(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	dir := t.TempDir()

	report := Run(context.Background(), loadedFor(filepath.Join(dir, "socket")))
	require.False(t, report.OK())

	text := report.String()
	require.Contains(t, text, "[OK] socket.dir")
	require.Contains(t, text, "[FAIL] socket.file")
	require.NotContains(t, text, "socket.roundtrip")
}

func TestRunMissingRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	report := Run(context.Background(), loadedFor("/nonexistent-lrpmprobe-dir/php-lrpm/socket"))
	require.False(t, report.OK())

	text := report.String()
	require.Contains(t, text, "[OK] XDG_RUNTIME_DIR")
	require.Contains(t, text, "[FAIL] socket.dir")
}

func TestRunUnsetRuntimeDirStillPassesWithLiveSocket(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	srv := ipctest.Start(t, ipctest.Reply([]byte("OK")))

	report := Run(context.Background(), loadedFor(srv.Addr))
	require.True(t, report.OK(), report.String())
	require.Contains(t, report.String(), "[OK] XDG_RUNTIME_DIR: unset")
}

func TestRunMissingSocketListsSearchedCandidates(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", xdg)
	configured := filepath.Join(t.TempDir(), "socket")

	report := Run(context.Background(), loadedFor(configured))
	require.False(t, report.OK())

	text := report.String()
	require.Contains(t, text, "[FAIL] socket.search")
	require.Contains(t, text, configured)
	require.Contains(t, text, filepath.Join(xdg, "php-lrpm", "socket"))
	require.Contains(t, text, filepath.Join(os.TempDir(), "php-lrpm", "socket"))
}

func TestRunMissingSocketPointsAtLiveCandidate(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", xdg)
	require.NoError(t, os.Mkdir(filepath.Join(xdg, "php-lrpm"), 0o700))
	srv := ipctest.StartAt(t, filepath.Join(xdg, "php-lrpm", "socket"), ipctest.Reply([]byte("OK")))

	report := Run(context.Background(), loadedFor(filepath.Join(t.TempDir(), "socket")))
	require.False(t, report.OK())
	require.Contains(t, report.String(), "pass --socket "+srv.Addr)
}

func TestRunTCPEndpointSkipsSocketChecks(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	srv := ipctest.StartTCP(t, ipctest.Reply([]byte("OK")))

	cfg := config.Default()
	cfg.Probe.Network = srv.Endpoint.Network
	cfg.Probe.Address = srv.Endpoint.Address

	report := Run(context.Background(), config.Loaded{Path: "/tmp/lrpmprobe.ini", Config: cfg})
	require.True(t, report.OK(), report.String())

	text := report.String()
	require.Contains(t, text, "[OK] endpoint: tcp://"+srv.Addr)
	require.Contains(t, text, "[OK] socket.roundtrip")
	require.NotContains(t, text, "socket.dir")
	require.NotContains(t, text, "socket.file")
}

func TestCheckSocketFileRejectsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socket")
	require.NoError(t, os.WriteFile(path, []byte("not a socket"), 0o600))

	check := checkSocketFile(path)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "not a unix socket")
}

func TestCheckRoundtripRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socket")
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	listener.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, listener.Close())

	cfg := config.Default().Probe
	cfg.Address = path

	check := checkRoundtrip(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "no server listening")
}
