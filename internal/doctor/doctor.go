// Package doctor runs readiness diagnostics for the php-lrpm control socket.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/lrpmprobe/internal/config"
	"github.com/rbright/lrpmprobe/internal/ipc"
	"github.com/rbright/lrpmprobe/internal/probe"
)

// defaultExchangeTimeout keeps doctor from hanging on a wedged server.
const defaultExchangeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes config/filesystem/socket checks for a loaded config.
//
// Unix endpoints get directory, socket file, and discovery checks; the
// roundtrip only runs once the socket file is known to exist. TCP endpoints
// go straight to the roundtrip.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{
		checkConfig(cfg),
		checkRuntimeEnv(),
	}

	probeCfg := cfg.Config.Probe
	endpoint := probeCfg.Endpoint()
	checks = append(checks, Check{Name: "endpoint", Pass: true, Message: endpoint.String()})

	if !endpoint.IsUnix() {
		checks = append(checks, checkRoundtrip(ctx, probeCfg))
		return Report{Checks: checks}
	}

	socket := endpoint.Address
	checks = append(checks, checkRuntimeDir(filepath.Dir(socket)))

	socketCheck := checkSocketFile(socket)
	checks = append(checks, socketCheck)
	if socketCheck.Pass {
		checks = append(checks, checkRoundtrip(ctx, probeCfg))
	} else {
		checks = append(checks, checkDiscovery(socket))
	}

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkRuntimeEnv reports XDG_RUNTIME_DIR without judging it; the default
// socket path is derived from the euid either way.
func checkRuntimeEnv() Check {
	value := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if value == "" {
		return Check{Name: "XDG_RUNTIME_DIR", Pass: true, Message: "unset; default socket path derives from the euid"}
	}
	return Check{Name: "XDG_RUNTIME_DIR", Pass: true, Message: value}
}

// checkDiscovery looks for the configured socket name in the other
// candidate directories and names every path it tried.
func checkDiscovery(socket string) Check {
	found, err := ipc.FindSocketPath(filepath.Base(socket), ipc.CandidateDirs(filepath.Dir(socket)))
	if err != nil {
		return Check{Name: "socket.search", Pass: false, Message: err.Error()}
	}
	return Check{
		Name:    "socket.search",
		Pass:    false,
		Message: fmt.Sprintf("configured socket missing but %s is live; pass --socket %s", found, found),
	}
}

func checkRuntimeDir(dir string) Check {
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: "socket.dir", Pass: false, Message: err.Error()}
	}
	if !info.IsDir() {
		return Check{Name: "socket.dir", Pass: false, Message: fmt.Sprintf("%s is not a directory", dir)}
	}
	return Check{Name: "socket.dir", Pass: true, Message: fmt.Sprintf("%s exists (mode %s)", dir, info.Mode().Perm())}
}

func checkSocketFile(path string) Check {
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "socket.file", Pass: false, Message: err.Error()}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Check{Name: "socket.file", Pass: false, Message: fmt.Sprintf("%s is not a unix socket", path)}
	}
	if len(path) >= ipc.MaxSocketPathLen {
		return Check{Name: "socket.file", Pass: false, Message: fmt.Sprintf("%s exceeds the unix socket path limit", path)}
	}
	return Check{Name: "socket.file", Pass: true, Message: fmt.Sprintf("%s is a unix socket", path)}
}

// checkRoundtrip performs a single probe exchange with a bounded deadline.
func checkRoundtrip(ctx context.Context, cfg config.ProbeConfig) Check {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultExchangeTimeout
	}

	start := time.Now()
	resp, err := ipc.Exchange(ctx, cfg.Endpoint(), []byte(cfg.Command), cfg.BufferSize, timeout)
	if err != nil {
		msg := err.Error()
		if ipc.IsUnavailable(err) {
			msg = "no server listening: " + msg
		}
		return Check{Name: "socket.roundtrip", Pass: false, Message: msg}
	}

	return Check{
		Name: "socket.roundtrip",
		Pass: true,
		Message: fmt.Sprintf("%d bytes in %s: %s",
			len(resp), time.Since(start).Round(time.Microsecond), probe.FormatBytes(resp)),
	}
}
