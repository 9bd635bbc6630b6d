package ipc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	runtimeRoot    = "/run/user"
	socketDirName  = "php-lrpm"
	socketFileName = "socket"

	// MaxSocketPathLen is the sun_path capacity on Linux, including the NUL.
	MaxSocketPathLen = 108
)

// RuntimeSocketPath returns the php-lrpm control socket for uid.
func RuntimeSocketPath(uid int) string {
	return filepath.Join(runtimeRoot, strconv.Itoa(uid), socketDirName, socketFileName)
}

// DefaultSocketPath resolves the control socket for the invoking effective user.
func DefaultSocketPath() string {
	return RuntimeSocketPath(unix.Geteuid())
}

// SocketNotFoundError lists every candidate that was tried for a socket name.
type SocketNotFoundError struct {
	Name  string
	Tried []string
}

func (e *SocketNotFoundError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("no writable unix socket %q: no candidate directories", e.Name)
	}
	return fmt.Sprintf("no writable unix socket %q; tried: %s", e.Name, strings.Join(e.Tried, ", "))
}

// FindSocketPath returns the first dir/name that is an existing unix socket
// the caller may write to.
func FindSocketPath(name string, dirs []string) (string, error) {
	tried := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		tried = append(tried, candidate)

		info, err := os.Stat(candidate)
		if err != nil || info.Mode()&os.ModeSocket == 0 {
			continue
		}
		if unix.Access(candidate, unix.W_OK) == nil {
			return candidate, nil
		}
	}
	return "", &SocketNotFoundError{Name: name, Tried: tried}
}

// CandidateDirs lists where a php-lrpm socket is looked for, configured
// directory first, without duplicates or empty entries.
func CandidateDirs(configured string) []string {
	dirs := []string{configured}
	if xdg := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, socketDirName))
	}
	dirs = append(dirs,
		filepath.Dir(DefaultSocketPath()),
		filepath.Join(os.TempDir(), socketDirName),
	)

	seen := make(map[string]struct{}, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		dir = filepath.Clean(dir)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}
	return out
}
