package ipc

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"
)

const (
	NetworkUnix = "unix"
	NetworkTCP  = "tcp"
	NetworkTCP4 = "tcp4"
	NetworkTCP6 = "tcp6"
)

// Endpoint names a stream endpoint: a unix socket path or a tcp host:port.
type Endpoint struct {
	Network string
	Address string
}

// UnixEndpoint targets the unix socket at path.
func UnixEndpoint(path string) Endpoint {
	return Endpoint{Network: NetworkUnix, Address: path}
}

func (e Endpoint) String() string {
	return e.Network + "://" + e.Address
}

// IsUnix reports whether e is a unix domain socket endpoint.
func (e Endpoint) IsUnix() bool {
	return e.Network == NetworkUnix
}

// Validate checks the network name and the address shape it implies.
func (e Endpoint) Validate() error {
	switch e.Network {
	case NetworkUnix:
		if strings.TrimSpace(e.Address) == "" {
			return fmt.Errorf("unix socket path must not be empty")
		}
		if !filepath.IsAbs(e.Address) {
			return fmt.Errorf("unix socket path must be absolute: %q", e.Address)
		}
	case NetworkTCP, NetworkTCP4, NetworkTCP6:
		_, port, err := net.SplitHostPort(e.Address)
		if err != nil {
			return fmt.Errorf("tcp address %q: %w", e.Address, err)
		}
		if port == "" || port == "0" {
			return fmt.Errorf("tcp address %q needs a port", e.Address)
		}
	default:
		return fmt.Errorf("network must be one of: unix, tcp, tcp4, tcp6; got %q", e.Network)
	}
	return nil
}
