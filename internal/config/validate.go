package config

import (
	"fmt"

	"github.com/rbright/lrpmprobe/internal/ipc"
)

// MaxBufferSize bounds probe.buffer_size to the php-lrpm server's own receive buffer.
const MaxBufferSize = 64 * 1024

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	endpoint := cfg.Probe.Endpoint()
	if err := endpoint.Validate(); err != nil {
		return nil, fmt.Errorf("probe endpoint: %w", err)
	}
	if cfg.Probe.Command == "" {
		return nil, fmt.Errorf("probe.command must not be empty")
	}
	if cfg.Probe.Iterations <= 0 {
		return nil, fmt.Errorf("probe.iterations must be > 0")
	}
	if cfg.Probe.BufferSize <= 0 || cfg.Probe.BufferSize > MaxBufferSize {
		return nil, fmt.Errorf("probe.buffer_size must be between 1 and %d", MaxBufferSize)
	}
	if cfg.Probe.Timeout < 0 {
		return nil, fmt.Errorf("probe.timeout must be >= 0")
	}
	if _, ok := validLogLevels[cfg.Log.Level]; !ok {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if endpoint.IsUnix() && len(endpoint.Address) >= ipc.MaxSocketPathLen {
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("probe.address is %d bytes; unix socket paths are limited to %d", len(endpoint.Address), ipc.MaxSocketPathLen-1),
		})
	}

	return warnings, nil
}
