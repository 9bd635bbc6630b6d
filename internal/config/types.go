// Package config resolves, parses, validates, and defaults lrpmprobe configuration.
package config

import (
	"strings"
	"time"

	"github.com/rbright/lrpmprobe/internal/ipc"
)

// Config is the fully materialized runtime configuration used by lrpmprobe.
type Config struct {
	Probe ProbeConfig
	Log   LogConfig
}

// ProbeConfig controls the probe loop target and shape.
type ProbeConfig struct {
	Network    string
	Address    string
	Command    string
	Iterations int
	BufferSize int
	Timeout    time.Duration
}

// Endpoint is the dial target described by Network and Address.
func (p ProbeConfig) Endpoint() ipc.Endpoint {
	return ipc.Endpoint{Network: p.Network, Address: p.Address}
}

// LogConfig controls the JSONL log sink.
type LogConfig struct {
	Level string
}

// Overrides carries explicitly set CLI flags; nil fields leave the config alone.
type Overrides struct {
	Socket     *string
	Network    *string
	Address    *string
	Command    *string
	Iterations *int
	BufferSize *int
	Timeout    *time.Duration
	LogLevel   *string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// Apply returns a copy of cfg with every set override layered on top.
//
// Socket is shorthand for a unix endpoint; Network and Address win over it.
// Apply does not validate; callers run Validate on the merged result.
func (cfg Config) Apply(o Overrides) Config {
	if o.Socket != nil {
		cfg.Probe.Network = ipc.NetworkUnix
		cfg.Probe.Address = strings.TrimSpace(*o.Socket)
	}
	if o.Network != nil {
		cfg.Probe.Network = strings.ToLower(strings.TrimSpace(*o.Network))
	}
	if o.Address != nil {
		cfg.Probe.Address = strings.TrimSpace(*o.Address)
	}
	if o.Command != nil {
		cfg.Probe.Command = *o.Command
	}
	if o.Iterations != nil {
		cfg.Probe.Iterations = *o.Iterations
	}
	if o.BufferSize != nil {
		cfg.Probe.BufferSize = *o.BufferSize
	}
	if o.Timeout != nil {
		cfg.Probe.Timeout = *o.Timeout
	}
	if o.LogLevel != nil {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(*o.LogLevel))
	}
	return cfg
}
