package config

import "github.com/rbright/lrpmprobe/internal/ipc"

const (
	DefaultCommand    = "status"
	DefaultIterations = 1000
	DefaultLogLevel   = "info"
)

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Probe: ProbeConfig{
			Network:    ipc.NetworkUnix,
			Address:    ipc.DefaultSocketPath(),
			Command:    DefaultCommand,
			Iterations: DefaultIterations,
			BufferSize: ipc.DefaultBufferSize,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}
