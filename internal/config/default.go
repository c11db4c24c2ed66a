package config

import "time"

// Default configuration values, per spec.md §3 (1000 connection ceiling),
// §4.4 (reaper wakes at least once per second) and §4.6 (4KiB read chunks).
const (
	DefaultAddr              = "127.0.0.1:6379"
	DefaultMaxConnections    = 1000
	DefaultReadChunkBytes    = 4 * 1024
	DefaultCommandsPerSecond = 0 // disabled

	DefaultReaperInterval = time.Second

	DefaultMetricsAddr = "" // disabled

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *Spec {
	return &Spec{
		Server: ServerSection{
			Addr:              DefaultAddr,
			MaxConnections:    DefaultMaxConnections,
			ReadChunkBytes:    DefaultReadChunkBytes,
			CommandsPerSecond: DefaultCommandsPerSecond,
		},
		Reaper: ReaperSection{
			Interval: DefaultReaperInterval,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
