// Package config defines and loads the keydb-server configuration.
package config

import "time"

// Spec is the root configuration for keydb-server.
type Spec struct {
	Server  ServerSection  `koanf:"server"`
	Reaper  ReaperSection  `koanf:"reaper"`
	Metrics MetricsSection `koanf:"metrics"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the RESP listener and connection admission.
type ServerSection struct {
	Addr           string `koanf:"addr"`
	MaxConnections int    `koanf:"max_connections"`
	ReadChunkBytes int    `koanf:"read_chunk_bytes"`
	// CommandsPerSecond bounds the rate of commands accepted per
	// connection when > 0. Zero disables rate limiting.
	CommandsPerSecond int `koanf:"commands_per_second"`
}

// ReaperSection configures the background expiry sweep.
type ReaperSection struct {
	Interval time.Duration `koanf:"interval"`
}

// MetricsSection configures the optional Prometheus HTTP endpoint.
// Addr is empty by default, which disables the metrics server entirely.
type MetricsSection struct {
	Addr string `koanf:"addr"`
}

// LogSection configures the logger.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
