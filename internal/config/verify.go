package config

import "errors"

// Verify validates a loaded configuration.
func Verify(cfg *Spec) error {
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if cfg.Server.MaxConnections <= 0 {
		return errors.New("server.max_connections must be positive")
	}
	if cfg.Server.ReadChunkBytes <= 0 {
		return errors.New("server.read_chunk_bytes must be positive")
	}
	if cfg.Server.CommandsPerSecond < 0 {
		return errors.New("server.commands_per_second must not be negative")
	}
	if cfg.Reaper.Interval <= 0 {
		return errors.New("reaper.interval must be positive")
	}
	return nil
}
