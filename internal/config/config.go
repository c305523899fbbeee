// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for cloudvault-go. It supports a
// three-layer override chain: defaults -> config file -> environment, with
// CLI flags applied on top by the command layer.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Transfers TransfersConfig `toml:"transfers"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig controls how the API client reaches the backend.
type ServerConfig struct {
	BaseURL   string `toml:"base_url"`
	Timeout   string `toml:"timeout"`
	UserAgent string `toml:"user_agent"`
}

// TransfersConfig controls upload behavior: chunk size, parallel file
// uploads, and whether to fall back to single-request uploads for servers
// without chunked support. Chunks within one file are always sequential;
// parallel_uploads bounds concurrency across files only.
type TransfersConfig struct {
	ChunkSize            string `toml:"chunk_size"`
	ParallelUploads      int    `toml:"parallel_uploads"`
	DisableChunkedUpload bool   `toml:"disable_chunked_upload"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings.
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	ServerURL  string // --server flag
}
