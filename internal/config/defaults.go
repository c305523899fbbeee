package config

// Default configuration values, applied before the config file and
// environment overrides.
const (
	// DefaultBaseURL points at a local backend. Real deployments set
	// server.base_url in the config file or CLOUDVAULT_SERVER.
	DefaultBaseURL = "http://localhost:5226/api"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = "30s"

	// DefaultChunkSize matches the backend's expected upload chunk (1 MiB).
	DefaultChunkSize = "1MiB"

	// DefaultParallelUploads bounds concurrent file uploads for multi-file put.
	DefaultParallelUploads = 4

	// DefaultLogLevel is the baseline log level before CLI flags.
	DefaultLogLevel = "info"
)

// defaultConfig returns a Config populated with defaults.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Transfers: TransfersConfig{
			ChunkSize:       DefaultChunkSize,
			ParallelUploads: DefaultParallelUploads,
		},
		Logging: LoggingConfig{
			LogLevel: DefaultLogLevel,
		},
	}
}
