package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the effective configuration after the full override chain:
// defaults, then the config file, then environment variables, then CLI
// flags. Durations and sizes are parsed; callers never re-parse strings.
type Resolved struct {
	BaseURL              string
	Timeout              time.Duration
	UserAgent            string
	ChunkSize            int64
	ParallelUploads      int
	DisableChunkedUpload bool
	LogLevel             string

	CredentialsPath string
	JournalPath     string
}

// Resolve loads the config file (if any), applies environment and CLI
// overrides, validates, and returns the effective configuration. A missing
// config file is not an error — defaults apply.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfg := defaultConfig()

	path := configPath(env, cli)
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Environment overrides the file; CLI flags override everything.
	if env.ServerURL != "" {
		cfg.Server.BaseURL = env.ServerURL
	}

	if cli.ServerURL != "" {
		cfg.Server.BaseURL = cli.ServerURL
	}

	return resolve(cfg)
}

// configPath picks the config file path: CLI flag, then environment, then
// the platform default. Returns "" when no home directory exists.
func configPath(env EnvOverrides, cli CLIOverrides) string {
	if cli.ConfigPath != "" {
		return cli.ConfigPath
	}

	if env.ConfigPath != "" {
		return env.ConfigPath
	}

	return DefaultConfigPath()
}

// loadFile parses a TOML config file into cfg. Missing file is not an
// error; malformed TOML or unknown keys are.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return nil
}

// resolve validates cfg and converts string fields to typed values.
func resolve(cfg Config) (*Resolved, error) {
	if cfg.Server.BaseURL == "" {
		return nil, fmt.Errorf("config: server.base_url must not be empty")
	}

	timeout, err := time.ParseDuration(cfg.Server.Timeout)
	if err != nil {
		return nil, fmt.Errorf("config: invalid server.timeout %q: %w", cfg.Server.Timeout, err)
	}

	chunkSize, err := parseSize(cfg.Transfers.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("config: invalid transfers.chunk_size: %w", err)
	}

	if chunkSize <= 0 {
		return nil, fmt.Errorf("config: transfers.chunk_size must be positive")
	}

	parallel := cfg.Transfers.ParallelUploads
	if parallel <= 0 {
		parallel = DefaultParallelUploads
	}

	level := cfg.Logging.LogLevel
	if level == "" {
		level = DefaultLogLevel
	}

	switch level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("config: invalid logging.log_level %q", level)
	}

	return &Resolved{
		BaseURL:              strings.TrimRight(cfg.Server.BaseURL, "/"),
		Timeout:              timeout,
		UserAgent:            cfg.Server.UserAgent,
		ChunkSize:            chunkSize,
		ParallelUploads:      parallel,
		DisableChunkedUpload: cfg.Transfers.DisableChunkedUpload,
		LogLevel:             level,
		CredentialsPath:      CredentialsPath(),
		JournalPath:          JournalPath(),
	}, nil
}
