package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig = "CLOUDVAULT_CONFIG"
	EnvServer = "CLOUDVAULT_SERVER"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // CLOUDVAULT_CONFIG: override config file path
	ServerURL  string // CLOUDVAULT_SERVER: override API base URL
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify the Config; Resolve applies the fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		ServerURL:  os.Getenv(EnvServer),
	}
}
