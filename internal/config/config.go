// Package config defines client configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Default values for the client configuration.
const (
	defaultHost         = "https://zoltardata.com"
	defaultPollInterval = 1000
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Host is the Zoltar server base URL, without a trailing slash.
	Host string `koanf:"host"`

	// Username and Password are the credentials for the token exchange.
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// TokenTTLSeconds is the assumed bearer-token lifetime. Zero means the
	// lifetime is unknown and every authenticated call re-authenticates.
	TokenTTLSeconds int `koanf:"token_ttl_seconds"`

	// PollIntervalMS sets the delay between upload job status polls.
	PollIntervalMS int `koanf:"poll_interval_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Host:            defaultHost,
		TokenTTLSeconds: 0,
		PollIntervalMS:  defaultPollInterval,
	}
}
