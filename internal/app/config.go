package app

import "time"

// Config holds everything needed to construct and run an App, sourced
// from environment variables with the CLI's positional port argument
// taking precedence over HASHD_PORT.
type Config struct {
	// Port is the TCP port the hashing protocol listens on.
	Port uint16
	// ConnectionTimeout bounds every Read/Write a session performs.
	// Zero disables per-operation deadlines.
	ConnectionTimeout time.Duration
	// ReapInterval is how often the session registry is pruned.
	ReapInterval time.Duration
	// LogLevel is one of debug/info/warn/error.
	LogLevel string
	// Pretty selects the human-readable log handler over JSON.
	Pretty bool
	// MetricsAddr, when non-empty, serves /healthz and /metrics on this
	// address on a listener separate from the hashing port.
	MetricsAddr string
}

// LoadConfig reads Config from the environment, following the
// EnvString/EnvInt/EnvBool/EnvDuration convention used across this
// package.
func LoadConfig() Config {
	port := EnvInt("HASHD_PORT", 23)
	return Config{
		Port:              uint16(port),
		ConnectionTimeout: EnvDuration("HASHD_CONN_TIMEOUT", 0),
		ReapInterval:      EnvDuration("HASHD_REAP_INTERVAL", 2*time.Second),
		LogLevel:          EnvString("HASHD_LOG_LEVEL", "info"),
		Pretty:            EnvBool("HASHD_PRETTY", false),
		MetricsAddr:       EnvString("HASHD_METRICS_ADDR", ""),
	}
}
