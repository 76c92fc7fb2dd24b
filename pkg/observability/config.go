// Package observability wires OpenTelemetry tracing and metrics plus slog
// structured logging for the astdiff library and CLI.
package observability

import (
	"log/slog"
	"time"
)

// AppMode identifies how the process was launched.
type AppMode string

const (
	// ModeCLI is a one-shot CLI invocation.
	ModeCLI AppMode = "cli"
	// ModeLibrary is an embedding application using the packages directly.
	ModeLibrary AppMode = "library"
)

const (
	defaultServiceName        = "astdiff"
	defaultShutdownTimeoutSec = 5
	readHeaderTimeout         = 5 * time.Second
)

// Config holds observability settings.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the version of the running binary.
	ServiceVersion string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address. Empty selects no-op
	// providers.
	OTLPEndpoint string

	// OTLPHeaders are extra gRPC metadata headers for the exporters.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS towards the collector.
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio; zero samples everything.
	SampleRatio float64

	// LogLevel is the minimum slog level.
	LogLevel slog.Level

	// LogJSON switches the log output from text to JSON.
	LogJSON bool

	// ShutdownTimeoutSec bounds the flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a zero-export configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
