// Package config provides YAML-based configuration for astdiff.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/matcher"
	"github.com/Sumatoshi-tech/astdiff/pkg/observability"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers     = errors.New("diff workers must not be negative")
	ErrInvalidTimeout     = errors.New("pair timeout must not be negative")
	ErrInvalidTieBreak    = errors.New("unknown tie break")
	ErrInvalidOpaqueKind  = errors.New("unknown opaque kind")
	ErrInvalidFileSize    = errors.New("invalid max file size")
	ErrInvalidThreshold   = errors.New("matcher threshold must be within [0, 1]")
	ErrInvalidMinHeight   = errors.New("matcher min height must be positive")
	ErrInvalidLogLevel    = errors.New("unknown log level")
	ErrInvalidLogFormat   = errors.New("unknown log format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

// Tie-break names accepted by diff.tie_break.
const (
	TieBreakScore    = "score"
	TieBreakPosition = "position"
)

// Log formats accepted by logging.format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all astdiff configuration.
type Config struct {
	Diff      DiffConfig      `mapstructure:"diff"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// DiffConfig controls project runs.
type DiffConfig struct {
	Workers     int           `mapstructure:"workers"`
	PairTimeout time.Duration `mapstructure:"pair_timeout"`
	OpaqueKinds []string      `mapstructure:"opaque_kinds"`
	TieBreak    string        `mapstructure:"tie_break"`
	MaxFileSize string        `mapstructure:"max_file_size"`
	SkipVendor  bool          `mapstructure:"skip_vendor"`
}

// MatcherConfig tunes the seed matcher.
type MatcherConfig struct {
	MinHeight          int     `mapstructure:"min_height"`
	ContainerThreshold float64 `mapstructure:"container_threshold"`
	LabelThreshold     float64 `mapstructure:"label_threshold"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry and Prometheus settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	return errors.Join(
		c.Diff.validate(),
		c.Matcher.validate(),
		c.Logging.validate(),
		c.Telemetry.validate(),
	)
}

func (d *DiffConfig) validate() error {
	var errs []error

	if d.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWorkers, d.Workers))
	}

	if d.PairTimeout < 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidTimeout, d.PairTimeout))
	}

	if d.TieBreak != TieBreakScore && d.TieBreak != TieBreakPosition {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTieBreak, d.TieBreak))
	}

	if _, err := d.OpaqueKindSet(); err != nil {
		errs = append(errs, err)
	}

	if _, err := d.MaxFileSizeBytes(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// OpaqueKindSet resolves the opaque kind names.
func (d *DiffConfig) OpaqueKindSet() (tree.KindSet, error) {
	if len(d.OpaqueKinds) == 0 {
		return nil, nil
	}

	kinds := make([]tree.Kind, 0, len(d.OpaqueKinds))

	for _, name := range d.OpaqueKinds {
		kind, ok := tree.ParseKind(name)
		if !ok || kind == tree.KindOther {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOpaqueKind, name)
		}

		kinds = append(kinds, kind)
	}

	return tree.NewKindSet(kinds...), nil
}

// MaxFileSizeBytes parses max_file_size. Zero means unlimited.
func (d *DiffConfig) MaxFileSizeBytes() (uint64, error) {
	if d.MaxFileSize == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(d.MaxFileSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidFileSize, d.MaxFileSize, err)
	}

	return size, nil
}

// Comparator returns the mono tie-break for tie_break.
func (d *DiffConfig) Comparator() mapping.Comparator {
	if d.TieBreak == TieBreakPosition {
		return mapping.PositionComparator
	}

	return mapping.DefaultComparator
}

func (m *MatcherConfig) validate() error {
	var errs []error

	if m.MinHeight <= 0 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidMinHeight, m.MinHeight))
	}

	for _, threshold := range []float64{m.ContainerThreshold, m.LabelThreshold} {
		if threshold < 0 || threshold > 1 {
			errs = append(errs, fmt.Errorf("%w: %g", ErrInvalidThreshold, threshold))
		}
	}

	return errors.Join(errs...)
}

// MatcherSettings converts to the matcher's tuning.
func (m *MatcherConfig) MatcherSettings() matcher.Config {
	return matcher.Config{
		MinHeight:          m.MinHeight,
		ContainerThreshold: m.ContainerThreshold,
		LabelThreshold:     m.LabelThreshold,
	}
}

func (l *LoggingConfig) validate() error {
	var errs []error

	if _, err := l.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if l.Format != LogFormatText && l.Format != LogFormatJSON {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, l.Format))
	}

	return errors.Join(errs...)
}

// SlogLevel parses the configured level name.
func (l *LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}

	return level, nil
}

func (t *TelemetryConfig) validate() error {
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, t.SampleRatio)
	}

	return nil
}

// Observability builds the observability settings. verbose forces debug
// logging.
func (c *Config) Observability(version string, verbose bool) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version
	obsCfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = c.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = c.Telemetry.SampleRatio
	obsCfg.LogJSON = c.Logging.Format == LogFormatJSON

	if level, err := c.Logging.SlogLevel(); err == nil {
		obsCfg.LogLevel = level
	}

	if verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	return obsCfg
}
