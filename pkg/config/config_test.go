package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/astdiff/pkg/config"
	"github.com/Sumatoshi-tech/astdiff/pkg/matcher"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

const (
	testWorkers     = 6
	testMinHeight   = 2
	testSampleRatio = 0.25
	testMaxFileSize = 2_000_000
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".astdiff.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultDiffWorkers, cfg.Diff.Workers)
	assert.Equal(t, 30*time.Second, cfg.Diff.PairTimeout)
	assert.Empty(t, cfg.Diff.OpaqueKinds)
	assert.Equal(t, config.TieBreakScore, cfg.Diff.TieBreak)
	assert.True(t, cfg.Diff.SkipVendor)
	assert.Equal(t, matcher.DefaultMinHeight, cfg.Matcher.MinHeight)
	assert.InDelta(t, matcher.DefaultContainerThreshold, cfg.Matcher.ContainerThreshold, 0.001)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, config.LogFormatText, cfg.Logging.Format)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)

	size, err := cfg.Diff.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), size)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	content := `diff:
  workers: 6
  pair_timeout: 5s
  opaque_kinds: [AnonymousClassDeclaration, Block]
  tie_break: position
  max_file_size: 2MB
  skip_vendor: false
matcher:
  min_height: 2
  container_threshold: 0.6
  label_threshold: 0.4
logging:
  level: debug
  format: json
telemetry:
  otlp_endpoint: localhost:4317
  otlp_headers: "x-team=diff,x-env=ci"
  otlp_insecure: true
  sample_ratio: 0.25
  metrics_addr: ":9090"
`

	cfg, err := config.LoadConfig(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, testWorkers, cfg.Diff.Workers)
	assert.Equal(t, 5*time.Second, cfg.Diff.PairTimeout)
	assert.False(t, cfg.Diff.SkipVendor)

	kinds, err := cfg.Diff.OpaqueKindSet()
	require.NoError(t, err)
	assert.True(t, kinds.Has(tree.KindAnonymousClassDeclaration))
	assert.True(t, kinds.Has(tree.KindBlock))

	size, err := cfg.Diff.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(testMaxFileSize), size)

	assert.NotNil(t, cfg.Diff.Comparator())
	assert.Equal(t, testMinHeight, cfg.Matcher.MatcherSettings().MinHeight)
	assert.InDelta(t, 0.4, cfg.Matcher.MatcherSettings().LabelThreshold, 0.001)

	obsCfg := cfg.Observability("v1.2.3", false)
	assert.Equal(t, "localhost:4317", obsCfg.OTLPEndpoint)
	assert.Equal(t, map[string]string{"x-team": "diff", "x-env": "ci"}, obsCfg.OTLPHeaders)
	assert.True(t, obsCfg.OTLPInsecure)
	assert.True(t, obsCfg.LogJSON)
	assert.Equal(t, slog.LevelDebug, obsCfg.LogLevel)
	assert.InDelta(t, testSampleRatio, obsCfg.SampleRatio, 0.001)
	assert.Equal(t, "v1.2.3", obsCfg.ServiceVersion)
	assert.Equal(t, ":9090", cfg.Telemetry.MetricsAddr)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ASTDIFF_DIFF_WORKERS", "3")
	t.Setenv("ASTDIFF_LOGGING_LEVEL", "warn")

	cfg, err := config.LoadConfig(writeConfig(t, "diff:\n  workers: 8\n"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Diff.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, slog.LevelWarn, cfg.Observability("", false).LogLevel)
	assert.Equal(t, slog.LevelDebug, cfg.Observability("", true).LogLevel)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "negative workers", content: "diff:\n  workers: -1\n", wantErr: config.ErrInvalidWorkers},
		{name: "negative timeout", content: "diff:\n  pair_timeout: -1s\n", wantErr: config.ErrInvalidTimeout},
		{name: "tie break", content: "diff:\n  tie_break: random\n", wantErr: config.ErrInvalidTieBreak},
		{name: "opaque kind", content: "diff:\n  opaque_kinds: [NoSuchKind]\n", wantErr: config.ErrInvalidOpaqueKind},
		{name: "file size", content: "diff:\n  max_file_size: lots\n", wantErr: config.ErrInvalidFileSize},
		{name: "min height", content: "matcher:\n  min_height: 0\n", wantErr: config.ErrInvalidMinHeight},
		{name: "threshold", content: "matcher:\n  label_threshold: 1.5\n", wantErr: config.ErrInvalidThreshold},
		{name: "log level", content: "logging:\n  level: loud\n", wantErr: config.ErrInvalidLogLevel},
		{name: "log format", content: "logging:\n  format: xml\n", wantErr: config.ErrInvalidLogFormat},
		{name: "sample ratio", content: "telemetry:\n  sample_ratio: 2\n", wantErr: config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
