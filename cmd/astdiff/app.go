package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/astdiff/pkg/astdiff"
	"github.com/Sumatoshi-tech/astdiff/pkg/config"
	"github.com/Sumatoshi-tech/astdiff/pkg/ingest"
	"github.com/Sumatoshi-tech/astdiff/pkg/matcher"
	"github.com/Sumatoshi-tech/astdiff/pkg/observability"
	"github.com/Sumatoshi-tech/astdiff/pkg/report"
	"github.com/Sumatoshi-tech/astdiff/pkg/safeconv"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
	"github.com/Sumatoshi-tech/astdiff/pkg/version"
)

// Sentinel errors for the CLI.
var (
	ErrPairsFailed  = errors.New("some file pairs could not be diffed")
	ErrFileTooLarge = errors.New("file exceeds max_file_size")
)

// jsonExt selects the JSON tree document loader instead of a source parser.
const jsonExt = ".json"

// app bundles what every command needs for one invocation.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	providers   observability.Providers
	metrics     *observability.DiffMetrics
	diagnostics *observability.DiagnosticsServer
	renderer    *report.Renderer
	parser      *ingest.Parser
	maxFileSize uint64
}

func newApp(ctx context.Context, flags *globalFlags, stderr io.Writer) (*app, error) {
	format, err := report.ParseFormat(flags.format)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	maxFileSize, err := cfg.Diff.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.Observability(version.Version, flags.verbose)

	var exporter *observability.PrometheusExporter

	if cfg.Telemetry.MetricsAddr != "" {
		exporter, err = observability.NewPrometheusExporter()
		if err != nil {
			return nil, err
		}
	}

	var readers []sdkmetric.Reader
	if exporter != nil {
		readers = append(readers, exporter.Reader)
	}

	providers, err := observability.Init(obsCfg, readers...)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	application := &app{
		cfg:         cfg,
		logger:      observability.NewLogger(stderr, obsCfg),
		providers:   providers,
		renderer:    report.NewRenderer(format, flags.noColor || color.NoColor),
		parser:      ingest.NewParser(),
		maxFileSize: maxFileSize,
	}

	application.metrics, err = observability.NewDiffMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, application.close(ctx))
	}

	if exporter != nil {
		application.diagnostics, err = observability.NewDiagnosticsServer(
			ctx, cfg.Telemetry.MetricsAddr, exporter.Handler, application.logger)
		if err != nil {
			return nil, errors.Join(err, application.close(ctx))
		}

		application.logger.InfoContext(ctx, "cli: serving metrics", "addr", application.diagnostics.Addr())
	}

	return application, nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error

	if a.diagnostics != nil {
		errs = append(errs, a.diagnostics.Close(ctx))
	}

	errs = append(errs, a.providers.Shutdown(ctx))

	return errors.Join(errs...)
}

// differ builds a Differ from the loaded configuration.
func (a *app) differ() (*astdiff.Differ, error) {
	opaque, err := a.cfg.Diff.OpaqueKindSet()
	if err != nil {
		return nil, err
	}

	return astdiff.NewDiffer(astdiff.DifferConfig{
		Match:       matcher.New(a.cfg.Matcher.MatcherSettings()).MatchAndRecover,
		Comparator:  a.cfg.Diff.Comparator(),
		OpaqueKinds: opaque,
		Workers:     a.cfg.Diff.Workers,
		PairTimeout: a.cfg.Diff.PairTimeout,
		Logger:      a.logger,
		Tracer:      a.providers.Tracer,
		Metrics:     a.metrics,
	}), nil
}

// readSource reads path, enforcing the configured size limit.
func (a *app) readSource(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	size := safeconv.MustInt64ToUint64(info.Size())
	if a.maxFileSize > 0 && size > a.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %s", ErrFileTooLarge, path, humanize.Bytes(size))
	}

	content, err := os.ReadFile(path) //nolint:gosec // path comes from the user or a directory walk.
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return content, nil
}

// diffable reports whether a file should be diffed: a JSON tree document or
// a source file with a grammar, outside vendored code unless configured.
func (a *app) diffable(name string) bool {
	if a.cfg.Diff.SkipVendor && ingest.IsVendor(name) {
		return false
	}

	return strings.EqualFold(filepath.Ext(name), jsonExt) || ingest.Supported(name)
}

// loadTree parses source or decodes a JSON tree document.
func (a *app) loadTree(ctx context.Context, name string, content []byte) (*tree.Context, error) {
	if strings.EqualFold(filepath.Ext(name), jsonExt) {
		treeCtx, err := ingest.LoadJSON(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}

		return treeCtx, nil
	}

	treeCtx, err := a.parser.Parse(ctx, name, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	return treeCtx, nil
}

// finish renders the project and turns failed pairs into an error.
func (a *app) finish(out io.Writer, project *astdiff.ProjectASTDiff, run *astdiff.RunReport) error {
	err := a.renderer.Render(out, report.FromProject(project, run))
	if err != nil {
		return err
	}

	if len(run.Failed) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrPairsFailed, len(run.Failed), len(run.Failed)+len(run.Succeeded))
	}

	return nil
}
