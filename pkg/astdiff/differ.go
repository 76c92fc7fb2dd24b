package astdiff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/astdiff/pkg/editscript"
	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/observability"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// ErrPairTimeout is reported for a pair that exceeded its deadline.
var ErrPairTimeout = errors.New("pair diff timed out")

// ErrNoMatcher is returned by Run when the differ has no matcher.
var ErrNoMatcher = errors.New("differ has no matcher")

// MatchFunc computes the seed mapping between two trees.
type MatchFunc func(ctx context.Context, src, dst *tree.Context) (*mapping.MultiStore, error)

// FilePair is one unit of work: two parsed trees and their paths. Move marks
// a declaration that moved between files. Pairs merged into one diff (same
// src or dst path) must share the same Src and Dst contexts; separately
// parsed trees fail the merge with ErrStructuralInconsistency.
type FilePair struct {
	SrcPath string
	DstPath string
	Src     *tree.Context
	Dst     *tree.Context
	Move    bool
}

// Key returns the diff key of the pair.
func (p FilePair) Key() DiffKey {
	return DiffKey{SrcPath: p.SrcPath, DstPath: p.DstPath}
}

// PairFailure records why a pair was discarded.
type PairFailure struct {
	Key DiffKey
	Err error
}

// RunReport summarizes one Run.
type RunReport struct {
	Succeeded []DiffKey
	Failed    []PairFailure
	Duration  time.Duration
}

// DifferConfig holds parameters for creating a Differ.
type DifferConfig struct {
	// Match computes the seed mapping of each pair. Required.
	Match MatchFunc

	// Generator produces edit scripts. Nil selects editscript.NewGenerator.
	Generator ScriptGenerator

	// Comparator breaks ties when reducing to a mono mapping.
	Comparator mapping.Comparator

	// OpaqueKinds are also matched as childless placeholders on pruned
	// copies; those mappings are merged into the full-tree mapping.
	OpaqueKinds tree.KindSet

	// Workers bounds parallel pairs. Zero selects GOMAXPROCS.
	Workers int

	// PairTimeout bounds each phase of one pair. Zero disables it.
	PairTimeout time.Duration

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.DiffMetrics
}

// Differ computes the diffs of many file pairs into a ProjectASTDiff.
type Differ struct {
	cfg    DifferConfig
	logger *slog.Logger
	tracer trace.Tracer
}

// NewDiffer creates a Differ.
func NewDiffer(cfg DifferConfig) *Differ {
	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("astdiff")
	}

	if cfg.Generator == nil {
		cfg.Generator = editscript.NewGenerator()
	}

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	return &Differ{cfg: cfg, logger: lg, tracer: tracer}
}

// Run diffs pairs into project in three phases: parallel matching, ordered
// add-or-merge into the project, then parallel edit scripts. A failed or
// timed out pair is reported and skipped; the others proceed. Run returns an
// error only when ctx ends or no matcher is configured.
func (d *Differ) Run(ctx context.Context, project *ProjectASTDiff, pairs []FilePair) (RunReport, error) {
	if d.cfg.Match == nil {
		return RunReport{}, ErrNoMatcher
	}

	started := time.Now()

	ctx, span := d.tracer.Start(ctx, "astdiff.run",
		trace.WithAttributes(attribute.Int("astdiff.pairs", len(pairs))))
	defer span.End()

	d.logger.InfoContext(ctx, "differ: run started", "pairs", len(pairs), "workers", d.cfg.Workers)

	var report runState

	matched := make([]*ASTDiff, len(pairs))

	d.forEach(ctx, len(pairs), func(ctx context.Context, idx int) {
		diff, err := d.withTimeout(ctx, func(ctx context.Context) (*ASTDiff, error) {
			return d.match(ctx, pairs[idx])
		})
		if err != nil {
			report.fail(pairs[idx].Key(), err)
			d.record(ctx, err, 0)

			return
		}

		matched[idx] = diff
	})

	scripted := d.collect(ctx, project, pairs, matched, &report)

	d.forEach(ctx, len(scripted), func(ctx context.Context, idx int) {
		work := scripted[idx]
		pairStart := time.Now()
		done := d.cfg.Metrics.TrackInflight(ctx)

		_, err := d.withTimeout(ctx, func(ctx context.Context) (*ASTDiff, error) {
			return work.diff, d.computeScript(ctx, work)
		})

		done()
		d.record(ctx, err, time.Since(pairStart))

		if err != nil {
			project.discard(work.diff.Key(), work.move)
			report.fail(work.diff.Key(), err)

			return
		}

		report.succeed(work.diff.Key())
		d.cfg.Metrics.RecordActions(ctx, actionCounts(work.diff.EditScript()))
	})

	result := report.result(time.Since(started))

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())

		return result, fmt.Errorf("differ run: %w", err)
	}

	d.logger.InfoContext(ctx, "differ: run finished",
		"succeeded", len(result.Succeeded), "failed", len(result.Failed), "duration", result.Duration)

	return result, nil
}

type scriptWork struct {
	diff *ASTDiff
	move bool
}

// collect adds matched diffs to project in input order. Merged diffs are
// folded into their target, which is scripted once.
func (d *Differ) collect(
	ctx context.Context, project *ProjectASTDiff, pairs []FilePair, matched []*ASTDiff, report *runState,
) []scriptWork {
	var work []scriptWork

	for idx, diff := range matched {
		if diff == nil {
			continue
		}

		if pairs[idx].Move {
			if project.AddMoveDiff(diff) {
				work = append(work, scriptWork{diff: diff, move: true})
			}

			continue
		}

		merged, err := project.AddOrMerge(diff)
		if err != nil {
			report.fail(diff.Key(), err)
			d.record(ctx, err, 0)

			continue
		}

		if merged {
			d.logger.DebugContext(ctx, "differ: mappings merged", "pair", diff.Key().String())

			continue
		}

		work = append(work, scriptWork{diff: diff})
	}

	return work
}

func (d *Differ) match(ctx context.Context, pair FilePair) (*ASTDiff, error) {
	ctx, span := d.tracer.Start(ctx, "astdiff.match",
		trace.WithAttributes(attribute.String("astdiff.src", pair.SrcPath), attribute.String("astdiff.dst", pair.DstPath)))
	defer span.End()

	if pair.Src == nil || pair.Dst == nil {
		return nil, fmt.Errorf("match %s: missing tree: %w", pair.Key(), ErrStructuralInconsistency)
	}

	store, err := d.runMatch(ctx, pair.Src, pair.Dst)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("match %s: %w", pair.Key(), err)
	}

	if len(d.cfg.OpaqueKinds) > 0 {
		if err := d.refineOpaque(ctx, store, pair); err != nil {
			span.SetStatus(codes.Error, err.Error())

			return nil, fmt.Errorf("match %s: %w", pair.Key(), err)
		}
	}

	return New(pair.SrcPath, pair.DstPath, store), nil
}

func (d *Differ) runMatch(ctx context.Context, src, dst *tree.Context) (*mapping.MultiStore, error) {
	store, err := d.cfg.Match(ctx, src, dst)
	if err != nil {
		return nil, err
	}

	if store == nil || store.SrcContext() != src || store.DstContext() != dst {
		return nil, fmt.Errorf("store is over other trees: %w", ErrStructuralInconsistency)
	}

	return store, nil
}

// refineOpaque matches the pruned copies of the pair and folds the result
// into store, the mapping of the full trees.
func (d *Differ) refineOpaque(ctx context.Context, store *mapping.MultiStore, pair FilePair) error {
	prunedSrc, srcBack := tree.DeepCopyPruned(pair.Src, d.cfg.OpaqueKinds)
	prunedDst, dstBack := tree.DeepCopyPruned(pair.Dst, d.cfg.OpaqueKinds)

	pruned, err := d.runMatch(ctx, prunedSrc, prunedDst)
	if err != nil {
		return fmt.Errorf("pruned trees: %w", err)
	}

	return store.MergeTranslated(pruned, srcBack, dstBack)
}

func (d *Differ) computeScript(ctx context.Context, work scriptWork) error {
	_, span := d.tracer.Start(ctx, "astdiff.edit_script",
		trace.WithAttributes(attribute.String("astdiff.pair", work.diff.Key().String()), attribute.Bool("astdiff.move", work.move)))
	defer span.End()

	var err error
	if work.move {
		err = work.diff.ComputeMoveEditScript(d.cfg.Generator, d.cfg.Comparator)
	} else {
		err = work.diff.ComputeEditScript(d.cfg.Generator, d.cfg.Comparator)
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	span.SetAttributes(attribute.Int("astdiff.actions", work.diff.EditScript().Len()))
	d.logger.DebugContext(ctx, "differ: edit script computed",
		"pair", work.diff.Key().String(), "actions", work.diff.EditScript().Len())

	return nil
}

// forEach runs fn for 0..count-1 on the worker pool. It stops scheduling
// once ctx ends.
func (d *Differ) forEach(ctx context.Context, count int, fn func(ctx context.Context, idx int)) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.cfg.Workers)

	for idx := range count {
		if groupCtx.Err() != nil {
			break
		}

		group.Go(func() error {
			fn(groupCtx, idx)

			return nil
		})
	}

	_ = group.Wait() //nolint:errcheck // Workers never return errors.
}

// withTimeout runs fn under the pair deadline. The computation itself is not
// interruptible: on timeout its result is abandoned and discarded.
func (d *Differ) withTimeout(
	ctx context.Context, fn func(ctx context.Context) (*ASTDiff, error),
) (*ASTDiff, error) {
	if d.cfg.PairTimeout <= 0 {
		return fn(ctx)
	}

	pairCtx, cancel := context.WithTimeout(ctx, d.cfg.PairTimeout)
	defer cancel()

	type outcome struct {
		diff *ASTDiff
		err  error
	}

	done := make(chan outcome, 1)

	go func() {
		diff, err := fn(pairCtx)
		done <- outcome{diff: diff, err: err}
	}()

	select {
	case out := <-done:
		return out.diff, out.err
	case <-pairCtx.Done():
		if errors.Is(pairCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrPairTimeout, d.cfg.PairTimeout)
		}

		return nil, pairCtx.Err()
	}
}

func (d *Differ) record(ctx context.Context, err error, duration time.Duration) {
	status := observability.StatusOK

	switch {
	case errors.Is(err, ErrPairTimeout):
		status = observability.StatusTimeout
	case err != nil:
		status = observability.StatusError
	}

	if err != nil {
		d.logger.WarnContext(ctx, "differ: pair discarded", "error", err)
	}

	d.cfg.Metrics.RecordDiff(ctx, status, duration)
}

func actionCounts(script editscript.Script) map[string]int {
	counts := make(map[string]int, 4)

	for _, kind := range []editscript.ActionKind{
		editscript.ActionInsert, editscript.ActionDelete, editscript.ActionUpdate, editscript.ActionMove,
	} {
		counts[kind.String()] = script.Count(kind)
	}

	return counts
}

type runState struct {
	mu        sync.Mutex
	succeeded []DiffKey
	failed    []PairFailure
}

func (s *runState) succeed(key DiffKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.succeeded = append(s.succeeded, key)
}

func (s *runState) fail(key DiffKey, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failed = append(s.failed, PairFailure{Key: key, Err: err})
}

func (s *runState) result(duration time.Duration) RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	succeeded := append([]DiffKey(nil), s.succeeded...)
	failed := append([]PairFailure(nil), s.failed...)

	slices.SortFunc(succeeded, DiffKey.Compare)
	slices.SortFunc(failed, func(a, b PairFailure) int { return a.Key.Compare(b.Key) })

	return RunReport{Succeeded: succeeded, Failed: failed, Duration: duration}
}
