package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/astdiff/pkg/astdiff"
)

// projectArgCount is the number of arguments expected by the project command.
const projectArgCount = 2

func newProjectCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "project <beforeDir> <afterDir>",
		Short: "Compare two directory trees file by file",
		Long: `Walk two directory trees, pair files by relative path and diff every pair
in parallel. Files present on one side only are listed in the log and
skipped; vendored files are skipped unless diff.skip_vendor is false.

Examples:
  astdiff project ./v1 ./v2
  astdiff project -f yaml --config ci.yaml ./before ./after`,
		Args: cobra.ExactArgs(projectArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProject(cmd, flags, args[0], args[1])
		},
	}
}

// sideFiles are the diffable files of one directory, keyed by slash path.
type sideFiles map[string]string

func runProject(cmd *cobra.Command, flags *globalFlags, beforeDir, afterDir string) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := newApp(ctx, flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() { err = errors.Join(err, application.close(context.WithoutCancel(ctx))) }()

	before, err := application.collectFiles(beforeDir)
	if err != nil {
		return err
	}

	after, err := application.collectFiles(afterDir)
	if err != nil {
		return err
	}

	paired := pairedPaths(before, after)

	for _, rel := range unpairedPaths(before, after) {
		application.logger.InfoContext(ctx, "project: unpaired file skipped", "path", rel)
	}

	pairs, contentsBefore, contentsAfter, parseFailures := application.loadPairs(ctx, paired, before, after)

	differ, err := application.differ()
	if err != nil {
		return err
	}

	project := astdiff.NewProjectASTDiff(contentsBefore, contentsAfter)

	run, err := differ.Run(ctx, project, pairs)
	if err != nil {
		return err
	}

	run.Failed = append(run.Failed, parseFailures...)
	slices.SortFunc(run.Failed, func(a, b astdiff.PairFailure) int { return a.Key.Compare(b.Key) })

	return application.finish(cmd.OutOrStdout(), project, &run)
}

// collectFiles walks root and keeps files with a known language or a JSON
// tree document.
func (a *app) collectFiles(root string) (sideFiles, error) {
	files := make(sideFiles)

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return fmt.Errorf("relative path of %s: %w", path, relErr)
		}

		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if rel != "." && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		if !a.diffable(rel) {
			return nil
		}

		files[rel] = path

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	return files, nil
}

func pairedPaths(before, after sideFiles) []string {
	var paths []string

	for rel := range before {
		if _, ok := after[rel]; ok {
			paths = append(paths, rel)
		}
	}

	slices.Sort(paths)

	return paths
}

func unpairedPaths(before, after sideFiles) []string {
	var paths []string

	for rel := range before {
		if _, ok := after[rel]; !ok {
			paths = append(paths, rel)
		}
	}

	for rel := range after {
		if _, ok := before[rel]; !ok {
			paths = append(paths, rel)
		}
	}

	slices.Sort(paths)

	return paths
}

// loadPairs reads and parses every paired file in parallel. Pairs that fail
// to load are returned as failures instead of aborting the run.
func (a *app) loadPairs(
	ctx context.Context, paths []string, before, after sideFiles,
) ([]astdiff.FilePair, map[string]string, map[string]string, []astdiff.PairFailure) {
	pairs := make([]*astdiff.FilePair, len(paths))
	contentsBefore := make(map[string]string, len(paths))
	contentsAfter := make(map[string]string, len(paths))

	var (
		mu       sync.Mutex
		failures []astdiff.PairFailure
	)

	group, groupCtx := errgroup.WithContext(ctx)
	if a.cfg.Diff.Workers > 0 {
		group.SetLimit(a.cfg.Diff.Workers)
	}

	for idx, rel := range paths {
		group.Go(func() error {
			pair, beforeContent, afterContent, err := a.loadPair(groupCtx, rel, before[rel], after[rel])

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				a.logger.WarnContext(groupCtx, "project: pair not loaded", "path", rel, "error", err)
				failures = append(failures, astdiff.PairFailure{Key: pair.Key(), Err: err})

				return nil
			}

			pairs[idx] = &pair
			contentsBefore[rel] = beforeContent
			contentsAfter[rel] = afterContent

			return nil
		})
	}

	_ = group.Wait() //nolint:errcheck // workers never return errors; failures are collected.

	loaded := make([]astdiff.FilePair, 0, len(pairs))

	for _, pair := range pairs {
		if pair != nil {
			loaded = append(loaded, *pair)
		}
	}

	return loaded, contentsBefore, contentsAfter, failures
}

func (a *app) loadPair(
	ctx context.Context, rel, beforePath, afterPath string,
) (pair astdiff.FilePair, beforeContent, afterContent string, err error) {
	pair = astdiff.FilePair{SrcPath: rel, DstPath: rel}

	beforeBytes, err := a.readSource(beforePath)
	if err != nil {
		return pair, "", "", err
	}

	afterBytes, err := a.readSource(afterPath)
	if err != nil {
		return pair, "", "", err
	}

	pair.Src, err = a.loadTree(ctx, rel, beforeBytes)
	if err != nil {
		return pair, "", "", err
	}

	pair.Dst, err = a.loadTree(ctx, rel, afterBytes)
	if err != nil {
		return pair, "", "", err
	}

	return pair, string(beforeBytes), string(afterBytes), nil
}
