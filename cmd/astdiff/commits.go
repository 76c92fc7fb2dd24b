package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/astdiff/pkg/astdiff"
	"github.com/Sumatoshi-tech/astdiff/pkg/gitlib"
	"github.com/Sumatoshi-tech/astdiff/pkg/safeconv"
)

const (
	commitsMinArgs = 2
	commitsMaxArgs = 3
	defaultNewRev  = "HEAD"
)

func newCommitsCommand(flags *globalFlags) *cobra.Command {
	var noRenames bool

	cmd := &cobra.Command{
		Use:   "commits <repo> <oldRev> [newRev]",
		Short: "Compare the files changed between two git revisions",
		Long: `Diff every modified or renamed file between two revisions of a git
repository. newRev defaults to HEAD. Renamed files are paired by libgit2
similarity detection unless --no-renames is given.

Examples:
  astdiff commits . HEAD~1
  astdiff commits -f json ~/src/project v1.2.0 v1.3.0`,
		Args: cobra.RangeArgs(commitsMinArgs, commitsMaxArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			newRev := defaultNewRev
			if len(args) == commitsMaxArgs {
				newRev = args[2]
			}

			return runCommits(cmd, flags, args[0], args[1], newRev, !noRenames)
		},
	}

	cmd.Flags().BoolVar(&noRenames, "no-renames", false, "disable rename detection")

	return cmd
}

func runCommits(cmd *cobra.Command, flags *globalFlags, repoPath, oldRev, newRev string, renames bool) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := newApp(ctx, flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() { err = errors.Join(err, application.close(context.WithoutCancel(ctx))) }()

	repo, err := gitlib.OpenRepository(repoPath)
	if err != nil {
		return err
	}
	defer repo.Free()

	oldCommit, err := repo.ResolveCommit(oldRev)
	if err != nil {
		return err
	}

	newCommit, err := repo.ResolveCommit(newRev)
	if err != nil {
		return err
	}

	changes, err := repo.Changes(oldCommit, newCommit, renames)
	if err != nil {
		return err
	}

	application.logger.InfoContext(ctx, "commits: changes listed",
		"from", oldCommit.Short(), "to", newCommit.Short(), "changes", len(changes))

	pairs, contentsBefore, contentsAfter, failures := application.loadChanges(ctx, repo, changes)

	differ, err := application.differ()
	if err != nil {
		return err
	}

	project := astdiff.NewProjectASTDiff(contentsBefore, contentsAfter)

	run, err := differ.Run(ctx, project, pairs)
	if err != nil {
		return err
	}

	run.Failed = append(run.Failed, failures...)
	slices.SortFunc(run.Failed, func(a, b astdiff.PairFailure) int { return a.Key.Compare(b.Key) })

	return application.finish(cmd.OutOrStdout(), project, &run)
}

// loadChanges parses both sides of every modified or renamed file with a
// known grammar. Added and deleted files have nothing to map and are logged.
func (a *app) loadChanges(
	ctx context.Context, repo *gitlib.Repository, changes []gitlib.Change,
) ([]astdiff.FilePair, map[string]string, map[string]string, []astdiff.PairFailure) {
	var (
		pairs    []astdiff.FilePair
		failures []astdiff.PairFailure
	)

	contentsBefore := make(map[string]string)
	contentsAfter := make(map[string]string)

	for _, change := range changes {
		if change.Action == gitlib.Insert || change.Action == gitlib.Delete {
			a.logger.DebugContext(ctx, "commits: unpaired change skipped",
				"action", change.Action.String(), "path", change.From.Name+change.To.Name)

			continue
		}

		if !a.diffable(change.To.Name) {
			continue
		}

		pair := astdiff.FilePair{SrcPath: change.From.Name, DstPath: change.To.Name}

		before, after, err := a.loadChange(ctx, repo, change, &pair)
		if err != nil {
			a.logger.WarnContext(ctx, "commits: pair not loaded", "path", pair.Key().String(), "error", err)
			failures = append(failures, astdiff.PairFailure{Key: pair.Key(), Err: err})

			continue
		}

		pairs = append(pairs, pair)
		contentsBefore[pair.SrcPath] = before
		contentsAfter[pair.DstPath] = after
	}

	return pairs, contentsBefore, contentsAfter, failures
}

func (a *app) loadChange(
	ctx context.Context, repo *gitlib.Repository, change gitlib.Change, pair *astdiff.FilePair,
) (before, after string, err error) {
	limit := a.maxFileSize
	if limit > 0 && (safeconv.MustInt64ToUint64(change.From.Size) > limit || safeconv.MustInt64ToUint64(change.To.Size) > limit) {
		return "", "", fmt.Errorf("%w: %s", ErrFileTooLarge, pair.Key())
	}

	beforeBytes, afterBytes, err := repo.Contents(change)
	if err != nil {
		return "", "", err
	}

	pair.Src, err = a.loadTree(ctx, change.From.Name, beforeBytes)
	if err != nil {
		return "", "", err
	}

	pair.Dst, err = a.loadTree(ctx, change.To.Name, afterBytes)
	if err != nil {
		return "", "", err
	}

	return string(beforeBytes), string(afterBytes), nil
}
