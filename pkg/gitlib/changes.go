package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/astdiff/pkg/safeconv"
)

// ChangeAction represents the type of change in a diff.
type ChangeAction int

const (
	// Insert indicates a new file was added.
	Insert ChangeAction = iota
	// Delete indicates a file was removed.
	Delete
	// Modify indicates a file was modified in place.
	Modify
	// Rename indicates a file was moved, possibly with edits.
	Rename
)

// String returns the lowercase action name.
func (a ChangeAction) String() string {
	switch a {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Modify:
		return "modify"
	case Rename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeEntry represents one side of a change (old or new file).
type ChangeEntry struct {
	Name string
	Hash Hash
	Size int64
}

// Change represents a single file change between two commits.
type Change struct {
	Action ChangeAction
	From   ChangeEntry
	To     ChangeEntry
}

// Changes lists the file changes from oldCommit to newCommit. With
// detectRenames, libgit2 similarity detection pairs deleted and added files
// into Rename changes.
func (r *Repository) Changes(oldCommit, newCommit Hash, detectRenames bool) ([]Change, error) {
	oldTree, err := r.treeOf(oldCommit)
	if err != nil {
		return nil, err
	}
	defer oldTree.Free()

	newTree, err := r.treeOf(newCommit)
	if err != nil {
		return nil, err
	}
	defer newTree.Free()

	if oldTree.Id().Equal(newTree.Id()) {
		return nil, nil
	}

	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	diff, err := r.repo.DiffTreeToTree(oldTree, newTree, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	defer func() { _ = diff.Free() }() //nolint:errcheck // Free() errors are non-actionable in cleanup.

	if detectRenames {
		findOpts, findErr := git2go.DefaultDiffFindOptions()
		if findErr != nil {
			return nil, fmt.Errorf("get find options: %w", findErr)
		}

		findOpts.Flags = git2go.DiffFindRenames

		if findErr = diff.FindSimilar(&findOpts); findErr != nil {
			return nil, fmt.Errorf("find renames: %w", findErr)
		}
	}

	numDeltas, err := diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("get num deltas: %w", err)
	}

	changes := make([]Change, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := diff.Delta(i)
		if deltaErr != nil {
			return nil, fmt.Errorf("get delta %d: %w", i, deltaErr)
		}

		from := entryOf(delta.OldFile)
		to := entryOf(delta.NewFile)

		switch delta.Status {
		case git2go.DeltaAdded:
			changes = append(changes, Change{Action: Insert, To: to})
		case git2go.DeltaDeleted:
			changes = append(changes, Change{Action: Delete, From: from})
		case git2go.DeltaModified:
			changes = append(changes, Change{Action: Modify, From: from, To: to})
		case git2go.DeltaRenamed, git2go.DeltaCopied:
			changes = append(changes, Change{Action: Rename, From: from, To: to})
		case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
			git2go.DeltaTypeChange, git2go.DeltaUnreadable, git2go.DeltaConflicted:
			continue
		}
	}

	return changes, nil
}

func entryOf(file git2go.DiffFile) ChangeEntry {
	return ChangeEntry{
		Name: file.Path,
		Hash: HashFromOid(file.Oid),
		Size: safeconv.MustUint64ToInt64(file.Size),
	}
}

// Contents loads both sides of a change. The missing side of an Insert or
// Delete is nil.
func (r *Repository) Contents(change Change) (before, after []byte, err error) {
	if change.Action != Insert {
		before, err = r.BlobContents(change.From.Hash)
		if err != nil {
			return nil, nil, err
		}
	}

	if change.Action != Delete {
		after, err = r.BlobContents(change.To.Hash)
		if err != nil {
			return nil, nil, err
		}
	}

	return before, after, nil
}
