package astdiff

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ProjectASTDiff is the set of file diffs of one project comparison, plus
// the diffs of declarations that moved between files. It is safe for
// concurrent use.
type ProjectASTDiff struct {
	mu sync.RWMutex

	diffs     map[DiffKey]*ASTDiff
	diffOrder []DiffKey
	moveDiffs map[DiffKey]*ASTDiff

	contentsBefore map[string]string
	contentsAfter  map[string]string

	refactorings any
	modelDiff    any
}

// NewProjectASTDiff creates an empty project diff over the given file
// contents, keyed by path. The maps are not copied.
func NewProjectASTDiff(contentsBefore, contentsAfter map[string]string) *ProjectASTDiff {
	return &ProjectASTDiff{
		diffs:          make(map[DiffKey]*ASTDiff),
		moveDiffs:      make(map[DiffKey]*ASTDiff),
		contentsBefore: contentsBefore,
		contentsAfter:  contentsAfter,
	}
}

// AddDiff adds diff. It returns false, leaving the set unchanged, when a
// diff with the same key is already present.
func (p *ProjectASTDiff) AddDiff(diff *ASTDiff) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.addDiffLocked(diff)
}

func (p *ProjectASTDiff) addDiffLocked(diff *ASTDiff) bool {
	if _, ok := p.diffs[diff.Key()]; ok {
		return false
	}

	p.diffs[diff.Key()] = diff
	p.diffOrder = append(p.diffOrder, diff.Key())

	return true
}

// AddMoveDiff adds a moved-declaration diff; duplicates are ignored.
func (p *ProjectASTDiff) AddMoveDiff(diff *ASTDiff) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.moveDiffs[diff.Key()]; ok {
		return false
	}

	p.moveDiffs[diff.Key()] = diff

	return true
}

// FindAppend returns the first diff, in insertion order, that shares the
// source path or, failing that, the destination path.
func (p *ProjectASTDiff) FindAppend(srcPath, dstPath string) (*ASTDiff, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.findAppendLocked(srcPath, dstPath)
}

func (p *ProjectASTDiff) findAppendLocked(srcPath, dstPath string) (*ASTDiff, bool) {
	for _, key := range p.diffOrder {
		if key.SrcPath == srcPath || key.DstPath == dstPath {
			return p.diffs[key], true
		}
	}

	return nil, false
}

// AddOrMerge adds diff, or merges its mappings into the diff FindAppend
// returns for its paths. merged reports which happened. Merging requires
// both diffs to be over the same *tree.Context pointers, not equal trees,
// and the target to be unfinalized.
func (p *ProjectASTDiff) AddOrMerge(diff *ASTDiff) (merged bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	target, ok := p.findAppendLocked(diff.SrcPath(), diff.DstPath())
	if !ok {
		p.addDiffLocked(diff)

		return false, nil
	}

	if target == diff {
		return true, nil
	}

	if target.IsFinalized() {
		return false, fmt.Errorf("merge into %s: %w", target.Key(), ErrAlreadyFinalized)
	}

	if err := target.AllMappings().Merge(diff.AllMappings()); err != nil {
		return false, fmt.Errorf("merge into %s: %w", target.Key(), err)
	}

	return true, nil
}

// Diffs returns the file diffs sorted by key.
func (p *ProjectASTDiff) Diffs() []*ASTDiff {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return sortedDiffs(p.diffs)
}

// MoveDiffs returns the moved-declaration diffs sorted by key.
func (p *ProjectASTDiff) MoveDiffs() []*ASTDiff {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return sortedDiffs(p.moveDiffs)
}

func sortedDiffs(set map[DiffKey]*ASTDiff) []*ASTDiff {
	keys := slices.SortedFunc(maps.Keys(set), DiffKey.Compare)

	out := make([]*ASTDiff, 0, len(keys))
	for _, key := range keys {
		out = append(out, set[key])
	}

	return out
}

// Diff looks up a file diff by key.
func (p *ProjectASTDiff) Diff(key DiffKey) (*ASTDiff, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	diff, ok := p.diffs[key]

	return diff, ok
}

// FileContentsBefore returns the before contents keyed by path.
func (p *ProjectASTDiff) FileContentsBefore() map[string]string {
	return p.contentsBefore
}

// FileContentsAfter returns the after contents keyed by path.
func (p *ProjectASTDiff) FileContentsAfter() map[string]string {
	return p.contentsAfter
}

// SetRefactorings stores the consumer's refactoring list. The value is opaque.
func (p *ProjectASTDiff) SetRefactorings(refactorings any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refactorings = refactorings
}

// Refactorings returns what SetRefactorings stored.
func (p *ProjectASTDiff) Refactorings() any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.refactorings
}

// SetModelDiff stores the consumer's model diff. The value is opaque.
func (p *ProjectASTDiff) SetModelDiff(modelDiff any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.modelDiff = modelDiff
}

// ModelDiff returns what SetModelDiff stored.
func (p *ProjectASTDiff) ModelDiff() any {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.modelDiff
}

func (p *ProjectASTDiff) discard(key DiffKey, move bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if move {
		delete(p.moveDiffs, key)

		return
	}

	delete(p.diffs, key)
	p.diffOrder = slices.DeleteFunc(p.diffOrder, func(other DiffKey) bool { return other == key })
}
