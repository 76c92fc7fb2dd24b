// Package astdiff aggregates per-file structural diffs: the node mapping of
// a file pair, the edit script generated from it and the root-level
// classification of the changes, plus the project-wide set of such diffs.
package astdiff

import (
	"cmp"
	"fmt"
	"sync"

	"github.com/Sumatoshi-tech/astdiff/pkg/classify"
	"github.com/Sumatoshi-tech/astdiff/pkg/editscript"
	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// DiffKey identifies a diff by its file pair.
type DiffKey struct {
	SrcPath string
	DstPath string
}

// Compare orders keys by source path, then destination path.
func (k DiffKey) Compare(other DiffKey) int {
	if c := cmp.Compare(k.SrcPath, other.SrcPath); c != 0 {
		return c
	}

	return cmp.Compare(k.DstPath, other.DstPath)
}

func (k DiffKey) String() string {
	if k.SrcPath == k.DstPath {
		return k.SrcPath
	}

	return k.SrcPath + " -> " + k.DstPath
}

// ScriptGenerator turns a mapping into an edit script.
// *editscript.Generator and *editscript.ExtendedGenerator implement it.
type ScriptGenerator interface {
	Generate(m mapping.Mapping) (editscript.Script, error)
}

// ASTDiff is the structural diff of one file pair. Mappings may be refined
// until Finalize; afterwards the diff is read-only.
type ASTDiff struct {
	mu sync.RWMutex

	key   DiffKey
	multi *mapping.MultiStore

	mono       *mapping.Mono
	script     editscript.Script
	classifier *classify.Classifier
}

// New creates an unfinalized diff over the trees of multi. A nil multi is
// not allowed; use mapping.NewMultiStore for an empty one.
func New(srcPath, dstPath string, multi *mapping.MultiStore) *ASTDiff {
	return &ASTDiff{
		key:   DiffKey{SrcPath: srcPath, DstPath: dstPath},
		multi: multi,
	}
}

// Key returns the identity of the diff.
func (d *ASTDiff) Key() DiffKey { return d.key }

// SrcPath returns the path of the before file.
func (d *ASTDiff) SrcPath() string { return d.key.SrcPath }

// DstPath returns the path of the after file.
func (d *ASTDiff) DstPath() string { return d.key.DstPath }

// Src returns the before tree.
func (d *ASTDiff) Src() *tree.Context { return d.multi.SrcContext() }

// Dst returns the after tree.
func (d *ASTDiff) Dst() *tree.Context { return d.multi.DstContext() }

// AllMappings returns the many-to-many mapping. Callers must not mutate it
// after Finalize.
func (d *ASTDiff) AllMappings() *mapping.MultiStore { return d.multi }

// IsFinalized reports whether the edit script is fixed.
func (d *ASTDiff) IsFinalized() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.classifier != nil
}

// Finalize fixes the edit script and the mono mapping it was generated
// from, and classifies the changes.
func (d *ASTDiff) Finalize(mono *mapping.Mono, script editscript.Script) error {
	if mono == nil {
		return ErrNilMapping
	}

	if mono.SrcContext() != d.multi.SrcContext() || mono.DstContext() != d.multi.DstContext() {
		return fmt.Errorf("finalize %s: mono is over other trees: %w", d.key, ErrStructuralInconsistency)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.classifier != nil {
		return fmt.Errorf("finalize %s: %w", d.key, ErrAlreadyFinalized)
	}

	d.mono = mono
	d.script = script
	d.classifier = classify.NewClassifier(mono, script)

	return nil
}

// ComputeEditScript reduces the mappings with comparator, generates the
// script with gen and finalizes. Nil gen and comparator select the defaults.
func (d *ASTDiff) ComputeEditScript(gen ScriptGenerator, comparator mapping.Comparator) error {
	if d.IsFinalized() {
		return fmt.Errorf("compute edit script %s: %w", d.key, ErrAlreadyFinalized)
	}

	if gen == nil {
		gen = editscript.NewGenerator()
	}

	mono := d.multi.ToMono(comparator)

	script, err := gen.Generate(mono)
	if err != nil {
		return fmt.Errorf("compute edit script %s: %w", d.key, err)
	}

	return d.Finalize(mono, script)
}

// ComputeMoveEditScript is ComputeEditScript for a moved declaration: the
// roots are mapped while the script is generated, so the script describes
// the body relative to a shared root. The temporary edge is dropped again
// unless it was already present.
func (d *ASTDiff) ComputeMoveEditScript(gen ScriptGenerator, comparator mapping.Comparator) error {
	srcRoot := d.multi.SrcContext().Root()
	dstRoot := d.multi.DstContext().Root()

	if srcRoot == tree.NoNode || dstRoot == tree.NoNode || d.multi.Has(srcRoot, dstRoot) {
		return d.ComputeEditScript(gen, comparator)
	}

	if err := d.multi.Add(srcRoot, dstRoot); err != nil {
		return fmt.Errorf("compute move edit script %s: %w", d.key, err)
	}

	defer d.multi.Remove(srcRoot, dstRoot)

	return d.ComputeEditScript(gen, comparator)
}

// Mono returns the 1:1 mapping the script was generated from, or nil.
func (d *ASTDiff) Mono() *mapping.Mono {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.mono
}

// EditScript returns the finalized script, or nil.
func (d *ASTDiff) EditScript() editscript.Script {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.script
}

// RootNodesClassifier returns the memoized classifier, or nil before
// Finalize.
func (d *ASTDiff) RootNodesClassifier() *classify.Classifier {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.classifier
}

// Classification returns the root-level classification; empty before
// Finalize.
func (d *ASTDiff) Classification() classify.Result {
	classifier := d.RootNodesClassifier()
	if classifier == nil {
		return classify.Result{}
	}

	return classifier.Result()
}

// DeletedSrcRoots returns the roots of deleted source subtrees.
func (d *ASTDiff) DeletedSrcRoots() []tree.NodeID {
	return d.Classification().DeletedSrcRoots
}

// InsertedDstRoots returns the roots of inserted destination subtrees.
func (d *ASTDiff) InsertedDstRoots() []tree.NodeID {
	return d.Classification().InsertedDstRoots
}

// UpdatedPairRoots returns the topmost updated pairs.
func (d *ASTDiff) UpdatedPairRoots() []mapping.Pair {
	return d.Classification().UpdatedPairRoots
}

// MovedPairRoots returns the topmost moved pairs.
func (d *ASTDiff) MovedPairRoots() []mapping.Pair {
	return d.Classification().MovedPairRoots
}
