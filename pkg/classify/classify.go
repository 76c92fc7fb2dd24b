// Package classify reduces an edit script to the minimal sets of changed
// subtree roots: deleted, inserted, updated and moved.
package classify

import (
	"cmp"
	"slices"
	"sync"

	"github.com/Sumatoshi-tech/astdiff/pkg/editscript"
	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// Result holds the four root sets. No member of a set has an ancestor (for
// pair sets: an ancestor pair) in the same set. Sets are sorted by source
// node ID, or destination node ID for inserts.
type Result struct {
	DeletedSrcRoots  []tree.NodeID
	InsertedDstRoots []tree.NodeID
	UpdatedPairRoots []mapping.Pair
	MovedPairRoots   []mapping.Pair
}

// Classify computes the root sets of script against the trees of mono.
// It is a pure function of its inputs.
func Classify(mono *mapping.Mono, script editscript.Script) Result {
	src, dst := mono.SrcContext(), mono.DstContext()

	deleted := make(map[tree.NodeID]bool)
	inserted := make(map[tree.NodeID]bool)
	updated := make(pairSet)
	moved := make(pairSet)

	for _, action := range script {
		switch action.Kind {
		case editscript.ActionDelete:
			deleted[action.Node] = true
		case editscript.ActionInsert:
			inserted[action.Node] = true
		case editscript.ActionUpdate:
			updated.add(mapping.Pair{Src: action.Node, Dst: action.Dst})
		case editscript.ActionMove:
			moved.add(mapping.Pair{Src: action.Node, Dst: action.Dst})
		}
	}

	return Result{
		DeletedSrcRoots:  nodeRoots(src, deleted),
		InsertedDstRoots: nodeRoots(dst, inserted),
		UpdatedPairRoots: updated.roots(src, dst),
		MovedPairRoots:   moved.roots(src, dst),
	}
}

func nodeRoots(treeCtx *tree.Context, members map[tree.NodeID]bool) []tree.NodeID {
	roots := make([]tree.NodeID, 0, len(members))

	for id := range members {
		if !hasMemberAncestor(treeCtx, id, members) {
			roots = append(roots, id)
		}
	}

	slices.Sort(roots)

	return roots
}

func hasMemberAncestor(treeCtx *tree.Context, id tree.NodeID, members map[tree.NodeID]bool) bool {
	for _, ancestor := range treeCtx.Ancestors(id) {
		if members[ancestor] {
			return true
		}
	}

	return false
}

// pairSet indexes pairs by source node for ancestor-pair lookups.
type pairSet map[tree.NodeID][]tree.NodeID

func (s pairSet) add(pair mapping.Pair) {
	if !slices.Contains(s[pair.Src], pair.Dst) {
		s[pair.Src] = append(s[pair.Src], pair.Dst)
	}
}

// roots keeps the pairs that have no ancestor pair in the set: a member
// (as, ad) with as an ancestor of the source and ad an ancestor of the
// destination.
func (s pairSet) roots(src, dst *tree.Context) []mapping.Pair {
	var roots []mapping.Pair

	for srcNode, dstNodes := range s {
		for _, dstNode := range dstNodes {
			if !s.hasAncestorPair(src, dst, srcNode, dstNode) {
				roots = append(roots, mapping.Pair{Src: srcNode, Dst: dstNode})
			}
		}
	}

	slices.SortFunc(roots, func(left, right mapping.Pair) int {
		if left.Src != right.Src {
			return cmp.Compare(left.Src, right.Src)
		}

		return cmp.Compare(left.Dst, right.Dst)
	})

	return roots
}

func (s pairSet) hasAncestorPair(src, dst *tree.Context, srcNode, dstNode tree.NodeID) bool {
	for _, srcAncestor := range src.Ancestors(srcNode) {
		for _, dstCandidate := range s[srcAncestor] {
			if dst.IsAncestor(dstCandidate, dstNode) {
				return true
			}
		}
	}

	return false
}

// Classifier computes a Result once and serves the cached value afterwards.
type Classifier struct {
	mono   *mapping.Mono
	result Result
	script editscript.Script
	once   sync.Once
}

// NewClassifier binds a classifier to a fixed mapping and script.
func NewClassifier(mono *mapping.Mono, script editscript.Script) *Classifier {
	return &Classifier{mono: mono, script: script}
}

// Result returns the memoized classification.
func (c *Classifier) Result() Result {
	c.once.Do(func() {
		c.result = Classify(c.mono, c.script)
	})

	return c.result
}

// DeletedSrcRoots returns the roots of deleted source subtrees.
func (c *Classifier) DeletedSrcRoots() []tree.NodeID {
	return c.Result().DeletedSrcRoots
}

// InsertedDstRoots returns the roots of inserted destination subtrees.
func (c *Classifier) InsertedDstRoots() []tree.NodeID {
	return c.Result().InsertedDstRoots
}

// UpdatedPairRoots returns the topmost updated pairs.
func (c *Classifier) UpdatedPairRoots() []mapping.Pair {
	return c.Result().UpdatedPairRoots
}

// MovedPairRoots returns the topmost moved pairs.
func (c *Classifier) MovedPairRoots() []mapping.Pair {
	return c.Result().MovedPairRoots
}
