package editscript

import (
	"fmt"

	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// virtualDst stands for the parent of the destination root. It is paired
// with a synthetic node above the working copy of the source root so that
// root replacement needs no special casing.
const virtualDst tree.NodeID = -2

// Generator computes edit scripts with a simplified Chawathe algorithm.
// The zero value is ready to use and a Generator is safe for concurrent use.
type Generator struct{}

// NewGenerator returns a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate computes the script that turns the source tree of m into its
// destination tree. m must be a *mapping.Mono.
//
// Whole unmapped source subtrees are deleted first, one Delete per subtree
// root. Destination nodes are then visited breadth first: unmapped nodes are
// inserted (one Insert per fully new subtree), mapped nodes are updated when
// their labels differ and moved when their parent changed, and each parent's
// mapped children are aligned by LCS with a Move for every child out of
// order. Remaining unmapped source nodes are deleted bottom-up at the end.
func (g *Generator) Generate(m mapping.Mapping) (Script, error) {
	mono, ok := m.(*mapping.Mono)
	if !ok {
		return nil, fmt.Errorf("generate edit script from %T: %w", m, ErrAmbiguousMapping)
	}

	state, err := newGeneration(mono)
	if err != nil {
		return nil, err
	}

	state.deleteUnmappedSubtrees()

	if err := state.walkDestination(); err != nil {
		return nil, err
	}

	if err := state.deleteRemaining(); err != nil {
		return nil, err
	}

	return state.script, nil
}

type generation struct {
	src         *tree.Context
	dst         *tree.Context
	work        *tree.Context
	workToDst   map[tree.NodeID]tree.NodeID
	dstToWork   map[tree.NodeID]tree.NodeID
	dstInOrder  map[tree.NodeID]bool
	deleted     map[tree.NodeID]bool
	skipped     map[tree.NodeID]bool
	script      Script
	srcLen      int
	virtualWork tree.NodeID
}

func newGeneration(mono *mapping.Mono) (*generation, error) {
	src, dst := mono.SrcContext(), mono.DstContext()
	work, virtualWork := workingCopy(src)

	state := &generation{
		src:         src,
		dst:         dst,
		work:        work,
		workToDst:   map[tree.NodeID]tree.NodeID{virtualWork: virtualDst},
		dstToWork:   map[tree.NodeID]tree.NodeID{virtualDst: virtualWork},
		dstInOrder:  make(map[tree.NodeID]bool),
		deleted:     make(map[tree.NodeID]bool),
		skipped:     make(map[tree.NodeID]bool),
		srcLen:      src.Len(),
		virtualWork: virtualWork,
	}

	for _, pair := range mono.Pairs() {
		if !src.Attached(pair.Src) || !dst.Attached(pair.Dst) {
			return nil, fmt.Errorf("mapping %d -> %d outside the trees: %w", pair.Src, pair.Dst, ErrStructuralInconsistency)
		}

		state.workToDst[pair.Src] = pair.Dst
		state.dstToWork[pair.Dst] = pair.Src
	}

	return state, nil
}

// workingCopy clones src and hangs its root below a synthetic node.
func workingCopy(src *tree.Context) (work *tree.Context, virtualRoot tree.NodeID) {
	work = src.Clone()
	virtualRoot = work.AddNode(tree.KindSynthetic, "", 0, 0)

	if root := work.Root(); root != tree.NoNode {
		_ = work.InsertChild(virtualRoot, root, 0) //nolint:errcheck // Both IDs come from the arena.
	}

	_ = work.SetRoot(virtualRoot) //nolint:errcheck // Freshly added node.

	return work, virtualRoot
}

func (g *generation) isOriginal(id tree.NodeID) bool {
	return id >= 0 && int(id) < g.srcLen
}

func (g *generation) dstParent(id tree.NodeID) tree.NodeID {
	if id == g.dst.Root() {
		return virtualDst
	}

	return g.dst.Parent(id)
}

func (g *generation) dstChildren(id tree.NodeID) []tree.NodeID {
	if id == virtualDst {
		if g.dst.Root() == tree.NoNode {
			return nil
		}

		return []tree.NodeID{g.dst.Root()}
	}

	return g.dst.Children(id)
}

// actionParent converts the virtual destination root back to NoNode.
func actionParent(id tree.NodeID) tree.NodeID {
	if id == virtualDst {
		return tree.NoNode
	}

	return id
}

// unmappedSubtrees marks every node of treeCtx whose whole subtree is unmapped.
func unmappedSubtrees(treeCtx *tree.Context, mapped func(tree.NodeID) bool) map[tree.NodeID]bool {
	unmapped := make(map[tree.NodeID]bool)

	for id := range treeCtx.PostOrder() {
		if mapped(id) {
			continue
		}

		whole := true

		for _, child := range treeCtx.Children(id) {
			if !unmapped[child] {
				whole = false

				break
			}
		}

		if whole {
			unmapped[id] = true
		}
	}

	return unmapped
}

// deleteUnmappedSubtrees removes every maximal unmapped source subtree.
func (g *generation) deleteUnmappedSubtrees() {
	unmapped := unmappedSubtrees(g.src, func(id tree.NodeID) bool {
		_, ok := g.workToDst[id]

		return ok
	})

	for id := range g.src.PostOrder() {
		if !unmapped[id] {
			continue
		}

		parent := g.src.Parent(id)
		if parent != tree.NoNode && unmapped[parent] {
			continue
		}

		g.script = append(g.script, Delete(id))

		for gone := range g.work.PreOrderFrom(id) {
			g.deleted[gone] = true
		}

		g.work.Detach(id)
	}
}

func (g *generation) walkDestination() error {
	g.dstInOrder[virtualDst] = true
	g.alignChildren(g.virtualWork, virtualDst)

	if g.dst.Root() == tree.NoNode {
		return nil
	}

	newSubtrees := unmappedSubtrees(g.dst, func(id tree.NodeID) bool {
		_, ok := g.dstToWork[id]

		return ok
	})

	for dstNode := range g.dst.BreadthFirst(g.dst.Root()) {
		if g.skipped[dstNode] {
			continue
		}

		if err := g.visit(dstNode, newSubtrees[dstNode]); err != nil {
			return err
		}
	}

	return nil
}

func (g *generation) visit(dstNode tree.NodeID, wholeSubtree bool) error {
	dstParent := g.dstParent(dstNode)

	target, ok := g.dstToWork[dstParent]
	if !ok || g.deleted[target] {
		return fmt.Errorf("place %s under %s: %w",
			g.dst.Describe(dstNode), g.dst.Describe(dstParent), ErrStructuralInconsistency)
	}

	workNode, mapped := g.dstToWork[dstNode]

	switch {
	case !mapped:
		pos := g.findPos(dstNode)
		workNode = g.insert(dstNode, wholeSubtree)
		_ = g.work.InsertChild(target, workNode, pos) //nolint:errcheck // Arena IDs.
		g.script = append(g.script, Insert(dstNode, actionParent(dstParent), pos))
	default:
		if g.work.Label(workNode) != g.dst.Label(dstNode) {
			g.script = append(g.script, Update(workNode, dstNode, g.dst.Label(dstNode)))
			g.work.SetLabel(workNode, g.dst.Label(dstNode))
		}

		if g.work.Parent(workNode) != target {
			g.work.Detach(workNode)
			pos := g.findPos(dstNode)
			_ = g.work.InsertChild(target, workNode, pos) //nolint:errcheck // Arena IDs.
			g.script = append(g.script, Move(workNode, dstNode, actionParent(dstParent), pos))
		}
	}

	g.dstInOrder[dstNode] = true
	g.alignChildren(workNode, dstNode)

	return nil
}

// insert creates the working counterpart of dstNode. When the whole
// destination subtree is new it is copied at once and its descendants are
// excluded from the walk.
func (g *generation) insert(dstNode tree.NodeID, wholeSubtree bool) tree.NodeID {
	if !wholeSubtree {
		return g.pairNew(dstNode)
	}

	created := make(map[tree.NodeID]tree.NodeID)

	for dstDesc := range g.dst.PreOrderFrom(dstNode) {
		workDesc := g.pairNew(dstDesc)
		created[dstDesc] = workDesc

		if dstDesc == dstNode {
			continue
		}

		_ = g.work.AddChild(created[g.dst.Parent(dstDesc)], workDesc) //nolint:errcheck // Arena IDs.
		g.skipped[dstDesc] = true
		g.dstInOrder[dstDesc] = true
	}

	return created[dstNode]
}

func (g *generation) pairNew(dstNode tree.NodeID) tree.NodeID {
	workNode := g.work.CopyNode(g.dst, dstNode)
	g.workToDst[workNode] = dstNode
	g.dstToWork[dstNode] = workNode

	return workNode
}

// findPos returns the index, among the current working children of the
// target parent, right after the partner of the nearest in-order left
// sibling of dstNode.
func (g *generation) findPos(dstNode tree.NodeID) int {
	siblings := g.dstChildren(g.dstParent(dstNode))

	for _, sibling := range siblings {
		if g.dstInOrder[sibling] {
			if sibling == dstNode {
				return 0
			}

			break
		}
	}

	anchor := tree.NoNode

	for _, sibling := range siblings {
		if sibling == dstNode {
			break
		}

		if g.dstInOrder[sibling] {
			anchor = sibling
		}
	}

	if anchor == tree.NoNode {
		return 0
	}

	return g.work.ChildIndex(g.dstToWork[anchor]) + 1
}

// alignChildren reorders the mapped children of workNode that already sit
// under it so that they follow the order of their partners under dstNode.
func (g *generation) alignChildren(workNode, dstNode tree.NodeID) {
	workChildren := g.work.Children(workNode)
	dstChildren := g.dstChildren(dstNode)

	for _, child := range dstChildren {
		g.dstInOrder[child] = false
	}

	var srcSide, dstSide []tree.NodeID

	for _, child := range workChildren {
		if partner, ok := g.workToDst[child]; ok && g.dstParent(partner) == dstNode {
			srcSide = append(srcSide, child)
		}
	}

	for _, child := range dstChildren {
		if partner, ok := g.dstToWork[child]; ok && g.work.Parent(partner) == workNode {
			dstSide = append(dstSide, child)
		}
	}

	common := longestCommonSubsequence(srcSide, dstSide, func(workChild, dstChild tree.NodeID) bool {
		return g.workToDst[workChild] == dstChild
	})

	aligned := make(map[tree.NodeID]bool, len(common))

	for _, pair := range common {
		aligned[pair.Src] = true
		g.dstInOrder[pair.Dst] = true
	}

	for _, dstChild := range dstSide {
		workChild := g.dstToWork[dstChild]
		if aligned[workChild] {
			continue
		}

		g.work.Detach(workChild)
		pos := g.findPos(dstChild)
		_ = g.work.InsertChild(workNode, workChild, pos) //nolint:errcheck // Arena IDs.
		g.script = append(g.script, Move(workChild, dstChild, actionParent(dstNode), pos))
		g.dstInOrder[dstChild] = true
	}
}

// deleteRemaining removes the source nodes that are still unmapped once every
// mapped node has reached its destination parent.
func (g *generation) deleteRemaining() error {
	unmapped := unmappedSubtrees(g.work, func(id tree.NodeID) bool {
		_, ok := g.workToDst[id]

		return ok || !g.isOriginal(id)
	})

	var leftovers []tree.NodeID

	for id := range g.work.PostOrder() {
		if _, ok := g.workToDst[id]; ok || !g.isOriginal(id) {
			continue
		}

		if !unmapped[id] {
			return fmt.Errorf("delete %s with mapped descendants: %w",
				g.src.Describe(id), ErrStructuralInconsistency)
		}

		parent := g.work.Parent(id)
		if parent != tree.NoNode && unmapped[parent] {
			continue
		}

		leftovers = append(leftovers, id)
	}

	for _, id := range leftovers {
		g.script = append(g.script, Delete(id))
		g.work.Detach(id)
	}

	return nil
}
