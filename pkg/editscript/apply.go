package editscript

import (
	"fmt"

	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// Apply replays script on a copy of the source tree of mono and returns the
// resulting tree. For a script produced by Generator.Generate(mono) the
// result is isomorphic to the destination tree. The source tree is not
// modified.
func Apply(mono *mapping.Mono, script Script) (*tree.Context, error) {
	src, dst := mono.SrcContext(), mono.DstContext()
	work, virtualRoot := workingCopy(src)

	replay := &replayer{
		mono:        mono,
		src:         src,
		dst:         dst,
		work:        work,
		virtualRoot: virtualRoot,
		inserted:    make(map[tree.NodeID]tree.NodeID),
		newSubtrees: unmappedSubtrees(dst, mono.IsDstMapped),
	}

	for idx, action := range script {
		if err := replay.apply(action); err != nil {
			return nil, fmt.Errorf("replay action %d (%s): %w", idx, action.Kind, err)
		}
	}

	return replay.result()
}

type replayer struct {
	mono        *mapping.Mono
	src         *tree.Context
	dst         *tree.Context
	work        *tree.Context
	inserted    map[tree.NodeID]tree.NodeID
	newSubtrees map[tree.NodeID]bool
	virtualRoot tree.NodeID
}

func (r *replayer) apply(action Action) error {
	switch action.Kind {
	case ActionInsert:
		if !r.dst.Valid(action.Node) {
			return ErrStructuralInconsistency
		}

		parent, err := r.resolve(action.Parent)
		if err != nil {
			return err
		}

		return r.work.InsertChild(parent, r.materialize(action.Node), action.Pos)
	case ActionDelete:
		if !r.src.Valid(action.Node) {
			return ErrStructuralInconsistency
		}

		r.work.Detach(action.Node)
	case ActionUpdate:
		if !r.src.Valid(action.Node) {
			return ErrStructuralInconsistency
		}

		r.work.SetLabel(action.Node, action.Label)
	case ActionMove:
		if !r.src.Valid(action.Node) {
			return ErrStructuralInconsistency
		}

		parent, err := r.resolve(action.Parent)
		if err != nil {
			return err
		}

		return r.work.InsertChild(parent, action.Node, action.Pos)
	default:
		return fmt.Errorf("unknown action kind %d: %w", action.Kind, ErrStructuralInconsistency)
	}

	return nil
}

// resolve finds the working node standing for a destination node.
func (r *replayer) resolve(dstNode tree.NodeID) (tree.NodeID, error) {
	if dstNode == tree.NoNode {
		return r.virtualRoot, nil
	}

	if workNode, ok := r.inserted[dstNode]; ok {
		return workNode, nil
	}

	if src, ok := r.mono.SrcOf(dstNode); ok {
		return src, nil
	}

	return tree.NoNode, fmt.Errorf("no working node for %s: %w", r.dst.Describe(dstNode), ErrStructuralInconsistency)
}

// materialize creates the working copy of an inserted node, with its whole
// subtree when none of it is mapped.
func (r *replayer) materialize(dstNode tree.NodeID) tree.NodeID {
	if !r.newSubtrees[dstNode] {
		workNode := r.work.CopyNode(r.dst, dstNode)
		r.inserted[dstNode] = workNode

		return workNode
	}

	for dstDesc := range r.dst.PreOrderFrom(dstNode) {
		workDesc := r.work.CopyNode(r.dst, dstDesc)
		r.inserted[dstDesc] = workDesc

		if dstDesc != dstNode {
			_ = r.work.AddChild(r.inserted[r.dst.Parent(dstDesc)], workDesc) //nolint:errcheck // Arena IDs.
		}
	}

	return r.inserted[dstNode]
}

func (r *replayer) result() (*tree.Context, error) {
	roots := r.work.Children(r.virtualRoot)

	switch len(roots) {
	case 0:
		return tree.NewContext(), nil
	case 1:
		if err := r.work.SetRoot(roots[0]); err != nil {
			return nil, err
		}

		return r.work, nil
	default:
		return nil, fmt.Errorf("replay left %d roots: %w", len(roots), ErrStructuralInconsistency)
	}
}
