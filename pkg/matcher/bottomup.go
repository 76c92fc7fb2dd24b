package matcher

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// bottomUp matches unmapped containers in post-order to the same-type dst
// ancestor sharing the most mapped descendants, then recovers renamed
// children of every new pair. The roots are matched last when both are free.
func (m *matching) bottomUp(ctx context.Context) error {
	for srcNode := range m.src.PostOrder() {
		if err := m.checkpoint(ctx); err != nil {
			return err
		}

		if m.store.IsSrcMapped(srcNode) || m.src.IsLeaf(srcNode) {
			continue
		}

		dstNode, score := m.bestContainer(srcNode)
		if dstNode == tree.NoNode {
			continue
		}

		if err := m.store.AddScored(srcNode, dstNode, score); err != nil {
			return fmt.Errorf("bottom-up %d -> %d: %w", srcNode, dstNode, err)
		}

		if err := m.recoverChildren(srcNode, dstNode); err != nil {
			return err
		}
	}

	srcRoot, dstRoot := m.src.Root(), m.dst.Root()
	if m.store.IsSrcMapped(srcRoot) || m.store.IsDstMapped(dstRoot) || !m.src.SameType(srcRoot, m.dst, dstRoot) {
		return nil
	}

	score := LabelSimilarity(m.src.Label(srcRoot), m.dst.Label(dstRoot))
	if err := m.store.AddScored(srcRoot, dstRoot, score); err != nil {
		return fmt.Errorf("bottom-up roots: %w", err)
	}

	return m.recoverChildren(srcRoot, dstRoot)
}

// bestContainer returns the unmapped same-type dst node with the highest
// dice coefficient over mapped descendants, at least ContainerThreshold.
// Ties go to the more similar label, then the lower NodeID.
func (m *matching) bestContainer(srcNode tree.NodeID) (tree.NodeID, float64) {
	srcDescendants := m.src.Descendants(srcNode)

	candidates := make(map[tree.NodeID]struct{})

	for _, descendant := range srcDescendants {
		for _, partner := range m.store.DstsOf(descendant) {
			for _, ancestor := range m.dst.Ancestors(partner) {
				if !m.store.IsDstMapped(ancestor) && m.src.SameType(srcNode, m.dst, ancestor) {
					candidates[ancestor] = struct{}{}
				}
			}
		}
	}

	best, bestScore, bestLabel := tree.NoNode, 0.0, 0.0

	for _, candidate := range sortedIDs(candidates) {
		score := diceCoefficient(
			m.commonDescendants(srcDescendants, candidate),
			len(srcDescendants),
			m.dst.Size(candidate)-1,
		)
		if score < m.cfg.ContainerThreshold {
			continue
		}

		label := LabelSimilarity(m.src.Label(srcNode), m.dst.Label(candidate))
		if score > bestScore || (score == bestScore && label > bestLabel) {
			best, bestScore, bestLabel = candidate, score, label
		}
	}

	return best, bestScore
}

func (m *matching) commonDescendants(srcDescendants []tree.NodeID, dstNode tree.NodeID) int {
	common := 0

	for _, descendant := range srcDescendants {
		for _, partner := range m.store.DstsOf(descendant) {
			if m.dst.IsAncestor(dstNode, partner) {
				common++

				break
			}
		}
	}

	return common
}

// recoverChildren maps each unmapped src child to the unmapped same-type dst
// child with the most similar label, then recurses into the new pair.
func (m *matching) recoverChildren(srcNode, dstNode tree.NodeID) error {
	for _, srcChild := range m.src.Children(srcNode) {
		if m.store.IsSrcMapped(srcChild) {
			continue
		}

		best, bestScore := tree.NoNode, 0.0

		for _, dstChild := range m.dst.Children(dstNode) {
			if m.store.IsDstMapped(dstChild) || !m.src.SameType(srcChild, m.dst, dstChild) {
				continue
			}

			score := LabelSimilarity(m.src.Label(srcChild), m.dst.Label(dstChild))
			if score >= m.cfg.LabelThreshold && score > bestScore {
				best, bestScore = dstChild, score
			}
		}

		if best == tree.NoNode {
			continue
		}

		if err := m.store.AddScored(srcChild, best, bestScore); err != nil {
			return fmt.Errorf("recover %d -> %d: %w", srcChild, best, err)
		}

		if err := m.recoverChildren(srcChild, best); err != nil {
			return err
		}
	}

	return nil
}

// MissingIdenticalSubtree maps, under every mapped pair, unmapped children
// that are isomorphic to an unmapped child on the other side. Children are
// paired first come, first served.
func MissingIdenticalSubtree(store *mapping.MultiStore) error {
	src, dst := store.SrcContext(), store.DstContext()

	for _, pair := range store.Pairs() {
		for _, srcChild := range src.Children(pair.Src) {
			if store.IsSrcMapped(srcChild) {
				continue
			}

			for _, dstChild := range dst.Children(pair.Dst) {
				if store.IsDstMapped(dstChild) || !tree.IsIsomorphic(src, srcChild, dst, dstChild) {
					continue
				}

				if err := mapIsomorphic(store, srcChild, dstChild, identicalSubtreeScore); err != nil {
					return err
				}

				break
			}
		}
	}

	return nil
}

func mapIsomorphic(store *mapping.MultiStore, srcNode, dstNode tree.NodeID, score float64) error {
	srcNodes := slices.Collect(store.SrcContext().PreOrderFrom(srcNode))
	dstNodes := slices.Collect(store.DstContext().PreOrderFrom(dstNode))

	if len(srcNodes) != len(dstNodes) {
		return fmt.Errorf("identical subtree %d -> %d: %w", srcNode, dstNode, mapping.ErrStructuralInconsistency)
	}

	for idx := range srcNodes {
		if err := store.AddScored(srcNodes[idx], dstNodes[idx], score); err != nil {
			return fmt.Errorf("identical subtree %d -> %d: %w", srcNode, dstNode, err)
		}
	}

	return nil
}

func sortedIDs(set map[tree.NodeID]struct{}) []tree.NodeID {
	return slices.Sorted(maps.Keys(set))
}
