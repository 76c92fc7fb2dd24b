// Package matcher computes seed mappings between two syntax trees: identical
// subtrees top-down by structural hash, then containers bottom-up by the
// share of mapped descendants, then renamed leaves under matched containers.
package matcher

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// Defaults for Config.
const (
	DefaultMinHeight           = 1
	DefaultContainerThreshold  = 0.5
	DefaultLabelThreshold      = 0.5
	parentWeight               = 0.5
	sameTypeParentSimilarity   = 0.5
	identicalSubtreeScore      = 1.0
	checkCancellationEveryNode = 1024
)

// Config tunes a Matcher.
type Config struct {
	// MinHeight is the smallest subtree height matched top-down. Leaves
	// have height 1.
	MinHeight int

	// ContainerThreshold is the minimum dice coefficient of mapped
	// descendants for two containers to be matched bottom-up.
	ContainerThreshold float64

	// LabelThreshold is the minimum label similarity for two unmapped
	// same-type children of a matched pair to be mapped.
	LabelThreshold float64
}

// DefaultConfig returns the default tuning.
func DefaultConfig() Config {
	return Config{
		MinHeight:          DefaultMinHeight,
		ContainerThreshold: DefaultContainerThreshold,
		LabelThreshold:     DefaultLabelThreshold,
	}
}

// Matcher computes seed mappings.
type Matcher struct {
	cfg Config
}

// New creates a Matcher. Zero fields of cfg take their defaults.
func New(cfg Config) *Matcher {
	if cfg.MinHeight <= 0 {
		cfg.MinHeight = DefaultMinHeight
	}

	if cfg.ContainerThreshold <= 0 {
		cfg.ContainerThreshold = DefaultContainerThreshold
	}

	if cfg.LabelThreshold <= 0 {
		cfg.LabelThreshold = DefaultLabelThreshold
	}

	return &Matcher{cfg: cfg}
}

// Match runs all phases with the default configuration.
func Match(ctx context.Context, src, dst *tree.Context) (*mapping.MultiStore, error) {
	return New(DefaultConfig()).Match(ctx, src, dst)
}

// Match computes the seed mapping. Identical subtrees that occur more than
// once on either side yield multi-mappings, scored by context similarity.
func (m *Matcher) Match(ctx context.Context, src, dst *tree.Context) (*mapping.MultiStore, error) {
	run := &matching{
		cfg:       m.cfg,
		src:       src,
		dst:       dst,
		store:     mapping.NewMultiStore(src, dst),
		srcHashes: src.Hashes(),
		dstHashes: dst.Hashes(),
		srcHeight: src.Heights(),
		dstHeight: dst.Heights(),
	}

	if src.Root() == tree.NoNode || dst.Root() == tree.NoNode {
		return run.store, nil
	}

	if err := run.topDown(ctx); err != nil {
		return nil, err
	}

	if err := run.bottomUp(ctx); err != nil {
		return nil, err
	}

	return run.store, nil
}

// MatchAndRecover runs Match followed by MissingIdenticalSubtree.
func (m *Matcher) MatchAndRecover(ctx context.Context, src, dst *tree.Context) (*mapping.MultiStore, error) {
	store, err := m.Match(ctx, src, dst)
	if err != nil {
		return nil, err
	}

	if err := MissingIdenticalSubtree(store); err != nil {
		return nil, fmt.Errorf("recover identical subtrees: %w", err)
	}

	return store, nil
}

type matching struct {
	cfg       Config
	src       *tree.Context
	dst       *tree.Context
	store     *mapping.MultiStore
	srcHashes []uint64
	dstHashes []uint64
	srcHeight []int
	dstHeight []int
	visited   int
}

func (m *matching) checkpoint(ctx context.Context) error {
	m.visited++
	if m.visited%checkCancellationEveryNode != 0 {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("match: %w", err)
	}

	return nil
}

// topDown maps identical subtrees, largest first in pre-order.
func (m *matching) topDown(ctx context.Context) error {
	srcByHash := m.groupByHash(m.src, m.srcHashes, m.srcHeight)
	dstByHash := m.groupByHash(m.dst, m.dstHashes, m.dstHeight)

	for srcNode := range m.src.PreOrder() {
		if err := m.checkpoint(ctx); err != nil {
			return err
		}

		if m.store.IsSrcMapped(srcNode) || m.srcHeight[srcNode] < m.cfg.MinHeight {
			continue
		}

		hash := m.srcHashes[srcNode]

		candidates := m.unmappedIsomorphic(srcNode, dstByHash[hash])
		if len(candidates) == 0 {
			continue
		}

		peers := m.unmappedPeers(srcNode, srcByHash[hash])

		if len(candidates) == 1 && len(peers) == 1 {
			if err := m.mapSubtree(srcNode, candidates[0], identicalSubtreeScore); err != nil {
				return err
			}

			continue
		}

		for _, peer := range peers {
			for _, candidate := range candidates {
				if err := m.mapSubtree(peer, candidate, m.contextScore(peer, candidate)); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (m *matching) groupByHash(treeCtx *tree.Context, hashes []uint64, heights []int) map[uint64][]tree.NodeID {
	groups := make(map[uint64][]tree.NodeID)

	for id := range treeCtx.PreOrder() {
		if heights[id] < m.cfg.MinHeight {
			continue
		}

		groups[hashes[id]] = append(groups[hashes[id]], id)
	}

	return groups
}

func (m *matching) unmappedIsomorphic(srcNode tree.NodeID, dstNodes []tree.NodeID) []tree.NodeID {
	var out []tree.NodeID

	for _, dstNode := range dstNodes {
		if m.store.IsDstMapped(dstNode) || !tree.IsIsomorphic(m.src, srcNode, m.dst, dstNode) {
			continue
		}

		out = append(out, dstNode)
	}

	return out
}

func (m *matching) unmappedPeers(srcNode tree.NodeID, srcNodes []tree.NodeID) []tree.NodeID {
	var out []tree.NodeID

	for _, peer := range srcNodes {
		if m.store.IsSrcMapped(peer) || !tree.IsIsomorphic(m.src, srcNode, m.src, peer) {
			continue
		}

		out = append(out, peer)
	}

	return out
}

// mapSubtree maps two isomorphic subtrees node by node in pre-order.
func (m *matching) mapSubtree(srcNode, dstNode tree.NodeID, score float64) error {
	return mapIsomorphic(m.store, srcNode, dstNode, score)
}

// contextScore ranks ambiguous identical subtrees: parent similarity plus
// relative position within the file.
func (m *matching) contextScore(srcNode, dstNode tree.NodeID) float64 {
	return parentWeight*m.parentSimilarity(srcNode, dstNode) +
		(1-parentWeight)*m.positionSimilarity(srcNode, dstNode)
}

func (m *matching) parentSimilarity(srcNode, dstNode tree.NodeID) float64 {
	srcParent, dstParent := m.src.Parent(srcNode), m.dst.Parent(dstNode)

	switch {
	case srcParent == tree.NoNode && dstParent == tree.NoNode:
		return 1
	case srcParent == tree.NoNode || dstParent == tree.NoNode:
		return 0
	case !m.src.SameType(srcParent, m.dst, dstParent):
		return 0
	case m.src.Label(srcParent) == m.dst.Label(dstParent):
		return 1
	default:
		return sameTypeParentSimilarity
	}
}

func (m *matching) positionSimilarity(srcNode, dstNode tree.NodeID) float64 {
	srcRel := relativeStart(m.src, srcNode)
	dstRel := relativeStart(m.dst, dstNode)

	delta := srcRel - dstRel
	if delta < 0 {
		delta = -delta
	}

	return 1 - delta
}

func relativeStart(treeCtx *tree.Context, id tree.NodeID) float64 {
	rootStart, rootEnd := treeCtx.Range(treeCtx.Root())
	if rootEnd <= rootStart {
		return 0
	}

	start, _ := treeCtx.Range(id)

	return float64(start-rootStart) / float64(rootEnd-rootStart)
}
