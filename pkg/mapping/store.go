// Package mapping holds node correspondences between a source and a
// destination tree: the many-to-many MultiStore produced by matchers and
// refinements, and its injective Mono reduction consumed by the edit-script
// generator.
package mapping

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// ErrStructuralInconsistency is returned when a mapping or action references
// a node outside its declared tree.
var ErrStructuralInconsistency = errors.New("structural inconsistency")

// Pair is a (src, dst) node pair within the declared trees of a store.
type Pair struct {
	Src tree.NodeID
	Dst tree.NodeID
}

// Edge is a cross-tree correspondence expressed with context references.
type Edge struct {
	Src tree.Ref
	Dst tree.Ref
}

// Mapping is implemented by both the MultiStore and its Mono reduction.
type Mapping interface {
	SrcContext() *tree.Context
	DstContext() *tree.Context
	Len() int
}

type edgeInfo struct {
	seq    int
	score  float64
	scored bool
}

// MultiStore is a many-to-many mapping between the nodes of two trees. Both
// lookup directions keep insertion order. A MultiStore is not safe for
// concurrent mutation; each file-pair diff owns its own store.
type MultiStore struct {
	src      *tree.Context
	dst      *tree.Context
	edges    map[Pair]edgeInfo
	srcToDst map[tree.NodeID][]tree.NodeID
	dstToSrc map[tree.NodeID][]tree.NodeID
	seq      int
}

// NewMultiStore creates an empty store over the given trees.
func NewMultiStore(src, dst *tree.Context) *MultiStore {
	return &MultiStore{
		src:      src,
		dst:      dst,
		edges:    make(map[Pair]edgeInfo),
		srcToDst: make(map[tree.NodeID][]tree.NodeID),
		dstToSrc: make(map[tree.NodeID][]tree.NodeID),
	}
}

// SrcContext returns the declared source tree.
func (s *MultiStore) SrcContext() *tree.Context { return s.src }

// DstContext returns the declared destination tree.
func (s *MultiStore) DstContext() *tree.Context { return s.dst }

// Len returns the number of edges.
func (s *MultiStore) Len() int { return len(s.edges) }

// Add inserts the edge (src, dst). Adding an existing edge is a no-op.
func (s *MultiStore) Add(src, dst tree.NodeID) error {
	return s.add(src, dst, 0, false)
}

// AddScored inserts the edge with an external similarity score. For an
// existing edge the higher score is kept.
func (s *MultiStore) AddScored(src, dst tree.NodeID, score float64) error {
	return s.add(src, dst, score, true)
}

// AddEdge inserts a reference-based edge after checking that both ends belong
// to the declared trees.
func (s *MultiStore) AddEdge(edge Edge) error {
	if !s.src.Owns(edge.Src) || !s.dst.Owns(edge.Dst) {
		return fmt.Errorf("edge %v -> %v: %w", edge.Src, edge.Dst, ErrStructuralInconsistency)
	}

	return s.Add(edge.Src.Node, edge.Dst.Node)
}

func (s *MultiStore) add(src, dst tree.NodeID, score float64, scored bool) error {
	if !s.src.Valid(src) || !s.dst.Valid(dst) {
		return fmt.Errorf("edge %d -> %d: %w", src, dst, ErrStructuralInconsistency)
	}

	key := Pair{Src: src, Dst: dst}

	if info, exists := s.edges[key]; exists {
		if scored && (!info.scored || score > info.score) {
			info.score, info.scored = score, true
			s.edges[key] = info
		}

		return nil
	}

	s.edges[key] = edgeInfo{seq: s.seq, score: score, scored: scored}
	s.seq++
	s.srcToDst[src] = append(s.srcToDst[src], dst)
	s.dstToSrc[dst] = append(s.dstToSrc[dst], src)

	return nil
}

// Remove deletes the edge and reports whether it existed.
func (s *MultiStore) Remove(src, dst tree.NodeID) bool {
	key := Pair{Src: src, Dst: dst}
	if _, exists := s.edges[key]; !exists {
		return false
	}

	delete(s.edges, key)
	s.srcToDst[src] = without(s.srcToDst[src], dst)
	s.dstToSrc[dst] = without(s.dstToSrc[dst], src)

	if len(s.srcToDst[src]) == 0 {
		delete(s.srcToDst, src)
	}

	if len(s.dstToSrc[dst]) == 0 {
		delete(s.dstToSrc, dst)
	}

	return true
}

// RemoveSrc deletes every edge leaving src.
func (s *MultiStore) RemoveSrc(src tree.NodeID) {
	for _, dst := range slices.Clone(s.srcToDst[src]) {
		s.Remove(src, dst)
	}
}

// RemoveDst deletes every edge reaching dst.
func (s *MultiStore) RemoveDst(dst tree.NodeID) {
	for _, src := range slices.Clone(s.dstToSrc[dst]) {
		s.Remove(src, dst)
	}
}

// Has reports whether the edge exists.
func (s *MultiStore) Has(src, dst tree.NodeID) bool {
	_, exists := s.edges[Pair{Src: src, Dst: dst}]

	return exists
}

// DstsOf returns the destinations mapped from src in insertion order.
func (s *MultiStore) DstsOf(src tree.NodeID) []tree.NodeID {
	return slices.Clone(s.srcToDst[src])
}

// SrcsOf returns the sources mapped to dst in insertion order.
func (s *MultiStore) SrcsOf(dst tree.NodeID) []tree.NodeID {
	return slices.Clone(s.dstToSrc[dst])
}

// IsSrcMapped reports whether src has at least one edge.
func (s *MultiStore) IsSrcMapped(src tree.NodeID) bool {
	return len(s.srcToDst[src]) > 0
}

// IsDstMapped reports whether dst has at least one edge.
func (s *MultiStore) IsDstMapped(dst tree.NodeID) bool {
	return len(s.dstToSrc[dst]) > 0
}

// Score returns the recorded score of an edge, if any.
func (s *MultiStore) Score(src, dst tree.NodeID) (float64, bool) {
	info, exists := s.edges[Pair{Src: src, Dst: dst}]

	return info.score, exists && info.scored
}

// Pairs returns all edges in insertion order.
func (s *MultiStore) Pairs() []Pair {
	pairs := make([]Pair, 0, len(s.edges))

	for key := range s.edges {
		pairs = append(pairs, key)
	}

	slices.SortFunc(pairs, func(left, right Pair) int {
		return s.edges[left].seq - s.edges[right].seq
	})

	return pairs
}

// Edges returns all edges as context references in insertion order.
func (s *MultiStore) Edges() []Edge {
	pairs := s.Pairs()
	edges := make([]Edge, len(pairs))

	for idx, pair := range pairs {
		edges[idx] = Edge{Src: s.src.Ref(pair.Src), Dst: s.dst.Ref(pair.Dst)}
	}

	return edges
}

// Merge adds every edge of other, which must be declared over the same trees.
// Scores are carried over.
func (s *MultiStore) Merge(other *MultiStore) error {
	if other.src != s.src || other.dst != s.dst {
		return fmt.Errorf("merge across trees: %w", ErrStructuralInconsistency)
	}

	for _, pair := range other.Pairs() {
		info := other.edges[pair]
		if err := s.add(pair.Src, pair.Dst, info.score, info.scored); err != nil {
			return err
		}
	}

	return nil
}

// MergeTranslated adds the edges of other, computed over pruned copies, after
// translating both ends through the copy-to-original back-maps.
func (s *MultiStore) MergeTranslated(other *MultiStore, srcBack, dstBack tree.BackMap) error {
	for _, pair := range other.Pairs() {
		src, dst := srcBack.Original(pair.Src), dstBack.Original(pair.Dst)
		if src == tree.NoNode || dst == tree.NoNode {
			return fmt.Errorf("translate edge %d -> %d: %w", pair.Src, pair.Dst, ErrStructuralInconsistency)
		}

		info := other.edges[pair]
		if err := s.add(src, dst, info.score, info.scored); err != nil {
			return err
		}
	}

	return nil
}

// ReplaceWithOptimized drops every existing edge touching a node that other
// maps, then merges other. other must be declared over the same trees.
func (s *MultiStore) ReplaceWithOptimized(other *MultiStore) error {
	if other.src != s.src || other.dst != s.dst {
		return fmt.Errorf("replace across trees: %w", ErrStructuralInconsistency)
	}

	for _, pair := range other.Pairs() {
		s.RemoveSrc(pair.Src)
		s.RemoveDst(pair.Dst)
	}

	return s.Merge(other)
}

// Clone returns an independent copy of the store over the same trees.
func (s *MultiStore) Clone() *MultiStore {
	cloned := NewMultiStore(s.src, s.dst)
	_ = cloned.Merge(s) //nolint:errcheck // Same trees, cannot fail.

	return cloned
}

func without(ids []tree.NodeID, drop tree.NodeID) []tree.NodeID {
	kept := ids[:0:0]

	for _, id := range ids {
		if id != drop {
			kept = append(kept, id)
		}
	}

	return kept
}
