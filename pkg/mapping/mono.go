package mapping

import (
	"cmp"
	"slices"

	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// Candidate is one edge of a MultiStore as seen by a tie-break Comparator.
type Candidate struct {
	Pair

	Score       float64
	Scored      bool
	Seq         int
	OffsetDelta int
}

// Comparator orders candidates: a negative result means a is preferred.
// It must be a strict, deterministic order for identical input.
type Comparator func(a, b Candidate) int

// DefaultComparator prefers the higher external score, then the earlier
// inserted edge, then the smaller start-offset delta. Scored edges win over
// unscored ones.
func DefaultComparator(a, b Candidate) int {
	if byScore := compareScores(a, b); byScore != 0 {
		return byScore
	}

	if a.Seq != b.Seq {
		return cmp.Compare(a.Seq, b.Seq)
	}

	return comparePositions(a, b)
}

// PositionComparator prefers the higher external score, then the smaller
// start-offset delta, then the earlier inserted edge.
func PositionComparator(a, b Candidate) int {
	if byScore := compareScores(a, b); byScore != 0 {
		return byScore
	}

	if byPosition := comparePositions(a, b); byPosition != 0 {
		return byPosition
	}

	return cmp.Compare(a.Seq, b.Seq)
}

func compareScores(a, b Candidate) int {
	switch {
	case a.Scored && b.Scored:
		return cmp.Compare(b.Score, a.Score)
	case a.Scored:
		return -1
	case b.Scored:
		return 1
	default:
		return 0
	}
}

func comparePositions(a, b Candidate) int {
	if a.OffsetDelta != b.OffsetDelta {
		return cmp.Compare(a.OffsetDelta, b.OffsetDelta)
	}

	if a.Src != b.Src {
		return cmp.Compare(a.Src, b.Src)
	}

	return cmp.Compare(a.Dst, b.Dst)
}

// Candidates returns every edge with its tie-break attributes, in insertion order.
func (s *MultiStore) Candidates() []Candidate {
	pairs := s.Pairs()
	out := make([]Candidate, len(pairs))

	for idx, pair := range pairs {
		info := s.edges[pair]
		srcStart, _ := s.src.Range(pair.Src)
		dstStart, _ := s.dst.Range(pair.Dst)

		out[idx] = Candidate{
			Pair:        pair,
			Score:       info.score,
			Scored:      info.scored,
			Seq:         info.seq,
			OffsetDelta: abs(srcStart - dstStart),
		}
	}

	return out
}

// ToMono reduces the store to a 1:1 mapping. Edges are taken greedily in
// comparator order; afterwards every still unpartnered source is offered an
// augmenting path through its candidates, so a node only stays unpartnered
// when no injective assignment can cover it. A nil comparator selects
// DefaultComparator. The result is deterministic for identical input.
func (s *MultiStore) ToMono(comparator Comparator) *Mono {
	if comparator == nil {
		comparator = DefaultComparator
	}

	candidates := s.Candidates()
	slices.SortStableFunc(candidates, comparator)

	mono := newMono(s.src, s.dst)
	bySrc := make(map[tree.NodeID][]tree.NodeID)

	for _, candidate := range candidates {
		bySrc[candidate.Src] = append(bySrc[candidate.Src], candidate.Dst)

		if mono.IsSrcMapped(candidate.Src) || mono.IsDstMapped(candidate.Dst) {
			continue
		}

		mono.link(candidate.Src, candidate.Dst)
	}

	unmatched := make([]tree.NodeID, 0)

	for src := range bySrc {
		if !mono.IsSrcMapped(src) {
			unmatched = append(unmatched, src)
		}
	}

	slices.Sort(unmatched)

	for _, src := range unmatched {
		mono.augment(src, bySrc, make(map[tree.NodeID]bool))
	}

	return mono
}

func abs(value int) int {
	if value < 0 {
		return -value
	}

	return value
}

// Mono is an injective mapping: every mapped node has exactly one partner.
type Mono struct {
	src      *tree.Context
	dst      *tree.Context
	srcToDst map[tree.NodeID]tree.NodeID
	dstToSrc map[tree.NodeID]tree.NodeID
}

func newMono(src, dst *tree.Context) *Mono {
	return &Mono{
		src:      src,
		dst:      dst,
		srcToDst: make(map[tree.NodeID]tree.NodeID),
		dstToSrc: make(map[tree.NodeID]tree.NodeID),
	}
}

func (m *Mono) link(src, dst tree.NodeID) {
	m.srcToDst[src] = dst
	m.dstToSrc[dst] = src
}

// augment searches an alternating path that frees a destination for src.
func (m *Mono) augment(src tree.NodeID, bySrc map[tree.NodeID][]tree.NodeID, visited map[tree.NodeID]bool) bool {
	for _, dst := range bySrc[src] {
		if visited[dst] {
			continue
		}

		visited[dst] = true

		holder, taken := m.dstToSrc[dst]
		if !taken || m.augment(holder, bySrc, visited) {
			m.link(src, dst)

			return true
		}
	}

	return false
}

// SrcContext returns the source tree.
func (m *Mono) SrcContext() *tree.Context { return m.src }

// DstContext returns the destination tree.
func (m *Mono) DstContext() *tree.Context { return m.dst }

// Len returns the number of pairs.
func (m *Mono) Len() int { return len(m.srcToDst) }

// DstOf returns the partner of a source node.
func (m *Mono) DstOf(src tree.NodeID) (tree.NodeID, bool) {
	dst, ok := m.srcToDst[src]
	if !ok {
		return tree.NoNode, false
	}

	return dst, true
}

// SrcOf returns the partner of a destination node.
func (m *Mono) SrcOf(dst tree.NodeID) (tree.NodeID, bool) {
	src, ok := m.dstToSrc[dst]
	if !ok {
		return tree.NoNode, false
	}

	return src, true
}

// IsSrcMapped reports whether src has a partner.
func (m *Mono) IsSrcMapped(src tree.NodeID) bool {
	_, ok := m.srcToDst[src]

	return ok
}

// IsDstMapped reports whether dst has a partner.
func (m *Mono) IsDstMapped(dst tree.NodeID) bool {
	_, ok := m.dstToSrc[dst]

	return ok
}

// Has reports whether (src, dst) is a pair of the mapping.
func (m *Mono) Has(src, dst tree.NodeID) bool {
	partner, ok := m.srcToDst[src]

	return ok && partner == dst
}

// Partner resolves a reference from either tree to its counterpart.
func (m *Mono) Partner(ref tree.Ref) (tree.Ref, bool) {
	switch ref.Ctx {
	case m.src.ID():
		if dst, ok := m.srcToDst[ref.Node]; ok {
			return m.dst.Ref(dst), true
		}
	case m.dst.ID():
		if src, ok := m.dstToSrc[ref.Node]; ok {
			return m.src.Ref(src), true
		}
	}

	return tree.Ref{}, false
}

// Pairs returns all pairs ordered by source node ID.
func (m *Mono) Pairs() []Pair {
	pairs := make([]Pair, 0, len(m.srcToDst))

	for src, dst := range m.srcToDst {
		pairs = append(pairs, Pair{Src: src, Dst: dst})
	}

	slices.SortFunc(pairs, func(left, right Pair) int {
		return cmp.Compare(left.Src, right.Src)
	})

	return pairs
}
