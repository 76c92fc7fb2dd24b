package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

func name(label string) *tree.Builder {
	return tree.NewBuilder(tree.KindSimpleName).WithLabel(label)
}

func block(label string, children ...*tree.Builder) *tree.Builder {
	return tree.NewBuilder(tree.KindBlock).WithLabel(label).WithChildren(children...)
}

func node(t *testing.T, treeCtx *tree.Context, label string) tree.NodeID {
	t.Helper()

	for id := range treeCtx.PreOrder() {
		if treeCtx.Label(id) == label {
			return id
		}
	}

	require.Failf(t, "label not found", "label %q", label)

	return tree.NoNode
}

func trees() (src, dst *tree.Context) {
	src = block("R", name("S"), name("S2"), name("S3")).Build()
	dst = block("R", name("T1"), name("T2"), name("T3")).Build()

	return src, dst
}

func TestAddIsIdempotent(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	store := mapping.NewMultiStore(src, dst)
	s, t1 := node(t, src, "S"), node(t, dst, "T1")

	require.NoError(t, store.Add(s, t1))
	require.NoError(t, store.Add(s, t1))

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []tree.NodeID{t1}, store.DstsOf(s))
	assert.Equal(t, []tree.NodeID{s}, store.SrcsOf(t1))
	assert.Empty(t, store.DstsOf(node(t, src, "S2")))
}

func TestLookupKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	store := mapping.NewMultiStore(src, dst)
	s := node(t, src, "S")
	t3, t1, t2 := node(t, dst, "T3"), node(t, dst, "T1"), node(t, dst, "T2")

	for _, target := range []tree.NodeID{t3, t1, t2} {
		require.NoError(t, store.Add(s, target))
	}

	assert.Equal(t, []tree.NodeID{t3, t1, t2}, store.DstsOf(s))

	assert.True(t, store.Remove(s, t1))
	assert.False(t, store.Remove(s, t1))
	assert.Equal(t, []tree.NodeID{t3, t2}, store.DstsOf(s))
	assert.False(t, store.IsDstMapped(t1))
}

func TestAddRejectsForeignNodes(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	other := block("X").Build()
	store := mapping.NewMultiStore(src, dst)

	err := store.Add(tree.NodeID(src.Len()), dst.Root())
	require.ErrorIs(t, err, mapping.ErrStructuralInconsistency)

	err = store.AddEdge(mapping.Edge{Src: other.Ref(other.Root()), Dst: dst.Ref(dst.Root())})
	require.ErrorIs(t, err, mapping.ErrStructuralInconsistency)

	require.NoError(t, store.AddEdge(mapping.Edge{Src: src.Ref(src.Root()), Dst: dst.Ref(dst.Root())}))
	assert.Equal(t, []mapping.Edge{{Src: src.Ref(src.Root()), Dst: dst.Ref(dst.Root())}}, store.Edges())
}

func TestToMonoPrefersHigherScore(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	store := mapping.NewMultiStore(src, dst)
	s, t1, t2 := node(t, src, "S"), node(t, dst, "T1"), node(t, dst, "T2")

	require.NoError(t, store.AddScored(s, t2, 0.6))
	require.NoError(t, store.AddScored(s, t1, 0.9))

	mono := store.ToMono(nil)

	partner, ok := mono.DstOf(s)
	require.True(t, ok)
	assert.Equal(t, t1, partner)
	assert.False(t, mono.IsDstMapped(t2))
}

func TestToMonoFallsBackToInsertionOrder(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	store := mapping.NewMultiStore(src, dst)
	s, t1, t3 := node(t, src, "S"), node(t, dst, "T1"), node(t, dst, "T3")

	require.NoError(t, store.Add(s, t3))
	require.NoError(t, store.Add(s, t1))

	partner, ok := store.ToMono(nil).DstOf(s)
	require.True(t, ok)
	assert.Equal(t, t3, partner)

	// By position the nearer candidate wins.
	partner, ok = store.ToMono(mapping.PositionComparator).DstOf(s)
	require.True(t, ok)
	assert.Equal(t, t1, partner)
}

func TestToMonoAugmentsToCoverEveryNode(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	store := mapping.NewMultiStore(src, dst)
	s, s2 := node(t, src, "S"), node(t, src, "S2")
	t1, t2 := node(t, dst, "T1"), node(t, dst, "T2")

	// Greedy alone would give S->T1 and leave S2 without partner.
	require.NoError(t, store.AddScored(s, t1, 0.9))
	require.NoError(t, store.AddScored(s, t2, 0.5))
	require.NoError(t, store.AddScored(s2, t1, 0.4))

	mono := store.ToMono(nil)

	assert.True(t, mono.Has(s, t2))
	assert.True(t, mono.Has(s2, t1))
	assertSound(t, store, mono)
}

func TestToMonoIsDeterministic(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	store := mapping.NewMultiStore(src, dst)

	for srcID := range src.PreOrder() {
		for dstID := range dst.PreOrder() {
			require.NoError(t, store.Add(srcID, dstID))
		}
	}

	first := store.ToMono(nil).Pairs()

	for range 5 {
		assert.Equal(t, first, store.ToMono(nil).Pairs())
	}

	assertSound(t, store, store.ToMono(nil))
}

func assertSound(t *testing.T, store *mapping.MultiStore, mono *mapping.Mono) {
	t.Helper()

	for _, pair := range mono.Pairs() {
		assert.True(t, store.Has(pair.Src, pair.Dst), "mono edge %v not in store", pair)

		back, ok := mono.SrcOf(pair.Dst)
		require.True(t, ok)
		assert.Equal(t, pair.Src, back)
	}

	for _, pair := range store.Pairs() {
		assert.True(t, mono.IsSrcMapped(pair.Src), "src %d lost its partner", pair.Src)
		assert.True(t, mono.IsDstMapped(pair.Dst), "dst %d lost its partner", pair.Dst)
	}
}

func TestMonoPartner(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	store := mapping.NewMultiStore(src, dst)
	require.NoError(t, store.Add(src.Root(), dst.Root()))

	mono := store.ToMono(nil)

	partner, ok := mono.Partner(src.Ref(src.Root()))
	require.True(t, ok)
	assert.Equal(t, dst.Ref(dst.Root()), partner)

	partner, ok = mono.Partner(dst.Ref(dst.Root()))
	require.True(t, ok)
	assert.Equal(t, src.Ref(src.Root()), partner)

	_, ok = mono.Partner(src.Ref(node(t, src, "S")))
	assert.False(t, ok)
}

func TestMergeTranslated(t *testing.T) {
	t.Parallel()

	src := tree.NewBuilder(tree.KindTypeDeclaration).WithLabel("R").
		WithChildren(block("body", name("x")), name("S")).Build()
	dst := tree.NewBuilder(tree.KindTypeDeclaration).WithLabel("R").
		WithChildren(block("body", name("y")), name("T")).Build()

	opaque := tree.NewKindSet(tree.KindBlock)
	prunedSrc, srcBack := tree.DeepCopyPruned(src, opaque)
	prunedDst, dstBack := tree.DeepCopyPruned(dst, opaque)

	pruned := mapping.NewMultiStore(prunedSrc, prunedDst)
	require.NoError(t, pruned.AddScored(prunedSrc.Root(), prunedDst.Root(), 1))
	require.NoError(t, pruned.Add(node(t, prunedSrc, "S"), node(t, prunedDst, "T")))

	store := mapping.NewMultiStore(src, dst)
	require.NoError(t, store.MergeTranslated(pruned, srcBack, dstBack))

	assert.True(t, store.Has(src.Root(), dst.Root()))
	assert.True(t, store.Has(node(t, src, "S"), node(t, dst, "T")))

	score, ok := store.Score(src.Root(), dst.Root())
	require.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)

	err := store.MergeTranslated(pruned, nil, dstBack)
	require.ErrorIs(t, err, mapping.ErrStructuralInconsistency)
}

func TestMergeRejectsOtherTrees(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	otherSrc, otherDst := trees()

	store := mapping.NewMultiStore(src, dst)
	other := mapping.NewMultiStore(otherSrc, otherDst)

	require.ErrorIs(t, store.Merge(other), mapping.ErrStructuralInconsistency)
	require.ErrorIs(t, store.ReplaceWithOptimized(other), mapping.ErrStructuralInconsistency)
}

func TestReplaceWithOptimized(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	s, s2 := node(t, src, "S"), node(t, src, "S2")
	t1, t2, t3 := node(t, dst, "T1"), node(t, dst, "T2"), node(t, dst, "T3")

	store := mapping.NewMultiStore(src, dst)
	require.NoError(t, store.Add(s, t1))
	require.NoError(t, store.Add(s, t2))
	require.NoError(t, store.Add(s2, t3))

	optimized := mapping.NewMultiStore(src, dst)
	require.NoError(t, optimized.Add(s, t3))

	require.NoError(t, store.ReplaceWithOptimized(optimized))

	assert.Equal(t, []tree.NodeID{t3}, store.DstsOf(s))
	assert.Empty(t, store.DstsOf(s2))
	assert.Equal(t, 1, store.Len())
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	src, dst := trees()
	store := mapping.NewMultiStore(src, dst)
	require.NoError(t, store.Add(src.Root(), dst.Root()))

	cloned := store.Clone()
	cloned.RemoveSrc(src.Root())

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 0, cloned.Len())
}
