package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

func ranged(kind tree.Kind, label string, start, end int, children ...*tree.Builder) *tree.Builder {
	return tree.NewBuilder(kind).WithLabel(label).WithRange(start, end).WithChildren(children...)
}

func invocationTree(argChildren ...*tree.Builder) *tree.Context {
	return ranged(tree.KindCompilationUnit, "unit", 0, 100,
		ranged(tree.KindMethodDeclaration, "run", 10, 90,
			ranged(tree.KindBlock, "body", 20, 80,
				ranged(tree.KindExpressionStatement, "stmt", 30, 50,
					ranged(tree.KindMethodInvocation, "call", 30, 49,
						ranged(tree.KindMethodInvocationArguments, "args", 40, 48, argChildren...),
					),
				),
			),
		),
	).Build()
}

func TestFindCoveringNode(t *testing.T) {
	t.Parallel()

	treeCtx := invocationTree(ranged(tree.KindSimpleName, "x", 41, 47))

	tests := []struct {
		name      string
		start     int
		end       int
		wantLabel string
	}{
		{"inside invocation", 31, 35, "call"},
		{"exact leaf", 41, 47, "x"},
		{"arguments wrapper", 40, 48, "args"},
		{"statement tail", 49, 50, "stmt"},
		{"outside method", 95, 99, "unit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, ok := tree.FindCoveringNode(treeCtx, tt.start, tt.end)
			require.True(t, ok)
			assert.Equal(t, tt.wantLabel, treeCtx.Label(id))
		})
	}
}

func TestFindCoveringNodeMissingAnchor(t *testing.T) {
	t.Parallel()

	treeCtx := invocationTree()

	id, ok := tree.FindCoveringNode(treeCtx, 200, 210)
	assert.False(t, ok)
	assert.Equal(t, tree.NoNode, id)

	id, ok = tree.FindCoveringNode(tree.NewContext(), 0, 1)
	assert.False(t, ok)
	assert.Equal(t, tree.NoNode, id)
}

func TestFindCoveringNodeUnwrapsSingleArgument(t *testing.T) {
	t.Parallel()

	single := invocationTree(ranged(tree.KindSimpleName, "only", 40, 48))

	id, ok := tree.FindCoveringNode(single, 40, 48)
	require.True(t, ok)
	assert.Equal(t, "only", single.Label(id))

	pair := invocationTree(
		ranged(tree.KindSimpleName, "first", 40, 44),
		ranged(tree.KindSimpleName, "second", 44, 48),
	)

	id, ok = tree.FindCoveringNode(pair, 40, 48)
	require.True(t, ok)
	assert.Equal(t, "args", pair.Label(id))
}

func TestFindByRangeAndKind(t *testing.T) {
	t.Parallel()

	treeCtx := invocationTree()

	id, ok := tree.FindByRangeAndKind(treeCtx, 30, 49, tree.KindMethodInvocation)
	require.True(t, ok)
	assert.Equal(t, "call", treeCtx.Label(id))

	_, ok = tree.FindByRangeAndKind(treeCtx, 30, 49, tree.KindBlock)
	assert.False(t, ok)
}

func TestDeepCopyPruned(t *testing.T) {
	t.Parallel()

	original := ranged(tree.KindTypeDeclaration, "Foo", 0, 100,
		ranged(tree.KindMethodDeclaration, "bar", 0, 50,
			ranged(tree.KindBlock, "", 10, 50,
				ranged(tree.KindReturnStatement, "", 12, 20),
			),
		),
		ranged(tree.KindFieldDeclaration, "f", 50, 90,
			ranged(tree.KindAnonymousClassDeclaration, "", 60, 90,
				ranged(tree.KindMethodDeclaration, "inner", 61, 89),
			),
		),
	).Build()

	pruned, back := tree.DeepCopyPruned(original, tree.NewKindSet(tree.KindBlock))

	assert.NotEqual(t, original.ID(), pruned.ID())
	assert.Equal(t, 5, pruned.Size(pruned.Root()))

	for id := range pruned.PreOrder() {
		source := back.Original(id)
		require.NotEqual(t, tree.NoNode, source)
		assert.Equal(t, original.Kind(source), pruned.Kind(id))
		assert.Equal(t, original.Label(source), pruned.Label(id))

		start, end := pruned.Range(id)
		wantStart, wantEnd := original.Range(source)
		assert.Equal(t, wantStart, start)
		assert.Equal(t, wantEnd, end)

		switch pruned.Kind(id) {
		case tree.KindBlock, tree.KindAnonymousClassDeclaration:
			assert.True(t, pruned.IsLeaf(id), "opaque node must be a placeholder leaf")
		default:
		}
	}

	assert.Equal(t, tree.NoNode, back.Original(tree.NodeID(pruned.Len())))
}

func TestDeepCopyPrunedWithoutOpaqueKinds(t *testing.T) {
	t.Parallel()

	original := sample()

	copied, back := tree.DeepCopyPruned(original, nil)

	assert.True(t, tree.IsIsomorphic(original, original.Root(), copied, copied.Root()))
	assert.Equal(t, original.Root(), back.Original(copied.Root()))

	empty, emptyBack := tree.DeepCopyPruned(tree.NewContext(), nil)
	assert.Equal(t, tree.NoNode, empty.Root())
	assert.Empty(t, emptyBack)
}

func TestUmbrella(t *testing.T) {
	t.Parallel()

	first := block("F", leaf("f1"))
	second := block("S", leaf("s1"), leaf("s2"))
	firstCtx, secondCtx := first.Build(), second.Build()

	group := tree.NewUmbrella(firstCtx, tree.NewContext(), secondCtx)
	root := group.Ctx.Root()

	assert.Equal(t, tree.KindSynthetic, group.Ctx.Kind(root))
	assert.Equal(t, []string{"F", "S"}, labels(group.Ctx, group.Ctx.Children(root)))
	assert.True(t, group.IsSynthetic(root))

	_, ok := group.Origin(root)
	assert.False(t, ok)

	nodeS2 := byLabel(t, group.Ctx, "s2")
	origin, ok := group.Origin(nodeS2)
	require.True(t, ok)
	assert.Equal(t, secondCtx.ID(), origin.Ctx)
	assert.Equal(t, "s2", secondCtx.Label(origin.Node))

	realRoot := group.RealRoot(nodeS2)
	assert.Equal(t, "S", group.Ctx.Label(realRoot))
	assert.Equal(t, byLabel(t, group.Ctx, "F"), group.Ctx.HighestRealAncestor(byLabel(t, group.Ctx, "f1"), root))

	// Without an umbrella the walk reaches the true root.
	assert.Equal(t, secondCtx.Root(), secondCtx.HighestRealAncestor(byLabel(t, secondCtx, "s1"), tree.NoNode))
}
