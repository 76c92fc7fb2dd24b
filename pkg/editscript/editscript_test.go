package editscript_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/astdiff/pkg/editscript"
	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

func n(label string, children ...*tree.Builder) *tree.Builder {
	return tree.NewBuilder(tree.KindBlock).WithLabel(label).WithChildren(children...)
}

func find(t *testing.T, treeCtx *tree.Context, label string) tree.NodeID {
	t.Helper()

	for id := range treeCtx.PreOrder() {
		if treeCtx.Label(id) == label {
			return id
		}
	}

	require.Failf(t, "label not found", "label %q", label)

	return tree.NoNode
}

// monoByLabel maps every source node to the destination node with the same
// label, plus the explicit src->dst label pairs in renames.
func monoByLabel(t *testing.T, src, dst *tree.Context, renames map[string]string) *mapping.Mono {
	t.Helper()

	byLabel := make(map[string]tree.NodeID)
	for id := range dst.PreOrder() {
		byLabel[dst.Label(id)] = id
	}

	store := mapping.NewMultiStore(src, dst)

	for id := range src.PreOrder() {
		label := src.Label(id)
		if renamed, ok := renames[label]; ok {
			label = renamed
		}

		if dstID, ok := byLabel[label]; ok {
			require.NoError(t, store.Add(id, dstID))
		}
	}

	return store.ToMono(nil)
}

func generate(t *testing.T, mono *mapping.Mono) editscript.Script {
	t.Helper()

	script, err := editscript.NewGenerator().Generate(mono)
	require.NoError(t, err)

	return script
}

func TestScenarioLeafReplacement(t *testing.T) {
	t.Parallel()

	src := n("A", n("B"), n("C")).Build()
	dst := n("A", n("B"), n("D")).Build()
	mono := monoByLabel(t, src, dst, nil)

	script := generate(t, mono)

	want := editscript.Script{
		editscript.Delete(find(t, src, "C")),
		editscript.Insert(find(t, dst, "D"), find(t, dst, "A"), 1),
	}
	assert.Equal(t, want, script)
}

func TestScenarioSubtreeInsertionIsCollapsed(t *testing.T) {
	t.Parallel()

	src := n("A", n("B")).Build()
	dst := n("A", n("B"), n("D", n("E"), n("F"))).Build()
	mono := monoByLabel(t, src, dst, nil)

	script := generate(t, mono)

	require.Len(t, script, 1)
	assert.Equal(t, editscript.Insert(find(t, dst, "D"), find(t, dst, "A"), 1), script[0])
}

func TestScenarioSubtreeDeletionIsCollapsed(t *testing.T) {
	t.Parallel()

	src := n("A", n("B"), n("D", n("E", n("G")), n("F"))).Build()
	dst := n("A", n("B")).Build()
	mono := monoByLabel(t, src, dst, nil)

	script := generate(t, mono)

	assert.Equal(t, editscript.Script{editscript.Delete(find(t, src, "D"))}, script)
}

func TestScenarioMoveIntoNewParent(t *testing.T) {
	t.Parallel()

	src := n("A", n("B", n("C"))).Build()
	dst := n("A", n("B2", n("C"))).Build()
	mono := monoByLabel(t, src, dst, nil)

	script := generate(t, mono)

	assert.Contains(t, script, editscript.Delete(find(t, src, "B")))
	assert.Contains(t, script, editscript.Insert(find(t, dst, "B2"), find(t, dst, "A"), 0))
	assert.Contains(t, script, editscript.Move(find(t, src, "C"), find(t, dst, "C"), find(t, dst, "B2"), 0))
	assert.Equal(t, 1, script.Count(editscript.ActionDelete))
	assert.Equal(t, 1, script.Count(editscript.ActionInsert))
	assert.Equal(t, 1, script.Count(editscript.ActionMove))
}

func TestUpdateOnLabelChange(t *testing.T) {
	t.Parallel()

	src := n("A", n("x")).Build()
	dst := n("A", n("y")).Build()
	mono := monoByLabel(t, src, dst, map[string]string{"x": "y"})

	script := generate(t, mono)

	assert.Equal(t, editscript.Script{editscript.Update(find(t, src, "x"), find(t, dst, "y"), "y")}, script)
}

func TestIdenticalTreesYieldEmptyScript(t *testing.T) {
	t.Parallel()

	src := n("A", n("B", n("C")), n("D")).Build()
	dst := n("A", n("B", n("C")), n("D")).Build()

	assert.Empty(t, generate(t, monoByLabel(t, src, dst, nil)))
}

func TestReorderUsesSingleMove(t *testing.T) {
	t.Parallel()

	src := n("R", n("a"), n("b"), n("c")).Build()
	dst := n("R", n("c"), n("a"), n("b")).Build()

	script := generate(t, monoByLabel(t, src, dst, nil))

	assert.Equal(t, editscript.Script{
		editscript.Move(find(t, src, "c"), find(t, dst, "c"), find(t, dst, "R"), 0),
	}, script)
}

func TestGenerateRejectsMultiStore(t *testing.T) {
	t.Parallel()

	src := n("A").Build()
	dst := n("A").Build()
	store := mapping.NewMultiStore(src, dst)
	require.NoError(t, store.Add(src.Root(), dst.Root()))

	_, err := editscript.NewGenerator().Generate(store)
	require.ErrorIs(t, err, editscript.ErrAmbiguousMapping)
}

func TestReplayReproducesDestination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src     *tree.Builder
		dst     *tree.Builder
		renames map[string]string
		name    string
	}{
		{
			name: "leaf replacement",
			src:  n("A", n("B"), n("C")),
			dst:  n("A", n("B"), n("D")),
		},
		{
			name: "cross parent swap",
			src:  n("R", n("P", n("x"), n("y")), n("Q", n("z"))),
			dst:  n("R", n("P", n("y")), n("Q", n("z"), n("x"))),
		},
		{
			name: "root replaced",
			src:  n("X", n("a"), n("b")),
			dst:  n("Y", n("b"), n("new"), n("a")),
		},
		{
			name: "root becomes child",
			src:  n("M", n("m1")),
			dst:  n("W", n("M", n("m1")), n("w1")),
		},
		{
			name: "child becomes root",
			src:  n("W", n("M", n("m1")), n("w1")),
			dst:  n("M", n("m1")),
		},
		{
			name:    "renames and moves",
			src:     n("F", n("body", n("s1"), n("s2"), n("s3")), n("old")),
			dst:     n("F", n("fresh"), n("body", n("s3"), n("s1", n("s4")), n("s2"))),
			renames: map[string]string{"old": "fresh"},
		},
		{
			name: "deep nesting with wrapper",
			src:  n("U", n("C1", n("M1", n("k1"), n("k2")), n("M2", n("k3")))),
			dst:  n("U", n("C1", n("M2", n("k3"), n("k1")), n("wrap", n("M1", n("k2"))))),
		},
		{
			name: "nothing mapped",
			src:  n("s", n("s1")),
			dst:  n("d", n("d1", n("d2"))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, dst := tt.src.Build(), tt.dst.Build()
			mono := monoByLabel(t, src, dst, tt.renames)
			before := src.String()

			script := generate(t, mono)

			replayed, err := editscript.Apply(mono, script)
			require.NoError(t, err)
			assert.True(t, tree.IsIsomorphic(replayed, replayed.Root(), dst, dst.Root()),
				"replayed:\n%s\nwant:\n%s\nscript:\n%s", replayed, dst, script.Describe(src, dst))
			assert.Equal(t, before, src.String(), "source tree must not change")
		})
	}
}

func TestReplayEmptyTrees(t *testing.T) {
	t.Parallel()

	src := n("A", n("B")).Build()
	empty := tree.NewContext()

	toEmpty := mapping.NewMultiStore(src, empty).ToMono(nil)
	script := generate(t, toEmpty)
	assert.Equal(t, editscript.Script{editscript.Delete(src.Root())}, script)

	replayed, err := editscript.Apply(toEmpty, script)
	require.NoError(t, err)
	assert.Equal(t, tree.NoNode, replayed.Root())

	fromEmpty := mapping.NewMultiStore(empty, src).ToMono(nil)
	script = generate(t, fromEmpty)
	assert.Equal(t, editscript.Script{editscript.Insert(src.Root(), tree.NoNode, 0)}, script)

	replayed, err = editscript.Apply(fromEmpty, script)
	require.NoError(t, err)
	assert.True(t, tree.IsIsomorphic(replayed, replayed.Root(), src, src.Root()))
}

func TestGenerateRejectsDetachedNodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		detach string
	}{
		{name: "detached destination", detach: "dst"},
		{name: "detached source", detach: "src"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := n("A", n("B")).Build()
			dst := n("A", n("Z")).Build()
			nodeB, nodeZ := find(t, src, "B"), find(t, dst, "Z")

			if tt.detach == "dst" {
				dst.Detach(nodeZ)
			} else {
				src.Detach(nodeB)
			}

			store := mapping.NewMultiStore(src, dst)
			require.NoError(t, store.Add(src.Root(), dst.Root()))
			require.NoError(t, store.Add(nodeB, nodeZ))

			script, err := editscript.NewGenerator().Generate(store.ToMono(nil))
			require.ErrorIs(t, err, editscript.ErrStructuralInconsistency)
			assert.Empty(t, script)
		})
	}
}

func TestApplyRejectsForeignNodes(t *testing.T) {
	t.Parallel()

	src := n("A").Build()
	dst := n("A").Build()
	mono := monoByLabel(t, src, dst, nil)

	_, err := editscript.Apply(mono, editscript.Script{editscript.Delete(tree.NodeID(42))})
	require.ErrorIs(t, err, editscript.ErrStructuralInconsistency)

	_, err = editscript.Apply(mono, editscript.Script{editscript.Insert(dst.Root(), tree.NodeID(42), 0)})
	require.ErrorIs(t, err, editscript.ErrStructuralInconsistency)
}

func TestExtendedGeneratorTranslatesBack(t *testing.T) {
	t.Parallel()

	decl := func(label string, children ...*tree.Builder) *tree.Builder {
		return tree.NewBuilder(tree.KindMethodDeclaration).WithLabel(label).WithChildren(children...)
	}

	src := decl("T", decl("keep", n("body1", n("s1"))), decl("gone", n("body2")))
	dst := decl("T", decl("keep", n("body1", n("s9"))), decl("added", n("body3")))
	srcCtx, dstCtx := src.Build(), dst.Build()

	opaque := tree.NewKindSet(tree.KindBlock)
	prunedSrc, srcBack := tree.DeepCopyPruned(srcCtx, opaque)
	prunedDst, dstBack := tree.DeepCopyPruned(dstCtx, opaque)

	mono := monoByLabel(t, prunedSrc, prunedDst, nil)

	script, err := editscript.NewExtendedGenerator(srcBack, dstBack).Generate(mono)
	require.NoError(t, err)

	assert.Equal(t, editscript.Script{
		editscript.Delete(find(t, srcCtx, "gone")),
		editscript.Insert(find(t, dstCtx, "added"), dstCtx.Root(), 1),
	}, script)

	_, err = editscript.NewExtendedGenerator(srcBack, nil).Generate(mono)
	require.ErrorIs(t, err, editscript.ErrStructuralInconsistency)
}

func TestScriptHelpers(t *testing.T) {
	t.Parallel()

	src := n("A", n("B", n("C"))).Build()
	dst := n("A", n("B2", n("C"))).Build()
	mono := monoByLabel(t, src, dst, nil)

	script := generate(t, mono)

	assert.Equal(t, 3, script.Len())
	assert.Len(t, script.Filter(editscript.ActionMove), 1)
	assert.Empty(t, script.Filter(editscript.ActionUpdate))
	assert.Contains(t, script.Describe(src, dst), "move Block: C")
	assert.Equal(t, "insert", editscript.ActionInsert.String())
	assert.Equal(t, "unknown", editscript.ActionKind(0).String())
}
