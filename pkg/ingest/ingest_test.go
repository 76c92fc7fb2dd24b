package ingest_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/astdiff/pkg/ingest"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

func findKind(treeCtx *tree.Context, kind tree.Kind, label string) (tree.NodeID, bool) {
	for id := range treeCtx.PreOrder() {
		if treeCtx.Kind(id) == kind && treeCtx.Label(id) == label {
			return id, true
		}
	}

	return tree.NoNode, false
}

func TestParseGo(t *testing.T) {
	t.Parallel()

	src := []byte("package main\n\nfunc add(a, b int) int {\n\treturn a + b\n}\n")

	treeCtx, err := ingest.NewParser().Parse(context.Background(), "main.go", src)
	require.NoError(t, err)

	assert.Equal(t, tree.KindCompilationUnit, treeCtx.Kind(treeCtx.Root()))

	name, ok := findKind(treeCtx, tree.KindSimpleName, "add")
	require.True(t, ok)
	assert.Equal(t, tree.KindMethodDeclaration, treeCtx.Kind(treeCtx.Parent(name)))

	sum, ok := findKind(treeCtx, tree.KindInfixExpression, "+")
	require.True(t, ok)

	start, end := treeCtx.Range(sum)
	assert.Equal(t, "a + b", string(src[start:end]))

	_, ok = findKind(treeCtx, tree.KindReturnStatement, "")
	assert.True(t, ok)
}

func TestParseJavaWrapsReceiver(t *testing.T) {
	t.Parallel()

	src := []byte("class A { void m() { foo.bar(1); } }")

	treeCtx, err := ingest.NewParser().Parse(context.Background(), "A.java", src)
	require.NoError(t, err)

	receiver, ok := findKind(treeCtx, tree.KindMethodInvocationReceiver, "")
	require.True(t, ok)
	assert.Equal(t, tree.KindMethodInvocation, treeCtx.Kind(treeCtx.Parent(receiver)))

	children := treeCtx.Children(receiver)
	require.Len(t, children, 1)
	assert.Equal(t, "foo", treeCtx.Label(children[0]))

	_, ok = findKind(treeCtx, tree.KindTypeDeclaration, "")
	assert.True(t, ok)

	_, ok = findKind(treeCtx, tree.KindNumberLiteral, "1")
	assert.True(t, ok)
}

func TestParseReusesPooledParsers(t *testing.T) {
	t.Parallel()

	parser := ingest.NewParser()

	for range 3 {
		treeCtx, err := parser.ParseLanguage(context.Background(), "go", []byte("package p\n"))
		require.NoError(t, err)
		assert.Positive(t, treeCtx.Len())
	}
}

func TestParseUnsupported(t *testing.T) {
	t.Parallel()

	parser := ingest.NewParser()

	_, err := parser.ParseLanguage(context.Background(), "no-such-grammar", []byte("x"))
	require.ErrorIs(t, err, ingest.ErrUnsupportedLanguage)

	_, err = parser.Parse(context.Background(), "data.zzz9", nil)
	require.ErrorIs(t, err, ingest.ErrUnsupportedLanguage)

	_, err = parser.Parse(context.Background(), "main.go", []byte("package main\x00\x01\x02"))
	require.ErrorIs(t, err, ingest.ErrBinaryContent)
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{filename: "cmd/main.go", want: "go"},
		{filename: "src/A.java", want: "java"},
		{filename: "Program.cs", want: "c_sharp"},
		{filename: "data.zzz9", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ingest.DetectLanguage(tt.filename, nil))
		})
	}

	assert.True(t, ingest.Supported("main.go"))
	assert.False(t, ingest.Supported("data.zzz9"))
	assert.True(t, ingest.IsVendor("vendor/github.com/x/y.go"))
	assert.False(t, ingest.IsVendor("pkg/tree/context.go"))
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	doc := `{
		"root": {"type": "Block", "pos": 0, "length": 10, "children": [
			{"type": "SimpleName", "label": "x", "pos": 0, "length": 1},
			{"type": "go_statement", "label": "go", "pos": 2, "length": 2}
		]}
	}`

	treeCtx, err := ingest.LoadJSON(strings.NewReader(doc))
	require.NoError(t, err)

	root := treeCtx.Root()
	assert.Equal(t, tree.KindBlock, treeCtx.Kind(root))

	children := treeCtx.Children(root)
	require.Len(t, children, 2)
	assert.Equal(t, tree.KindSimpleName, treeCtx.Kind(children[0]))
	assert.Equal(t, tree.KindOther, treeCtx.Kind(children[1]))
	assert.Equal(t, "go_statement", treeCtx.TypeName(children[1]))

	start, end := treeCtx.Range(children[1])
	assert.Equal(t, 2, start)
	assert.Equal(t, 4, end)

	back := ingest.NewDocument(treeCtx)
	assert.Equal(t, "go_statement", back.Root.Children[1].Type)
	assert.Equal(t, 10, back.Root.Length)
}

func TestLoadJSONRejectsInvalidDocuments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing root", doc: `{}`},
		{name: "missing type", doc: `{"root": {"label": "x"}}`},
		{name: "negative pos", doc: `{"root": {"type": "Block", "pos": -1}}`},
		{name: "unknown field", doc: `{"root": {"type": "Block", "kind": "x"}}`},
		{name: "not json", doc: `{"root":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ingest.LoadJSON(strings.NewReader(tt.doc))
			require.ErrorIs(t, err, ingest.ErrInvalidDocument)
		})
	}
}
