package report_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/astdiff/pkg/astdiff"
	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/report"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

func block(label string, children ...*tree.Builder) *tree.Builder {
	return tree.NewBuilder(tree.KindBlock).WithLabel(label).WithChildren(children...)
}

// renamedDiff maps R->R and foo->food, and leaves "gone" deleted and "new"
// inserted.
func renamedDiff(t *testing.T) *astdiff.ASTDiff {
	t.Helper()

	src := block("R", block("foo"), block("gone")).Build()
	dst := block("R", block("food"), block("new")).Build()

	store := mapping.NewMultiStore(src, dst)
	require.NoError(t, store.Add(src.Root(), dst.Root()))
	require.NoError(t, store.Add(src.Children(src.Root())[0], dst.Children(dst.Root())[0]))

	diff := astdiff.New("a.go", "a.go", store)
	require.NoError(t, diff.ComputeEditScript(nil, nil))

	return diff
}

func TestFromDiff(t *testing.T) {
	t.Parallel()

	rep := report.FromDiff(renamedDiff(t), false)

	assert.Equal(t, "a.go", rep.SrcPath)
	assert.Equal(t, 2, rep.Summary.Mappings)
	assert.Equal(t, 1, rep.Summary.Inserts)
	assert.Equal(t, 1, rep.Summary.Deletes)
	assert.Equal(t, 1, rep.Summary.Updates)
	assert.Zero(t, rep.Summary.Moves)
	assert.Equal(t, 1, rep.Summary.InsertedRoots)
	assert.Equal(t, 1, rep.Summary.DeletedRoots)
	assert.Len(t, rep.Actions, 3)

	var update report.Action

	for _, action := range rep.Actions {
		if action.Kind == "update" {
			update = action
		}
	}

	assert.Equal(t, "food", update.Label)
	assert.Equal(t, "foo{+d+}", update.Delta)
	assert.Contains(t, update.Node, "Block: foo")
	assert.Contains(t, update.Target, "Block: food")
}

func TestFromDiffUnfinalized(t *testing.T) {
	t.Parallel()

	src := block("R").Build()
	dst := block("R").Build()

	rep := report.FromDiff(astdiff.New("x", "y", mapping.NewMultiStore(src, dst)), true)

	assert.True(t, rep.Move)
	assert.Empty(t, rep.Actions)
	assert.Zero(t, rep.Summary.Mappings)
}

func TestFromProject(t *testing.T) {
	t.Parallel()

	project := astdiff.NewProjectASTDiff(nil, nil)
	require.True(t, project.AddDiff(renamedDiff(t)))

	run := &astdiff.RunReport{
		Duration: 1500 * time.Millisecond,
		Failed: []astdiff.PairFailure{
			{Key: astdiff.DiffKey{SrcPath: "b.go", DstPath: "b.go"}, Err: errors.New("boom")},
		},
	}

	rep := report.FromProject(project, run)

	require.Len(t, rep.Diffs, 1)
	assert.Empty(t, rep.MoveDiffs)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "boom", rep.Failures[0].Error)
	assert.Equal(t, 1500*time.Millisecond, rep.Duration)
}

func TestLabelDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		before string
		after  string
		want   string
	}{
		{name: "equal", before: "abc", after: "abc", want: "abc"},
		{name: "append", before: "foo", after: "food", want: "foo{+d+}"},
		{name: "remove", before: "count", after: "cnt", want: "c[-ou-]nt"},
		{name: "replace", before: "x", after: "y", want: "[-x-]{+y+}"},
		{name: "from empty", before: "", after: "v", want: "{+v+}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, report.LabelDelta(tt.before, tt.after))
		})
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	format, err := report.ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, report.FormatJSON, format)

	_, err = report.ParseFormat("xml")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	project := astdiff.NewProjectASTDiff(nil, nil)
	require.True(t, project.AddDiff(renamedDiff(t)))

	rep := report.FromProject(project, &astdiff.RunReport{Duration: 2 * time.Second})

	var buf bytes.Buffer
	require.NoError(t, report.NewRenderer(report.FormatText, true).Render(&buf, rep))

	out := buf.String()
	assert.Contains(t, out, "=== a.go")
	assert.Contains(t, out, "2 mappings | 1 inserts | 1 deletes | 1 updates | 0 moves")
	assert.Contains(t, out, "foo{+d+}")
	assert.Contains(t, out, "Total: 1 files, 0 moved declarations, 3 actions")
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderTextEmptyDiff(t *testing.T) {
	t.Parallel()

	rep := report.Project{Diffs: []report.Diff{{SrcPath: "a", DstPath: "b"}}}

	var buf bytes.Buffer
	require.NoError(t, report.NewRenderer(report.FormatText, true).Render(&buf, rep))

	assert.Contains(t, buf.String(), "=== a -> b")
	assert.Contains(t, buf.String(), "no structural changes")
}

func TestRenderStructured(t *testing.T) {
	t.Parallel()

	rep := report.FromDiff(renamedDiff(t), false)
	project := report.Project{Diffs: []report.Diff{rep}}

	var jsonBuf bytes.Buffer
	require.NoError(t, report.NewRenderer(report.FormatJSON, false).Render(&jsonBuf, project))

	var fromJSON report.Project
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &fromJSON))
	assert.Equal(t, project, fromJSON)

	var yamlBuf bytes.Buffer
	require.NoError(t, report.NewRenderer(report.FormatYAML, false).Render(&yamlBuf, project))
	assert.Contains(t, yamlBuf.String(), "src_path: a.go")

	var fromYAML report.Project
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &fromYAML))
	assert.Equal(t, project.Diffs[0].Summary, fromYAML.Diffs[0].Summary)
}

func TestRenderUnknownFormat(t *testing.T) {
	t.Parallel()

	err := report.NewRenderer(report.Format("xml"), false).Render(&bytes.Buffer{}, report.Project{})
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	format, err := report.ParseFormat("html")
	require.NoError(t, err)

	project := report.Project{Diffs: []report.Diff{report.FromDiff(renamedDiff(t), false)}}

	var buf bytes.Buffer
	require.NoError(t, report.NewRenderer(format, false).Render(&buf, project))

	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "astdiff report")
	assert.Contains(t, out, "Changed files")
	assert.Contains(t, out, "a.go")
	assert.NotContains(t, out, "Moved declarations")
}
