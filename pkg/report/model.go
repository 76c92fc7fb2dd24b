// Package report renders structural diffs as colored text tables, JSON or
// YAML.
package report

import (
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/astdiff/pkg/astdiff"
	"github.com/Sumatoshi-tech/astdiff/pkg/editscript"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// Action is the serializable form of one edit action.
type Action struct {
	Kind   string `json:"kind"             yaml:"kind"`
	Node   string `json:"node"             yaml:"node"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Parent string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Pos    int    `json:"pos"              yaml:"pos"`
	Label  string `json:"label,omitempty"  yaml:"label,omitempty"`
	Delta  string `json:"delta,omitempty"  yaml:"delta,omitempty"`
}

// Summary counts actions and classified roots.
type Summary struct {
	Mappings      int `json:"mappings"       yaml:"mappings"`
	Inserts       int `json:"inserts"        yaml:"inserts"`
	Deletes       int `json:"deletes"        yaml:"deletes"`
	Updates       int `json:"updates"        yaml:"updates"`
	Moves         int `json:"moves"          yaml:"moves"`
	InsertedRoots int `json:"inserted_roots" yaml:"inserted_roots"`
	DeletedRoots  int `json:"deleted_roots"  yaml:"deleted_roots"`
	UpdatedRoots  int `json:"updated_roots"  yaml:"updated_roots"`
	MovedRoots    int `json:"moved_roots"    yaml:"moved_roots"`
}

// Diff is the serializable form of one file diff.
type Diff struct {
	SrcPath string   `json:"src_path"       yaml:"src_path"`
	DstPath string   `json:"dst_path"       yaml:"dst_path"`
	Move    bool     `json:"move,omitempty" yaml:"move,omitempty"`
	Summary Summary  `json:"summary"        yaml:"summary"`
	Actions []Action `json:"actions"        yaml:"actions"`
}

// Failure records a discarded pair.
type Failure struct {
	SrcPath string `json:"src_path" yaml:"src_path"`
	DstPath string `json:"dst_path" yaml:"dst_path"`
	Error   string `json:"error"    yaml:"error"`
}

// Project is the serializable form of a project comparison.
type Project struct {
	Diffs     []Diff        `json:"diffs"                yaml:"diffs"`
	MoveDiffs []Diff        `json:"move_diffs,omitempty" yaml:"move_diffs,omitempty"`
	Failures  []Failure     `json:"failures,omitempty"   yaml:"failures,omitempty"`
	Duration  time.Duration `json:"duration_ns"          yaml:"duration_ns"`
}

// FromDiff converts a finalized diff. An unfinalized diff has no actions.
func FromDiff(diff *astdiff.ASTDiff, move bool) Diff {
	src, dst := diff.Src(), diff.Dst()
	script := diff.EditScript()
	classification := diff.Classification()

	out := Diff{
		SrcPath: diff.SrcPath(),
		DstPath: diff.DstPath(),
		Move:    move,
		Summary: Summary{
			Mappings:      diff.AllMappings().Len(),
			Inserts:       script.Count(editscript.ActionInsert),
			Deletes:       script.Count(editscript.ActionDelete),
			Updates:       script.Count(editscript.ActionUpdate),
			Moves:         script.Count(editscript.ActionMove),
			InsertedRoots: len(classification.InsertedDstRoots),
			DeletedRoots:  len(classification.DeletedSrcRoots),
			UpdatedRoots:  len(classification.UpdatedPairRoots),
			MovedRoots:    len(classification.MovedPairRoots),
		},
		Actions: make([]Action, 0, script.Len()),
	}

	for _, action := range script {
		out.Actions = append(out.Actions, fromAction(action, src, dst))
	}

	return out
}

func fromAction(action editscript.Action, src, dst *tree.Context) Action {
	out := Action{Kind: action.Kind.String(), Pos: action.Pos}

	switch action.Kind {
	case editscript.ActionInsert:
		out.Node = dst.Describe(action.Node)
		out.Parent = describeParent(dst, action.Parent)
	case editscript.ActionDelete:
		out.Node = src.Describe(action.Node)
	case editscript.ActionUpdate:
		out.Node = src.Describe(action.Node)
		out.Target = dst.Describe(action.Dst)
		out.Label = action.Label
		out.Delta = LabelDelta(src.Label(action.Node), action.Label)
	case editscript.ActionMove:
		out.Node = src.Describe(action.Node)
		out.Target = dst.Describe(action.Dst)
		out.Parent = describeParent(dst, action.Parent)
	}

	return out
}

func describeParent(dst *tree.Context, parent tree.NodeID) string {
	if parent == tree.NoNode {
		return "<root>"
	}

	return dst.Describe(parent)
}

// FromProject converts a project diff plus the run outcome, if any.
func FromProject(project *astdiff.ProjectASTDiff, run *astdiff.RunReport) Project {
	out := Project{Diffs: make([]Diff, 0)}

	for _, diff := range project.Diffs() {
		out.Diffs = append(out.Diffs, FromDiff(diff, false))
	}

	for _, diff := range project.MoveDiffs() {
		out.MoveDiffs = append(out.MoveDiffs, FromDiff(diff, true))
	}

	if run != nil {
		out.Duration = run.Duration

		for _, failure := range run.Failed {
			out.Failures = append(out.Failures, Failure{
				SrcPath: failure.Key.SrcPath,
				DstPath: failure.Key.DstPath,
				Error:   failure.Err.Error(),
			})
		}
	}

	return out
}

// LabelDelta renders a character-level delta between two labels with
// [-removed-] and {+added+} markers.
func LabelDelta(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	var sb strings.Builder

	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-" + diff.Text + "-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+" + diff.Text + "+}")
		case diffmatchpatch.DiffEqual:
			sb.WriteString(diff.Text)
		}
	}

	return sb.String()
}
