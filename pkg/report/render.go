package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/astdiff/pkg/editscript"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Format selects the output encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch format := Format(strings.ToLower(name)); format {
	case FormatText, FormatJSON, FormatYAML, FormatHTML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Renderer writes reports in one format.
type Renderer struct {
	format  Format
	noColor bool
}

// NewRenderer creates a renderer. noColor only affects text output.
func NewRenderer(format Format, noColor bool) *Renderer {
	return &Renderer{format: format, noColor: noColor}
}

// Render writes a project report.
func (r *Renderer) Render(w io.Writer, rep Project) error {
	switch r.format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(rep); err != nil {
			return fmt.Errorf("encode json report: %w", err)
		}

		return nil
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()

		if err := encoder.Encode(rep); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}

		return nil
	case FormatText:
		_, err := io.WriteString(w, r.text(rep))
		if err != nil {
			return fmt.Errorf("write text report: %w", err)
		}

		return nil
	case FormatHTML:
		return r.html(w, rep)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, r.format)
	}
}

func (r *Renderer) paint(attrs ...color.Attribute) func(a ...any) string {
	painter := color.New(attrs...)
	if r.noColor {
		painter.DisableColor()
	} else {
		painter.EnableColor()
	}

	return painter.SprintFunc()
}

func (r *Renderer) kindPainter(kind string) func(a ...any) string {
	switch kind {
	case editscript.ActionInsert.String():
		return r.paint(color.FgGreen)
	case editscript.ActionDelete.String():
		return r.paint(color.FgRed)
	case editscript.ActionUpdate.String():
		return r.paint(color.FgYellow)
	default:
		return r.paint(color.FgCyan)
	}
}

func (r *Renderer) text(rep Project) string {
	var parts []string

	header := r.paint(color.Bold)

	for _, diff := range rep.Diffs {
		parts = append(parts, r.diffText(diff, header))
	}

	for _, diff := range rep.MoveDiffs {
		parts = append(parts, r.diffText(diff, header))
	}

	if len(rep.Failures) > 0 {
		failed := r.paint(color.FgRed)

		lines := make([]string, 0, len(rep.Failures)+1)
		lines = append(lines, header("Failures"))

		for _, failure := range rep.Failures {
			lines = append(lines, failed(fmt.Sprintf("  %s: %s", pairName(failure.SrcPath, failure.DstPath), failure.Error)))
		}

		parts = append(parts, strings.Join(lines, "\n"))
	}

	parts = append(parts, r.totals(rep))

	return strings.Join(parts, "\n\n") + "\n"
}

func (r *Renderer) diffText(diff Diff, header func(a ...any) string) string {
	title := "=== " + pairName(diff.SrcPath, diff.DstPath)
	if diff.Move {
		title += " (moved)"
	}

	summary := fmt.Sprintf("%s mappings | %s inserts | %s deletes | %s updates | %s moves",
		humanize.Comma(int64(diff.Summary.Mappings)),
		humanize.Comma(int64(diff.Summary.Inserts)),
		humanize.Comma(int64(diff.Summary.Deletes)),
		humanize.Comma(int64(diff.Summary.Updates)),
		humanize.Comma(int64(diff.Summary.Moves)),
	)

	if len(diff.Actions) == 0 {
		return header(title) + "\n" + summary + "\nno structural changes"
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	tbl.AppendHeader(table.Row{"Kind", "Node", "Target", "Detail"})

	for _, action := range diff.Actions {
		tbl.AppendRow(table.Row{
			r.kindPainter(action.Kind)(action.Kind),
			action.Node,
			actionTarget(action),
			actionDetail(action),
		})
	}

	return header(title) + "\n" + summary + "\n" + tbl.Render()
}

func actionTarget(action Action) string {
	if action.Parent != "" {
		return fmt.Sprintf("%s @%d", action.Parent, action.Pos)
	}

	return action.Target
}

func actionDetail(action Action) string {
	if action.Delta != "" {
		return action.Delta
	}

	return action.Label
}

func (r *Renderer) totals(rep Project) string {
	var actions, roots int

	for _, diff := range append(append([]Diff(nil), rep.Diffs...), rep.MoveDiffs...) {
		actions += diff.Summary.Inserts + diff.Summary.Deletes + diff.Summary.Updates + diff.Summary.Moves
		roots += diff.Summary.InsertedRoots + diff.Summary.DeletedRoots + diff.Summary.UpdatedRoots + diff.Summary.MovedRoots
	}

	line := fmt.Sprintf("Total: %s files, %s moved declarations, %s actions, %s changed roots",
		humanize.Comma(int64(len(rep.Diffs))),
		humanize.Comma(int64(len(rep.MoveDiffs))),
		humanize.Comma(int64(actions)),
		humanize.Comma(int64(roots)),
	)

	if rep.Duration > 0 {
		line += " in " + humanize.SIWithDigits(rep.Duration.Seconds(), 1, "s")
	}

	return line
}

func pairName(srcPath, dstPath string) string {
	if srcPath == dstPath {
		return srcPath
	}

	return srcPath + " -> " + dstPath
}
