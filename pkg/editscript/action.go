// Package editscript turns a 1:1 node mapping between two trees into an
// ordered, replayable list of insert, delete, update and move actions.
package editscript

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// Sentinel errors.
var (
	// ErrAmbiguousMapping is returned when the generator receives a mapping
	// that has not been reduced with ToMono.
	ErrAmbiguousMapping = errors.New("ambiguous mapping: reduce with ToMono first")
	// ErrStructuralInconsistency is shared with the mapping package.
	ErrStructuralInconsistency = mapping.ErrStructuralInconsistency
)

// ActionKind tags an Action.
type ActionKind uint8

// Action kinds.
const (
	ActionInsert ActionKind = iota + 1
	ActionDelete
	ActionUpdate
	ActionMove
)

// String returns the lower-case action name.
func (k ActionKind) String() string {
	switch k {
	case ActionInsert:
		return "insert"
	case ActionDelete:
		return "delete"
	case ActionUpdate:
		return "update"
	case ActionMove:
		return "move"
	default:
		return "unknown"
	}
}

// Action is one edit step. Field meaning depends on Kind:
//
//   - Insert: Node is the destination node (the root of the inserted subtree
//     when its whole subtree is new), Parent its destination parent, Pos the
//     index among the parent's current children.
//   - Delete: Node is the source node (root of a fully removed subtree).
//   - Update: Node is the source node, Dst its partner, Label the new label.
//   - Move: Node is the source node, Dst its partner, Parent the destination
//     parent it moves under and Pos its new index.
//
// Parent is NoNode when the node becomes the tree root.
type Action struct {
	Label  string
	Kind   ActionKind
	Node   tree.NodeID
	Dst    tree.NodeID
	Parent tree.NodeID
	Pos    int
}

// Insert builds an insert action.
func Insert(dstNode, dstParent tree.NodeID, pos int) Action {
	return Action{Kind: ActionInsert, Node: dstNode, Dst: tree.NoNode, Parent: dstParent, Pos: pos}
}

// Delete builds a delete action.
func Delete(srcNode tree.NodeID) Action {
	return Action{Kind: ActionDelete, Node: srcNode, Dst: tree.NoNode, Parent: tree.NoNode}
}

// Update builds an update action.
func Update(srcNode, dstNode tree.NodeID, label string) Action {
	return Action{Kind: ActionUpdate, Node: srcNode, Dst: dstNode, Parent: tree.NoNode, Label: label}
}

// Move builds a move action.
func Move(srcNode, dstNode, dstParent tree.NodeID, pos int) Action {
	return Action{Kind: ActionMove, Node: srcNode, Dst: dstNode, Parent: dstParent, Pos: pos}
}

// Describe renders the action against its trees.
func (a Action) Describe(src, dst *tree.Context) string {
	switch a.Kind {
	case ActionInsert:
		return fmt.Sprintf("insert %s into %s at %d",
			dst.Describe(a.Node), dst.Describe(a.Parent), a.Pos)
	case ActionDelete:
		return "delete " + src.Describe(a.Node)
	case ActionUpdate:
		return fmt.Sprintf("update %s to %q", src.Describe(a.Node), a.Label)
	case ActionMove:
		return fmt.Sprintf("move %s into %s at %d",
			src.Describe(a.Node), dst.Describe(a.Parent), a.Pos)
	default:
		return a.Kind.String()
	}
}

// Script is an ordered edit script.
type Script []Action

// Len returns the number of actions.
func (s Script) Len() int {
	return len(s)
}

// Count returns the number of actions of kind.
func (s Script) Count(kind ActionKind) int {
	count := 0

	for _, action := range s {
		if action.Kind == kind {
			count++
		}
	}

	return count
}

// Filter returns the actions of kind in script order.
func (s Script) Filter(kind ActionKind) Script {
	var out Script

	for _, action := range s {
		if action.Kind == kind {
			out = append(out, action)
		}
	}

	return out
}

// Describe renders the script one action per line.
func (s Script) Describe(src, dst *tree.Context) string {
	var sb strings.Builder

	for _, action := range s {
		sb.WriteString(action.Describe(src, dst))
		sb.WriteString("\n")
	}

	return sb.String()
}
