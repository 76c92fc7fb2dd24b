// Package tree provides the arena-backed syntax tree model used by the diff
// engine: node storage, traversal, range lookup, pruning and umbrella roots.
package tree

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Sumatoshi-tech/astdiff/pkg/safeconv"
)

// NodeID indexes a node inside the arena of its [Context].
type NodeID int32

// NoNode marks an absent node: the parent of a root, or a failed lookup.
const NoNode NodeID = -1

// ContextID identifies a [Context] for the lifetime of the process.
type ContextID uint64

// ErrNodeOutOfRange is returned when a NodeID does not belong to the arena.
var ErrNodeOutOfRange = errors.New("node out of range")

//nolint:gochecknoglobals // Process-wide context ID sequence.
var contextSeq atomic.Uint64

// Node is a single arena record.
type Node struct {
	Kind      Kind
	OtherKind string
	Label     string
	Start     int
	End       int
	Parent    NodeID
	Children  []NodeID
}

// Ref is a non-owning reference to a node of a specific context.
type Ref struct {
	Ctx  ContextID
	Node NodeID
}

// Context owns a tree's node arena. Nodes are addressed by NodeID and never
// move; detached nodes stay in the arena but are unreachable from the root.
type Context struct {
	nodes []Node
	id    ContextID
	root  NodeID
}

// NewContext creates an empty context with a fresh ID.
func NewContext() *Context {
	return &Context{
		id:   ContextID(contextSeq.Add(1)),
		root: NoNode,
	}
}

// ID returns the process-unique identifier of the context.
func (c *Context) ID() ContextID {
	return c.id
}

// Root returns the root node, or NoNode for an empty context.
func (c *Context) Root() NodeID {
	return c.root
}

// SetRoot makes id the root of the tree. The node is detached from any parent.
func (c *Context) SetRoot(id NodeID) error {
	if !c.Valid(id) {
		return fmt.Errorf("set root %d: %w", id, ErrNodeOutOfRange)
	}

	c.Detach(id)
	c.root = id

	return nil
}

// Len returns the number of arena records, including detached ones.
func (c *Context) Len() int {
	return len(c.nodes)
}

// Valid reports whether id addresses a record of this arena.
func (c *Context) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(c.nodes)
}

// Ref returns a cross-tree reference to id.
func (c *Context) Ref(id NodeID) Ref {
	return Ref{Ctx: c.id, Node: id}
}

// Owns reports whether ref points into this context.
func (c *Context) Owns(ref Ref) bool {
	return ref.Ctx == c.id && c.Valid(ref.Node)
}

// Node returns a copy of the record for id. The Children slice is shared with
// the arena and must not be modified.
func (c *Context) Node(id NodeID) Node {
	return c.nodes[id]
}

// Kind returns the kind of id.
func (c *Context) Kind(id NodeID) Kind {
	return c.nodes[id].Kind
}

// TypeName returns the kind name of id, using the raw name for KindOther.
func (c *Context) TypeName(id NodeID) string {
	record := &c.nodes[id]
	if record.Kind == KindOther && record.OtherKind != "" {
		return record.OtherKind
	}

	return record.Kind.String()
}

// Label returns the label of id.
func (c *Context) Label(id NodeID) string {
	return c.nodes[id].Label
}

// Range returns the [start, end) byte range of id.
func (c *Context) Range(id NodeID) (start, end int) {
	record := &c.nodes[id]

	return record.Start, record.End
}

// Parent returns the parent of id, or NoNode for a root or detached node.
func (c *Context) Parent(id NodeID) NodeID {
	return c.nodes[id].Parent
}

// Children returns the ordered children of id. The slice must not be modified.
func (c *Context) Children(id NodeID) []NodeID {
	return c.nodes[id].Children
}

// ChildIndex returns the position of id among its siblings, or -1 when detached.
func (c *Context) ChildIndex(id NodeID) int {
	parent := c.nodes[id].Parent
	if parent == NoNode {
		return -1
	}

	for idx, child := range c.nodes[parent].Children {
		if child == id {
			return idx
		}
	}

	return -1
}

// IsLeaf reports whether id has no children.
func (c *Context) IsLeaf(id NodeID) bool {
	return len(c.nodes[id].Children) == 0
}

// SameType reports whether a in treeCtx and b in other have the same kind,
// comparing raw names for KindOther.
func (c *Context) SameType(a NodeID, other *Context, b NodeID) bool {
	left, right := &c.nodes[a], &other.nodes[b]
	if left.Kind != right.Kind {
		return false
	}

	return left.Kind != KindOther || left.OtherKind == right.OtherKind
}

// AddNode appends a detached node to the arena and returns its ID.
func (c *Context) AddNode(kind Kind, label string, start, end int) NodeID {
	c.nodes = append(c.nodes, Node{
		Kind:   kind,
		Label:  label,
		Start:  start,
		End:    end,
		Parent: NoNode,
	})

	return NodeID(safeconv.MustIntToInt32(len(c.nodes) - 1))
}

// AddOtherNode appends a detached KindOther node carrying its raw kind name.
func (c *Context) AddOtherNode(kindName, label string, start, end int) NodeID {
	id := c.AddNode(KindOther, label, start, end)
	c.nodes[id].OtherKind = kindName

	return id
}

// CopyNode appends a detached copy of node id of other (kind, label, range).
func (c *Context) CopyNode(other *Context, id NodeID) NodeID {
	record := &other.nodes[id]
	copied := c.AddNode(record.Kind, record.Label, record.Start, record.End)
	c.nodes[copied].OtherKind = record.OtherKind

	return copied
}

// SetLabel replaces the label of id.
func (c *Context) SetLabel(id NodeID, label string) {
	c.nodes[id].Label = label
}

// AddChild appends child as the last child of parent.
func (c *Context) AddChild(parent, child NodeID) error {
	return c.InsertChild(parent, child, len(c.nodes[parent].Children))
}

// InsertChild attaches child under parent at position pos, detaching it from
// its previous parent first. pos is clamped to the valid range.
func (c *Context) InsertChild(parent, child NodeID, pos int) error {
	if !c.Valid(parent) || !c.Valid(child) {
		return fmt.Errorf("insert %d under %d: %w", child, parent, ErrNodeOutOfRange)
	}

	c.Detach(child)

	children := c.nodes[parent].Children
	pos = max(0, min(pos, len(children)))

	grown := make([]NodeID, 0, len(children)+1)
	grown = append(grown, children[:pos]...)
	grown = append(grown, child)
	grown = append(grown, children[pos:]...)

	c.nodes[parent].Children = grown
	c.nodes[child].Parent = parent

	return nil
}

// Attached reports whether id is reachable from the root. Detached records
// stay in the arena but are no longer part of the tree.
func (c *Context) Attached(id NodeID) bool {
	if !c.Valid(id) || c.root == NoNode {
		return false
	}

	for id != c.root {
		id = c.nodes[id].Parent
		if id == NoNode {
			return false
		}
	}

	return true
}

// Detach unlinks id from its parent. Detaching the root empties the tree.
func (c *Context) Detach(id NodeID) {
	if id == c.root {
		c.root = NoNode

		return
	}

	parent := c.nodes[id].Parent
	if parent == NoNode {
		return
	}

	children := c.nodes[parent].Children
	kept := make([]NodeID, 0, len(children))

	for _, child := range children {
		if child != id {
			kept = append(kept, child)
		}
	}

	c.nodes[parent].Children = kept
	c.nodes[id].Parent = NoNode
}

// Clone returns a deep copy with a fresh ID. Node IDs are preserved, so a
// NodeID of treeCtx addresses the same node in the clone.
func (c *Context) Clone() *Context {
	cloned := NewContext()
	cloned.root = c.root
	cloned.nodes = make([]Node, len(c.nodes))

	for idx := range c.nodes {
		record := c.nodes[idx]
		record.Children = append([]NodeID(nil), record.Children...)
		cloned.nodes[idx] = record
	}

	return cloned
}
