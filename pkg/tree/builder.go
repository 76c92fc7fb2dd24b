package tree

// Builder assembles a tree description fluently and materializes it into a
// fresh [Context] with [Builder.Build].
//
// Nodes without an explicit range get a synthetic layout: leaves span their
// label, parents span their children plus one separator per child, so ranges
// nest and never overlap between siblings.
type Builder struct {
	kind      Kind
	otherKind string
	label     string
	children  []*Builder
	start     int
	end       int
	hasRange  bool
}

// NewBuilder starts a node of the given kind.
func NewBuilder(kind Kind) *Builder {
	return &Builder{kind: kind}
}

// WithOtherKind turns the node into a KindOther node with a raw kind name.
func (b *Builder) WithOtherKind(name string) *Builder {
	b.kind = KindOther
	b.otherKind = name

	return b
}

// WithLabel sets the node label.
func (b *Builder) WithLabel(label string) *Builder {
	b.label = label

	return b
}

// WithRange pins the node range instead of the synthetic layout.
func (b *Builder) WithRange(start, end int) *Builder {
	b.start, b.end = start, end
	b.hasRange = true

	return b
}

// WithChildren appends children in order.
func (b *Builder) WithChildren(children ...*Builder) *Builder {
	b.children = append(b.children, children...)

	return b
}

// Build materializes the description into a new context rooted at builder.
func (b *Builder) Build() *Context {
	treeCtx := NewContext()
	cursor := 0
	treeCtx.root = b.emit(treeCtx, NoNode, &cursor)

	return treeCtx
}

func (b *Builder) emit(treeCtx *Context, parent NodeID, cursor *int) NodeID {
	id := treeCtx.AddNode(b.kind, b.label, *cursor, *cursor)
	treeCtx.nodes[id].OtherKind = b.otherKind

	if parent != NoNode {
		treeCtx.attachLast(parent, id)
	}

	if b.hasRange {
		*cursor = b.start
	}

	start := *cursor

	for _, child := range b.children {
		child.emit(treeCtx, id, cursor)
		*cursor++
	}

	if len(b.children) == 0 {
		*cursor += max(1, len(b.label))
	}

	treeCtx.nodes[id].Start, treeCtx.nodes[id].End = start, *cursor

	if b.hasRange {
		treeCtx.nodes[id].Start, treeCtx.nodes[id].End = b.start, b.end
		*cursor = b.end
	}

	return id
}
