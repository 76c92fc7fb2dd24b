package tree

// unwrapRule replaces a covering node with a more specific one when the
// wrapper kind only adds syntax around a single child.
type unwrapRule func(treeCtx *Context, id NodeID, start, end int) (NodeID, bool)

//nolint:gochecknoglobals // Immutable rule table.
var unwrapRules = map[Kind]unwrapRule{
	KindMethodInvocationArguments: unwrapSingleExactChild,
}

func unwrapSingleExactChild(treeCtx *Context, id NodeID, start, end int) (NodeID, bool) {
	children := treeCtx.nodes[id].Children
	if len(children) != 1 {
		return NoNode, false
	}

	childStart, childEnd := treeCtx.Range(children[0])
	if childStart != start || childEnd != end {
		return NoNode, false
	}

	return children[0], true
}

func (c *Context) covers(id NodeID, start, end int) bool {
	record := &c.nodes[id]

	return record.Start <= start && end <= record.End
}

// FindCoveringNode returns the innermost node whose range contains
// [start, end): the covering node with the smallest span, the later one in
// pre-order on ties. A found wrapper node is then unwrapped through the rule
// table. When nothing covers the range it returns (NoNode, false).
func FindCoveringNode(treeCtx *Context, start, end int) (NodeID, bool) {
	best := NoNode
	bestSpan := 0

	for id := range treeCtx.PreOrder() {
		if !treeCtx.covers(id, start, end) {
			continue
		}

		span := treeCtx.nodes[id].End - treeCtx.nodes[id].Start
		if best == NoNode || span <= bestSpan {
			best, bestSpan = id, span
		}
	}

	if best == NoNode {
		return NoNode, false
	}

	if rule, ok := unwrapRules[treeCtx.nodes[best].Kind]; ok {
		if unwrapped, applied := rule(treeCtx, best, start, end); applied {
			return unwrapped, true
		}
	}

	return best, true
}

// FindByRangeAndKind returns the first node in pre-order with exactly the
// range [start, end) and the given kind.
func FindByRangeAndKind(treeCtx *Context, start, end int, kind Kind) (NodeID, bool) {
	for id := range treeCtx.PreOrder() {
		record := &treeCtx.nodes[id]
		if record.Start == start && record.End == end && record.Kind == kind {
			return id, true
		}
	}

	return NoNode, false
}

// HighestRealAncestor walks parent links from id and returns the topmost node
// that is still below umbrella. Pass NoNode when the tree has no umbrella.
func (c *Context) HighestRealAncestor(id, umbrella NodeID) NodeID {
	current := id

	for {
		parent := c.nodes[current].Parent
		if parent == NoNode || parent == umbrella {
			return current
		}

		current = parent
	}
}
