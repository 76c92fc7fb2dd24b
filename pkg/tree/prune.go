package tree

// BackMap translates node IDs of a derived context back to the context it was
// copied from. Index is the derived NodeID.
type BackMap []NodeID

// Original returns the source node for id, or NoNode when id is unknown.
func (b BackMap) Original(id NodeID) NodeID {
	if id < 0 || int(id) >= len(b) {
		return NoNode
	}

	return b[id]
}

// DeepCopyPruned copies the tree of treeCtx into a fresh context. A subtree
// rooted at a kind in opaque is replaced by a childless placeholder that keeps
// the kind, label and range. Anonymous class bodies are always copied as
// opaque leaves. The returned BackMap maps every copy node to its original.
func DeepCopyPruned(treeCtx *Context, opaque KindSet) (*Context, BackMap) {
	pruned := NewContext()
	back := make(BackMap, 0, treeCtx.Len())

	if treeCtx.root == NoNode {
		return pruned, back
	}

	type pending struct {
		original NodeID
		parent   NodeID
	}

	stack := []pending{{original: treeCtx.root, parent: NoNode}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		copied := pruned.CopyNode(treeCtx, item.original)
		back = append(back, item.original)

		if item.parent == NoNode {
			pruned.root = copied
		} else {
			pruned.attachLast(item.parent, copied)
		}

		if isOpaque(treeCtx.nodes[item.original].Kind, opaque) {
			continue
		}

		children := treeCtx.nodes[item.original].Children
		for idx := len(children) - 1; idx >= 0; idx-- {
			stack = append(stack, pending{original: children[idx], parent: copied})
		}
	}

	return pruned, back
}

func isOpaque(kind Kind, opaque KindSet) bool {
	return kind == KindAnonymousClassDeclaration || opaque.Has(kind)
}

// attachLast links a freshly created node without the detach bookkeeping.
func (c *Context) attachLast(parent, child NodeID) {
	c.nodes[parent].Children = append(c.nodes[parent].Children, child)
	c.nodes[child].Parent = parent
}
