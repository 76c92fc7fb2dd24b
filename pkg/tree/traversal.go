package tree

import "iter"

// PreOrder yields every node reachable from the root, parents before children.
func (c *Context) PreOrder() iter.Seq[NodeID] {
	return c.PreOrderFrom(c.root)
}

// PreOrderFrom yields the subtree rooted at id in pre-order. The sequence is
// restartable; each range over it walks the tree again.
func (c *Context) PreOrderFrom(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		if !c.Valid(id) {
			return
		}

		stack := []NodeID{id}

		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if !yield(current) {
				return
			}

			children := c.nodes[current].Children
			for idx := len(children) - 1; idx >= 0; idx-- {
				stack = append(stack, children[idx])
			}
		}
	}
}

// PostOrder yields every node reachable from the root, children before parents.
func (c *Context) PostOrder() iter.Seq[NodeID] {
	return c.PostOrderFrom(c.root)
}

// PostOrderFrom yields the subtree rooted at id in post-order.
func (c *Context) PostOrderFrom(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		if !c.Valid(id) {
			return
		}

		type frame struct {
			node NodeID
			next int
		}

		stack := []frame{{node: id}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := c.nodes[top.node].Children

			if top.next < len(children) {
				child := children[top.next]
				top.next++
				stack = append(stack, frame{node: child})

				continue
			}

			stack = stack[:len(stack)-1]

			if !yield(top.node) {
				return
			}
		}
	}
}

// BreadthFirst yields the subtree rooted at id level by level.
func (c *Context) BreadthFirst(id NodeID) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		if !c.Valid(id) {
			return
		}

		queue := []NodeID{id}

		for head := 0; head < len(queue); head++ {
			current := queue[head]

			if !yield(current) {
				return
			}

			queue = append(queue, c.nodes[current].Children...)
		}
	}
}

// Descendants returns all proper descendants of id in pre-order.
func (c *Context) Descendants(id NodeID) []NodeID {
	var out []NodeID

	for node := range c.PreOrderFrom(id) {
		if node != id {
			out = append(out, node)
		}
	}

	return out
}

// Size returns the number of nodes in the subtree rooted at id.
func (c *Context) Size(id NodeID) int {
	count := 0

	for range c.PreOrderFrom(id) {
		count++
	}

	return count
}

// Depth returns the number of edges between id and its root.
func (c *Context) Depth(id NodeID) int {
	depth := 0

	for parent := c.nodes[id].Parent; parent != NoNode; parent = c.nodes[parent].Parent {
		depth++
	}

	return depth
}

// Height returns 1 for a leaf, otherwise one more than the tallest child.
func (c *Context) Height(id NodeID) int {
	heights := make(map[NodeID]int)

	for node := range c.PostOrderFrom(id) {
		tallest := 0

		for _, child := range c.nodes[node].Children {
			tallest = max(tallest, heights[child])
		}

		heights[node] = tallest + 1
	}

	return heights[id]
}

// IsAncestor reports whether ancestor is a proper ancestor of id.
func (c *Context) IsAncestor(ancestor, id NodeID) bool {
	for parent := c.nodes[id].Parent; parent != NoNode; parent = c.nodes[parent].Parent {
		if parent == ancestor {
			return true
		}
	}

	return false
}

// Ancestors returns the proper ancestors of id, nearest first.
func (c *Context) Ancestors(id NodeID) []NodeID {
	var out []NodeID

	for parent := c.nodes[id].Parent; parent != NoNode; parent = c.nodes[parent].Parent {
		out = append(out, parent)
	}

	return out
}

// Heights returns Height for every node of the tree, indexed by NodeID.
// Nodes detached from the root keep zero.
func (c *Context) Heights() []int {
	heights := make([]int, len(c.nodes))

	for node := range c.PostOrder() {
		tallest := 0

		for _, child := range c.nodes[node].Children {
			tallest = max(tallest, heights[child])
		}

		heights[node] = tallest + 1
	}

	return heights
}
