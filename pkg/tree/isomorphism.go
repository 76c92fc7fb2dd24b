package tree

import (
	"encoding/binary"
	"hash/fnv"
	"strconv"
	"strings"
)

// Hashes returns a structural fingerprint for every node reachable from the
// root, indexed by NodeID. Two isomorphic subtrees share a fingerprint.
// Unreachable arena records keep a zero hash.
func (c *Context) Hashes() []uint64 {
	hashes := make([]uint64, c.Len())
	scratch := make([]byte, binary.MaxVarintLen64)

	for id := range c.PostOrder() {
		hasher := fnv.New64a()
		hasher.Write([]byte(c.TypeName(id)))
		hasher.Write([]byte{0})
		hasher.Write([]byte(c.nodes[id].Label))
		hasher.Write([]byte{0})

		for _, child := range c.nodes[id].Children {
			binary.LittleEndian.PutUint64(scratch, hashes[child])
			hasher.Write(scratch[:8])
		}

		hashes[id] = hasher.Sum64()
	}

	return hashes
}

// IsIsomorphic reports whether the subtree at a in left and the subtree at b
// in right have the same shape, kinds and labels.
func IsIsomorphic(left *Context, a NodeID, right *Context, b NodeID) bool {
	type pair struct{ a, b NodeID }

	stack := []pair{{a, b}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !left.SameType(top.a, right, top.b) || left.nodes[top.a].Label != right.nodes[top.b].Label {
			return false
		}

		leftChildren, rightChildren := left.nodes[top.a].Children, right.nodes[top.b].Children
		if len(leftChildren) != len(rightChildren) {
			return false
		}

		for idx := range leftChildren {
			stack = append(stack, pair{leftChildren[idx], rightChildren[idx]})
		}
	}

	return true
}

// Describe renders id as "Kind: label [start,end)".
func (c *Context) Describe(id NodeID) string {
	if !c.Valid(id) {
		return "<none>"
	}

	var sb strings.Builder

	sb.WriteString(c.TypeName(id))

	if label := c.nodes[id].Label; label != "" {
		sb.WriteString(": ")
		sb.WriteString(label)
	}

	sb.WriteString(" [")
	sb.WriteString(strconv.Itoa(c.nodes[id].Start))
	sb.WriteString(",")
	sb.WriteString(strconv.Itoa(c.nodes[id].End))
	sb.WriteString(")")

	return sb.String()
}

// String renders the tree as an indented outline, one node per line.
func (c *Context) String() string {
	var sb strings.Builder

	for id := range c.PreOrder() {
		sb.WriteString(strings.Repeat("  ", c.Depth(id)))
		sb.WriteString(c.Describe(id))
		sb.WriteString("\n")
	}

	return sb.String()
}
