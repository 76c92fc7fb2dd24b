package tree

// Umbrella groups several independent trees under one synthetic root so they
// can be traversed and matched as a single tree.
type Umbrella struct {
	// Ctx holds the copies of all grouped trees below Ctx.Root().
	Ctx *Context
	// Origins maps every node of Ctx except the synthetic root to its source.
	Origins []Ref
}

// NewUmbrella copies the trees of ctxs, in order, below a fresh KindSynthetic
// root. Empty contexts are skipped.
func NewUmbrella(ctxs ...*Context) *Umbrella {
	group := NewContext()
	root := group.AddNode(KindSynthetic, "", 0, 0)
	group.root = root

	origins := []Ref{{Ctx: group.id, Node: NoNode}}
	end := 0

	for _, member := range ctxs {
		if member.root == NoNode {
			continue
		}

		copied, back := DeepCopyPruned(member, nil)
		offset := NodeID(group.Len())

		for idx := range copied.nodes {
			record := copied.nodes[idx]
			record.Children = shiftIDs(record.Children, offset)

			if record.Parent == NoNode {
				record.Parent = root
			} else {
				record.Parent += offset
			}

			group.nodes = append(group.nodes, record)
			origins = append(origins, member.Ref(back[idx]))
		}

		group.nodes[root].Children = append(group.nodes[root].Children, copied.root+offset)
		end = max(end, copied.nodes[copied.root].End)
	}

	group.nodes[root].End = end

	return &Umbrella{Ctx: group, Origins: origins}
}

// IsSynthetic reports whether id is the umbrella root.
func (u *Umbrella) IsSynthetic(id NodeID) bool {
	return id == u.Ctx.root
}

// Origin returns the source reference of id. The synthetic root has none.
func (u *Umbrella) Origin(id NodeID) (Ref, bool) {
	if u.IsSynthetic(id) || !u.Ctx.Valid(id) {
		return Ref{}, false
	}

	return u.Origins[id], true
}

// RealRoot returns the top of the grouped tree that contains id.
func (u *Umbrella) RealRoot(id NodeID) NodeID {
	return u.Ctx.HighestRealAncestor(id, u.Ctx.root)
}

func shiftIDs(ids []NodeID, offset NodeID) []NodeID {
	shifted := make([]NodeID, len(ids))

	for idx, id := range ids {
		shifted[idx] = id + offset
	}

	return shifted
}
