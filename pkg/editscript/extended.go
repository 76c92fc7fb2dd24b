package editscript

import (
	"fmt"

	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// ExtendedGenerator generates a script over pruned copies of the trees (see
// tree.DeepCopyPruned) and translates every node reference back to the
// original trees through the pruning back-maps.
type ExtendedGenerator struct {
	Generator

	SrcBack tree.BackMap
	DstBack tree.BackMap
}

// NewExtendedGenerator returns a generator for a mapping computed between
// pruned copies whose back-maps are srcBack and dstBack.
func NewExtendedGenerator(srcBack, dstBack tree.BackMap) *ExtendedGenerator {
	return &ExtendedGenerator{SrcBack: srcBack, DstBack: dstBack}
}

// Generate computes the script on the pruned trees of m and translates it.
func (g *ExtendedGenerator) Generate(m mapping.Mapping) (Script, error) {
	pruned, err := g.Generator.Generate(m)
	if err != nil {
		return nil, err
	}

	translated := make(Script, 0, len(pruned))

	for _, action := range pruned {
		converted, err := g.translate(action)
		if err != nil {
			return nil, err
		}

		translated = append(translated, converted)
	}

	return translated, nil
}

func (g *ExtendedGenerator) translate(action Action) (Action, error) {
	var err error

	if action.Kind == ActionInsert {
		action.Node, err = lookupBack(g.DstBack, action.Node)
	} else {
		action.Node, err = lookupBack(g.SrcBack, action.Node)
	}

	if err != nil {
		return action, err
	}

	if action.Dst != tree.NoNode {
		if action.Dst, err = lookupBack(g.DstBack, action.Dst); err != nil {
			return action, err
		}
	}

	if action.Parent != tree.NoNode {
		if action.Parent, err = lookupBack(g.DstBack, action.Parent); err != nil {
			return action, err
		}
	}

	return action, nil
}

func lookupBack(back tree.BackMap, id tree.NodeID) (tree.NodeID, error) {
	original := back.Original(id)
	if original == tree.NoNode {
		return tree.NoNode, fmt.Errorf("translate pruned node %d: %w", id, ErrStructuralInconsistency)
	}

	return original, nil
}
