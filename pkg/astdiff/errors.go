package astdiff

import (
	"errors"

	"github.com/Sumatoshi-tech/astdiff/pkg/editscript"
	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// ErrAlreadyFinalized is returned when an edit script is set twice, or when
// mappings are merged into a diff whose script is already fixed.
var ErrAlreadyFinalized = errors.New("ast diff already finalized")

// ErrNilMapping is returned when Finalize receives no mono mapping.
var ErrNilMapping = errors.New("nil mono mapping")

// Re-exported sentinels, so callers can match every failure of this package
// without importing the lower layers.
var (
	ErrNodeOutOfRange          = tree.ErrNodeOutOfRange
	ErrStructuralInconsistency = mapping.ErrStructuralInconsistency
	ErrAmbiguousMapping        = editscript.ErrAmbiguousMapping
)
