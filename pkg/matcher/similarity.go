package matcher

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LabelSimilarity returns 1 - levenshtein/maxLen over runes, in [0, 1].
// Two empty labels are identical.
func LabelSimilarity(left, right string) float64 {
	if left == right {
		return 1
	}

	longest := max(utf8.RuneCountInString(left), utf8.RuneCountInString(right))
	if longest == 0 {
		return 1
	}

	dmp := diffmatchpatch.New()
	distance := dmp.DiffLevenshtein(dmp.DiffMain(left, right, false))

	return 1 - float64(distance)/float64(longest)
}

// diceCoefficient is 2|common| / (|left| + |right|); zero when both are empty.
func diceCoefficient(common, left, right int) float64 {
	if left+right == 0 {
		return 0
	}

	return 2 * float64(common) / float64(left+right)
}
