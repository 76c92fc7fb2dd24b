package editscript

import (
	"github.com/Sumatoshi-tech/astdiff/pkg/mapping"
	"github.com/Sumatoshi-tech/astdiff/pkg/tree"
)

// longestCommonSubsequence returns the matched (left, right) pairs of a
// longest common subsequence of left and right under equal, in order.
func longestCommonSubsequence(left, right []tree.NodeID, equal func(a, b tree.NodeID) bool) []mapping.Pair {
	rows, cols := len(left), len(right)
	if rows == 0 || cols == 0 {
		return nil
	}

	table := make([][]int, rows+1)
	for idx := range table {
		table[idx] = make([]int, cols+1)
	}

	for row := rows - 1; row >= 0; row-- {
		for col := cols - 1; col >= 0; col-- {
			if equal(left[row], right[col]) {
				table[row][col] = table[row+1][col+1] + 1
			} else {
				table[row][col] = max(table[row+1][col], table[row][col+1])
			}
		}
	}

	pairs := make([]mapping.Pair, 0, table[0][0])

	for row, col := 0, 0; row < rows && col < cols; {
		switch {
		case equal(left[row], right[col]):
			pairs = append(pairs, mapping.Pair{Src: left[row], Dst: right[col]})
			row++
			col++
		case table[row+1][col] >= table[row][col+1]:
			row++
		default:
			col++
		}
	}

	return pairs
}
