// Package safeconv provides integer conversions that panic on overflow.
package safeconv

import "math"

// MustIntToInt32 converts int to int32, panics on bounds violation.
// Use for arena indices, which never reach 2^31 nodes in practice.
func MustIntToInt32(v int) int32 {
	if v < math.MinInt32 || v > math.MaxInt32 {
		panic("safeconv: int to int32 out of bounds")
	}

	return int32(v)
}

// MustInt64ToUint64 converts int64 to uint64, panics if negative.
// Use for file and blob sizes.
func MustInt64ToUint64(v int64) uint64 {
	if v < 0 {
		panic("safeconv: negative int64 to uint64 conversion")
	}

	return uint64(v)
}

// MustUint64ToInt64 converts uint64 to int64, panics on overflow.
func MustUint64ToInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		panic("safeconv: uint64 to int64 overflow")
	}

	return int64(v)
}
