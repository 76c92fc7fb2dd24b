package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/astdiff/pkg/safeconv"
)

func TestMustIntToInt32(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int32(42), safeconv.MustIntToInt32(42))
	assert.Equal(t, int32(-1), safeconv.MustIntToInt32(-1))
	assert.Equal(t, int32(math.MaxInt32), safeconv.MustIntToInt32(math.MaxInt32))

	assert.PanicsWithValue(t, "safeconv: int to int32 out of bounds", func() {
		safeconv.MustIntToInt32(math.MaxInt32 + 1)
	})
}

func TestMustInt64ToUint64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0), safeconv.MustInt64ToUint64(0))
	assert.Equal(t, uint64(math.MaxInt64), safeconv.MustInt64ToUint64(math.MaxInt64))

	assert.PanicsWithValue(t, "safeconv: negative int64 to uint64 conversion", func() {
		safeconv.MustInt64ToUint64(-1)
	})
}

func TestMustUint64ToInt64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(7), safeconv.MustUint64ToInt64(7))

	assert.PanicsWithValue(t, "safeconv: uint64 to int64 overflow", func() {
		safeconv.MustUint64ToInt64(math.MaxInt64 + 1)
	})
}
