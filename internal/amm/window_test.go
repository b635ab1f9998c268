package amm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 窗口为 [0, ∞) 时，窗口内数量必须等于总可撤出数量
func TestSplitByWindow_UnboundedIdempotence(t *testing.T) {
	liquidity := d("1000000")
	left := PriceSqrtFromTick(-50)
	right := PriceSqrtFromTick(50)

	totalX, totalY, err := RemovableAmounts(liquidity, one, left, right, 18, 18)
	require.NoError(t, err)

	for _, w := range []*PriceWindow{
		nil,
		{Lower: d("0"), Upper: d("0")},
	} {
		got, err := SplitByWindow(liquidity, one, left, right, w, 18, 18)
		require.NoError(t, err)
		assert.True(t, got.XWithin.Equal(totalX), "XWithin = %s, want %s", got.XWithin, totalX)
		assert.True(t, got.YWithin.Equal(totalY))
		assert.True(t, got.XOutside.IsZero())
		assert.True(t, got.YOutside.IsZero())
	}
}

// 覆盖整个头寸区间的宽窗口也应等价于无限制
func TestSplitByWindow_WideWindowCoversPosition(t *testing.T) {
	liquidity := d("1000000")
	left := PriceSqrtFromTick(-50)
	right := PriceSqrtFromTick(50)

	totalX, totalY, err := RemovableAmounts(liquidity, one, left, right, 18, 18)
	require.NoError(t, err)

	// 当前价 ±50%，远超 ±50 tick（约 ±0.5%）的头寸区间
	got, err := SplitByWindow(liquidity, one, left, right, &PriceWindow{Lower: d("0.5"), Upper: d("1.5")}, 18, 18)
	require.NoError(t, err)
	assert.True(t, got.XWithin.Equal(totalX))
	assert.True(t, got.YWithin.Equal(totalY))
}

// 窄窗口：窗口内外数量之和等于总量，且两边均为非负
func TestSplitByWindow_NarrowWindowSplits(t *testing.T) {
	liquidity := d("1000000")
	left := PriceSqrtFromTick(-500)
	right := PriceSqrtFromTick(500)

	totalX, totalY, err := RemovableAmounts(liquidity, one, left, right, 18, 18)
	require.NoError(t, err)

	// 当前价 ±0.1%，明显窄于 ±500 tick 的头寸区间
	got, err := SplitByWindow(liquidity, one, left, right, &PriceWindow{Lower: d("0.999"), Upper: d("1.001")}, 18, 18)
	require.NoError(t, err)

	assert.True(t, got.XWithin.GreaterThan(zero))
	assert.True(t, got.YWithin.GreaterThan(zero))
	assert.True(t, got.XOutside.GreaterThan(zero))
	assert.True(t, got.YOutside.GreaterThan(zero))
	assert.True(t, got.XWithin.LessThan(totalX))
	assert.True(t, got.YWithin.LessThan(totalY))

	// 截断都向零，因此 within+outside 与总量的偏差不超过一个最小单位
	ulp := d("1e-18")
	assert.True(t, got.XWithin.Add(got.XOutside).Sub(totalX).Abs().LessThanOrEqual(ulp))
	assert.True(t, got.YWithin.Add(got.YOutside).Sub(totalY).Abs().LessThanOrEqual(ulp))
}

// 窗口与头寸区间不相交：窗口内为 0，全部计入窗口外
func TestSplitByWindow_DisjointWindow(t *testing.T) {
	liquidity := d("1000000")
	// 头寸区间远在当前价上方
	left := PriceSqrtFromTick(10000)
	right := PriceSqrtFromTick(10100)

	totalX, totalY, err := RemovableAmounts(liquidity, one, left, right, 18, 18)
	require.NoError(t, err)

	got, err := SplitByWindow(liquidity, one, left, right, &PriceWindow{Lower: d("0.99"), Upper: d("1.01")}, 18, 18)
	require.NoError(t, err)
	assert.True(t, got.XWithin.IsZero())
	assert.True(t, got.YWithin.IsZero())
	assert.True(t, got.XOutside.Equal(totalX))
	assert.True(t, got.YOutside.Equal(totalY))
}

func TestSplitByWindow_InvalidWindow(t *testing.T) {
	left := PriceSqrtFromTick(-50)
	right := PriceSqrtFromTick(50)
	_, err := SplitByWindow(d("1"), one, left, right, &PriceWindow{Lower: d("2"), Upper: d("1")}, 18, 18)
	assert.Error(t, err)
}
