package amm

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceWindow 表示围绕当前价格的乘法区间 [Lower*price, Upper*price]。
// Upper 为 0 表示上界无穷（不设上限）。
type PriceWindow struct {
	Lower decimal.Decimal
	Upper decimal.Decimal
}

// Unbounded 判断窗口是否等价于无限制
func (w *PriceWindow) Unbounded() bool {
	return w == nil || (w.Lower.LessThanOrEqual(zero) && w.Upper.IsZero())
}

// BoundedAmounts 表示按价格窗口拆分后的头寸数量
type BoundedAmounts struct {
	XWithin  decimal.Decimal // 窗口内可撤出的 X
	YWithin  decimal.Decimal
	XOutside decimal.Decimal // 窗口外部分 = 总量 - 窗口内
	YOutside decimal.Decimal
}

// SplitByWindow 先计算头寸的总可撤出数量，再按价格窗口切分为「窗口内 / 窗口外」。
// 切分方式：把窗口换算为 sqrt 价格区间，与头寸区间求交集后重跑一次撤出公式。
// 窗口与头寸区间无交集时窗口内为 0。
func SplitByWindow(
	liquidity decimal.Decimal,
	currentSqrt decimal.Decimal,
	leftSqrt decimal.Decimal,
	rightSqrt decimal.Decimal,
	window *PriceWindow,
	xDivisibility int32,
	yDivisibility int32,
) (BoundedAmounts, error) {
	totalX, totalY, err := RemovableAmounts(liquidity, currentSqrt, leftSqrt, rightSqrt, xDivisibility, yDivisibility)
	if err != nil {
		return BoundedAmounts{}, err
	}

	// 无限制窗口：全部在窗内
	if window.Unbounded() {
		return BoundedAmounts{XWithin: totalX, YWithin: totalY, XOutside: zero, YOutside: zero}, nil
	}
	if window.Lower.IsNegative() || (!window.Upper.IsZero() && window.Upper.LessThan(window.Lower)) {
		return BoundedAmounts{}, fmt.Errorf("amm: invalid price window [%s, %s]", window.Lower, window.Upper)
	}

	currentPrice := currentSqrt.Mul(currentSqrt)

	lowerSqrt, err := Sqrt(currentPrice.Mul(window.Lower))
	if err != nil {
		return BoundedAmounts{}, err
	}
	upperSqrt := rightSqrt // 上界无穷时直接取头寸右界
	if !window.Upper.IsZero() {
		upperSqrt, err = Sqrt(currentPrice.Mul(window.Upper))
		if err != nil {
			return BoundedAmounts{}, err
		}
	}

	// 交集为空：窗口内为 0
	effLeft := maxDecimal(leftSqrt, lowerSqrt)
	effRight := minDecimal(rightSqrt, upperSqrt)
	if effLeft.GreaterThanOrEqual(effRight) {
		return BoundedAmounts{XWithin: zero, YWithin: zero, XOutside: totalX, YOutside: totalY}, nil
	}

	withinX, withinY, err := RemovableAmounts(liquidity, currentSqrt, effLeft, effRight, xDivisibility, yDivisibility)
	if err != nil {
		return BoundedAmounts{}, err
	}

	return BoundedAmounts{
		XWithin:  withinX,
		YWithin:  withinY,
		XOutside: maxZero(totalX.Sub(withinX)),
		YOutside: maxZero(totalY.Sub(withinY)),
	}, nil
}
