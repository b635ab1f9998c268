package amm

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// tickBase 每个 tick 的几何价格步长 sqrt(1.0001)，
// 即 priceSqrt(tick) = tickBase^tick。常量保留 36 位小数。
var tickBase = decimal.RequireFromString("1.000049998750062496094023416993798697")

// PriceSqrtFromTick 计算 tick 对应的价格平方根 tickBase^tick
func PriceSqrtFromTick(tick int32) decimal.Decimal {
	if tick >= 0 {
		return powInt(tickBase, uint32(tick))
	}
	return div(one, powInt(tickBase, uint32(-int64(tick))))
}

// RemovableAmounts 计算一个集中流动性头寸当前可全部撤出的两种代币数量。
// 约定 leftSqrt < rightSqrt，三个价格分支与链上公式一致：
//   - 当前价在区间左侧：头寸全部为 X；
//   - 当前价在区间右侧：头寸全部为 Y；
//   - 当前价在区间内：两边都有。
//
// 结果按各代币的 divisibility 截断（不是四舍五入），与链上可领取语义对齐。
func RemovableAmounts(
	liquidity decimal.Decimal,
	currentSqrt decimal.Decimal,
	leftSqrt decimal.Decimal,
	rightSqrt decimal.Decimal,
	xDivisibility int32,
	yDivisibility int32,
) (xAmount, yAmount decimal.Decimal, err error) {
	if leftSqrt.GreaterThanOrEqual(rightSqrt) {
		return zero, zero, fmt.Errorf("amm: invalid bounds: leftSqrt=%s >= rightSqrt=%s", leftSqrt, rightSqrt)
	}
	if leftSqrt.LessThanOrEqual(zero) {
		return zero, zero, fmt.Errorf("amm: invalid bounds: leftSqrt=%s <= 0", leftSqrt)
	}

	switch {
	case currentSqrt.LessThanOrEqual(leftSqrt):
		// 区间在当前价上方，全部为 X
		xAmount = maxZero(div(liquidity, leftSqrt).Sub(div(liquidity, rightSqrt)))
		yAmount = zero
	case currentSqrt.GreaterThanOrEqual(rightSqrt):
		// 区间在当前价下方，全部为 Y
		xAmount = zero
		yAmount = liquidity.Mul(rightSqrt.Sub(leftSqrt))
	default:
		// 当前价在区间内
		xAmount = maxZero(div(liquidity, currentSqrt).Sub(div(liquidity, rightSqrt)))
		yAmount = liquidity.Mul(currentSqrt.Sub(leftSqrt))
	}

	return xAmount.Truncate(xDivisibility), yAmount.Truncate(yDivisibility), nil
}
