package amm

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// divPrecision 内部除法/开方保留的小数位。远高于链上 18 位精度，
// 中间结果的舍入误差不会影响最终按 divisibility 截断后的数值。
const divPrecision = 36

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
	two  = decimal.NewFromInt(2)
)

// div 全局统一的除法入口，避免落到 shopspring 默认的 16 位精度
func div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, divPrecision)
}

// powInt 平方法求整数次幂，每步收口到 divPrecision 位防止位数爆炸
func powInt(base decimal.Decimal, exp uint32) decimal.Decimal {
	result := one
	b := base
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(b).Round(divPrecision)
		}
		b = b.Mul(b).Round(divPrecision)
		exp >>= 1
	}
	return result
}

// sqrtTolerance 牛顿迭代的收敛阈值
var sqrtTolerance = decimal.New(1, -(divPrecision - 3))

// Sqrt 任意精度开方（牛顿迭代）。d 为负时返回错误，0 返回 0。
func Sqrt(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return zero, fmt.Errorf("amm: sqrt of negative value %s", d)
	}
	if d.IsZero() {
		return zero, nil
	}

	// 用 float64 估个初值，迭代次数通常在 5 次以内
	x := d
	if f, _ := d.Float64(); f > 0 && !math.IsInf(f, 0) {
		if g := math.Sqrt(f); g > 0 && !math.IsInf(g, 0) {
			x = decimal.NewFromFloat(g)
		}
	}

	for i := 0; i < 64; i++ {
		next := x.Add(div(d, x)).DivRound(two, divPrecision)
		if next.Sub(x).Abs().LessThanOrEqual(sqrtTolerance) {
			return next, nil
		}
		x = next
	}
	return x, nil
}

// maxZero 负数收口为 0（可领取数量不允许为负）
func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
