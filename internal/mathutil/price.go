package mathutil

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// SqrtPriceX96ToTokenPrices converts a Q64.96 square-root price into
// price0 (token0 per token1) and price1 (token1 per token0), scaled by token decimals.
// A zero or missing sqrt price gives (0, 0)
func SqrtPriceX96ToTokenPrices(sqrtPriceX96 *big.Int, decimals0, decimals1 int32) (price0, price1 decimal.Decimal) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return Zero, Zero
	}

	num := decimal.NewFromBigInt(new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96), 0)
	raw := SafeDiv(num, q192)
	price1 = SafeDiv(raw.Mul(ExponentToDecimal(decimals0)), ExponentToDecimal(decimals1))
	price0 = SafeDiv(One, price1)
	return price0, price1
}
