package composer

import (
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// Rebalance decides the single swap that brings (xa, xb) close to the pool ratio (ra, rb).
// When sellFirst is true, amount of A is sold for B; otherwise amount of B is sold for A.
// A zero amount means no swap is needed.
//
// yb = xa*rb/ra is the value of xa measured in B. If xb > yb, half the B surplus is sold;
// otherwise ya = xb*ra/rb and half the A surplus is sold. Halving accounts for price impact.
func Rebalance(xa, xb, ra, rb sdkmath.Int) (sellFirst bool, amount sdkmath.Int) {
	if ra.IsZero() || rb.IsZero() {
		return false, sdkmath.ZeroInt()
	}
	yb := xa.Mul(rb).Quo(ra)
	if xb.GT(yb) {
		return false, xb.Sub(yb).QuoRaw(2)
	}
	ya := xb.Mul(ra).Quo(rb)
	if xa.GT(ya) {
		return true, xa.Sub(ya).QuoRaw(2)
	}
	return true, sdkmath.ZeroInt()
}

// SingleSidedSwapAmount is the part of x to sell into a pool holding reserveIn of the same
// token so that the bought amount and the unsold remainder match the post-swap pool ratio.
// fee is the swap fee over feeDenominator and is taken from the input.
//
// With d = feeDenominator and f = fee it is the positive root of
// (d-f)*s^2 + R*(2d-f)*s - d*x*R = 0, that is
// s = (sqrt(R^2*(2d-f)^2 + 4*(d-f)*d*x*R) - R*(2d-f)) / (2*(d-f)).
func SingleSidedSwapAmount(x, reserveIn sdkmath.Int, fee, feeDenominator uint64) sdkmath.Int {
	if !x.IsPositive() || !reserveIn.IsPositive() || fee >= feeDenominator {
		return sdkmath.ZeroInt()
	}
	d := new(big.Int).SetUint64(feeDenominator)
	dMinusF := new(big.Int).SetUint64(feeDenominator - fee)
	b := new(big.Int).Mul(reserveIn.BigInt(), new(big.Int).Add(d, dMinusF))

	disc := new(big.Int).Mul(b, b)
	c := new(big.Int).Mul(dMinusF, d)
	c.Mul(c, x.BigInt())
	c.Mul(c, reserveIn.BigInt())
	c.Lsh(c, 2)
	disc.Add(disc, c)

	s := new(big.Int).Sqrt(disc)
	s.Sub(s, b)
	s.Quo(s, new(big.Int).Lsh(dMinusF, 1))
	return sdkmath.NewIntFromBigInt(s)
}
