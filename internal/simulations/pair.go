package simulations

import (
	"errors"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/types"
)

const (
	// PairTotalFee is the swap fee numerator over PairFeeDenominator (0.3%).
	PairTotalFee       int64 = 300
	PairFeeDenominator int64 = 100_000
	// MinimumLiquidity is locked forever on the first add-liquidity.
	MinimumLiquidity int64 = 1_000
)

var pairLogger = logger.GetForComponent("sim_pair")

var (
	errPairBadTokens      = errors.New("Bad payment tokens")
	errPairSlippage       = errors.New("Slippage exceeded")
	errPairNoLiquidity    = errors.New("Not enough reserve")
	errPairInsufficientA  = errors.New("Insufficient first token computed amount")
	errPairInsufficientB  = errors.New("Insufficient second token computed amount")
	errPairSlippageFirst  = errors.New("Slippage amount first token")
	errPairSlippageSecond = errors.New("Slippage amount second token")
	errPairZeroLiquidity  = errors.New("Insufficient liquidity minted")
)

type pairState struct {
	Address       sdk.AccAddress
	Tokens        contracts.PairTokens
	ReserveFirst  sdkmath.Int
	ReserveSecond sdkmath.Int
	LPSupply      sdkmath.Int
}

func (p *pairState) clone() *pairState {
	c := *p
	return &c
}

func (p *pairState) reserveOf(tokenID string) sdkmath.Int {
	if tokenID == p.Tokens.FirstTokenID {
		return p.ReserveFirst
	}
	return p.ReserveSecond
}

func (p *pairState) setReserve(tokenID string, amount sdkmath.Int) {
	if tokenID == p.Tokens.FirstTokenID {
		p.ReserveFirst = amount
		return
	}
	p.ReserveSecond = amount
}

// AmountOut is the constant product output for a fixed input, fee included.
func AmountOut(amountIn, reserveIn, reserveOut sdkmath.Int) sdkmath.Int {
	withFee := amountIn.MulRaw(PairFeeDenominator - PairTotalFee)
	numerator := withFee.Mul(reserveOut)
	denominator := reserveIn.MulRaw(PairFeeDenominator).Add(withFee)
	return numerator.Quo(denominator)
}

// AmountIn is the constant product input needed for a fixed output, fee included.
func AmountIn(amountOut, reserveIn, reserveOut sdkmath.Int) sdkmath.Int {
	numerator := reserveIn.Mul(amountOut).MulRaw(PairFeeDenominator)
	denominator := reserveOut.Sub(amountOut).MulRaw(PairFeeDenominator - PairTotalFee)
	return numerator.Quo(denominator).AddRaw(1)
}

// DeployPair creates a pair of two fungible tokens issuing lpTokenID.
func (c *Chain) DeployPair(firstTokenID, secondTokenID, lpTokenID string) sdk.AccAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr := c.nextContract("pair")
	c.state.pairs[string(addr)] = &pairState{
		Address: addr,
		Tokens: contracts.PairTokens{
			FirstTokenID:  firstTokenID,
			SecondTokenID: secondTokenID,
			LPTokenID:     lpTokenID,
		},
		ReserveFirst:  sdkmath.ZeroInt(),
		ReserveSecond: sdkmath.ZeroInt(),
		LPSupply:      sdkmath.ZeroInt(),
	}
	c.state.setStorage(addr, "first_token_id", []byte(firstTokenID))
	c.state.setStorage(addr, "second_token_id", []byte(secondTokenID))
	c.state.setStorage(addr, "lpTokenIdentifier", []byte(lpTokenID))
	return addr
}

// SeedPair mints reserves into an empty pair and returns the LP minted to owner.
func (c *Chain) SeedPair(pair, owner sdk.AccAddress, first, second sdkmath.Int) (types.Payment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.state.pairs[string(pair)]
	if !ok {
		return types.Payment{}, contracts.ErrUnknownContract
	}
	c.state.mint(owner, types.NewFungible(p.Tokens.FirstTokenID, first))
	c.state.mint(owner, types.NewFungible(p.Tokens.SecondTokenID, second))
	res, err := c.state.addLiquidity(p, owner,
		types.NewFungible(p.Tokens.FirstTokenID, first),
		types.NewFungible(p.Tokens.SecondTokenID, second),
		sdkmath.OneInt(), sdkmath.OneInt())
	if err != nil {
		return types.Payment{}, err
	}
	return res.LPTokens, nil
}

// PairReserves returns the current reserves of a pair.
func (c *Chain) PairReserves(pair sdk.AccAddress) (sdkmath.Int, sdkmath.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.state.pairs[string(pair)]
	return p.ReserveFirst, p.ReserveSecond
}

func (w *world) swapFixedInput(p *pairState, caller sdk.AccAddress, in types.Payment, wantTokenID string, minOut sdkmath.Int) (types.Payment, error) {
	if !in.IsFungible() || !p.Tokens.Contains(in.TokenID) || p.Tokens.Other(in.TokenID) != wantTokenID {
		return types.Payment{}, errPairBadTokens
	}
	reserveIn := p.reserveOf(in.TokenID)
	reserveOut := p.reserveOf(wantTokenID)
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return types.Payment{}, errPairNoLiquidity
	}
	out := AmountOut(in.Amount, reserveIn, reserveOut)
	if out.IsZero() || out.LT(minOut) {
		return types.Payment{}, errPairSlippage
	}
	if err := w.transfer(caller, p.Address, in); err != nil {
		return types.Payment{}, err
	}
	outPayment := types.NewFungible(wantTokenID, out)
	if err := w.transfer(p.Address, caller, outPayment); err != nil {
		return types.Payment{}, err
	}
	p.setReserve(in.TokenID, reserveIn.Add(in.Amount))
	p.setReserve(wantTokenID, reserveOut.Sub(out))
	pairLogger.Debug().
		Stringer("in", in).
		Stringer("out", outPayment).
		Msg("Swap fixed input")
	return outPayment, nil
}

func (w *world) swapFixedOutput(p *pairState, caller sdk.AccAddress, in types.Payment, wantTokenID string, amountOut sdkmath.Int) (types.SwapFixedOutputResult, error) {
	if !in.IsFungible() || !p.Tokens.Contains(in.TokenID) || p.Tokens.Other(in.TokenID) != wantTokenID {
		return types.SwapFixedOutputResult{}, errPairBadTokens
	}
	reserveIn := p.reserveOf(in.TokenID)
	reserveOut := p.reserveOf(wantTokenID)
	if reserveIn.IsZero() || reserveOut.LTE(amountOut) {
		return types.SwapFixedOutputResult{}, errPairNoLiquidity
	}
	needed := AmountIn(amountOut, reserveIn, reserveOut)
	if needed.GT(in.Amount) {
		return types.SwapFixedOutputResult{}, errPairSlippage
	}
	if err := w.transfer(caller, p.Address, in); err != nil {
		return types.SwapFixedOutputResult{}, err
	}
	out := types.NewFungible(wantTokenID, amountOut)
	refund := in.WithAmount(in.Amount.Sub(needed))
	if err := w.transfer(p.Address, caller, out, refund); err != nil {
		return types.SwapFixedOutputResult{}, err
	}
	p.setReserve(in.TokenID, reserveIn.Add(needed))
	p.setReserve(wantTokenID, reserveOut.Sub(amountOut))
	return types.SwapFixedOutputResult{Output: out, Refund: refund}, nil
}

func (w *world) addLiquidity(p *pairState, caller sdk.AccAddress, first, second types.Payment, minFirst, minSecond sdkmath.Int) (types.AddLiquidityResult, error) {
	if first.TokenID != p.Tokens.FirstTokenID || second.TokenID != p.Tokens.SecondTokenID ||
		!first.IsFungible() || !second.IsFungible() || first.IsZero() || second.IsZero() {
		return types.AddLiquidityResult{}, errPairBadTokens
	}

	usedFirst, usedSecond := first.Amount, second.Amount
	if !p.LPSupply.IsZero() {
		optimalSecond := first.Amount.Mul(p.ReserveSecond).Quo(p.ReserveFirst)
		if optimalSecond.LTE(second.Amount) {
			if optimalSecond.LT(minSecond) {
				return types.AddLiquidityResult{}, errPairInsufficientB
			}
			usedSecond = optimalSecond
		} else {
			optimalFirst := second.Amount.Mul(p.ReserveFirst).Quo(p.ReserveSecond)
			if optimalFirst.GT(first.Amount) || optimalFirst.LT(minFirst) {
				return types.AddLiquidityResult{}, errPairInsufficientA
			}
			usedFirst = optimalFirst
		}
	} else {
		if usedFirst.LT(minFirst) {
			return types.AddLiquidityResult{}, errPairInsufficientA
		}
		if usedSecond.LT(minSecond) {
			return types.AddLiquidityResult{}, errPairInsufficientB
		}
	}

	var liquidity sdkmath.Int
	if p.LPSupply.IsZero() {
		liquidity = sdkmath.MinInt(usedFirst, usedSecond)
		if liquidity.LTE(sdkmath.NewInt(MinimumLiquidity)) {
			return types.AddLiquidityResult{}, errPairZeroLiquidity
		}
		p.LPSupply = p.LPSupply.AddRaw(MinimumLiquidity)
		liquidity = liquidity.SubRaw(MinimumLiquidity)
	} else {
		byFirst := usedFirst.Mul(p.LPSupply).Quo(p.ReserveFirst)
		bySecond := usedSecond.Mul(p.LPSupply).Quo(p.ReserveSecond)
		liquidity = sdkmath.MinInt(byFirst, bySecond)
	}
	if !liquidity.IsPositive() {
		return types.AddLiquidityResult{}, errPairZeroLiquidity
	}

	if err := w.transfer(caller, p.Address, first.WithAmount(usedFirst), second.WithAmount(usedSecond)); err != nil {
		return types.AddLiquidityResult{}, err
	}
	lp := types.NewFungible(p.Tokens.LPTokenID, liquidity)
	w.mint(caller, lp)

	p.ReserveFirst = p.ReserveFirst.Add(usedFirst)
	p.ReserveSecond = p.ReserveSecond.Add(usedSecond)
	p.LPSupply = p.LPSupply.Add(liquidity)

	return types.AddLiquidityResult{
		LPTokens:       lp,
		FirstLeftover:  first.WithAmount(first.Amount.Sub(usedFirst)),
		SecondLeftover: second.WithAmount(second.Amount.Sub(usedSecond)),
	}, nil
}

func (w *world) removeLiquidity(p *pairState, caller sdk.AccAddress, lp types.Payment, minFirst, minSecond sdkmath.Int) (types.RemoveLiquidityResult, error) {
	if lp.TokenID != p.Tokens.LPTokenID || !lp.IsFungible() || lp.IsZero() {
		return types.RemoveLiquidityResult{}, errPairBadTokens
	}
	if p.LPSupply.IsZero() {
		return types.RemoveLiquidityResult{}, errPairNoLiquidity
	}
	firstOut := lp.Amount.Mul(p.ReserveFirst).Quo(p.LPSupply)
	secondOut := lp.Amount.Mul(p.ReserveSecond).Quo(p.LPSupply)
	if firstOut.IsZero() || firstOut.LT(minFirst) {
		return types.RemoveLiquidityResult{}, errPairSlippageFirst
	}
	if secondOut.IsZero() || secondOut.LT(minSecond) {
		return types.RemoveLiquidityResult{}, errPairSlippageSecond
	}
	if err := w.burn(caller, lp); err != nil {
		return types.RemoveLiquidityResult{}, err
	}
	first := types.NewFungible(p.Tokens.FirstTokenID, firstOut)
	second := types.NewFungible(p.Tokens.SecondTokenID, secondOut)
	if err := w.transfer(p.Address, caller, first, second); err != nil {
		return types.RemoveLiquidityResult{}, err
	}
	p.ReserveFirst = p.ReserveFirst.Sub(firstOut)
	p.ReserveSecond = p.ReserveSecond.Sub(secondOut)
	p.LPSupply = p.LPSupply.Sub(lp.Amount)
	return types.RemoveLiquidityResult{FirstToken: first, SecondToken: second}, nil
}
