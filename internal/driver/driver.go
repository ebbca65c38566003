/*

This file contains the liquidity and farm driver: thin wrappers over the external pair, farm
and metastaking clients. Inputs are checked before the call, external reverts are surfaced
verbatim as ExternalFailure, and results are checked against the expected token identifiers.

*/

package driver

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/types"
)

var driverLogger = logger.GetForComponent("farm_driver")

// Driver calls external contracts on behalf of the engine.
type Driver struct {
	resolver contracts.Resolver
}

// New returns a driver resolving contracts through resolver.
func New(resolver contracts.Resolver) *Driver {
	return &Driver{resolver: resolver}
}

func (d *Driver) pair(addr sdk.AccAddress) (contracts.Pair, error) {
	p, err := d.resolver.Pair(addr)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidState, "Unknown pair %s", addr)
	}
	return p, nil
}

func (d *Driver) farm(addr sdk.AccAddress) (contracts.Farm, error) {
	f, err := d.resolver.Farm(addr)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidState, "Unknown farm %s", addr)
	}
	return f, nil
}

func (d *Driver) metastaking(addr sdk.AccAddress) (contracts.Metastaking, error) {
	m, err := d.resolver.Metastaking(addr)
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidState, "Unknown metastaking %s", addr)
	}
	return m, nil
}

// PairTokens returns the token identifiers of a pair.
func (d *Driver) PairTokens(ctx context.Context, pairAddr sdk.AccAddress) (contracts.PairTokens, error) {
	p, err := d.pair(pairAddr)
	if err != nil {
		return contracts.PairTokens{}, err
	}
	tokens, err := p.Tokens(ctx)
	if err != nil {
		return contracts.PairTokens{}, types.ExternalFailure("pair", err)
	}
	return tokens, nil
}

// PairReserves returns the reserves of a pair in (first, second) order.
func (d *Driver) PairReserves(ctx context.Context, pairAddr sdk.AccAddress) (sdkmath.Int, sdkmath.Int, error) {
	p, err := d.pair(pairAddr)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	first, second, err := p.Reserves(ctx)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, types.ExternalFailure("pair", err)
	}
	return first, second, nil
}

// PairFee returns the total swap fee of a pair over contracts.PairFeeDenominator.
func (d *Driver) PairFee(ctx context.Context, pairAddr sdk.AccAddress) (uint64, error) {
	p, err := d.pair(pairAddr)
	if err != nil {
		return 0, err
	}
	fee, err := p.TotalFeePercent(ctx)
	if err != nil {
		return 0, types.ExternalFailure("pair", err)
	}
	if fee >= contracts.PairFeeDenominator {
		return 0, errorsmod.Wrapf(types.ErrExternalFailure, "pair fee %d out of range", fee)
	}
	return fee, nil
}

// SwapFixedInput swaps all of payment for wantTokenID, requiring at least minOut.
func (d *Driver) SwapFixedInput(ctx context.Context, pairAddr sdk.AccAddress, payment types.Payment, wantTokenID string, minOut sdkmath.Int) (types.Payment, error) {
	if err := payment.RequireFungible(); err != nil {
		return types.Payment{}, err
	}
	p, err := d.pair(pairAddr)
	if err != nil {
		return types.Payment{}, err
	}
	out, err := p.SwapTokensFixedInput(ctx, payment, wantTokenID, minOut)
	if err != nil {
		return types.Payment{}, types.ExternalFailure("pair", err)
	}
	if out.TokenID != wantTokenID {
		return types.Payment{}, errorsmod.Wrap(types.ErrInvalidArgument, "Invalid swap output token identifier")
	}
	if out.Amount.LT(minOut) {
		return types.Payment{}, errorsmod.Wrap(types.ErrSlippageExceeded, "Slippage exceeded")
	}
	return out, nil
}

// SwapFixedOutput buys exactly amountOut of wantTokenID, refunding unspent input.
func (d *Driver) SwapFixedOutput(ctx context.Context, pairAddr sdk.AccAddress, payment types.Payment, wantTokenID string, amountOut sdkmath.Int) (types.SwapFixedOutputResult, error) {
	if err := payment.RequireFungible(); err != nil {
		return types.SwapFixedOutputResult{}, err
	}
	p, err := d.pair(pairAddr)
	if err != nil {
		return types.SwapFixedOutputResult{}, err
	}
	res, err := p.SwapTokensFixedOutput(ctx, payment, wantTokenID, amountOut)
	if err != nil {
		return types.SwapFixedOutputResult{}, types.ExternalFailure("pair", err)
	}
	if res.Output.TokenID != wantTokenID {
		return types.SwapFixedOutputResult{}, errorsmod.Wrap(types.ErrInvalidArgument, "Invalid swap output token identifier")
	}
	if res.Output.Amount.LT(amountOut) {
		return types.SwapFixedOutputResult{}, errorsmod.Wrap(types.ErrSlippageExceeded, "Slippage exceeded")
	}
	return res, nil
}

// AddLiquidity adds (first, second) to a pair. Leftovers are part of the result.
func (d *Driver) AddLiquidity(ctx context.Context, pairAddr sdk.AccAddress, first, second types.Payment, minFirst, minSecond sdkmath.Int) (types.AddLiquidityResult, error) {
	if err := first.RequireFungible(); err != nil {
		return types.AddLiquidityResult{}, err
	}
	if err := second.RequireFungible(); err != nil {
		return types.AddLiquidityResult{}, err
	}
	tokens, err := d.PairTokens(ctx, pairAddr)
	if err != nil {
		return types.AddLiquidityResult{}, err
	}
	if first.TokenID != tokens.FirstTokenID || second.TokenID != tokens.SecondTokenID {
		return types.AddLiquidityResult{}, errorsmod.Wrap(types.ErrInvalidArgument, "Bad payment tokens")
	}
	p, err := d.pair(pairAddr)
	if err != nil {
		return types.AddLiquidityResult{}, err
	}
	res, err := p.AddLiquidity(ctx, first, second, minFirst, minSecond)
	if err != nil {
		return types.AddLiquidityResult{}, types.ExternalFailure("pair", err)
	}
	if res.LPTokens.TokenID != tokens.LPTokenID || res.LPTokens.IsZero() {
		return types.AddLiquidityResult{}, errorsmod.Wrap(types.ErrExternalFailure, "Invalid LP token received")
	}
	driverLogger.Debug().
		Stringer("lp", res.LPTokens).
		Stringer("firstLeftover", res.FirstLeftover).
		Stringer("secondLeftover", res.SecondLeftover).
		Msg("Liquidity added")
	return res, nil
}

// RemoveLiquidity burns LP tokens, enforcing both minimum outputs.
func (d *Driver) RemoveLiquidity(ctx context.Context, pairAddr sdk.AccAddress, lp types.Payment, minFirst, minSecond sdkmath.Int) (types.RemoveLiquidityResult, error) {
	if err := lp.RequireFungible(); err != nil {
		return types.RemoveLiquidityResult{}, err
	}
	tokens, err := d.PairTokens(ctx, pairAddr)
	if err != nil {
		return types.RemoveLiquidityResult{}, err
	}
	if lp.TokenID != tokens.LPTokenID {
		return types.RemoveLiquidityResult{}, errorsmod.Wrap(types.ErrInvalidArgument, "Bad payment tokens")
	}
	p, err := d.pair(pairAddr)
	if err != nil {
		return types.RemoveLiquidityResult{}, err
	}
	res, err := p.RemoveLiquidity(ctx, lp, minFirst, minSecond)
	if err != nil {
		return types.RemoveLiquidityResult{}, types.ExternalFailure("pair", err)
	}
	if res.FirstToken.Amount.LT(minFirst) || res.SecondToken.Amount.LT(minSecond) {
		return types.RemoveLiquidityResult{}, errorsmod.Wrap(types.ErrSlippageExceeded, "Slippage exceeded")
	}
	return res, nil
}

// EnterFarm enters a farm with farming tokens, merging any additional farm positions.
func (d *Driver) EnterFarm(ctx context.Context, farmAddr, owner sdk.AccAddress, list ...types.Payment) (types.EnterFarmResult, error) {
	if len(list) == 0 {
		return types.EnterFarmResult{}, errorsmod.Wrap(types.ErrInvalidArgument, "No payment")
	}
	for _, p := range list {
		if err := p.ValidateBasic(); err != nil {
			return types.EnterFarmResult{}, err
		}
	}
	f, err := d.farm(farmAddr)
	if err != nil {
		return types.EnterFarmResult{}, err
	}
	res, err := f.EnterFarm(ctx, owner, list)
	if err != nil {
		return types.EnterFarmResult{}, types.ExternalFailure("farm", err)
	}
	if res.NewFarmToken.IsZero() {
		return types.EnterFarmResult{}, errorsmod.Wrap(types.ErrExternalFailure, "Invalid farm token received")
	}
	driverLogger.Debug().
		Str("farm", farmAddr.String()).
		Stringer("position", res.NewFarmToken).
		Stringer("boosted", res.BoostedRewards).
		Msg("Entered farm")
	return res, nil
}

// ClaimFarm claims the rewards of a farm position and returns the refreshed position.
func (d *Driver) ClaimFarm(ctx context.Context, farmAddr, owner sdk.AccAddress, farmToken types.Payment) (types.ClaimFarmResult, error) {
	if err := farmToken.ValidateBasic(); err != nil {
		return types.ClaimFarmResult{}, err
	}
	f, err := d.farm(farmAddr)
	if err != nil {
		return types.ClaimFarmResult{}, err
	}
	res, err := f.ClaimRewards(ctx, owner, farmToken)
	if err != nil {
		return types.ClaimFarmResult{}, types.ExternalFailure("farm", err)
	}
	if res.NewFarmToken.TokenID != farmToken.TokenID || !res.NewFarmToken.Amount.Equal(farmToken.Amount) {
		return types.ClaimFarmResult{}, errorsmod.Wrap(types.ErrExternalFailure, "Invalid farm token received")
	}
	return res, nil
}

// ExitFarm exits a farm position, returning farming tokens and rewards.
func (d *Driver) ExitFarm(ctx context.Context, farmAddr, owner sdk.AccAddress, farmToken types.Payment) (types.ExitFarmResult, error) {
	if err := farmToken.ValidateBasic(); err != nil {
		return types.ExitFarmResult{}, err
	}
	f, err := d.farm(farmAddr)
	if err != nil {
		return types.ExitFarmResult{}, err
	}
	res, err := f.ExitFarm(ctx, owner, farmToken)
	if err != nil {
		return types.ExitFarmResult{}, types.ExternalFailure("farm", err)
	}
	return res, nil
}

// StakeMetastaking stakes an LP farm position, merging any additional dual yield positions.
func (d *Driver) StakeMetastaking(ctx context.Context, msAddr, owner sdk.AccAddress, list ...types.Payment) (types.StakeMetastakingResult, error) {
	if len(list) == 0 {
		return types.StakeMetastakingResult{}, errorsmod.Wrap(types.ErrInvalidArgument, "No payment")
	}
	for _, p := range list {
		if err := p.ValidateBasic(); err != nil {
			return types.StakeMetastakingResult{}, err
		}
	}
	m, err := d.metastaking(msAddr)
	if err != nil {
		return types.StakeMetastakingResult{}, err
	}
	res, err := m.StakeFarmTokens(ctx, owner, list)
	if err != nil {
		return types.StakeMetastakingResult{}, types.ExternalFailure("metastaking", err)
	}
	if res.DualYieldToken.IsZero() {
		return types.StakeMetastakingResult{}, errorsmod.Wrap(types.ErrExternalFailure, "Invalid dual yield token received")
	}
	return res, nil
}

// ClaimMetastaking claims both reward layers of a dual yield position.
func (d *Driver) ClaimMetastaking(ctx context.Context, msAddr, owner sdk.AccAddress, dualYield types.Payment) (types.ClaimMetastakingResult, error) {
	if err := dualYield.ValidateBasic(); err != nil {
		return types.ClaimMetastakingResult{}, err
	}
	m, err := d.metastaking(msAddr)
	if err != nil {
		return types.ClaimMetastakingResult{}, err
	}
	res, err := m.ClaimDualYield(ctx, owner, dualYield)
	if err != nil {
		return types.ClaimMetastakingResult{}, types.ExternalFailure("metastaking", err)
	}
	if res.NewDualYieldToken.TokenID != dualYield.TokenID || !res.NewDualYieldToken.Amount.Equal(dualYield.Amount) {
		return types.ClaimMetastakingResult{}, errorsmod.Wrap(types.ErrExternalFailure, "Invalid dual yield token received")
	}
	return res, nil
}

// UnstakeMetastaking leaves a dual yield position, fully or partially.
func (d *Driver) UnstakeMetastaking(ctx context.Context, msAddr, owner sdk.AccAddress, dualYield types.Payment, minFirst, minSecond, exitAmount sdkmath.Int) (types.UnstakeMetastakingResult, error) {
	if err := dualYield.ValidateBasic(); err != nil {
		return types.UnstakeMetastakingResult{}, err
	}
	m, err := d.metastaking(msAddr)
	if err != nil {
		return types.UnstakeMetastakingResult{}, err
	}
	res, err := m.UnstakeFarmTokens(ctx, owner, dualYield, minFirst, minSecond, exitAmount)
	if err != nil {
		return types.UnstakeMetastakingResult{}, types.ExternalFailure("metastaking", err)
	}
	return res, nil
}
