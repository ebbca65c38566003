/*

This file contains the position composer. It takes one or two user payments already held by
the engine, routes them to the token pair of a target pool, provides liquidity and optionally
stakes the LP receipt into a farm or further into a metastaking contract.

Every flow returns the resulting position first, followed by the residual payments that must
be sent back to the user: swap refunds, add-liquidity leftovers and boosted rewards. Any
failure aborts the whole composition.

*/

package composer

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/driver"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/router"
	"github.com/elys-network/autofarm/internal/types"
)

var composerLogger = logger.GetForComponent("position_composer")

// Result is the outcome of a composition.
type Result struct {
	Position types.Payment   `json:"position"`
	Residual []types.Payment `json:"residual"`
}

// All lists the position followed by every non-empty residual payment.
func (r Result) All() []types.Payment {
	return types.NonZero(append([]types.Payment{r.Position}, r.Residual...))
}

// Composer drives the router and the driver to reach a requested end state.
type Composer struct {
	driver        *driver.Driver
	router        *router.Router
	nativeWrapper contracts.NativeWrapper
	nativeTokenID string
}

// New returns a composer. nativeWrapper may be nil when native payments are not accepted.
func New(d *driver.Driver, r *router.Router, nativeWrapper contracts.NativeWrapper, nativeTokenID string) *Composer {
	return &Composer{driver: d, router: r, nativeWrapper: nativeWrapper, nativeTokenID: nativeTokenID}
}

// LPFromSingle swaps payment along path into one of the pair tokens, sells the share of it
// given by SingleSidedSwapAmount for the other pair token and adds liquidity with the user
// bounds.
func (c *Composer) LPFromSingle(ctx context.Context, payment types.Payment, pairAddr sdk.AccAddress, path []types.SwapOperation, minFirst, minSecond sdkmath.Int) (Result, error) {
	if err := payment.RequireFungible(); err != nil {
		return Result{}, err
	}
	tokens, err := c.driver.PairTokens(ctx, pairAddr)
	if err != nil {
		return Result{}, err
	}
	want := payment.TokenID
	if len(path) > 0 {
		want = path[len(path)-1].OutputTokenID
	}
	if !tokens.Contains(want) {
		return Result{}, errorsmod.Wrap(types.ErrInvalidArgument, "Bad payment tokens")
	}

	swapped, err := c.router.Swap(ctx, payment, path, want, sdkmath.OneInt())
	if err != nil {
		return Result{}, err
	}
	residual := types.ClonePayments(router.Refunds(swapped))
	input := router.Final(swapped)

	reserveFirst, reserveSecond, err := c.driver.PairReserves(ctx, pairAddr)
	if err != nil {
		return Result{}, err
	}
	fee, err := c.driver.PairFee(ctx, pairAddr)
	if err != nil {
		return Result{}, err
	}
	reserveIn := reserveSecond
	if want == tokens.FirstTokenID {
		reserveIn = reserveFirst
	}
	sold := SingleSidedSwapAmount(input.Amount, reserveIn, fee, contracts.PairFeeDenominator)
	if sold.IsZero() || sold.GTE(input.Amount) {
		return Result{}, errorsmod.Wrap(types.ErrInvalidArgument, "Invalid payment amount")
	}
	other, err := c.driver.SwapFixedInput(ctx, pairAddr, input.WithAmount(sold), tokens.Other(want), sdkmath.OneInt())
	if err != nil {
		return Result{}, err
	}
	kept := input.WithAmount(input.Amount.Sub(sold))

	first, second := kept, other
	if kept.TokenID != tokens.FirstTokenID {
		first, second = other, kept
	}
	res, err := c.addLiquidity(ctx, pairAddr, first, second, minFirst, minSecond)
	if err != nil {
		return Result{}, err
	}
	res.Residual = append(residual, res.Residual...)
	return res, nil
}

// LPFromTwo rebalances two payments of the pair tokens with at most one swap through the
// pair and adds liquidity.
func (c *Composer) LPFromTwo(ctx context.Context, a, b types.Payment, pairAddr sdk.AccAddress, minFirst, minSecond sdkmath.Int) (Result, error) {
	if err := a.RequireFungible(); err != nil {
		return Result{}, err
	}
	if err := b.RequireFungible(); err != nil {
		return Result{}, err
	}
	tokens, err := c.driver.PairTokens(ctx, pairAddr)
	if err != nil {
		return Result{}, err
	}
	first, second := a, b
	if a.TokenID == tokens.SecondTokenID && b.TokenID == tokens.FirstTokenID {
		first, second = b, a
	}
	if first.TokenID != tokens.FirstTokenID || second.TokenID != tokens.SecondTokenID {
		return Result{}, errorsmod.Wrap(types.ErrInvalidArgument, "Bad payment tokens")
	}

	reserveFirst, reserveSecond, err := c.driver.PairReserves(ctx, pairAddr)
	if err != nil {
		return Result{}, err
	}
	sellFirst, amount := Rebalance(first.Amount, second.Amount, reserveFirst, reserveSecond)
	if amount.IsPositive() {
		if sellFirst {
			out, err := c.driver.SwapFixedInput(ctx, pairAddr, first.WithAmount(amount), tokens.SecondTokenID, sdkmath.OneInt())
			if err != nil {
				return Result{}, err
			}
			first = first.WithAmount(first.Amount.Sub(amount))
			second = second.WithAmount(second.Amount.Add(out.Amount))
		} else {
			out, err := c.driver.SwapFixedInput(ctx, pairAddr, second.WithAmount(amount), tokens.FirstTokenID, sdkmath.OneInt())
			if err != nil {
				return Result{}, err
			}
			second = second.WithAmount(second.Amount.Sub(amount))
			first = first.WithAmount(first.Amount.Add(out.Amount))
		}
		composerLogger.Debug().
			Bool("sellFirst", sellFirst).
			Str("amount", amount.String()).
			Msg("Rebalanced two token entry")
	}
	return c.addLiquidity(ctx, pairAddr, first, second, minFirst, minSecond)
}

func (c *Composer) addLiquidity(ctx context.Context, pairAddr sdk.AccAddress, first, second types.Payment, minFirst, minSecond sdkmath.Int) (Result, error) {
	res, err := c.driver.AddLiquidity(ctx, pairAddr, first, second, minFirst, minSecond)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Position: res.LPTokens,
		Residual: types.NonZero([]types.Payment{res.FirstLeftover, res.SecondLeftover}),
	}, nil
}

func (c *Composer) enterFarm(ctx context.Context, lp Result, farm types.FarmConfig, owner sdk.AccAddress) (Result, error) {
	if lp.Position.TokenID != farm.FarmingTokenID {
		return Result{}, errorsmod.Wrap(types.ErrInvalidArgument, "Farm does not accept the pair LP token")
	}
	entered, err := c.driver.EnterFarm(ctx, farm.Address, owner, lp.Position)
	if err != nil {
		return Result{}, err
	}
	if entered.NewFarmToken.TokenID != farm.FarmTokenID {
		return Result{}, errorsmod.Wrap(types.ErrExternalFailure, "Invalid farm token received")
	}
	return Result{
		Position: entered.NewFarmToken,
		Residual: types.NonZero(append(lp.Residual, entered.BoostedRewards)),
	}, nil
}

// FarmFromSingle creates LP from one payment and enters the farm with it.
func (c *Composer) FarmFromSingle(ctx context.Context, payment types.Payment, pairAddr sdk.AccAddress, path []types.SwapOperation, minFirst, minSecond sdkmath.Int, farm types.FarmConfig, owner sdk.AccAddress) (Result, error) {
	lp, err := c.LPFromSingle(ctx, payment, pairAddr, path, minFirst, minSecond)
	if err != nil {
		return Result{}, err
	}
	return c.enterFarm(ctx, lp, farm, owner)
}

// FarmFromTwo creates LP from two payments and enters the farm with it.
func (c *Composer) FarmFromTwo(ctx context.Context, a, b types.Payment, pairAddr sdk.AccAddress, minFirst, minSecond sdkmath.Int, farm types.FarmConfig, owner sdk.AccAddress) (Result, error) {
	lp, err := c.LPFromTwo(ctx, a, b, pairAddr, minFirst, minSecond)
	if err != nil {
		return Result{}, err
	}
	return c.enterFarm(ctx, lp, farm, owner)
}

func (c *Composer) stake(ctx context.Context, lp Result, ms types.MetastakingConfig, owner sdk.AccAddress) (Result, error) {
	entered, err := c.driver.EnterFarm(ctx, ms.LPFarmAddress, owner, lp.Position)
	if err != nil {
		return Result{}, err
	}
	if entered.NewFarmToken.TokenID != ms.LPFarmTokenID {
		return Result{}, errorsmod.Wrap(types.ErrExternalFailure, "Invalid farm token received")
	}
	staked, err := c.driver.StakeMetastaking(ctx, ms.Address, owner, entered.NewFarmToken)
	if err != nil {
		return Result{}, err
	}
	if staked.DualYieldToken.TokenID != ms.DualYieldTokenID {
		return Result{}, errorsmod.Wrap(types.ErrExternalFailure, "Invalid dual yield token received")
	}
	residual := append(types.ClonePayments(lp.Residual), entered.BoostedRewards, staked.LPFarmBoostedRewards, staked.StakingBoostedRewards)
	return Result{Position: staked.DualYieldToken, Residual: types.NonZero(residual)}, nil
}

// MetastakingFromSingle creates LP from one payment, enters the LP farm and stakes the
// position into the metastaking contract.
func (c *Composer) MetastakingFromSingle(ctx context.Context, payment types.Payment, pairAddr sdk.AccAddress, path []types.SwapOperation, minFirst, minSecond sdkmath.Int, ms types.MetastakingConfig, owner sdk.AccAddress) (Result, error) {
	lp, err := c.LPFromSingle(ctx, payment, pairAddr, path, minFirst, minSecond)
	if err != nil {
		return Result{}, err
	}
	return c.stake(ctx, lp, ms, owner)
}

// MetastakingFromTwo is MetastakingFromSingle for two pair token payments.
func (c *Composer) MetastakingFromTwo(ctx context.Context, a, b types.Payment, pairAddr sdk.AccAddress, minFirst, minSecond sdkmath.Int, ms types.MetastakingConfig, owner sdk.AccAddress) (Result, error) {
	lp, err := c.LPFromTwo(ctx, a, b, pairAddr, minFirst, minSecond)
	if err != nil {
		return Result{}, err
	}
	return c.stake(ctx, lp, ms, owner)
}

// FarmStakingFromSingle wraps a native payment if needed, swaps it along path to the farming
// token of a staking farm and enters that farm.
func (c *Composer) FarmStakingFromSingle(ctx context.Context, payment types.Payment, path []types.SwapOperation, minOut sdkmath.Int, farm types.FarmConfig, owner sdk.AccAddress) (Result, error) {
	if c.nativeTokenID != "" && payment.TokenID == c.nativeTokenID {
		if c.nativeWrapper == nil {
			return Result{}, errorsmod.Wrap(types.ErrInvalidState, "Native token wrapping not configured")
		}
		wrapped, err := c.nativeWrapper.WrapNative(ctx, payment.Amount)
		if err != nil {
			return Result{}, types.ExternalFailure("native_wrapper", err)
		}
		payment = wrapped
	}
	swapped, err := c.router.Swap(ctx, payment, path, farm.FarmingTokenID, minOut)
	if err != nil {
		return Result{}, err
	}
	entered, err := c.driver.EnterFarm(ctx, farm.Address, owner, router.Final(swapped))
	if err != nil {
		return Result{}, err
	}
	if entered.NewFarmToken.TokenID != farm.FarmTokenID {
		return Result{}, errorsmod.Wrap(types.ErrExternalFailure, "Invalid farm token received")
	}
	residual := append(types.ClonePayments(router.Refunds(swapped)), entered.BoostedRewards)
	return Result{Position: entered.NewFarmToken, Residual: types.NonZero(residual)}, nil
}

// ExitLP removes liquidity, enforcing both minimum outputs.
func (c *Composer) ExitLP(ctx context.Context, lp types.Payment, pairAddr sdk.AccAddress, minFirst, minSecond sdkmath.Int) ([]types.Payment, error) {
	res, err := c.driver.RemoveLiquidity(ctx, pairAddr, lp, minFirst, minSecond)
	if err != nil {
		return nil, err
	}
	return types.NonZero([]types.Payment{res.FirstToken, res.SecondToken}), nil
}

// ExitFarm exits a farm position and, when the farm is backed by a pair, removes the
// liquidity returned.
func (c *Composer) ExitFarm(ctx context.Context, farmToken types.Payment, farm types.FarmConfig, owner sdk.AccAddress, minFirst, minSecond sdkmath.Int) ([]types.Payment, error) {
	exited, err := c.driver.ExitFarm(ctx, farm.Address, owner, farmToken)
	if err != nil {
		return nil, err
	}
	out := []types.Payment{exited.Rewards}
	if farm.PairAddress.Empty() {
		return types.NonZero(append([]types.Payment{exited.FarmingTokens}, out...)), nil
	}
	underlying, err := c.ExitLP(ctx, exited.FarmingTokens, farm.PairAddress, minFirst, minSecond)
	if err != nil {
		return nil, err
	}
	return types.NonZero(append(underlying, out...)), nil
}

// ExitMetastaking fully unstakes a dual yield position.
func (c *Composer) ExitMetastaking(ctx context.Context, dualYield types.Payment, ms types.MetastakingConfig, owner sdk.AccAddress, minFirst, minSecond sdkmath.Int) ([]types.Payment, error) {
	res, err := c.driver.UnstakeMetastaking(ctx, ms.Address, owner, dualYield, minFirst, minSecond, dualYield.Amount)
	if err != nil {
		return nil, err
	}
	return res.All(), nil
}
