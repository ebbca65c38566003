package driver

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/autofarm/internal/simulations"
	"github.com/elys-network/autofarm/internal/types"
)

func TestAddLiquidityChecksTokenOrder(t *testing.T) {
	chain := simulations.NewChain()
	engine := simulations.AccountAddress("engine")
	pair := chain.DeployPair("AAA", "BBB", "LPAB")
	_, err := chain.SeedPair(pair, simulations.AccountAddress("lp"), sdkmath.NewInt(1_000_000), sdkmath.NewInt(1_000_000))
	require.NoError(t, err)
	chain.Mint(engine, types.NewFungible("AAA", sdkmath.NewInt(1_000)), types.NewFungible("BBB", sdkmath.NewInt(1_000)))

	d := New(chain.Host(engine).Resolver)
	ctx := context.Background()

	_, err = d.AddLiquidity(ctx, pair, types.NewFungible("BBB", sdkmath.NewInt(1_000)), types.NewFungible("AAA", sdkmath.NewInt(1_000)), sdkmath.OneInt(), sdkmath.OneInt())
	require.True(t, errors.Is(err, types.ErrInvalidArgument))

	_, err = d.AddLiquidity(ctx, pair, types.NewPayment("AAA", 2, sdkmath.NewInt(1_000)), types.NewFungible("BBB", sdkmath.NewInt(1_000)), sdkmath.OneInt(), sdkmath.OneInt())
	require.True(t, errors.Is(err, types.ErrInvalidArgument))

	res, err := d.AddLiquidity(ctx, pair, types.NewFungible("AAA", sdkmath.NewInt(1_000)), types.NewFungible("BBB", sdkmath.NewInt(1_000)), sdkmath.OneInt(), sdkmath.OneInt())
	require.NoError(t, err)
	require.Equal(t, "LPAB", res.LPTokens.TokenID)
	require.True(t, res.LPTokens.Amount.Equal(sdkmath.NewInt(1_000)))
}

func TestExternalRevertIsSurfacedVerbatim(t *testing.T) {
	chain := simulations.NewChain()
	engine := simulations.AccountAddress("engine")
	pair := chain.DeployPair("AAA", "BBB", "LPAB")
	_, err := chain.SeedPair(pair, simulations.AccountAddress("lp"), sdkmath.NewInt(1_000_000_000), sdkmath.NewInt(2_000_000_000))
	require.NoError(t, err)
	chain.Mint(engine, types.NewFungible("AAA", sdkmath.NewInt(1_000_000)), types.NewFungible("BBB", sdkmath.NewInt(2_000_000)))

	d := New(chain.Host(engine).Resolver)
	_, err = d.AddLiquidity(context.Background(), pair,
		types.NewFungible("AAA", sdkmath.NewInt(1_000_000)), types.NewFungible("BBB", sdkmath.NewInt(2_000_000)),
		sdkmath.OneInt(), sdkmath.NewInt(2_000_001))
	require.True(t, errors.Is(err, types.ErrExternalFailure))
	require.Equal(t, "Insufficient second token computed amount", err.Error())
}

func TestUnknownContracts(t *testing.T) {
	chain := simulations.NewChain()
	engine := simulations.AccountAddress("engine")
	d := New(chain.Host(engine).Resolver)
	ctx := context.Background()
	nowhere := simulations.ContractAddress("nowhere")

	_, err := d.PairTokens(ctx, nowhere)
	require.True(t, errors.Is(err, types.ErrInvalidState))
	_, err = d.EnterFarm(ctx, nowhere, engine, types.NewFungible("LP", sdkmath.NewInt(1)))
	require.True(t, errors.Is(err, types.ErrInvalidState))
	_, err = d.ClaimMetastaking(ctx, nowhere, engine, types.NewPayment("DY", 1, sdkmath.NewInt(1)))
	require.True(t, errors.Is(err, types.ErrInvalidState))
}

func TestFarmRoundTrip(t *testing.T) {
	chain := simulations.NewChain()
	engine := simulations.AccountAddress("engine")
	user := simulations.AccountAddress("user")
	farm := chain.DeployFarm(simulations.FarmParams{
		FarmingTokenID: "LPAB",
		FarmTokenID:    "FARMAB",
		RewardTokenID:  "MEX",
		PerBlockReward: sdkmath.NewInt(50),
	})
	chain.Mint(engine, types.NewFungible("LPAB", sdkmath.NewInt(500)))
	chain.GrantBoostedRewards(farm, user, sdkmath.NewInt(7))

	d := New(chain.Host(engine).Resolver)
	ctx := context.Background()
	entered, err := d.EnterFarm(ctx, farm, user, types.NewFungible("LPAB", sdkmath.NewInt(500)))
	require.NoError(t, err)
	require.True(t, entered.BoostedRewards.Amount.Equal(sdkmath.NewInt(7)))

	chain.AdvanceBlocks(4)
	claimed, err := d.ClaimFarm(ctx, farm, user, entered.NewFarmToken)
	require.NoError(t, err)
	require.True(t, claimed.Rewards.Amount.Equal(sdkmath.NewInt(200)))

	exited, err := d.ExitFarm(ctx, farm, user, claimed.NewFarmToken)
	require.NoError(t, err)
	require.True(t, exited.FarmingTokens.Amount.Equal(sdkmath.NewInt(500)))
	require.True(t, chain.Balance(engine, "LPAB", 0).Equal(sdkmath.NewInt(500)))
	require.True(t, chain.Balance(engine, "MEX", 0).Equal(sdkmath.NewInt(207)))
}
