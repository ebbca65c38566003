package simulations

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/autofarm/internal/types"
)

func TestSwapFixedInputFollowsConstantProduct(t *testing.T) {
	chain := NewChain()
	lp := AccountAddress("lp")
	user := AccountAddress("user")
	pair := chain.DeployPair("AAA", "BBB", "AAABBB")
	_, err := chain.SeedPair(pair, lp, sdkmath.NewInt(1_000_000_000), sdkmath.NewInt(2_000_000_000))
	require.NoError(t, err)

	chain.Mint(user, types.NewFungible("AAA", sdkmath.NewInt(100_000_000)))
	client, err := chain.Host(user).Resolver.Pair(pair)
	require.NoError(t, err)

	expected := AmountOut(sdkmath.NewInt(100_000_000), sdkmath.NewInt(1_000_000_000), sdkmath.NewInt(2_000_000_000))
	out, err := client.SwapTokensFixedInput(context.Background(), types.NewFungible("AAA", sdkmath.NewInt(100_000_000)), "BBB", sdkmath.OneInt())
	require.NoError(t, err)
	require.True(t, out.Amount.Equal(expected))
	require.True(t, chain.Balance(user, "BBB", 0).Equal(expected))
	require.True(t, chain.Balance(user, "AAA", 0).IsZero())

	first, second := chain.PairReserves(pair)
	require.True(t, first.Equal(sdkmath.NewInt(1_100_000_000)))
	require.True(t, second.Equal(sdkmath.NewInt(2_000_000_000).Sub(expected)))
}

func TestSwapFixedInputSlippage(t *testing.T) {
	chain := NewChain()
	user := AccountAddress("user")
	pair := chain.DeployPair("AAA", "BBB", "AAABBB")
	_, err := chain.SeedPair(pair, AccountAddress("lp"), sdkmath.NewInt(1_000_000), sdkmath.NewInt(1_000_000))
	require.NoError(t, err)
	chain.Mint(user, types.NewFungible("AAA", sdkmath.NewInt(1_000)))

	client, err := chain.Host(user).Resolver.Pair(pair)
	require.NoError(t, err)
	_, err = client.SwapTokensFixedInput(context.Background(), types.NewFungible("AAA", sdkmath.NewInt(1_000)), "BBB", sdkmath.NewInt(1_000))
	require.EqualError(t, err, "Slippage exceeded")
	require.True(t, chain.Balance(user, "AAA", 0).Equal(sdkmath.NewInt(1_000)))
}

func TestAddLiquidityEnforcesComputedAmounts(t *testing.T) {
	chain := NewChain()
	user := AccountAddress("user")
	pair := chain.DeployPair("AAA", "BBB", "AAABBB")
	_, err := chain.SeedPair(pair, AccountAddress("lp"), sdkmath.NewInt(1_000_000_000), sdkmath.NewInt(2_000_000_000))
	require.NoError(t, err)
	chain.Mint(user,
		types.NewFungible("AAA", sdkmath.NewInt(1_000_000)),
		types.NewFungible("BBB", sdkmath.NewInt(5_000_000)),
	)
	client, err := chain.Host(user).Resolver.Pair(pair)
	require.NoError(t, err)

	_, err = client.AddLiquidity(context.Background(),
		types.NewFungible("AAA", sdkmath.NewInt(1_000_000)),
		types.NewFungible("BBB", sdkmath.NewInt(5_000_000)),
		sdkmath.OneInt(), sdkmath.NewInt(2_000_001))
	require.EqualError(t, err, "Insufficient second token computed amount")

	res, err := client.AddLiquidity(context.Background(),
		types.NewFungible("AAA", sdkmath.NewInt(1_000_000)),
		types.NewFungible("BBB", sdkmath.NewInt(5_000_000)),
		sdkmath.OneInt(), sdkmath.NewInt(2_000_000))
	require.NoError(t, err)
	require.True(t, res.FirstLeftover.Amount.IsZero())
	require.True(t, res.SecondLeftover.Amount.Equal(sdkmath.NewInt(3_000_000)))
	require.True(t, chain.Balance(user, "BBB", 0).Equal(sdkmath.NewInt(3_000_000)))
	require.True(t, chain.Balance(user, "AAABBB", 0).Equal(res.LPTokens.Amount))
}

func TestFarmRewardsAccruePerBlock(t *testing.T) {
	chain := NewChain()
	user := AccountAddress("user")
	farm := chain.DeployFarm(FarmParams{
		FarmingTokenID: "LPT",
		FarmTokenID:    "FARM",
		RewardTokenID:  "MEX",
		PerBlockReward: sdkmath.NewInt(100),
	})
	chain.Mint(user, types.NewFungible("LPT", sdkmath.NewInt(1_000)))
	client, err := chain.Host(user).Resolver.Farm(farm)
	require.NoError(t, err)
	ctx := context.Background()

	entered, err := client.EnterFarm(ctx, user, []types.Payment{types.NewFungible("LPT", sdkmath.NewInt(1_000))})
	require.NoError(t, err)
	require.Equal(t, "FARM", entered.NewFarmToken.TokenID)
	require.True(t, entered.BoostedRewards.IsZero())

	chain.AdvanceBlocks(10)
	require.True(t, chain.PendingFarmRewards(farm, entered.NewFarmToken).Equal(sdkmath.NewInt(1_000)))

	claimed, err := client.ClaimRewards(ctx, user, entered.NewFarmToken)
	require.NoError(t, err)
	require.True(t, claimed.Rewards.Amount.Equal(sdkmath.NewInt(1_000)))
	require.NotEqual(t, entered.NewFarmToken.Nonce, claimed.NewFarmToken.Nonce)
	require.True(t, chain.Balance(user, "MEX", 0).Equal(sdkmath.NewInt(1_000)))
	require.True(t, chain.Balance(user, "FARM", entered.NewFarmToken.Nonce).IsZero())

	exited, err := client.ExitFarm(ctx, user, claimed.NewFarmToken)
	require.NoError(t, err)
	require.True(t, exited.FarmingTokens.Amount.Equal(sdkmath.NewInt(1_000)))
	require.True(t, exited.Rewards.IsZero())
}

func TestFarmStateStopsRewards(t *testing.T) {
	chain := NewChain()
	user := AccountAddress("user")
	farm := chain.DeployFarm(FarmParams{FarmingTokenID: "LPT", FarmTokenID: "FARM", RewardTokenID: "MEX", PerBlockReward: sdkmath.NewInt(10)})
	chain.Mint(user, types.NewFungible("LPT", sdkmath.NewInt(10)))
	client, err := chain.Host(user).Resolver.Farm(farm)
	require.NoError(t, err)
	entered, err := client.EnterFarm(context.Background(), user, []types.Payment{types.NewFungible("LPT", sdkmath.NewInt(10))})
	require.NoError(t, err)

	chain.SetFarmState(farm, types.FarmStateInactive)
	chain.AdvanceBlocks(5)
	require.True(t, chain.PendingFarmRewards(farm, entered.NewFarmToken).IsZero())

	raw, err := chain.Host(user).Storage.ReadStorage(context.Background(), farm, types.StorageKeyState)
	require.NoError(t, err)
	state, err := types.ParseFarmState(raw)
	require.NoError(t, err)
	require.Equal(t, types.FarmStateInactive, state)
}

func TestSnapshotRevert(t *testing.T) {
	chain := NewChain()
	a, b := AccountAddress("a"), AccountAddress("b")
	chain.Mint(a, types.NewFungible("TOK", sdkmath.NewInt(10)))

	id := chain.Snapshot()
	require.NoError(t, chain.Transfer(a, b, types.NewFungible("TOK", sdkmath.NewInt(4))))
	require.True(t, chain.Balance(b, "TOK", 0).Equal(sdkmath.NewInt(4)))

	chain.RevertToSnapshot(id)
	require.True(t, chain.Balance(a, "TOK", 0).Equal(sdkmath.NewInt(10)))
	require.True(t, chain.Balance(b, "TOK", 0).IsZero())
}

func TestMergeLockedTokensKeepsEnergy(t *testing.T) {
	chain := NewChain()
	chain.DeployEnergyFactory("XMEX", "MEX")
	user := AccountAddress("user")

	first, err := chain.LockTokens(user, sdkmath.NewInt(100), 10)
	require.NoError(t, err)
	second, err := chain.LockTokens(user, sdkmath.NewInt(100), 20)
	require.NoError(t, err)
	require.True(t, chain.Energy(user).Equal(sdkmath.NewInt(3_000)))

	merged, err := chain.Host(user).Energy.MergeTokens(context.Background(), user, []types.Payment{first, second})
	require.NoError(t, err)
	require.True(t, merged.Amount.Equal(sdkmath.NewInt(200)))

	attrs, ok := chain.LockedAttributes(merged.Nonce)
	require.True(t, ok)
	require.Equal(t, uint64(16), attrs.UnlockEpoch)
	require.True(t, chain.Energy(user).Equal(sdkmath.NewInt(3_000)))
	require.True(t, chain.Balance(user, "XMEX", first.Nonce).IsZero())
	require.True(t, chain.Balance(user, "XMEX", merged.Nonce).Equal(sdkmath.NewInt(200)))
}
