package composer

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/autofarm/internal/driver"
	"github.com/elys-network/autofarm/internal/router"
	"github.com/elys-network/autofarm/internal/simulations"
	"github.com/elys-network/autofarm/internal/types"
)

type fixture struct {
	chain    *simulations.Chain
	engine   sdk.AccAddress
	user     sdk.AccAddress
	pairAB   sdk.AccAddress
	pairBC   sdk.AccAddress
	composer *Composer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	chain := simulations.NewChain()
	engine := simulations.AccountAddress("engine")
	seeder := simulations.AccountAddress("seeder")
	pairAB := chain.DeployPair("AAA", "BBB", "LPAB")
	pairBC := chain.DeployPair("BBB", "CCC", "LPBC")
	_, err := chain.SeedPair(pairAB, seeder, sdkmath.NewInt(1_000_000_000), sdkmath.NewInt(2_000_000_000))
	require.NoError(t, err)
	_, err = chain.SeedPair(pairBC, seeder, sdkmath.NewInt(1_000_000_000), sdkmath.NewInt(1_000_000_000))
	require.NoError(t, err)

	host := chain.Host(engine)
	d := driver.New(host.Resolver)
	return fixture{
		chain:    chain,
		engine:   engine,
		user:     simulations.AccountAddress("user"),
		pairAB:   pairAB,
		pairBC:   pairBC,
		composer: New(d, router.New(d), host.NativeWrapper, simulations.NativeTokenID),
	}
}

// requireHeld checks that the engine holds exactly the payments of the result.
func (f fixture) requireHeld(t *testing.T, out []types.Payment) {
	t.Helper()
	require.Len(t, f.chain.Holdings(f.engine), len(out))
	for _, p := range out {
		require.True(t, f.chain.Balance(f.engine, p.TokenID, p.Nonce).Equal(p.Amount), "balance of %s", p)
	}
}

func TestRebalance(t *testing.T) {
	tests := []struct {
		name      string
		xa, xb    int64
		ra, rb    int64
		sellFirst bool
		amount    int64
	}{
		{name: "surplus of first", xa: 100, xb: 100, ra: 1_000, rb: 2_000, sellFirst: true, amount: 25},
		{name: "surplus of second", xa: 100, xb: 300, ra: 1_000, rb: 2_000, sellFirst: false, amount: 50},
		{name: "already balanced", xa: 100, xb: 200, ra: 1_000, rb: 2_000, sellFirst: true, amount: 0},
		{name: "empty pool", xa: 100, xb: 200, ra: 0, rb: 0, sellFirst: false, amount: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sellFirst, amount := Rebalance(sdkmath.NewInt(tt.xa), sdkmath.NewInt(tt.xb), sdkmath.NewInt(tt.ra), sdkmath.NewInt(tt.rb))
			require.Equal(t, tt.sellFirst, sellFirst)
			require.True(t, amount.Equal(sdkmath.NewInt(tt.amount)), "got %s", amount)
		})
	}
}

func TestSingleSidedSwapAmount(t *testing.T) {
	tests := []struct {
		name    string
		x       int64
		reserve int64
		fee     uint64
		want    int64
	}{
		{name: "small input", x: 12_345, reserve: 1_000_000_000, fee: 300, want: 6_181},
		{name: "medium input", x: 1_000_000, reserve: 1_000_000_000, fee: 300, want: 500_626},
		{name: "large input", x: 50_000_000, reserve: 1_000_000_000, fee: 300, want: 24_732_175},
		{name: "no fee sells less than half", x: 1_000_000, reserve: 1_000_000_000, fee: 0, want: 499_875},
		{name: "zero input", x: 0, reserve: 1_000_000_000, fee: 300, want: 0},
		{name: "empty pool", x: 1_000, reserve: 0, fee: 300, want: 0},
		{name: "fee out of range", x: 1_000, reserve: 1_000, fee: 100_000, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SingleSidedSwapAmount(sdkmath.NewInt(tt.x), sdkmath.NewInt(tt.reserve), tt.fee, 100_000)
			require.True(t, got.Equal(sdkmath.NewInt(tt.want)), "got %s", got)
		})
	}
}

func TestLPFromSingleWithoutPath(t *testing.T) {
	f := newFixture(t)
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(1_000_000)))

	res, err := f.composer.LPFromSingle(context.Background(), types.NewFungible("AAA", sdkmath.NewInt(1_000_000)),
		f.pairAB, nil, sdkmath.OneInt(), sdkmath.OneInt())
	require.NoError(t, err)
	require.Equal(t, "LPAB", res.Position.TokenID)
	require.True(t, res.Position.Amount.IsPositive())
	for _, p := range res.Residual {
		require.Contains(t, []string{"AAA", "BBB"}, p.TokenID)
		require.True(t, p.Amount.LTE(sdkmath.NewInt(2)), "residual %s", p)
	}
	f.requireHeld(t, res.All())
}

func TestLPFromSingleThroughPath(t *testing.T) {
	f := newFixture(t)
	f.chain.Mint(f.engine, types.NewFungible("CCC", sdkmath.NewInt(500_000)))

	path := []types.SwapOperation{{PairAddress: f.pairBC, Mode: types.SwapFixedInput, OutputTokenID: "BBB", Amount: sdkmath.OneInt()}}
	res, err := f.composer.LPFromSingle(context.Background(), types.NewFungible("CCC", sdkmath.NewInt(500_000)),
		f.pairAB, path, sdkmath.OneInt(), sdkmath.OneInt())
	require.NoError(t, err)
	require.Equal(t, "LPAB", res.Position.TokenID)
	require.True(t, f.chain.Balance(f.engine, "CCC", 0).IsZero())
	f.requireHeld(t, res.All())
}

func TestLPFromSingleRejectsForeignToken(t *testing.T) {
	f := newFixture(t)
	f.chain.Mint(f.engine, types.NewFungible("CCC", sdkmath.NewInt(1_000)))

	_, err := f.composer.LPFromSingle(context.Background(), types.NewFungible("CCC", sdkmath.NewInt(1_000)),
		f.pairAB, nil, sdkmath.OneInt(), sdkmath.OneInt())
	require.True(t, errors.Is(err, types.ErrInvalidArgument))
	require.Contains(t, err.Error(), "Bad payment tokens")
}

func TestLPFromTwoAcceptsEitherOrder(t *testing.T) {
	f := newFixture(t)
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(100_000)), types.NewFungible("BBB", sdkmath.NewInt(600_000)))

	res, err := f.composer.LPFromTwo(context.Background(),
		types.NewFungible("BBB", sdkmath.NewInt(600_000)), types.NewFungible("AAA", sdkmath.NewInt(100_000)),
		f.pairAB, sdkmath.OneInt(), sdkmath.OneInt())
	require.NoError(t, err)
	require.Equal(t, "LPAB", res.Position.TokenID)
	f.requireHeld(t, res.All())

	// After rebalancing, the residual is a small fraction of the input.
	for _, p := range res.Residual {
		require.True(t, p.Amount.LT(sdkmath.NewInt(10_000)), "residual %s", p)
	}
}

func TestLPFromTwoRejectsWrongTokens(t *testing.T) {
	f := newFixture(t)
	_, err := f.composer.LPFromTwo(context.Background(),
		types.NewFungible("AAA", sdkmath.NewInt(1)), types.NewFungible("CCC", sdkmath.NewInt(1)),
		f.pairAB, sdkmath.OneInt(), sdkmath.OneInt())
	require.True(t, errors.Is(err, types.ErrInvalidArgument))
}

func TestLPFromTwoSlippage(t *testing.T) {
	f := newFixture(t)
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(1_000)), types.NewFungible("BBB", sdkmath.NewInt(2_000)))

	_, err := f.composer.LPFromTwo(context.Background(),
		types.NewFungible("AAA", sdkmath.NewInt(1_000)), types.NewFungible("BBB", sdkmath.NewInt(2_000)),
		f.pairAB, sdkmath.OneInt(), sdkmath.NewInt(1_000_000))
	require.Error(t, err)
}

func TestFarmFromTwoAndExit(t *testing.T) {
	f := newFixture(t)
	farmAddr := f.chain.DeployFarm(simulations.FarmParams{
		FarmingTokenID: "LPAB",
		FarmTokenID:    "FARMAB",
		RewardTokenID:  "MEX",
		PairAddress:    f.pairAB,
		PerBlockReward: sdkmath.NewInt(100),
	})
	f.chain.GrantBoostedRewards(farmAddr, f.user, sdkmath.NewInt(5))
	farm := types.FarmConfig{
		Address:        farmAddr,
		FarmingTokenID: "LPAB",
		FarmTokenID:    "FARMAB",
		RewardTokenID:  "MEX",
		State:          types.FarmStateActive,
		PairAddress:    f.pairAB,
	}
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(100_000)), types.NewFungible("BBB", sdkmath.NewInt(200_000)))

	ctx := context.Background()
	res, err := f.composer.FarmFromTwo(ctx,
		types.NewFungible("AAA", sdkmath.NewInt(100_000)), types.NewFungible("BBB", sdkmath.NewInt(200_000)),
		f.pairAB, sdkmath.OneInt(), sdkmath.OneInt(), farm, f.user)
	require.NoError(t, err)
	require.Equal(t, "FARMAB", res.Position.TokenID)
	require.True(t, res.Position.Amount.Equal(sdkmath.NewInt(100_000)))
	boosted := sdkmath.ZeroInt()
	for _, p := range res.Residual {
		if p.TokenID == "MEX" {
			boosted = boosted.Add(p.Amount)
		}
	}
	require.True(t, boosted.Equal(sdkmath.NewInt(5)))

	f.chain.AdvanceBlocks(3)
	out, err := f.composer.ExitFarm(ctx, res.Position, farm, f.user, sdkmath.OneInt(), sdkmath.OneInt())
	require.NoError(t, err)
	tokens := map[string]sdkmath.Int{}
	for _, p := range out {
		tokens[p.TokenID] = p.Amount
	}
	require.True(t, tokens["AAA"].IsPositive())
	require.True(t, tokens["BBB"].IsPositive())
	require.True(t, tokens["MEX"].Equal(sdkmath.NewInt(300)))
}

func TestFarmRejectsMismatchedFarmingToken(t *testing.T) {
	f := newFixture(t)
	farmAddr := f.chain.DeployFarm(simulations.FarmParams{FarmingTokenID: "LPBC", FarmTokenID: "FARMBC", RewardTokenID: "MEX"})
	farm := types.FarmConfig{Address: farmAddr, FarmingTokenID: "LPBC", FarmTokenID: "FARMBC", RewardTokenID: "MEX"}
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(10_000)), types.NewFungible("BBB", sdkmath.NewInt(20_000)))

	_, err := f.composer.FarmFromTwo(context.Background(),
		types.NewFungible("AAA", sdkmath.NewInt(10_000)), types.NewFungible("BBB", sdkmath.NewInt(20_000)),
		f.pairAB, sdkmath.OneInt(), sdkmath.OneInt(), farm, f.user)
	require.True(t, errors.Is(err, types.ErrInvalidArgument))
}

func TestFarmStakingFromNative(t *testing.T) {
	f := newFixture(t)
	f.chain.DeployNativeWrapper("WEGLD")
	pairWM := f.chain.DeployPair("WEGLD", "MEX", "LPWM")
	_, err := f.chain.SeedPair(pairWM, simulations.AccountAddress("seeder"), sdkmath.NewInt(1_000_000_000), sdkmath.NewInt(1_000_000_000))
	require.NoError(t, err)
	farmAddr := f.chain.DeployFarm(simulations.FarmParams{FarmingTokenID: "MEX", FarmTokenID: "STKMEX", RewardTokenID: "MEX"})
	farm := types.FarmConfig{Address: farmAddr, FarmingTokenID: "MEX", FarmTokenID: "STKMEX", RewardTokenID: "MEX", State: types.FarmStateActive}
	f.chain.Mint(f.engine, types.NewFungible(simulations.NativeTokenID, sdkmath.NewInt(10_000)))

	expected := simulations.AmountOut(sdkmath.NewInt(10_000), sdkmath.NewInt(1_000_000_000), sdkmath.NewInt(1_000_000_000))
	path := []types.SwapOperation{{PairAddress: pairWM, Mode: types.SwapFixedInput, OutputTokenID: "MEX", Amount: sdkmath.OneInt()}}
	res, err := f.composer.FarmStakingFromSingle(context.Background(), types.NewFungible(simulations.NativeTokenID, sdkmath.NewInt(10_000)),
		path, sdkmath.OneInt(), farm, f.user)
	require.NoError(t, err)
	require.Equal(t, "STKMEX", res.Position.TokenID)
	require.True(t, res.Position.Amount.Equal(expected))
	require.Empty(t, res.Residual)
	f.requireHeld(t, res.All())
}

func TestMetastakingRoundTrip(t *testing.T) {
	f := newFixture(t)
	lpFarm := f.chain.DeployFarm(simulations.FarmParams{
		FarmingTokenID: "LPAB",
		FarmTokenID:    "FARMAB",
		RewardTokenID:  "MEX",
		PairAddress:    f.pairAB,
		PerBlockReward: sdkmath.NewInt(10),
	})
	stakingFarm := f.chain.DeployFarm(simulations.FarmParams{
		FarmingTokenID: "BBB",
		FarmTokenID:    "STKBBB",
		RewardTokenID:  "BBB",
		PerBlockReward: sdkmath.NewInt(10),
	})
	msAddr, err := f.chain.DeployMetastaking(simulations.MetastakingParams{
		LPFarmAddress:      lpFarm,
		StakingFarmAddress: stakingFarm,
		PairAddress:        f.pairAB,
		DualYieldTokenID:   "METAAB",
		StakingTokenID:     "BBB",
	})
	require.NoError(t, err)
	ms := types.MetastakingConfig{
		Address:            msAddr,
		LPFarmAddress:      lpFarm,
		StakingFarmAddress: stakingFarm,
		LPFarmTokenID:      "FARMAB",
		DualYieldTokenID:   "METAAB",
		StakingTokenID:     "BBB",
	}
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(100_000)))

	ctx := context.Background()
	res, err := f.composer.MetastakingFromSingle(ctx, types.NewFungible("AAA", sdkmath.NewInt(100_000)),
		f.pairAB, nil, sdkmath.OneInt(), sdkmath.OneInt(), ms, f.user)
	require.NoError(t, err)
	require.Equal(t, "METAAB", res.Position.TokenID)
	f.requireHeld(t, res.All())

	out, err := f.composer.ExitMetastaking(ctx, res.Position, ms, f.user, sdkmath.OneInt(), sdkmath.OneInt())
	require.NoError(t, err)
	held := map[string]bool{}
	for _, p := range out {
		held[p.TokenID] = true
	}
	require.True(t, held["AAA"])
	require.True(t, held["BBB-UNBOND"])
	require.True(t, f.chain.Balance(f.engine, "METAAB", res.Position.Nonce).IsZero())
}
