package compound

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/driver"
	"github.com/elys-network/autofarm/internal/registry"
	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/simulations"
	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/types"
)

type fixture struct {
	chain      *simulations.Chain
	engine     sdk.AccAddress
	user       sdk.AccAddress
	proxy      sdk.AccAddress
	driver     *driver.Driver
	txn        *store.Txn
	compounder *Compounder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	chain := simulations.NewChain()
	chain.DeployEnergyFactory("XMEX", "MEX")
	engine := simulations.AccountAddress("engine")
	host := chain.Host(engine)
	d := driver.New(host.Resolver)

	s, err := store.NewMemStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	txn := s.Begin()
	t.Cleanup(txn.Discard)
	txn.SetFeePercentage(1_000)

	return fixture{
		chain:      chain,
		engine:     engine,
		user:       simulations.AccountAddress("user"),
		proxy:      simulations.AccountAddress("proxy"),
		driver:     d,
		txn:        txn,
		compounder: New(d, rewards.NewAccountant(host.Energy, "XMEX"), host.FeesCollector, host.Metabonding, host.Storage),
	}
}

func (f fixture) deployFarm(t *testing.T, params simulations.FarmParams) sdk.AccAddress {
	t.Helper()
	addr := f.chain.DeployFarm(params)
	require.NoError(t, f.txn.SetFarmConfig(types.FarmConfig{
		Address:                addr,
		FarmingTokenID:         params.FarmingTokenID,
		FarmTokenID:            params.FarmTokenID,
		RewardTokenID:          params.RewardTokenID,
		State:                  types.FarmStateActive,
		PairAddress:            params.PairAddress,
		DivisionSafetyConstant: sdkmath.NewInt(1_000_000_000_000),
	}))
	return addr
}

// enter stakes fresh farming tokens for the user and deposits the position.
func (f fixture) enter(t *testing.T, farm sdk.AccAddress, farmingTokenID string, amount int64) types.Payment {
	t.Helper()
	payment := types.NewFungible(farmingTokenID, sdkmath.NewInt(amount))
	f.chain.Mint(f.engine, payment)
	res, err := f.driver.EnterFarm(context.Background(), farm, f.user, payment)
	require.NoError(t, err)
	require.NoError(t, registry.New(f.txn).DepositFarmTokens(f.user, []types.Payment{res.NewFarmToken}))
	return res.NewFarmToken
}

func (f fixture) entry(t *testing.T) registry.Entry {
	t.Helper()
	entry, err := registry.New(f.txn).Entry(f.user)
	require.NoError(t, err)
	return entry
}

func TestLockedRewardsAreChargedAndAttributed(t *testing.T) {
	f := newFixture(t)
	farm1 := f.deployFarm(t, simulations.FarmParams{
		FarmingTokenID: "LPAB", FarmTokenID: "FARMAB", RewardTokenID: "MEX",
		PerBlockReward: sdkmath.NewInt(1_000), LockRewards: true, LockEpochs: 10,
	})
	farm2 := f.deployFarm(t, simulations.FarmParams{
		FarmingTokenID: "LPBC", FarmTokenID: "FARMBC", RewardTokenID: "MEX",
		PerBlockReward: sdkmath.NewInt(1_000), LockRewards: true, LockEpochs: 10,
	})
	f.enter(t, farm1, "LPAB", 100_000_000)
	f.enter(t, farm2, "LPBC", 50_000_000)
	f.chain.AdvanceBlocks(10)

	report, err := f.compounder.Run(context.Background(), f.txn, f.user, nil, f.proxy)
	require.NoError(t, err)
	require.NotNil(t, report.ClaimedLocked)
	require.True(t, report.ClaimedLocked.Amount.Equal(sdkmath.NewInt(20_000)))
	require.NotNil(t, report.FeesLocked)
	require.True(t, report.FeesLocked.Amount.Equal(sdkmath.NewInt(2_000)))
	require.Empty(t, report.Compounded)

	entry := f.entry(t)
	require.NotNil(t, entry.Rewards.Locked)
	require.True(t, entry.Rewards.Locked.Amount.Equal(sdkmath.NewInt(18_000)))
	require.True(t, entry.Rewards.Other.IsEmpty())
	require.True(t, entry.FarmTokens.TotalOf("FARMAB").Equal(sdkmath.NewInt(100_000_000)))
	require.True(t, entry.FarmTokens.TotalOf("FARMBC").Equal(sdkmath.NewInt(50_000_000)))

	fees, err := f.txn.AccumulatedFees()
	require.NoError(t, err)
	require.True(t, fees.Locked.Amount.Equal(sdkmath.NewInt(2_000)))

	// Ten remaining epochs of lock per unit.
	require.True(t, f.chain.Energy(f.proxy).Equal(sdkmath.NewInt(20_000)))
	require.True(t, f.chain.Energy(f.user).Equal(sdkmath.NewInt(180_000)))
	require.True(t, f.chain.TotalOf(f.engine, "XMEX").Equal(sdkmath.NewInt(20_000)))
	require.True(t, f.chain.TotalOf(f.engine, "FARMAB").Equal(sdkmath.NewInt(100_000_000)))
}

func TestCompoundWalkIsIndexStable(t *testing.T) {
	f := newFixture(t)
	stakeMEX := f.deployFarm(t, simulations.FarmParams{FarmingTokenID: "MEX", FarmTokenID: "STKMEX", RewardTokenID: "MEX"})
	stakeBBB := f.deployFarm(t, simulations.FarmParams{FarmingTokenID: "BBB", FarmTokenID: "STKBBB", RewardTokenID: "BBB"})
	f.enter(t, stakeMEX, "MEX", 1_000)
	f.enter(t, stakeBBB, "BBB", 1_000)
	f.chain.FundFeesCollector(f.user, types.NewFungible("MEX", sdkmath.NewInt(1_000)), types.NewFungible("BBB", sdkmath.NewInt(2_000)))

	report, err := f.compounder.Run(context.Background(), f.txn, f.user, nil, f.proxy)
	require.NoError(t, err)
	require.Len(t, report.Claimed, 2)
	require.Len(t, report.Fees, 2)
	require.Len(t, report.Compounded, 2)

	entry := f.entry(t)
	require.True(t, entry.Rewards.IsEmpty())
	require.True(t, entry.FarmTokens.TotalOf("STKMEX").Equal(sdkmath.NewInt(1_900)))
	require.True(t, entry.FarmTokens.TotalOf("STKBBB").Equal(sdkmath.NewInt(2_800)))
	require.Equal(t, 2, entry.FarmTokens.Len())

	fees, err := f.txn.AccumulatedFees()
	require.NoError(t, err)
	require.True(t, fees.Other.TotalOf("MEX").Equal(sdkmath.NewInt(100)))
	require.True(t, fees.Other.TotalOf("BBB").Equal(sdkmath.NewInt(200)))
	require.True(t, f.chain.TotalOf(f.engine, "MEX").Equal(sdkmath.NewInt(100)))
}

func TestInactiveFarmIsSkippedUntilReactivated(t *testing.T) {
	f := newFixture(t)
	lpFarm := f.deployFarm(t, simulations.FarmParams{
		FarmingTokenID: "LPAB", FarmTokenID: "FARMAB", RewardTokenID: "MEX", PerBlockReward: sdkmath.NewInt(100),
	})
	stakeMEX := f.deployFarm(t, simulations.FarmParams{FarmingTokenID: "MEX", FarmTokenID: "STKMEX", RewardTokenID: "MEX"})
	f.enter(t, lpFarm, "LPAB", 10_000)
	f.enter(t, stakeMEX, "MEX", 500)
	f.chain.SetFarmState(stakeMEX, types.FarmStateInactive)
	f.chain.AdvanceBlocks(10)

	ctx := context.Background()
	report, err := f.compounder.Run(ctx, f.txn, f.user, nil, f.proxy)
	require.NoError(t, err)
	require.Empty(t, report.Compounded)

	entry := f.entry(t)
	require.True(t, entry.Rewards.Other.TotalOf("MEX").Equal(sdkmath.NewInt(900)))
	cfg, found, err := f.txn.FarmConfig(stakeMEX)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.FarmStateInactive, cfg.State)

	f.chain.SetFarmState(stakeMEX, types.FarmStateActive)
	report, err = f.compounder.Run(ctx, f.txn, f.user, nil, f.proxy)
	require.NoError(t, err)
	require.Len(t, report.Compounded, 1)

	entry = f.entry(t)
	require.True(t, entry.Rewards.IsEmpty())
	require.True(t, entry.FarmTokens.TotalOf("STKMEX").Equal(sdkmath.NewInt(1_400)))
}

func TestMetabondingClaim(t *testing.T) {
	f := newFixture(t)
	_, err := registry.New(f.txn).Register(f.user)
	require.NoError(t, err)
	f.chain.FundMetabonding(f.user, 1, types.NewFungible("BBB", sdkmath.NewInt(70)))

	ctx := context.Background()
	_, err = f.compounder.Run(ctx, f.txn, f.user, []contracts.ClaimArgs{{Week: 1}}, f.proxy)
	require.True(t, errors.Is(err, types.ErrExternalFailure))
	require.Equal(t, "Invalid signature", err.Error())

	report, err := f.compounder.Run(ctx, f.txn, f.user, []contracts.ClaimArgs{{Week: 1, Signature: []byte{1}}}, f.proxy)
	require.NoError(t, err)
	require.Len(t, report.Claimed, 1)
	require.True(t, report.Claimed[0].Amount.Equal(sdkmath.NewInt(70)))

	entry := f.entry(t)
	require.True(t, entry.Rewards.Other.TotalOf("BBB").Equal(sdkmath.NewInt(63)))
}

func TestUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.compounder.Run(context.Background(), f.txn, f.user, nil, f.proxy)
	require.True(t, errors.Is(err, types.ErrInvalidState))
}
