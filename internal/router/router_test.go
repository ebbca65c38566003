package router

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/autofarm/internal/driver"
	"github.com/elys-network/autofarm/internal/simulations"
	"github.com/elys-network/autofarm/internal/types"
)

type fixture struct {
	chain  *simulations.Chain
	engine sdk.AccAddress
	pairAB sdk.AccAddress
	pairBC sdk.AccAddress
	router *Router
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
	return fixture{
		chain:  chain,
		engine: engine,
		pairAB: pairAB,
		pairBC: pairBC,
		router: New(driver.New(chain.Host(engine).Resolver)),
	}
}

func fixedInput(pair sdk.AccAddress, out string, min int64) types.SwapOperation {
	return types.SwapOperation{PairAddress: pair, Mode: types.SwapFixedInput, OutputTokenID: out, Amount: sdkmath.NewInt(min)}
}

func TestSwapThreadsOutputs(t *testing.T) {
	f := newFixture(t)
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(1_000_000)))

	midOut := simulations.AmountOut(sdkmath.NewInt(1_000_000), sdkmath.NewInt(1_000_000_000), sdkmath.NewInt(2_000_000_000))
	finalOut := simulations.AmountOut(midOut, sdkmath.NewInt(1_000_000_000), sdkmath.NewInt(1_000_000_000))

	res, err := f.router.Swap(context.Background(), types.NewFungible("AAA", sdkmath.NewInt(1_000_000)),
		[]types.SwapOperation{fixedInput(f.pairAB, "BBB", 1), fixedInput(f.pairBC, "CCC", 1)},
		"CCC", sdkmath.OneInt())
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "CCC", Final(res).TokenID)
	require.True(t, Final(res).Amount.Equal(finalOut))
	require.True(t, f.chain.Balance(f.engine, "CCC", 0).Equal(finalOut))
}

func TestSwapRejectsWrongFinalToken(t *testing.T) {
	f := newFixture(t)
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(1_000)))

	_, err := f.router.Swap(context.Background(), types.NewFungible("AAA", sdkmath.NewInt(1_000)),
		[]types.SwapOperation{fixedInput(f.pairAB, "BBB", 1)}, "CCC", sdkmath.OneInt())
	require.True(t, errors.Is(err, types.ErrInvalidArgument))
	require.Contains(t, err.Error(), "Invalid swap output token identifier")
}

func TestSwapFinalSlippage(t *testing.T) {
	f := newFixture(t)
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(1_000)))

	_, err := f.router.Swap(context.Background(), types.NewFungible("AAA", sdkmath.NewInt(1_000)),
		[]types.SwapOperation{fixedInput(f.pairAB, "BBB", 1)}, "BBB", sdkmath.NewInt(1_000_000))
	require.True(t, errors.Is(err, types.ErrSlippageExceeded))
}

func TestSwapPerStepCircuitBreaker(t *testing.T) {
	f := newFixture(t)
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(1_000)))

	_, err := f.router.Swap(context.Background(), types.NewFungible("AAA", sdkmath.NewInt(1_000)),
		[]types.SwapOperation{fixedInput(f.pairAB, "BBB", 1_000_000)}, "BBB", sdkmath.OneInt())
	require.True(t, errors.Is(err, types.ErrExternalFailure))
	require.Equal(t, "Slippage exceeded", err.Error())
}

func TestSwapFixedOutputKeepsRefund(t *testing.T) {
	f := newFixture(t)
	f.chain.Mint(f.engine, types.NewFungible("AAA", sdkmath.NewInt(10_000)))

	res, err := f.router.Swap(context.Background(), types.NewFungible("AAA", sdkmath.NewInt(10_000)),
		[]types.SwapOperation{{PairAddress: f.pairAB, Mode: types.SwapFixedOutput, OutputTokenID: "BBB", Amount: sdkmath.NewInt(1_000)}},
		"BBB", sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "AAA", Refunds(res)[0].TokenID)
	require.True(t, Final(res).Amount.Equal(sdkmath.NewInt(1_000)))
}

func TestEmptyPathPassesThrough(t *testing.T) {
	f := newFixture(t)
	res, err := f.router.Swap(context.Background(), types.NewFungible("AAA", sdkmath.NewInt(5)), nil, "AAA", sdkmath.OneInt())
	require.NoError(t, err)
	require.Len(t, res, 1)

	_, err = f.router.Swap(context.Background(), types.NewPayment("AAA", 3, sdkmath.NewInt(5)), nil, "AAA", sdkmath.OneInt())
	require.True(t, errors.Is(err, types.ErrInvalidArgument))
}
