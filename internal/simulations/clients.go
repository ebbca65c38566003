package simulations

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/types"
)

// --- Resolver ---

type resolver struct {
	chain  *Chain
	caller sdk.AccAddress
}

func (r *resolver) Pair(addr sdk.AccAddress) (contracts.Pair, error) {
	r.chain.mu.Lock()
	defer r.chain.mu.Unlock()
	if _, ok := r.chain.state.pairs[string(addr)]; !ok {
		return nil, fmt.Errorf("%w: pair %s", contracts.ErrUnknownContract, addr)
	}
	return &pairClient{chain: r.chain, caller: r.caller, addr: addr}, nil
}

func (r *resolver) Farm(addr sdk.AccAddress) (contracts.Farm, error) {
	r.chain.mu.Lock()
	defer r.chain.mu.Unlock()
	if _, ok := r.chain.state.farms[string(addr)]; !ok {
		return nil, fmt.Errorf("%w: farm %s", contracts.ErrUnknownContract, addr)
	}
	return &farmClient{chain: r.chain, caller: r.caller, addr: addr}, nil
}

func (r *resolver) Metastaking(addr sdk.AccAddress) (contracts.Metastaking, error) {
	r.chain.mu.Lock()
	defer r.chain.mu.Unlock()
	if _, ok := r.chain.state.metastakes[string(addr)]; !ok {
		return nil, fmt.Errorf("%w: metastaking %s", contracts.ErrUnknownContract, addr)
	}
	return &metastakingClient{chain: r.chain, caller: r.caller, addr: addr}, nil
}

// --- Pair ---

type pairClient struct {
	chain  *Chain
	caller sdk.AccAddress
	addr   sdk.AccAddress
}

func (c *pairClient) state() (*pairState, error) {
	p, ok := c.chain.state.pairs[string(c.addr)]
	if !ok {
		return nil, contracts.ErrUnknownContract
	}
	return p, nil
}

func (c *pairClient) Tokens(_ context.Context) (contracts.PairTokens, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	p, err := c.state()
	if err != nil {
		return contracts.PairTokens{}, err
	}
	return p.Tokens, nil
}

func (c *pairClient) Reserves(_ context.Context) (sdkmath.Int, sdkmath.Int, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	p, err := c.state()
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return p.ReserveFirst, p.ReserveSecond, nil
}

func (c *pairClient) TotalFeePercent(_ context.Context) (uint64, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	if _, err := c.state(); err != nil {
		return 0, err
	}
	return uint64(PairTotalFee), nil
}

func (c *pairClient) SwapTokensFixedInput(_ context.Context, payment types.Payment, wantTokenID string, minOut sdkmath.Int) (types.Payment, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	p, err := c.state()
	if err != nil {
		return types.Payment{}, err
	}
	return c.chain.state.swapFixedInput(p, c.caller, payment, wantTokenID, minOut)
}

func (c *pairClient) SwapTokensFixedOutput(_ context.Context, payment types.Payment, wantTokenID string, amountOut sdkmath.Int) (types.SwapFixedOutputResult, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	p, err := c.state()
	if err != nil {
		return types.SwapFixedOutputResult{}, err
	}
	return c.chain.state.swapFixedOutput(p, c.caller, payment, wantTokenID, amountOut)
}

func (c *pairClient) AddLiquidity(_ context.Context, first, second types.Payment, minFirst, minSecond sdkmath.Int) (types.AddLiquidityResult, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	p, err := c.state()
	if err != nil {
		return types.AddLiquidityResult{}, err
	}
	return c.chain.state.addLiquidity(p, c.caller, first, second, minFirst, minSecond)
}

func (c *pairClient) RemoveLiquidity(_ context.Context, lpTokens types.Payment, minFirst, minSecond sdkmath.Int) (types.RemoveLiquidityResult, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	p, err := c.state()
	if err != nil {
		return types.RemoveLiquidityResult{}, err
	}
	return c.chain.state.removeLiquidity(p, c.caller, lpTokens, minFirst, minSecond)
}

// --- Farm ---

type farmClient struct {
	chain  *Chain
	caller sdk.AccAddress
	addr   sdk.AccAddress
}

func (c *farmClient) owner(originalOwner sdk.AccAddress) sdk.AccAddress {
	if originalOwner.Empty() {
		return c.caller
	}
	return originalOwner
}

func (c *farmClient) EnterFarm(_ context.Context, originalOwner sdk.AccAddress, list []types.Payment) (types.EnterFarmResult, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	f, err := c.chain.farm(c.addr)
	if err != nil {
		return types.EnterFarmResult{}, err
	}
	return c.chain.state.enterFarm(f, c.caller, c.owner(originalOwner), list)
}

func (c *farmClient) ClaimRewards(_ context.Context, originalOwner sdk.AccAddress, farmToken types.Payment) (types.ClaimFarmResult, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	f, err := c.chain.farm(c.addr)
	if err != nil {
		return types.ClaimFarmResult{}, err
	}
	return c.chain.state.claim(f, c.caller, c.caller, c.owner(originalOwner), farmToken)
}

func (c *farmClient) ExitFarm(_ context.Context, originalOwner sdk.AccAddress, farmToken types.Payment) (types.ExitFarmResult, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	f, err := c.chain.farm(c.addr)
	if err != nil {
		return types.ExitFarmResult{}, err
	}
	return c.chain.state.exit(f, c.caller, c.caller, c.caller, c.owner(originalOwner), farmToken, false)
}

// --- Metastaking ---

type metastakingClient struct {
	chain  *Chain
	caller sdk.AccAddress
	addr   sdk.AccAddress
}

func (c *metastakingClient) state() (*metastakingState, error) {
	m, ok := c.chain.state.metastakes[string(c.addr)]
	if !ok {
		return nil, contracts.ErrUnknownContract
	}
	return m, nil
}

func (c *metastakingClient) owner(originalOwner sdk.AccAddress) sdk.AccAddress {
	if originalOwner.Empty() {
		return c.caller
	}
	return originalOwner
}

func (c *metastakingClient) StakeFarmTokens(_ context.Context, originalOwner sdk.AccAddress, list []types.Payment) (types.StakeMetastakingResult, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	m, err := c.state()
	if err != nil {
		return types.StakeMetastakingResult{}, err
	}
	return c.chain.state.stakeMetastaking(m, c.caller, c.owner(originalOwner), list)
}

func (c *metastakingClient) ClaimDualYield(_ context.Context, originalOwner sdk.AccAddress, dualYield types.Payment) (types.ClaimMetastakingResult, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	m, err := c.state()
	if err != nil {
		return types.ClaimMetastakingResult{}, err
	}
	return c.chain.state.claimDualYield(m, c.caller, c.owner(originalOwner), dualYield)
}

func (c *metastakingClient) UnstakeFarmTokens(_ context.Context, originalOwner sdk.AccAddress, dualYield types.Payment, minFirst, minSecond, exitAmount sdkmath.Int) (types.UnstakeMetastakingResult, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	m, err := c.state()
	if err != nil {
		return types.UnstakeMetastakingResult{}, err
	}
	return c.chain.state.unstakeMetastaking(m, c.caller, c.owner(originalOwner), dualYield, minFirst, minSecond, exitAmount)
}

// --- Energy factory ---

type energyClient struct {
	chain  *Chain
	caller sdk.AccAddress
}

func (c *energyClient) LockVirtual(_ context.Context, tokenID string, amount sdkmath.Int, lockEpochs uint64, dest, energyAddress sdk.AccAddress) (types.Payment, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.state.lockVirtual(tokenID, amount, lockEpochs, dest, energyAddress)
}

func (c *energyClient) MergeTokens(_ context.Context, originalCaller sdk.AccAddress, tokens []types.Payment) (types.Payment, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.state.mergeLocked(c.caller, originalCaller, tokens)
}

func (c *energyClient) DeductEnergy(_ context.Context, from sdk.AccAddress, tokens []types.Payment) error {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.state.moveEnergy(from, tokens, -1)
}

func (c *energyClient) AddEnergy(_ context.Context, to sdk.AccAddress, tokens []types.Payment) error {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.state.moveEnergy(to, tokens, 1)
}

// --- Fees collector, metabonding, native wrapper ---

type feesCollectorClient struct {
	chain  *Chain
	caller sdk.AccAddress
}

func (c *feesCollectorClient) ClaimRewards(_ context.Context, user sdk.AccAddress) ([]types.Payment, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.state.claimFees(c.caller, user)
}

type metabondingClient struct {
	chain  *Chain
	caller sdk.AccAddress
}

func (c *metabondingClient) ClaimRewards(_ context.Context, user sdk.AccAddress, args []contracts.ClaimArgs) ([]types.Payment, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.state.claimMetabonding(c.caller, user, args)
}

type nativeWrapperClient struct {
	chain  *Chain
	caller sdk.AccAddress
}

func (c *nativeWrapperClient) WrapNative(_ context.Context, amount sdkmath.Int) (types.Payment, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.state.wrapNative(c.caller, amount)
}

// --- Ledger and storage ---

type ledgerClient struct {
	chain  *Chain
	caller sdk.AccAddress
}

func (c *ledgerClient) Send(_ context.Context, to sdk.AccAddress, list []types.Payment) error {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.state.transfer(c.caller, to, types.NonZero(list)...)
}

func (c *ledgerClient) Receive(_ context.Context, from sdk.AccAddress, list []types.Payment) error {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	return c.chain.state.transfer(from, c.caller, types.NonZero(list)...)
}

type storageClient struct {
	chain *Chain
}

func (c *storageClient) ReadStorage(_ context.Context, contract sdk.AccAddress, key string) ([]byte, error) {
	c.chain.mu.Lock()
	defer c.chain.mu.Unlock()
	value := c.chain.state.storage[string(contract)][key]
	return append([]byte(nil), value...), nil
}
