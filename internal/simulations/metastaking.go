package simulations

import (
	"errors"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/types"
)

var (
	errMetastakingBadPayments = errors.New("Invalid payment")
	errMetastakingNoPosition  = errors.New("Unknown dual yield position")
	errMetastakingNoValue     = errors.New("Staking amount too low")
)

// MetastakingParams configures a simulated metastaking contract. The LP farm must accept
// the pair's LP token and the staking farm must accept StakingTokenID, one of the pair tokens.
type MetastakingParams struct {
	LPFarmAddress      sdk.AccAddress
	StakingFarmAddress sdk.AccAddress
	PairAddress        sdk.AccAddress
	DualYieldTokenID   string
	StakingTokenID     string
	UnbondTokenID      string
}

type dualYieldPosition struct {
	LPFarmNonce      uint64
	LPFarmAmount     sdkmath.Int
	StakingFarmNonce uint64
	StakingAmount    sdkmath.Int
}

type metastakingState struct {
	Address       sdk.AccAddress
	Params        MetastakingParams
	LPFarmTokenID string
	NextNonce     uint64
	Positions     map[uint64]dualYieldPosition
}

func (m *metastakingState) clone() *metastakingState {
	c := *m
	c.Positions = make(map[uint64]dualYieldPosition, len(m.Positions))
	for k, v := range m.Positions {
		c.Positions[k] = v
	}
	return &c
}

// DeployMetastaking creates a metastaking contract over an LP farm and a staking farm.
func (c *Chain) DeployMetastaking(params MetastakingParams) (sdk.AccAddress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lpFarm, err := c.farm(params.LPFarmAddress)
	if err != nil {
		return nil, err
	}
	if _, err := c.farm(params.StakingFarmAddress); err != nil {
		return nil, err
	}
	if _, ok := c.state.pairs[string(params.PairAddress)]; !ok {
		return nil, contracts.ErrUnknownContract
	}
	if params.UnbondTokenID == "" {
		params.UnbondTokenID = params.StakingTokenID + "-UNBOND"
	}
	addr := c.nextContract("metastaking")
	c.state.metastakes[string(addr)] = &metastakingState{
		Address:       addr,
		Params:        params,
		LPFarmTokenID: lpFarm.Params.FarmTokenID,
		Positions:     make(map[uint64]dualYieldPosition),
	}
	c.state.setStorage(addr, types.StorageKeyLPFarmAddress, params.LPFarmAddress.Bytes())
	c.state.setStorage(addr, types.StorageKeyStakingFarmAddress, params.StakingFarmAddress.Bytes())
	c.state.setStorage(addr, types.StorageKeyLPFarmTokenID, []byte(lpFarm.Params.FarmTokenID))
	c.state.setStorage(addr, types.StorageKeyDualYieldTokenID, []byte(params.DualYieldTokenID))
	c.state.setStorage(addr, types.StorageKeyStakingTokenID, []byte(params.StakingTokenID))
	return addr, nil
}

func (m *metastakingState) stakingPart(pos dualYieldPosition, dualYield sdkmath.Int) sdkmath.Int {
	return pos.StakingAmount.Mul(dualYield).Quo(pos.LPFarmAmount)
}

func (w *world) metastakingParts(m *metastakingState) (*farmState, *farmState, *pairState, error) {
	lpFarm, ok := w.farms[string(m.Params.LPFarmAddress)]
	if !ok {
		return nil, nil, nil, contracts.ErrUnknownContract
	}
	stakingFarm, ok := w.farms[string(m.Params.StakingFarmAddress)]
	if !ok {
		return nil, nil, nil, contracts.ErrUnknownContract
	}
	pair, ok := w.pairs[string(m.Params.PairAddress)]
	if !ok {
		return nil, nil, nil, contracts.ErrUnknownContract
	}
	return lpFarm, stakingFarm, pair, nil
}

func (w *world) stakeMetastaking(m *metastakingState, caller, owner sdk.AccAddress, list []types.Payment) (types.StakeMetastakingResult, error) {
	if len(list) == 0 || list[0].TokenID != m.LPFarmTokenID || list[0].IsZero() {
		return types.StakeMetastakingResult{}, errMetastakingBadPayments
	}
	lpFarm, stakingFarm, pair, err := w.metastakingParts(m)
	if err != nil {
		return types.StakeMetastakingResult{}, err
	}
	if pair.LPSupply.IsZero() {
		return types.StakeMetastakingResult{}, errMetastakingNoValue
	}
	w.generateRewards(lpFarm)
	w.generateRewards(stakingFarm)

	first := list[0]
	if err := w.transfer(caller, m.Address, first); err != nil {
		return types.StakeMetastakingResult{}, err
	}
	freshStaking := first.Amount.Mul(pair.reserveOf(m.Params.StakingTokenID)).Quo(pair.LPSupply)
	if freshStaking.IsZero() {
		return types.StakeMetastakingResult{}, errMetastakingNoValue
	}

	lpPositions := []types.Payment{first}
	stakingPositions := []types.Payment{}
	for _, dy := range list[1:] {
		pos, ok := m.Positions[dy.Nonce]
		if dy.TokenID != m.Params.DualYieldTokenID || !ok || dy.IsZero() {
			return types.StakeMetastakingResult{}, errMetastakingBadPayments
		}
		if err := w.burn(caller, dy); err != nil {
			return types.StakeMetastakingResult{}, err
		}
		lpPositions = append(lpPositions, types.NewPayment(m.LPFarmTokenID, pos.LPFarmNonce, dy.Amount))
		if part := m.stakingPart(pos, dy.Amount); part.IsPositive() {
			stakingPositions = append(stakingPositions, types.NewPayment(stakingFarm.Params.FarmTokenID, pos.StakingFarmNonce, part))
		}
	}

	lpPosition := first
	if len(lpPositions) > 1 {
		lpPosition, err = w.merge(lpFarm, m.Address, owner, sdkmath.ZeroInt(), lpPositions)
		if err != nil {
			return types.StakeMetastakingResult{}, err
		}
	}
	stakingPosition, err := w.merge(stakingFarm, m.Address, owner, freshStaking, stakingPositions)
	if err != nil {
		return types.StakeMetastakingResult{}, err
	}
	lpBoosted, err := w.payBoosted(lpFarm, caller, owner)
	if err != nil {
		return types.StakeMetastakingResult{}, err
	}
	stakingBoosted, err := w.payBoosted(stakingFarm, caller, owner)
	if err != nil {
		return types.StakeMetastakingResult{}, err
	}

	m.NextNonce++
	m.Positions[m.NextNonce] = dualYieldPosition{
		LPFarmNonce:      lpPosition.Nonce,
		LPFarmAmount:     lpPosition.Amount,
		StakingFarmNonce: stakingPosition.Nonce,
		StakingAmount:    stakingPosition.Amount,
	}
	dualYield := types.NewPayment(m.Params.DualYieldTokenID, m.NextNonce, lpPosition.Amount)
	w.mint(caller, dualYield)
	return types.StakeMetastakingResult{
		DualYieldToken:        dualYield,
		LPFarmBoostedRewards:  lpBoosted,
		StakingBoostedRewards: stakingBoosted,
	}, nil
}

func (w *world) claimDualYield(m *metastakingState, caller, owner sdk.AccAddress, dy types.Payment) (types.ClaimMetastakingResult, error) {
	pos, ok := m.Positions[dy.Nonce]
	if dy.TokenID != m.Params.DualYieldTokenID || !ok || dy.IsZero() {
		return types.ClaimMetastakingResult{}, errMetastakingNoPosition
	}
	lpFarm, stakingFarm, _, err := w.metastakingParts(m)
	if err != nil {
		return types.ClaimMetastakingResult{}, err
	}
	stakingAmount := m.stakingPart(pos, dy.Amount)

	lpClaim, err := w.claim(lpFarm, m.Address, caller, owner, types.NewPayment(m.LPFarmTokenID, pos.LPFarmNonce, dy.Amount))
	if err != nil {
		return types.ClaimMetastakingResult{}, err
	}
	stakingNonce := pos.StakingFarmNonce
	stakingRewards := types.NewFungible(stakingFarm.rewardPaymentID(w), sdkmath.ZeroInt())
	if stakingAmount.IsPositive() {
		stakingClaim, err := w.claim(stakingFarm, m.Address, caller, owner, types.NewPayment(stakingFarm.Params.FarmTokenID, pos.StakingFarmNonce, stakingAmount))
		if err != nil {
			return types.ClaimMetastakingResult{}, err
		}
		stakingNonce = stakingClaim.NewFarmToken.Nonce
		stakingRewards = stakingClaim.Rewards
	}
	if err := w.burn(caller, dy); err != nil {
		return types.ClaimMetastakingResult{}, err
	}
	m.NextNonce++
	m.Positions[m.NextNonce] = dualYieldPosition{
		LPFarmNonce:      lpClaim.NewFarmToken.Nonce,
		LPFarmAmount:     dy.Amount,
		StakingFarmNonce: stakingNonce,
		StakingAmount:    stakingAmount,
	}
	newDualYield := types.NewPayment(m.Params.DualYieldTokenID, m.NextNonce, dy.Amount)
	w.mint(caller, newDualYield)
	return types.ClaimMetastakingResult{
		NewDualYieldToken:  newDualYield,
		LPFarmRewards:      lpClaim.Rewards,
		StakingFarmRewards: stakingRewards,
	}, nil
}

func (w *world) unstakeMetastaking(m *metastakingState, caller, owner sdk.AccAddress, dy types.Payment, minFirst, minSecond, exitAmount sdkmath.Int) (types.UnstakeMetastakingResult, error) {
	pos, ok := m.Positions[dy.Nonce]
	if dy.TokenID != m.Params.DualYieldTokenID || !ok || dy.IsZero() {
		return types.UnstakeMetastakingResult{}, errMetastakingNoPosition
	}
	lpFarm, stakingFarm, pair, err := w.metastakingParts(m)
	if err != nil {
		return types.UnstakeMetastakingResult{}, err
	}
	exit := dy.Amount
	if !exitAmount.IsNil() && exitAmount.IsPositive() && exitAmount.LT(dy.Amount) {
		exit = exitAmount
	}
	stakingAmount := m.stakingPart(pos, exit)

	lpExit, err := w.exit(lpFarm, m.Address, m.Address, caller, owner, types.NewPayment(m.LPFarmTokenID, pos.LPFarmNonce, exit), false)
	if err != nil {
		return types.UnstakeMetastakingResult{}, err
	}
	removed, err := w.removeLiquidity(pair, m.Address, lpExit.FarmingTokens, minFirst, minSecond)
	if err != nil {
		return types.UnstakeMetastakingResult{}, err
	}
	other, staking := removed.SecondToken, removed.FirstToken
	if removed.SecondToken.TokenID == m.Params.StakingTokenID {
		other, staking = removed.FirstToken, removed.SecondToken
	}
	if err := w.transfer(m.Address, caller, other); err != nil {
		return types.UnstakeMetastakingResult{}, err
	}
	if err := w.burn(m.Address, staking); err != nil {
		return types.UnstakeMetastakingResult{}, err
	}

	stakingRewards := types.NewFungible(stakingFarm.rewardPaymentID(w), sdkmath.ZeroInt())
	unbond := types.NewPayment(m.Params.UnbondTokenID, 1, stakingAmount)
	if stakingAmount.IsPositive() {
		stakingExit, err := w.exit(stakingFarm, m.Address, m.Address, caller, owner,
			types.NewPayment(stakingFarm.Params.FarmTokenID, pos.StakingFarmNonce, stakingAmount), true)
		if err != nil {
			return types.UnstakeMetastakingResult{}, err
		}
		stakingRewards = stakingExit.Rewards
		w.mint(caller, unbond)
	}

	if err := w.burn(caller, dy.WithAmount(exit)); err != nil {
		return types.UnstakeMetastakingResult{}, err
	}
	result := types.UnstakeMetastakingResult{
		OtherToken:     other,
		LPFarmRewards:  lpExit.Rewards,
		StakingRewards: stakingRewards,
		UnbondTokens:   unbond,
	}
	if remaining := dy.Amount.Sub(exit); remaining.IsPositive() {
		rest := dy.WithAmount(remaining)
		result.RemainingDualYieldToken = &rest
	}
	return result, nil
}
