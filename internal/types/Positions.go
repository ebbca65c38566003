/*

This file contains the types describing positions and the results returned by the external
pair, farm and metastaking contracts, translated into engine types.

*/

package types

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// SwapMode selects which side of a pair swap is fixed.
type SwapMode string

const (
	SwapFixedInput  SwapMode = "FIXED_INPUT"
	SwapFixedOutput SwapMode = "FIXED_OUTPUT"
)

// SwapOperation is one step of a multi-pair swap path.
type SwapOperation struct {
	PairAddress   sdk.AccAddress `json:"pair_address"`
	Mode          SwapMode       `json:"mode"`
	OutputTokenID string         `json:"output_token_id"`
	// Amount is the minimum output for fixed input swaps and the exact output for fixed output swaps.
	Amount sdkmath.Int `json:"amount"`
}

// Validate checks a single swap step.
func (op SwapOperation) Validate() error {
	if op.PairAddress.Empty() {
		return fmt.Errorf("swap operation has empty pair address")
	}
	if op.Mode != SwapFixedInput && op.Mode != SwapFixedOutput {
		return fmt.Errorf("unknown swap mode %q", op.Mode)
	}
	if op.OutputTokenID == "" {
		return fmt.Errorf("swap operation has empty output token")
	}
	if op.Amount.IsNil() || !op.Amount.IsPositive() {
		return fmt.Errorf("swap operation amount must be positive")
	}
	return nil
}

// AddLiquidityResult is returned by a pair when liquidity is added.
type AddLiquidityResult struct {
	LPTokens       Payment `json:"lp_tokens"`
	FirstLeftover  Payment `json:"first_leftover"`
	SecondLeftover Payment `json:"second_leftover"`
}

// RemoveLiquidityResult is returned by a pair when liquidity is removed.
type RemoveLiquidityResult struct {
	FirstToken  Payment `json:"first_token"`
	SecondToken Payment `json:"second_token"`
}

// SwapFixedOutputResult is the exact output plus the unspent input refund.
type SwapFixedOutputResult struct {
	Output Payment `json:"output"`
	Refund Payment `json:"refund"`
}

// EnterFarmResult is the new farm position and any boosted rewards.
type EnterFarmResult struct {
	NewFarmToken   Payment `json:"new_farm_token"`
	BoostedRewards Payment `json:"boosted_rewards"`
}

// ClaimFarmResult is the refreshed farm position and the rewards claimed.
type ClaimFarmResult struct {
	NewFarmToken Payment `json:"new_farm_token"`
	Rewards      Payment `json:"rewards"`
}

// ExitFarmResult is the farming tokens returned and the rewards claimed.
type ExitFarmResult struct {
	FarmingTokens Payment `json:"farming_tokens"`
	Rewards       Payment `json:"rewards"`
}

// StakeMetastakingResult is the new dual yield position and the boosted rewards of both layers.
type StakeMetastakingResult struct {
	DualYieldToken        Payment `json:"dual_yield_token"`
	LPFarmBoostedRewards  Payment `json:"lp_farm_boosted_rewards"`
	StakingBoostedRewards Payment `json:"staking_boosted_rewards"`
}

// ClaimMetastakingResult is the refreshed dual yield position and the rewards of both layers.
type ClaimMetastakingResult struct {
	NewDualYieldToken  Payment `json:"new_dual_yield_token"`
	LPFarmRewards      Payment `json:"lp_farm_rewards"`
	StakingFarmRewards Payment `json:"staking_farm_rewards"`
}

// UnstakeMetastakingResult is the full output of leaving a dual yield position.
type UnstakeMetastakingResult struct {
	OtherToken              Payment  `json:"other_token"`
	LPFarmRewards           Payment  `json:"lp_farm_rewards"`
	StakingRewards          Payment  `json:"staking_rewards"`
	UnbondTokens            Payment  `json:"unbond_tokens"`
	RemainingDualYieldToken *Payment `json:"remaining_dual_yield_token,omitempty"`
}

// All returns the non-empty payments of the result in a stable order.
func (r UnstakeMetastakingResult) All() []Payment {
	out := []Payment{r.OtherToken, r.LPFarmRewards, r.StakingRewards, r.UnbondTokens}
	if r.RemainingDualYieldToken != nil {
		out = append(out, *r.RemainingDualYieldToken)
	}
	return NonZero(out)
}

// CompoundSnapshot is the record of one proxy-initiated claim and compound for a user.
type CompoundSnapshot struct {
	SnapshotID     int64     `json:"snapshot_id,omitempty"` // Auto-incremented by DB
	RunID          string    `json:"run_id"`
	RunNumber      int       `json:"run_number"`
	UserAddress    string    `json:"user_address"`
	Timestamp      time.Time `json:"timestamp"`
	DurationMillis int64     `json:"duration_millis"`
	Claimed        []Payment `json:"claimed"`
	ClaimedLocked  *Payment  `json:"claimed_locked,omitempty"`
	Fees           []Payment `json:"fees"`
	FeesLocked     *Payment  `json:"fees_locked,omitempty"`
	Compounded     []Payment `json:"compounded"`
	Success        bool      `json:"success"`
	Message        string    `json:"message,omitempty"`
}

// CompoundReport is what a single compound invocation did, returned by the engine.
type CompoundReport struct {
	Claimed       []Payment `json:"claimed"`
	ClaimedLocked *Payment  `json:"claimed_locked,omitempty"`
	Fees          []Payment `json:"fees"`
	FeesLocked    *Payment  `json:"fees_locked,omitempty"`
	Compounded    []Payment `json:"compounded"`
}
