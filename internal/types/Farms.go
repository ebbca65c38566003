/*

This file contains the cached configuration of the farms and metastaking contracts the
engine is allowed to interact with. Both are populated from the contracts' public storage
at registration time.

*/

package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// FarmState is the observed state of a farm contract.
type FarmState uint8

const (
	FarmStateInactive FarmState = iota
	FarmStateActive
	FarmStateMigrate
)

func (s FarmState) String() string {
	switch s {
	case FarmStateInactive:
		return "Inactive"
	case FarmStateActive:
		return "Active"
	case FarmStateMigrate:
		return "Migrate"
	default:
		return fmt.Sprintf("FarmState(%d)", uint8(s))
	}
}

// ParseFarmState decodes the single byte stored under the farm's `state` key.
func ParseFarmState(raw []byte) (FarmState, error) {
	if len(raw) == 0 {
		return FarmStateInactive, nil
	}
	if len(raw) != 1 || raw[0] > uint8(FarmStateMigrate) {
		return FarmStateInactive, fmt.Errorf("invalid farm state encoding %x", raw)
	}
	return FarmState(raw[0]), nil
}

// ClaimAllowed reports whether rewards may be claimed or compounded in this state.
func (s FarmState) ClaimAllowed() bool {
	return s == FarmStateActive
}

// FarmConfig is the cached view of a registered farm.
type FarmConfig struct {
	Address                sdk.AccAddress `json:"address"`
	FarmingTokenID         string         `json:"farming_token_id"`
	FarmTokenID            string         `json:"farm_token_id"`
	RewardTokenID          string         `json:"reward_token_id"`
	State                  FarmState      `json:"state"`
	PairAddress            sdk.AccAddress `json:"pair_address"`
	DivisionSafetyConstant sdkmath.Int    `json:"division_safety_constant"`
	MinFarmingEpochs       uint64         `json:"min_farming_epochs"`
}

// Validate checks that the storage read produced a usable configuration.
func (c FarmConfig) Validate() error {
	if c.Address.Empty() {
		return fmt.Errorf("farm address is empty")
	}
	if c.FarmingTokenID == "" {
		return fmt.Errorf("farm %s has no farming token", c.Address)
	}
	if c.FarmTokenID == "" {
		return fmt.Errorf("farm %s has no farm token", c.Address)
	}
	if c.FarmingTokenID == c.FarmTokenID {
		return fmt.Errorf("farm %s farming token equals farm token", c.Address)
	}
	return nil
}

// MetastakingConfig is the cached view of a registered metastaking (dual yield) contract.
type MetastakingConfig struct {
	Address            sdk.AccAddress `json:"address"`
	LPFarmAddress      sdk.AccAddress `json:"lp_farm_address"`
	StakingFarmAddress sdk.AccAddress `json:"staking_farm_address"`
	LPFarmTokenID      string         `json:"lp_farm_token_id"`
	DualYieldTokenID   string         `json:"dual_yield_token_id"`
	StakingTokenID     string         `json:"staking_token_id"`
}

// Validate checks that the storage read produced a usable configuration.
func (c MetastakingConfig) Validate() error {
	if c.Address.Empty() {
		return fmt.Errorf("metastaking address is empty")
	}
	if c.LPFarmAddress.Empty() || c.StakingFarmAddress.Empty() {
		return fmt.Errorf("metastaking %s has incomplete farm addresses", c.Address)
	}
	if c.LPFarmTokenID == "" || c.DualYieldTokenID == "" || c.StakingTokenID == "" {
		return fmt.Errorf("metastaking %s has incomplete token identifiers", c.Address)
	}
	return nil
}

// LockedTokenAttributes are the attributes of a governance locked token unit.
type LockedTokenAttributes struct {
	OriginalTokenID string `json:"original_token_id"`
	UnlockEpoch     uint64 `json:"unlock_epoch"`
}

// Well-known public storage keys read at registration.
const (
	StorageKeyFarmingTokenID         = "farming_token_id"
	StorageKeyFarmTokenID            = "farm_token_id"
	StorageKeyRewardTokenID          = "reward_token_id"
	StorageKeyPairContractAddress    = "pair_contract_address"
	StorageKeyState                  = "state"
	StorageKeyDivisionSafetyConstant = "division_safety_constant"
	StorageKeyMinimumFarmingEpochs   = "minimum_farming_epochs"

	StorageKeyLPFarmAddress      = "lpFarmAddress"
	StorageKeyStakingFarmAddress = "stakingFarmAddress"
	StorageKeyLPFarmTokenID      = "lpFarmTokenId"
	StorageKeyDualYieldTokenID   = "dualYieldTokenId"
	StorageKeyStakingTokenID     = "stakingTokenId"
)
