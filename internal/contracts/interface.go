/*

This file defines the closed set of typed clients the engine uses to talk to the external
contracts it composes: pairs, farms, metastaking contracts, the energy factory, the fees
collector, metabonding, the native token wrapper and the host token ledger.

Every call is synchronous. The engine address is the implicit caller of every client, so
payments passed in are debited from the engine and results are credited to it.

*/

package contracts

import (
	"context"
	"errors"
	"strings"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/types"
)

var (
	ErrNilHost         = errors.New("contract host is not configured")
	ErrUnknownContract = errors.New("no contract deployed at address")
)

// PairTokens are the token identifiers of a liquidity pair.
type PairTokens struct {
	FirstTokenID  string `json:"first_token_id"`
	SecondTokenID string `json:"second_token_id"`
	LPTokenID     string `json:"lp_token_id"`
}

// Contains reports whether the token is one of the two pooled tokens.
func (t PairTokens) Contains(tokenID string) bool {
	return tokenID == t.FirstTokenID || tokenID == t.SecondTokenID
}

// Other returns the pooled token that is not tokenID.
func (t PairTokens) Other(tokenID string) string {
	if tokenID == t.FirstTokenID {
		return t.SecondTokenID
	}
	return t.FirstTokenID
}

// PairFeeDenominator is the denominator of Pair.TotalFeePercent.
const PairFeeDenominator uint64 = 100_000

// Pair is a constant product liquidity pool.
type Pair interface {
	Tokens(ctx context.Context) (PairTokens, error)
	Reserves(ctx context.Context) (first sdkmath.Int, second sdkmath.Int, err error)
	TotalFeePercent(ctx context.Context) (uint64, error)
	SwapTokensFixedInput(ctx context.Context, payment types.Payment, wantTokenID string, minOut sdkmath.Int) (types.Payment, error)
	SwapTokensFixedOutput(ctx context.Context, payment types.Payment, wantTokenID string, amountOut sdkmath.Int) (types.SwapFixedOutputResult, error)
	AddLiquidity(ctx context.Context, first, second types.Payment, minFirst, minSecond sdkmath.Int) (types.AddLiquidityResult, error)
	RemoveLiquidity(ctx context.Context, lpTokens types.Payment, minFirst, minSecond sdkmath.Int) (types.RemoveLiquidityResult, error)
}

// Farm is a farm or farm-staking contract. The first payment of EnterFarm is the farming
// token; any further payments are existing positions merged into the new one.
type Farm interface {
	EnterFarm(ctx context.Context, originalOwner sdk.AccAddress, payments []types.Payment) (types.EnterFarmResult, error)
	ClaimRewards(ctx context.Context, originalOwner sdk.AccAddress, farmToken types.Payment) (types.ClaimFarmResult, error)
	ExitFarm(ctx context.Context, originalOwner sdk.AccAddress, farmToken types.Payment) (types.ExitFarmResult, error)
}

// Metastaking nests an LP farm position into a staking farm.
type Metastaking interface {
	StakeFarmTokens(ctx context.Context, originalOwner sdk.AccAddress, payments []types.Payment) (types.StakeMetastakingResult, error)
	ClaimDualYield(ctx context.Context, originalOwner sdk.AccAddress, dualYield types.Payment) (types.ClaimMetastakingResult, error)
	UnstakeFarmTokens(ctx context.Context, originalOwner sdk.AccAddress, dualYield types.Payment, minFirst, minSecond, exitAmount sdkmath.Int) (types.UnstakeMetastakingResult, error)
}

// EnergyFactory issues governance locked tokens and tracks the energy they confer.
type EnergyFactory interface {
	LockVirtual(ctx context.Context, tokenID string, amount sdkmath.Int, lockEpochs uint64, dest, energyAddress sdk.AccAddress) (types.Payment, error)
	MergeTokens(ctx context.Context, originalCaller sdk.AccAddress, tokens []types.Payment) (types.Payment, error)
	DeductEnergy(ctx context.Context, from sdk.AccAddress, tokens []types.Payment) error
	AddEnergy(ctx context.Context, to sdk.AccAddress, tokens []types.Payment) error
}

// FeesCollector distributes protocol fees to energy holders.
type FeesCollector interface {
	ClaimRewards(ctx context.Context, user sdk.AccAddress) ([]types.Payment, error)
}

// ClaimArgs are the signed arguments of a governance emission (metabonding) claim.
type ClaimArgs struct {
	Week                 uint64      `json:"week"`
	UserDelegationAmount sdkmath.Int `json:"user_delegation_amount"`
	UserLockedStaked     sdkmath.Int `json:"user_locked_staked"`
	Signature            []byte      `json:"signature"`
}

// Metabonding pays governance emission rewards.
type Metabonding interface {
	ClaimRewards(ctx context.Context, user sdk.AccAddress, args []ClaimArgs) ([]types.Payment, error)
}

// NativeWrapper converts the native token into its wrapped fungible form.
type NativeWrapper interface {
	WrapNative(ctx context.Context, amount sdkmath.Int) (types.Payment, error)
}

// Ledger moves tokens between the engine and other addresses. Receive takes the payments
// attached to an incoming call.
type Ledger interface {
	Send(ctx context.Context, to sdk.AccAddress, payments []types.Payment) error
	Receive(ctx context.Context, from sdk.AccAddress, payments []types.Payment) error
}

// StorageReader reads a contract's public storage.
type StorageReader interface {
	ReadStorage(ctx context.Context, contract sdk.AccAddress, key string) ([]byte, error)
}

// Resolver returns the typed client of the contract deployed at an address.
type Resolver interface {
	Pair(addr sdk.AccAddress) (Pair, error)
	Farm(addr sdk.AccAddress) (Farm, error)
	Metastaking(addr sdk.AccAddress) (Metastaking, error)
}

// Journal lets the engine revert host side effects of a failed endpoint.
type Journal interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// Host bundles every external collaborator of the engine.
type Host struct {
	Resolver      Resolver
	Energy        EnergyFactory
	FeesCollector FeesCollector
	Metabonding   Metabonding
	NativeWrapper NativeWrapper
	Ledger        Ledger
	Storage       StorageReader
	// Journal is optional.
	Journal Journal
}

// Validate checks that every mandatory collaborator is present.
func (h *Host) Validate() error {
	if h == nil {
		return ErrNilHost
	}
	missing := []string{}
	if h.Resolver == nil {
		missing = append(missing, "resolver")
	}
	if h.Energy == nil {
		missing = append(missing, "energy factory")
	}
	if h.FeesCollector == nil {
		missing = append(missing, "fees collector")
	}
	if h.Metabonding == nil {
		missing = append(missing, "metabonding")
	}
	if h.Ledger == nil {
		missing = append(missing, "ledger")
	}
	if h.Storage == nil {
		missing = append(missing, "storage reader")
	}
	if len(missing) > 0 {
		return errors.Join(ErrNilHost, errors.New("missing: "+strings.Join(missing, ", ")))
	}
	return nil
}
