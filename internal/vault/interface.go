package vault

import (
	"context"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/registry"
	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/types"
)

// Manager defines every endpoint of the position lifecycle engine.
// Each mutating endpoint runs atomically on behalf of caller: payments attached to the call
// are taken from the caller first, and the returned payments have been sent back to it.
type Manager interface {
	// Address returns the account the engine holds positions with.
	Address() sdk.AccAddress

	// Administrator endpoints.
	RegisterFarm(ctx context.Context, caller, farm sdk.AccAddress) (types.FarmConfig, error)
	RemoveFarm(ctx context.Context, caller, farm sdk.AccAddress) error
	RefreshFarmState(ctx context.Context, caller, farm sdk.AccAddress) (types.FarmState, error)
	RegisterMetastaking(ctx context.Context, caller, metastaking sdk.AccAddress) (types.MetastakingConfig, error)
	RemoveMetastaking(ctx context.Context, caller, metastaking sdk.AccAddress) error
	SetFeePercentage(ctx context.Context, caller sdk.AccAddress, bps uint64) error
	SetProxyClaimAddress(ctx context.Context, caller, proxy sdk.AccAddress) error
	SetLockedTokenID(ctx context.Context, caller sdk.AccAddress, tokenID string) error

	// Proxy endpoints.
	ClaimAllRewardsAndCompound(ctx context.Context, caller, user sdk.AccAddress, claimArgs []contracts.ClaimArgs) (types.CompoundReport, error)
	ClaimFees(ctx context.Context, caller sdk.AccAddress) ([]types.Payment, error)

	// User endpoints.
	Register(ctx context.Context, caller sdk.AccAddress) error
	DepositFarmTokens(ctx context.Context, caller sdk.AccAddress, payments []types.Payment) error
	DepositMetastakingTokens(ctx context.Context, caller sdk.AccAddress, payments []types.Payment) error
	WithdrawAllFarmTokens(ctx context.Context, caller sdk.AccAddress) ([]types.Payment, error)
	WithdrawSpecificFarmTokens(ctx context.Context, caller sdk.AccAddress, list []types.Payment) ([]types.Payment, error)
	WithdrawAllMetastakingTokens(ctx context.Context, caller sdk.AccAddress) ([]types.Payment, error)
	WithdrawSpecificMetastakingTokens(ctx context.Context, caller sdk.AccAddress, list []types.Payment) ([]types.Payment, error)
	WithdrawAllAndUnregister(ctx context.Context, caller sdk.AccAddress) ([]types.Payment, error)
	UserClaimRewards(ctx context.Context, caller sdk.AccAddress) ([]types.Payment, error)

	// Position composition. Boosted rewards earned while entering or exiting a farm or a
	// metastaking contract are sent back to the caller with the position; only
	// ClaimAllRewardsAndCompound adds rewards to a user's pending rewards.
	CreateLPFromSingle(ctx context.Context, caller sdk.AccAddress, payment types.Payment, pair sdk.AccAddress, path []types.SwapOperation, minFirst, minSecond sdkmath.Int) ([]types.Payment, error)
	CreateLPFromTwo(ctx context.Context, caller sdk.AccAddress, first, second types.Payment, pair sdk.AccAddress, minFirst, minSecond sdkmath.Int) ([]types.Payment, error)
	CreateFarmFromSingle(ctx context.Context, caller sdk.AccAddress, payment types.Payment, pair sdk.AccAddress, path []types.SwapOperation, minFirst, minSecond sdkmath.Int, farm sdk.AccAddress) ([]types.Payment, error)
	CreateFarmFromTwo(ctx context.Context, caller sdk.AccAddress, first, second types.Payment, pair sdk.AccAddress, minFirst, minSecond sdkmath.Int, farm sdk.AccAddress) ([]types.Payment, error)
	CreateMetastakingFromSingle(ctx context.Context, caller sdk.AccAddress, payment types.Payment, pair sdk.AccAddress, path []types.SwapOperation, minFirst, minSecond sdkmath.Int, metastaking sdk.AccAddress) ([]types.Payment, error)
	CreateMetastakingFromTwo(ctx context.Context, caller sdk.AccAddress, first, second types.Payment, pair sdk.AccAddress, minFirst, minSecond sdkmath.Int, metastaking sdk.AccAddress) ([]types.Payment, error)
	CreateFarmStakingFromSingle(ctx context.Context, caller sdk.AccAddress, payment types.Payment, farm sdk.AccAddress, path []types.SwapOperation, minOut sdkmath.Int) ([]types.Payment, error)
	ExitLP(ctx context.Context, caller sdk.AccAddress, lp types.Payment, pair sdk.AccAddress, minFirst, minSecond sdkmath.Int) ([]types.Payment, error)
	ExitFarm(ctx context.Context, caller sdk.AccAddress, farmToken types.Payment, minFirst, minSecond sdkmath.Int) ([]types.Payment, error)
	ExitMetastaking(ctx context.Context, caller sdk.AccAddress, dualYield types.Payment, minFirst, minSecond sdkmath.Int) ([]types.Payment, error)

	// Views.
	UserEntry(user sdk.AccAddress) (registry.Entry, error)
	UserFarmTokens(user sdk.AccAddress) ([]types.Payment, error)
	UserMetastakingTokens(user sdk.AccAddress) ([]types.Payment, error)
	UserRewards(user sdk.AccAddress) (rewards.Wrapper, error)
	RegisteredUsers() ([]registry.Entry, error)
	AccumulatedFees() (rewards.Wrapper, error)
	Settings() (Settings, error)
	FarmConfigs() ([]types.FarmConfig, error)
	MetastakingConfigs() ([]types.MetastakingConfig, error)

	// Close releases the engine store.
	Close() error
}

// Settings are the protocol wide parameters of the engine.
type Settings struct {
	AdminAddress         string `json:"admin_address"`
	ProxyClaimAddress    string `json:"proxy_claim_address"`
	FeePercentage        uint64 `json:"fee_percentage"`
	LockedTokenID        string `json:"locked_token_id"`
	WrappedNativeTokenID string `json:"wrapped_native_token_id"`
}
