package vault

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/registry"
	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/types"
)

// Register opts the caller in without depositing anything.
func (e *Engine) Register(ctx context.Context, caller sdk.AccAddress) error {
	_, err := e.execute(ctx, "register", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		_, err := registry.New(txn).Register(caller)
		return nil, err
	})
	return err
}

// DepositFarmTokens takes farm positions of registered farms into the caller's inventory.
func (e *Engine) DepositFarmTokens(ctx context.Context, caller sdk.AccAddress, payments []types.Payment) error {
	_, err := e.execute(ctx, "deposit_farm_tokens", caller, payments, func(txn *store.Txn) ([]types.Payment, error) {
		return nil, registry.New(txn).DepositFarmTokens(caller, payments)
	})
	return err
}

// DepositMetastakingTokens takes dual yield positions into the caller's inventory.
func (e *Engine) DepositMetastakingTokens(ctx context.Context, caller sdk.AccAddress, payments []types.Payment) error {
	_, err := e.execute(ctx, "deposit_metastaking_tokens", caller, payments, func(txn *store.Txn) ([]types.Payment, error) {
		return nil, registry.New(txn).DepositMetastakingTokens(caller, payments)
	})
	return err
}

func (e *Engine) WithdrawAllFarmTokens(ctx context.Context, caller sdk.AccAddress) ([]types.Payment, error) {
	return e.execute(ctx, "withdraw_all_farm_tokens", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		return registry.New(txn).WithdrawAllFarmTokens(caller)
	})
}

func (e *Engine) WithdrawSpecificFarmTokens(ctx context.Context, caller sdk.AccAddress, list []types.Payment) ([]types.Payment, error) {
	return e.execute(ctx, "withdraw_specific_farm_tokens", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		return registry.New(txn).WithdrawSpecificFarmTokens(caller, list)
	})
}

func (e *Engine) WithdrawAllMetastakingTokens(ctx context.Context, caller sdk.AccAddress) ([]types.Payment, error) {
	return e.execute(ctx, "withdraw_all_metastaking_tokens", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		return registry.New(txn).WithdrawAllMetastakingTokens(caller)
	})
}

func (e *Engine) WithdrawSpecificMetastakingTokens(ctx context.Context, caller sdk.AccAddress, list []types.Payment) ([]types.Payment, error) {
	return e.execute(ctx, "withdraw_specific_metastaking_tokens", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		return registry.New(txn).WithdrawSpecificMetastakingTokens(caller, list)
	})
}

// WithdrawAllAndUnregister returns every inventoried position and drops the caller's entry.
// Pending rewards must be claimed first.
func (e *Engine) WithdrawAllAndUnregister(ctx context.Context, caller sdk.AccAddress) ([]types.Payment, error) {
	return e.execute(ctx, "withdraw_all_and_unregister", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		return registry.New(txn).WithdrawAllAndUnregister(caller)
	})
}

// UserClaimRewards sends the caller's pending rewards, the locked slot as one merged unit.
func (e *Engine) UserClaimRewards(ctx context.Context, caller sdk.AccAddress) ([]types.Payment, error) {
	return e.execute(ctx, "user_claim_rewards", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		pending, err := registry.New(txn).TakeRewards(caller)
		if err != nil {
			return nil, err
		}
		return pending.Take(), nil
	})
}
