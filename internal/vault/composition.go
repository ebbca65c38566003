package vault

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/types"
)

func lookupFarm(txn *store.Txn, farm sdk.AccAddress) (types.FarmConfig, error) {
	cfg, found, err := txn.FarmConfig(farm)
	if err != nil {
		return types.FarmConfig{}, err
	}
	if !found {
		return types.FarmConfig{}, errorsmod.Wrapf(types.ErrInvalidState, "Unknown farm %s", farm)
	}
	return cfg, nil
}

func lookupMetastaking(txn *store.Txn, metastaking sdk.AccAddress) (types.MetastakingConfig, error) {
	cfg, found, err := txn.MetastakingConfig(metastaking)
	if err != nil {
		return types.MetastakingConfig{}, err
	}
	if !found {
		return types.MetastakingConfig{}, errorsmod.Wrapf(types.ErrInvalidState, "Unknown metastaking %s", metastaking)
	}
	return cfg, nil
}

// CreateLPFromSingle routes one payment into the pair tokens and provides liquidity.
func (e *Engine) CreateLPFromSingle(ctx context.Context, caller sdk.AccAddress, payment types.Payment, pair sdk.AccAddress, path []types.SwapOperation, minFirst, minSecond sdkmath.Int) ([]types.Payment, error) {
	return e.execute(ctx, "create_lp_from_single", caller, []types.Payment{payment}, func(_ *store.Txn) ([]types.Payment, error) {
		res, err := e.composer.LPFromSingle(ctx, payment, pair, path, minFirst, minSecond)
		if err != nil {
			return nil, err
		}
		return res.All(), nil
	})
}

// CreateLPFromTwo rebalances two pair token payments and provides liquidity.
func (e *Engine) CreateLPFromTwo(ctx context.Context, caller sdk.AccAddress, first, second types.Payment, pair sdk.AccAddress, minFirst, minSecond sdkmath.Int) ([]types.Payment, error) {
	return e.execute(ctx, "create_lp_from_two", caller, []types.Payment{first, second}, func(_ *store.Txn) ([]types.Payment, error) {
		res, err := e.composer.LPFromTwo(ctx, first, second, pair, minFirst, minSecond)
		if err != nil {
			return nil, err
		}
		return res.All(), nil
	})
}

func (e *Engine) CreateFarmFromSingle(ctx context.Context, caller sdk.AccAddress, payment types.Payment, pair sdk.AccAddress, path []types.SwapOperation, minFirst, minSecond sdkmath.Int, farm sdk.AccAddress) ([]types.Payment, error) {
	return e.execute(ctx, "create_farm_from_single", caller, []types.Payment{payment}, func(txn *store.Txn) ([]types.Payment, error) {
		cfg, err := lookupFarm(txn, farm)
		if err != nil {
			return nil, err
		}
		res, err := e.composer.FarmFromSingle(ctx, payment, pair, path, minFirst, minSecond, cfg, caller)
		if err != nil {
			return nil, err
		}
		return res.All(), nil
	})
}

func (e *Engine) CreateFarmFromTwo(ctx context.Context, caller sdk.AccAddress, first, second types.Payment, pair sdk.AccAddress, minFirst, minSecond sdkmath.Int, farm sdk.AccAddress) ([]types.Payment, error) {
	return e.execute(ctx, "create_farm_from_two", caller, []types.Payment{first, second}, func(txn *store.Txn) ([]types.Payment, error) {
		cfg, err := lookupFarm(txn, farm)
		if err != nil {
			return nil, err
		}
		res, err := e.composer.FarmFromTwo(ctx, first, second, pair, minFirst, minSecond, cfg, caller)
		if err != nil {
			return nil, err
		}
		return res.All(), nil
	})
}

func (e *Engine) CreateMetastakingFromSingle(ctx context.Context, caller sdk.AccAddress, payment types.Payment, pair sdk.AccAddress, path []types.SwapOperation, minFirst, minSecond sdkmath.Int, metastaking sdk.AccAddress) ([]types.Payment, error) {
	return e.execute(ctx, "create_metastaking_from_single", caller, []types.Payment{payment}, func(txn *store.Txn) ([]types.Payment, error) {
		cfg, err := lookupMetastaking(txn, metastaking)
		if err != nil {
			return nil, err
		}
		res, err := e.composer.MetastakingFromSingle(ctx, payment, pair, path, minFirst, minSecond, cfg, caller)
		if err != nil {
			return nil, err
		}
		return res.All(), nil
	})
}

func (e *Engine) CreateMetastakingFromTwo(ctx context.Context, caller sdk.AccAddress, first, second types.Payment, pair sdk.AccAddress, minFirst, minSecond sdkmath.Int, metastaking sdk.AccAddress) ([]types.Payment, error) {
	return e.execute(ctx, "create_metastaking_from_two", caller, []types.Payment{first, second}, func(txn *store.Txn) ([]types.Payment, error) {
		cfg, err := lookupMetastaking(txn, metastaking)
		if err != nil {
			return nil, err
		}
		res, err := e.composer.MetastakingFromTwo(ctx, first, second, pair, minFirst, minSecond, cfg, caller)
		if err != nil {
			return nil, err
		}
		return res.All(), nil
	})
}

// CreateFarmStakingFromSingle swaps one payment, wrapping native first, into the farming
// token of a staking farm and enters it.
func (e *Engine) CreateFarmStakingFromSingle(ctx context.Context, caller sdk.AccAddress, payment types.Payment, farm sdk.AccAddress, path []types.SwapOperation, minOut sdkmath.Int) ([]types.Payment, error) {
	return e.execute(ctx, "create_farm_staking_from_single", caller, []types.Payment{payment}, func(txn *store.Txn) ([]types.Payment, error) {
		cfg, err := lookupFarm(txn, farm)
		if err != nil {
			return nil, err
		}
		res, err := e.composer.FarmStakingFromSingle(ctx, payment, path, minOut, cfg, caller)
		if err != nil {
			return nil, err
		}
		return res.All(), nil
	})
}

func (e *Engine) ExitLP(ctx context.Context, caller sdk.AccAddress, lp types.Payment, pair sdk.AccAddress, minFirst, minSecond sdkmath.Int) ([]types.Payment, error) {
	return e.execute(ctx, "exit_lp", caller, []types.Payment{lp}, func(_ *store.Txn) ([]types.Payment, error) {
		return e.composer.ExitLP(ctx, lp, pair, minFirst, minSecond)
	})
}

// ExitFarm exits a farm position of a registered farm, removing liquidity when the farm is
// backed by a pair.
func (e *Engine) ExitFarm(ctx context.Context, caller sdk.AccAddress, farmToken types.Payment, minFirst, minSecond sdkmath.Int) ([]types.Payment, error) {
	return e.execute(ctx, "exit_farm", caller, []types.Payment{farmToken}, func(txn *store.Txn) ([]types.Payment, error) {
		cfg, found, err := txn.FarmByFarmToken(farmToken.TokenID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errorsmod.Wrapf(types.ErrInvalidState, "Unknown farm token %s", farmToken.TokenID)
		}
		return e.composer.ExitFarm(ctx, farmToken, cfg, caller, minFirst, minSecond)
	})
}

func (e *Engine) ExitMetastaking(ctx context.Context, caller sdk.AccAddress, dualYield types.Payment, minFirst, minSecond sdkmath.Int) ([]types.Payment, error) {
	return e.execute(ctx, "exit_metastaking", caller, []types.Payment{dualYield}, func(txn *store.Txn) ([]types.Payment, error) {
		cfg, found, err := txn.MetastakingByDualYieldToken(dualYield.TokenID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errorsmod.Wrapf(types.ErrInvalidState, "Unknown dual yield token %s", dualYield.TokenID)
		}
		return e.composer.ExitMetastaking(ctx, dualYield, cfg, caller, minFirst, minSecond)
	})
}
