package vault

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/types"
)

// RegisterFarm reads the farm's public storage and caches its configuration.
func (e *Engine) RegisterFarm(ctx context.Context, caller, farm sdk.AccAddress) (types.FarmConfig, error) {
	var cfg types.FarmConfig
	_, err := e.execute(ctx, "register_farm", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		if err := requireAdmin(txn, caller); err != nil {
			return nil, err
		}
		if _, found, err := txn.FarmConfig(farm); err != nil {
			return nil, err
		} else if found {
			return nil, errorsmod.Wrapf(types.ErrInvalidState, "Farm %s already registered", farm)
		}
		read, err := readFarmConfig(ctx, e.host.Storage, farm)
		if err != nil {
			return nil, err
		}
		if _, found, err := txn.FarmByFarmToken(read.FarmTokenID); err != nil {
			return nil, err
		} else if found {
			return nil, errorsmod.Wrapf(types.ErrInvalidState, "Farm token %s already registered", read.FarmTokenID)
		}
		if _, found, err := txn.FarmByFarmingToken(read.FarmingTokenID); err != nil {
			return nil, err
		} else if found {
			return nil, errorsmod.Wrapf(types.ErrInvalidState, "Farming token %s already registered", read.FarmingTokenID)
		}
		if err := txn.SetFarmConfig(read); err != nil {
			return nil, err
		}
		cfg = read
		return nil, nil
	})
	if err != nil {
		return types.FarmConfig{}, err
	}
	engineLogger.Info().
		Str("farm", farm.String()).
		Str("farmingToken", cfg.FarmingTokenID).
		Str("farmToken", cfg.FarmTokenID).
		Stringer("state", cfg.State).
		Msg("Farm registered")
	return cfg, nil
}

// RemoveFarm drops a cached farm configuration. User inventory is left in place.
func (e *Engine) RemoveFarm(ctx context.Context, caller, farm sdk.AccAddress) error {
	_, err := e.execute(ctx, "remove_farm", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		if err := requireAdmin(txn, caller); err != nil {
			return nil, err
		}
		if _, found, err := txn.FarmConfig(farm); err != nil {
			return nil, err
		} else if !found {
			return nil, errorsmod.Wrapf(types.ErrInvalidState, "Unknown farm %s", farm)
		}
		return nil, txn.DeleteFarmConfig(farm)
	})
	return err
}

// RefreshFarmState re-reads the state key of a registered farm.
func (e *Engine) RefreshFarmState(ctx context.Context, caller, farm sdk.AccAddress) (types.FarmState, error) {
	var state types.FarmState
	_, err := e.execute(ctx, "refresh_farm_state", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		if err := requireAdmin(txn, caller); err != nil {
			return nil, err
		}
		cfg, found, err := txn.FarmConfig(farm)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errorsmod.Wrapf(types.ErrInvalidState, "Unknown farm %s", farm)
		}
		d := &storageDecoder{ctx: ctx, reader: e.host.Storage, contract: farm}
		state = d.farmState()
		if d.err != nil {
			return nil, d.err
		}
		cfg.State = state
		return nil, txn.SetFarmConfig(cfg)
	})
	return state, err
}

// RegisterMetastaking reads the metastaking contract's public storage and caches it.
func (e *Engine) RegisterMetastaking(ctx context.Context, caller, metastaking sdk.AccAddress) (types.MetastakingConfig, error) {
	var cfg types.MetastakingConfig
	_, err := e.execute(ctx, "register_metastaking", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		if err := requireAdmin(txn, caller); err != nil {
			return nil, err
		}
		if _, found, err := txn.MetastakingConfig(metastaking); err != nil {
			return nil, err
		} else if found {
			return nil, errorsmod.Wrapf(types.ErrInvalidState, "Metastaking %s already registered", metastaking)
		}
		read, err := readMetastakingConfig(ctx, e.host.Storage, metastaking)
		if err != nil {
			return nil, err
		}
		if _, found, err := txn.MetastakingByDualYieldToken(read.DualYieldTokenID); err != nil {
			return nil, err
		} else if found {
			return nil, errorsmod.Wrapf(types.ErrInvalidState, "Dual yield token %s already registered", read.DualYieldTokenID)
		}
		if err := txn.SetMetastakingConfig(read); err != nil {
			return nil, err
		}
		cfg = read
		return nil, nil
	})
	if err != nil {
		return types.MetastakingConfig{}, err
	}
	engineLogger.Info().
		Str("metastaking", metastaking.String()).
		Str("dualYieldToken", cfg.DualYieldTokenID).
		Msg("Metastaking registered")
	return cfg, nil
}

// RemoveMetastaking drops a cached metastaking configuration.
func (e *Engine) RemoveMetastaking(ctx context.Context, caller, metastaking sdk.AccAddress) error {
	_, err := e.execute(ctx, "remove_metastaking", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		if err := requireAdmin(txn, caller); err != nil {
			return nil, err
		}
		if _, found, err := txn.MetastakingConfig(metastaking); err != nil {
			return nil, err
		} else if !found {
			return nil, errorsmod.Wrapf(types.ErrInvalidState, "Unknown metastaking %s", metastaking)
		}
		return nil, txn.DeleteMetastakingConfig(metastaking)
	})
	return err
}

// SetFeePercentage sets the compound fee in basis points, strictly between 0 and 10_000.
func (e *Engine) SetFeePercentage(ctx context.Context, caller sdk.AccAddress, bps uint64) error {
	_, err := e.execute(ctx, "set_fee_percentage", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		if err := requireAdmin(txn, caller); err != nil {
			return nil, err
		}
		if err := rewards.ValidateFeePercentage(bps); err != nil {
			return nil, err
		}
		txn.SetFeePercentage(bps)
		return nil, nil
	})
	return err
}

// SetProxyClaimAddress changes the proxy claim principal and moves the energy of the
// accumulated locked fees from the previous principal to the new one.
func (e *Engine) SetProxyClaimAddress(ctx context.Context, caller, proxy sdk.AccAddress) error {
	_, err := e.execute(ctx, "set_proxy_claim_address", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		if err := requireAdmin(txn, caller); err != nil {
			return nil, err
		}
		if err := sdk.VerifyAddressFormat(proxy); err != nil {
			return nil, errorsmod.Wrap(types.ErrInvalidArgument, "Invalid proxy claim address")
		}
		previous, err := txn.ProxyClaimAddress()
		if err != nil {
			return nil, err
		}
		if !previous.Empty() {
			fees, err := txn.AccumulatedFees()
			if err != nil {
				return nil, err
			}
			accountant, err := e.accountant(txn)
			if err != nil {
				return nil, err
			}
			if err := accountant.MoveLockedEnergy(ctx, fees, previous, proxy); err != nil {
				return nil, err
			}
		}
		txn.SetProxyClaimAddress(proxy)
		return nil, nil
	})
	if err == nil {
		engineLogger.Info().Str("proxy", proxy.String()).Msg("Proxy claim address changed")
	}
	return err
}

// SetLockedTokenID sets the identifier of the governance locked token. It cannot change while
// locked rewards are held.
func (e *Engine) SetLockedTokenID(ctx context.Context, caller sdk.AccAddress, tokenID string) error {
	_, err := e.execute(ctx, "set_locked_token_id", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		if err := requireAdmin(txn, caller); err != nil {
			return nil, err
		}
		if tokenID == "" {
			return nil, errorsmod.Wrap(types.ErrInvalidArgument, "Invalid token identifier")
		}
		fees, err := txn.AccumulatedFees()
		if err != nil {
			return nil, err
		}
		if fees.Locked != nil && !fees.Locked.IsZero() && fees.Locked.TokenID != tokenID {
			return nil, errorsmod.Wrap(types.ErrInvalidState, "Locked fees must be claimed first")
		}
		txn.SetLockedTokenID(tokenID)
		return nil, nil
	})
	return err
}
