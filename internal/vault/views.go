package vault

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/registry"
	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/types"
)

// UserEntry returns the registry view of user. Unknown users yield an empty entry.
func (e *Engine) UserEntry(user sdk.AccAddress) (registry.Entry, error) {
	var entry registry.Entry
	err := e.view(func(txn *store.Txn) error {
		var err error
		entry, err = registry.New(txn).Entry(user)
		return err
	})
	return entry, err
}

func (e *Engine) UserFarmTokens(user sdk.AccAddress) ([]types.Payment, error) {
	entry, err := e.UserEntry(user)
	if err != nil {
		return nil, err
	}
	return entry.FarmTokens.Payments(), nil
}

func (e *Engine) UserMetastakingTokens(user sdk.AccAddress) ([]types.Payment, error) {
	entry, err := e.UserEntry(user)
	if err != nil {
		return nil, err
	}
	return entry.MetastakingTokens.Payments(), nil
}

func (e *Engine) UserRewards(user sdk.AccAddress) (rewards.Wrapper, error) {
	entry, err := e.UserEntry(user)
	if err != nil {
		return rewards.Wrapper{}, err
	}
	return entry.Rewards, nil
}

// RegisteredUsers lists every present user entry in identifier order.
func (e *Engine) RegisteredUsers() ([]registry.Entry, error) {
	var entries []registry.Entry
	err := e.view(func(txn *store.Txn) error {
		var err error
		entries, err = registry.New(txn).RegisteredUsers()
		return err
	})
	return entries, err
}

func (e *Engine) AccumulatedFees() (rewards.Wrapper, error) {
	var fees rewards.Wrapper
	err := e.view(func(txn *store.Txn) error {
		var err error
		fees, err = txn.AccumulatedFees()
		return err
	})
	return fees, err
}

// Settings returns the protocol wide parameters.
func (e *Engine) Settings() (Settings, error) {
	var s Settings
	err := e.view(func(txn *store.Txn) error {
		admin, err := txn.AdminAddress()
		if err != nil {
			return err
		}
		proxy, err := txn.ProxyClaimAddress()
		if err != nil {
			return err
		}
		if s.FeePercentage, err = txn.FeePercentage(); err != nil {
			return err
		}
		if s.LockedTokenID, err = txn.LockedTokenID(); err != nil {
			return err
		}
		if s.WrappedNativeTokenID, err = txn.WrappedNativeTokenID(); err != nil {
			return err
		}
		if !admin.Empty() {
			s.AdminAddress = admin.String()
		}
		if !proxy.Empty() {
			s.ProxyClaimAddress = proxy.String()
		}
		return nil
	})
	return s, err
}

func (e *Engine) FarmConfigs() ([]types.FarmConfig, error) {
	out := []types.FarmConfig{}
	err := e.view(func(txn *store.Txn) error {
		addrs, err := txn.FarmAddresses()
		if err != nil {
			return err
		}
		for _, addr := range addrs {
			cfg, found, err := txn.FarmConfig(addr)
			if err != nil {
				return err
			}
			if found {
				out = append(out, cfg)
			}
		}
		return nil
	})
	return out, err
}

func (e *Engine) MetastakingConfigs() ([]types.MetastakingConfig, error) {
	out := []types.MetastakingConfig{}
	err := e.view(func(txn *store.Txn) error {
		addrs, err := txn.MetastakingAddresses()
		if err != nil {
			return err
		}
		for _, addr := range addrs {
			cfg, found, err := txn.MetastakingConfig(addr)
			if err != nil {
				return err
			}
			if found {
				out = append(out, cfg)
			}
		}
		return nil
	})
	return out, err
}
