/*

This file contains the user registry: dense user identifiers, farm and metastaking token
inventories and pending rewards, all read and written through an open store transaction.

A user entry exists while the user is registered or holds anything. Deposits register the
caller implicitly. Withdraw-all-and-unregister drops the entry but keeps the identifier,
since the address mapping is insertion-only.

*/

package registry

import (
	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/payments"
	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/types"
)

var registryLogger = logger.GetForComponent("user_registry")

// Entry is the full registry view of a user.
type Entry struct {
	ID                uint64                  `json:"id"`
	Address           sdk.AccAddress          `json:"address"`
	Registered        bool                    `json:"registered"`
	FarmTokens        payments.UniquePayments `json:"farm_tokens"`
	MetastakingTokens payments.UniquePayments `json:"metastaking_tokens"`
	Rewards           rewards.Wrapper         `json:"rewards"`
}

// Exists reports whether the entry is present in the registry.
func (e Entry) Exists() bool {
	return e.Registered || !e.FarmTokens.IsEmpty() || !e.MetastakingTokens.IsEmpty() || !e.Rewards.IsEmpty()
}

// Registry operates on the user entries of one transaction.
type Registry struct {
	txn *store.Txn
}

// New binds a registry to an open transaction.
func New(txn *store.Txn) *Registry {
	return &Registry{txn: txn}
}

// Register sets the explicit registration flag, assigning an identifier on first sight.
func (r *Registry) Register(user sdk.AccAddress) (uint64, error) {
	id, err := r.txn.GetOrCreateUserID(user)
	if err != nil {
		return 0, err
	}
	r.txn.SetRegistered(id, true)
	return id, nil
}

// LookupID returns the identifier of an existing user, failing for unknown addresses.
func (r *Registry) LookupID(user sdk.AccAddress) (uint64, error) {
	id, err := r.txn.UserID(user)
	if err != nil {
		return 0, err
	}
	if id == store.UnknownUserID {
		return 0, errorsmod.Wrapf(types.ErrInvalidState, "Unknown user %s", user)
	}
	return id, nil
}

// Entry loads the registry view of a user. Unknown users yield an empty entry.
func (r *Registry) Entry(user sdk.AccAddress) (Entry, error) {
	id, err := r.txn.UserID(user)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{ID: id, Address: user, FarmTokens: payments.New(), MetastakingTokens: payments.New(), Rewards: rewards.NewWrapper()}
	if id == store.UnknownUserID {
		return entry, nil
	}
	return r.load(id, user)
}

func (r *Registry) load(id uint64, user sdk.AccAddress) (Entry, error) {
	registered, err := r.txn.IsRegistered(id)
	if err != nil {
		return Entry{}, err
	}
	farmTokens, err := r.txn.UserFarmTokens(id)
	if err != nil {
		return Entry{}, err
	}
	msTokens, err := r.txn.UserMetastakingTokens(id)
	if err != nil {
		return Entry{}, err
	}
	pending, err := r.txn.UserRewards(id)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:                id,
		Address:           user,
		Registered:        registered,
		FarmTokens:        farmTokens,
		MetastakingTokens: msTokens,
		Rewards:           pending,
	}, nil
}

// RegisteredUsers lists every present entry in identifier order.
func (r *Registry) RegisteredUsers() ([]Entry, error) {
	next, err := r.txn.NextUserID()
	if err != nil {
		return nil, err
	}
	out := []Entry{}
	for id := uint64(1); id < next; id++ {
		addr, err := r.txn.UserAddress(id)
		if err != nil {
			return nil, err
		}
		if addr == nil {
			continue
		}
		entry, err := r.load(id, addr)
		if err != nil {
			return nil, err
		}
		if entry.Exists() {
			out = append(out, entry)
		}
	}
	return out, nil
}

// DepositFarmTokens adds farm positions of registered farms to the caller's inventory.
func (r *Registry) DepositFarmTokens(user sdk.AccAddress, list []types.Payment) error {
	if len(list) == 0 {
		return errorsmod.Wrap(types.ErrInvalidArgument, "No payment")
	}
	for _, p := range list {
		if err := p.ValidateBasic(); err != nil {
			return err
		}
		_, found, err := r.txn.FarmByFarmToken(p.TokenID)
		if err != nil {
			return err
		}
		if !found {
			return errorsmod.Wrapf(types.ErrInvalidState, "Invalid farm token %s", p.TokenID)
		}
	}
	id, err := r.Register(user)
	if err != nil {
		return err
	}
	inventory, err := r.txn.UserFarmTokens(id)
	if err != nil {
		return err
	}
	for _, p := range list {
		if err := inventory.Add(p); err != nil {
			return err
		}
	}
	registryLogger.Debug().Str("user", user.String()).Int("payments", len(list)).Msg("Farm tokens deposited")
	return r.txn.SetUserFarmTokens(id, inventory)
}

// DepositMetastakingTokens adds dual yield positions of registered metastaking contracts.
func (r *Registry) DepositMetastakingTokens(user sdk.AccAddress, list []types.Payment) error {
	if len(list) == 0 {
		return errorsmod.Wrap(types.ErrInvalidArgument, "No payment")
	}
	for _, p := range list {
		if err := p.ValidateBasic(); err != nil {
			return err
		}
		_, found, err := r.txn.MetastakingByDualYieldToken(p.TokenID)
		if err != nil {
			return err
		}
		if !found {
			return errorsmod.Wrapf(types.ErrInvalidState, "Invalid metastaking token %s", p.TokenID)
		}
	}
	id, err := r.Register(user)
	if err != nil {
		return err
	}
	inventory, err := r.txn.UserMetastakingTokens(id)
	if err != nil {
		return err
	}
	for _, p := range list {
		if err := inventory.Add(p); err != nil {
			return err
		}
	}
	registryLogger.Debug().Str("user", user.String()).Int("payments", len(list)).Msg("Metastaking tokens deposited")
	return r.txn.SetUserMetastakingTokens(id, inventory)
}

// WithdrawAllFarmTokens empties the farm inventory and returns what it held.
func (r *Registry) WithdrawAllFarmTokens(user sdk.AccAddress) ([]types.Payment, error) {
	id, err := r.LookupID(user)
	if err != nil {
		return nil, err
	}
	inventory, err := r.txn.UserFarmTokens(id)
	if err != nil {
		return nil, err
	}
	out := inventory.Clear()
	return out, r.txn.SetUserFarmTokens(id, inventory)
}

// WithdrawSpecificFarmTokens deducts each requested payment from the farm inventory.
func (r *Registry) WithdrawSpecificFarmTokens(user sdk.AccAddress, list []types.Payment) ([]types.Payment, error) {
	id, err := r.LookupID(user)
	if err != nil {
		return nil, err
	}
	inventory, err := r.txn.UserFarmTokens(id)
	if err != nil {
		return nil, err
	}
	if err := deductAll(&inventory, list); err != nil {
		return nil, err
	}
	return types.ClonePayments(list), r.txn.SetUserFarmTokens(id, inventory)
}

// WithdrawAllMetastakingTokens empties the metastaking inventory and returns what it held.
func (r *Registry) WithdrawAllMetastakingTokens(user sdk.AccAddress) ([]types.Payment, error) {
	id, err := r.LookupID(user)
	if err != nil {
		return nil, err
	}
	inventory, err := r.txn.UserMetastakingTokens(id)
	if err != nil {
		return nil, err
	}
	out := inventory.Clear()
	return out, r.txn.SetUserMetastakingTokens(id, inventory)
}

// WithdrawSpecificMetastakingTokens deducts each requested payment from the metastaking inventory.
func (r *Registry) WithdrawSpecificMetastakingTokens(user sdk.AccAddress, list []types.Payment) ([]types.Payment, error) {
	id, err := r.LookupID(user)
	if err != nil {
		return nil, err
	}
	inventory, err := r.txn.UserMetastakingTokens(id)
	if err != nil {
		return nil, err
	}
	if err := deductAll(&inventory, list); err != nil {
		return nil, err
	}
	return types.ClonePayments(list), r.txn.SetUserMetastakingTokens(id, inventory)
}

func deductAll(inventory *payments.UniquePayments, list []types.Payment) error {
	if len(list) == 0 {
		return errorsmod.Wrap(types.ErrInvalidArgument, "No payment")
	}
	for _, p := range list {
		if err := inventory.Deduct(p); err != nil {
			return err
		}
	}
	return nil
}

// WithdrawAllAndUnregister empties both inventories and drops the entry. Pending rewards
// must have been claimed first.
func (r *Registry) WithdrawAllAndUnregister(user sdk.AccAddress) ([]types.Payment, error) {
	id, err := r.LookupID(user)
	if err != nil {
		return nil, err
	}
	pending, err := r.txn.UserRewards(id)
	if err != nil {
		return nil, err
	}
	if !pending.IsEmpty() {
		return nil, errorsmod.Wrap(types.ErrInvalidState, "Must claim rewards before unregistering")
	}
	farmTokens, err := r.WithdrawAllFarmTokens(user)
	if err != nil {
		return nil, err
	}
	msTokens, err := r.WithdrawAllMetastakingTokens(user)
	if err != nil {
		return nil, err
	}
	r.txn.SetRegistered(id, false)
	registryLogger.Info().Str("user", user.String()).Uint64("id", id).Msg("User unregistered")
	return append(farmTokens, msTokens...), nil
}

// TakeRewards empties the pending rewards of a user and returns them.
func (r *Registry) TakeRewards(user sdk.AccAddress) (rewards.Wrapper, error) {
	id, err := r.LookupID(user)
	if err != nil {
		return rewards.Wrapper{}, err
	}
	pending, err := r.txn.UserRewards(id)
	if err != nil {
		return rewards.Wrapper{}, err
	}
	if err := r.txn.SetUserRewards(id, rewards.NewWrapper()); err != nil {
		return rewards.Wrapper{}, err
	}
	return pending, nil
}

// SaveFarmTokens stores the farm inventory of a user id.
func (r *Registry) SaveFarmTokens(id uint64, inventory payments.UniquePayments) error {
	return r.txn.SetUserFarmTokens(id, inventory)
}

// SaveMetastakingTokens stores the metastaking inventory of a user id.
func (r *Registry) SaveMetastakingTokens(id uint64, inventory payments.UniquePayments) error {
	return r.txn.SetUserMetastakingTokens(id, inventory)
}

// SaveRewards stores the pending rewards of a user id.
func (r *Registry) SaveRewards(id uint64, pending rewards.Wrapper) error {
	return r.txn.SetUserRewards(id, pending)
}
