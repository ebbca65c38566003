/*

This file contains the typed accessors of every persisted engine key.

Key layout:
	meta/next_id                 next dense user identifier
	addr_to_id/<address>         user identifier of an address
	id_to_addr/<id>              address of a user identifier
	farm/<address>               cached farm configuration
	farm_list                    registered farm addresses in registration order
	farm_by_token/<farm token>   farm issuing a farm token
	farm_by_farming/<token>      farm accepting a farming token
	ms/<address>                 cached metastaking configuration
	ms_list                      registered metastaking addresses
	ms_by_token/<dual yield>     metastaking contract issuing a dual yield token
	user/<id>/farm_tokens        farm token inventory
	user/<id>/ms_tokens          metastaking token inventory
	user/<id>/rewards            pending rewards
	user/<id>/registered         explicit registration flag
	accumulated_fees, fee_percentage, proxy_claim_address, admin_address,
	locked_token_id, wrapped_native_token_id

Values are JSON except identifiers, which are 8 byte big-endian integers.

*/

package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/payments"
	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/types"
)

const (
	keyNextID             = "meta/next_id"
	keyFarmList           = "farm_list"
	keyMetastakingList    = "ms_list"
	keyAccumulatedFees    = "accumulated_fees"
	keyFeePercentage      = "fee_percentage"
	keyProxyClaimAddress  = "proxy_claim_address"
	keyAdminAddress       = "admin_address"
	keyLockedTokenID      = "locked_token_id"
	keyWrappedNativeToken = "wrapped_native_token_id"
)

// UnknownUserID is never assigned to an address.
const UnknownUserID uint64 = 0

func addrToIDKey(addr sdk.AccAddress) []byte {
	return append([]byte("addr_to_id/"), addr.Bytes()...)
}

func idToAddrKey(id uint64) []byte {
	return []byte("id_to_addr/" + strconv.FormatUint(id, 10))
}

func farmKey(addr sdk.AccAddress) []byte {
	return append([]byte("farm/"), addr.Bytes()...)
}

func farmByTokenKey(tokenID string) []byte {
	return []byte("farm_by_token/" + tokenID)
}

func farmByFarmingKey(tokenID string) []byte {
	return []byte("farm_by_farming/" + tokenID)
}

func metastakingKey(addr sdk.AccAddress) []byte {
	return append([]byte("ms/"), addr.Bytes()...)
}

func metastakingByTokenKey(tokenID string) []byte {
	return []byte("ms_by_token/" + tokenID)
}

func userKey(id uint64, field string) []byte {
	return []byte("user/" + strconv.FormatUint(id, 10) + "/" + field)
}

func (t *Txn) getJSON(key []byte, out interface{}) (bool, error) {
	raw, found, err := t.Get(key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("%w: key %q: %v", ErrCorrupted, key, err)
	}
	return true, nil
}

func (t *Txn) setJSON(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	t.Set(key, raw)
	return nil
}

func (t *Txn) getUint64(key []byte) (uint64, bool, error) {
	raw, found, err := t.Get(key)
	if err != nil || !found {
		return 0, found, err
	}
	if len(raw) != 8 {
		return 0, true, fmt.Errorf("%w: key %q is not a uint64", ErrCorrupted, key)
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

func (t *Txn) setUint64(key []byte, v uint64) {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, v)
	t.Set(key, raw)
}

func (t *Txn) getAddress(key []byte) (sdk.AccAddress, error) {
	raw, found, err := t.Get(key)
	if err != nil || !found {
		return nil, err
	}
	return sdk.AccAddress(raw), nil
}

func (t *Txn) getString(key []byte) (string, error) {
	raw, _, err := t.Get(key)
	return string(raw), err
}

// ---------------------------------------------------------------------------
// Address identifiers
// ---------------------------------------------------------------------------

// UserID returns the identifier of addr, or UnknownUserID.
func (t *Txn) UserID(addr sdk.AccAddress) (uint64, error) {
	id, _, err := t.getUint64(addrToIDKey(addr))
	return id, err
}

// UserAddress returns the address assigned to id, nil when unassigned.
func (t *Txn) UserAddress(id uint64) (sdk.AccAddress, error) {
	return t.getAddress(idToAddrKey(id))
}

// NextUserID returns the identifier the next new address will receive.
func (t *Txn) NextUserID() (uint64, error) {
	next, found, err := t.getUint64([]byte(keyNextID))
	if err != nil {
		return 0, err
	}
	if !found {
		return 1, nil
	}
	return next, nil
}

// GetOrCreateUserID returns the identifier of addr, assigning the next one on first sight.
func (t *Txn) GetOrCreateUserID(addr sdk.AccAddress) (uint64, error) {
	id, err := t.UserID(addr)
	if err != nil || id != UnknownUserID {
		return id, err
	}
	id, err = t.NextUserID()
	if err != nil {
		return 0, err
	}
	t.setUint64(addrToIDKey(addr), id)
	t.Set(idToAddrKey(id), addr.Bytes())
	t.setUint64([]byte(keyNextID), id+1)
	return id, nil
}

// ---------------------------------------------------------------------------
// Farms
// ---------------------------------------------------------------------------

// FarmConfig returns the cached configuration of a registered farm.
func (t *Txn) FarmConfig(addr sdk.AccAddress) (types.FarmConfig, bool, error) {
	var cfg types.FarmConfig
	found, err := t.getJSON(farmKey(addr), &cfg)
	return cfg, found, err
}

// SetFarmConfig stores cfg and indexes it by farm token and farming token.
func (t *Txn) SetFarmConfig(cfg types.FarmConfig) error {
	_, exists, err := t.FarmConfig(cfg.Address)
	if err != nil {
		return err
	}
	if err := t.setJSON(farmKey(cfg.Address), cfg); err != nil {
		return err
	}
	t.Set(farmByTokenKey(cfg.FarmTokenID), cfg.Address.Bytes())
	t.Set(farmByFarmingKey(cfg.FarmingTokenID), cfg.Address.Bytes())
	if exists {
		return nil
	}
	list, err := t.FarmAddresses()
	if err != nil {
		return err
	}
	return t.setJSON([]byte(keyFarmList), append(list, cfg.Address))
}

// DeleteFarmConfig forgets a registered farm. User inventory is left untouched.
func (t *Txn) DeleteFarmConfig(addr sdk.AccAddress) error {
	cfg, found, err := t.FarmConfig(addr)
	if err != nil || !found {
		return err
	}
	t.Delete(farmKey(addr))
	if owner, err := t.getAddress(farmByTokenKey(cfg.FarmTokenID)); err != nil {
		return err
	} else if owner.Equals(addr) {
		t.Delete(farmByTokenKey(cfg.FarmTokenID))
	}
	if owner, err := t.getAddress(farmByFarmingKey(cfg.FarmingTokenID)); err != nil {
		return err
	} else if owner.Equals(addr) {
		t.Delete(farmByFarmingKey(cfg.FarmingTokenID))
	}
	list, err := t.FarmAddresses()
	if err != nil {
		return err
	}
	return t.setJSON([]byte(keyFarmList), removeAddress(list, addr))
}

// FarmAddresses lists registered farms in registration order.
func (t *Txn) FarmAddresses() ([]sdk.AccAddress, error) {
	var list []sdk.AccAddress
	_, err := t.getJSON([]byte(keyFarmList), &list)
	return list, err
}

// FarmByFarmToken returns the registered farm issuing tokenID.
func (t *Txn) FarmByFarmToken(tokenID string) (types.FarmConfig, bool, error) {
	addr, err := t.getAddress(farmByTokenKey(tokenID))
	if err != nil || addr == nil {
		return types.FarmConfig{}, false, err
	}
	return t.FarmConfig(addr)
}

// FarmByFarmingToken returns the registered farm accepting tokenID as farming token.
func (t *Txn) FarmByFarmingToken(tokenID string) (types.FarmConfig, bool, error) {
	addr, err := t.getAddress(farmByFarmingKey(tokenID))
	if err != nil || addr == nil {
		return types.FarmConfig{}, false, err
	}
	return t.FarmConfig(addr)
}

// ---------------------------------------------------------------------------
// Metastaking
// ---------------------------------------------------------------------------

// MetastakingConfig returns the cached configuration of a registered metastaking contract.
func (t *Txn) MetastakingConfig(addr sdk.AccAddress) (types.MetastakingConfig, bool, error) {
	var cfg types.MetastakingConfig
	found, err := t.getJSON(metastakingKey(addr), &cfg)
	return cfg, found, err
}

// SetMetastakingConfig stores cfg and indexes it by dual yield token.
func (t *Txn) SetMetastakingConfig(cfg types.MetastakingConfig) error {
	_, exists, err := t.MetastakingConfig(cfg.Address)
	if err != nil {
		return err
	}
	if err := t.setJSON(metastakingKey(cfg.Address), cfg); err != nil {
		return err
	}
	t.Set(metastakingByTokenKey(cfg.DualYieldTokenID), cfg.Address.Bytes())
	if exists {
		return nil
	}
	list, err := t.MetastakingAddresses()
	if err != nil {
		return err
	}
	return t.setJSON([]byte(keyMetastakingList), append(list, cfg.Address))
}

// DeleteMetastakingConfig forgets a registered metastaking contract.
func (t *Txn) DeleteMetastakingConfig(addr sdk.AccAddress) error {
	cfg, found, err := t.MetastakingConfig(addr)
	if err != nil || !found {
		return err
	}
	t.Delete(metastakingKey(addr))
	if owner, err := t.getAddress(metastakingByTokenKey(cfg.DualYieldTokenID)); err != nil {
		return err
	} else if owner.Equals(addr) {
		t.Delete(metastakingByTokenKey(cfg.DualYieldTokenID))
	}
	list, err := t.MetastakingAddresses()
	if err != nil {
		return err
	}
	return t.setJSON([]byte(keyMetastakingList), removeAddress(list, addr))
}

// MetastakingAddresses lists registered metastaking contracts in registration order.
func (t *Txn) MetastakingAddresses() ([]sdk.AccAddress, error) {
	var list []sdk.AccAddress
	_, err := t.getJSON([]byte(keyMetastakingList), &list)
	return list, err
}

// MetastakingByDualYieldToken returns the registered metastaking contract issuing tokenID.
func (t *Txn) MetastakingByDualYieldToken(tokenID string) (types.MetastakingConfig, bool, error) {
	addr, err := t.getAddress(metastakingByTokenKey(tokenID))
	if err != nil || addr == nil {
		return types.MetastakingConfig{}, false, err
	}
	return t.MetastakingConfig(addr)
}

func removeAddress(list []sdk.AccAddress, addr sdk.AccAddress) []sdk.AccAddress {
	out := make([]sdk.AccAddress, 0, len(list))
	for _, a := range list {
		if !a.Equals(addr) {
			out = append(out, a)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// UserFarmTokens returns the farm token inventory of a user.
func (t *Txn) UserFarmTokens(id uint64) (payments.UniquePayments, error) {
	list := payments.New()
	_, err := t.getJSON(userKey(id, "farm_tokens"), &list)
	return list, err
}

// SetUserFarmTokens stores the farm token inventory, deleting the key when empty.
func (t *Txn) SetUserFarmTokens(id uint64, list payments.UniquePayments) error {
	return t.setCollection(userKey(id, "farm_tokens"), list)
}

// UserMetastakingTokens returns the dual yield inventory of a user.
func (t *Txn) UserMetastakingTokens(id uint64) (payments.UniquePayments, error) {
	list := payments.New()
	_, err := t.getJSON(userKey(id, "ms_tokens"), &list)
	return list, err
}

// SetUserMetastakingTokens stores the dual yield inventory, deleting the key when empty.
func (t *Txn) SetUserMetastakingTokens(id uint64, list payments.UniquePayments) error {
	return t.setCollection(userKey(id, "ms_tokens"), list)
}

func (t *Txn) setCollection(key []byte, list payments.UniquePayments) error {
	if list.IsEmpty() {
		t.Delete(key)
		return nil
	}
	return t.setJSON(key, list)
}

// UserRewards returns the pending rewards of a user.
func (t *Txn) UserRewards(id uint64) (rewards.Wrapper, error) {
	w := rewards.NewWrapper()
	_, err := t.getJSON(userKey(id, "rewards"), &w)
	return w, err
}

// SetUserRewards stores pending rewards, deleting the key when empty.
func (t *Txn) SetUserRewards(id uint64, w rewards.Wrapper) error {
	if w.IsEmpty() {
		t.Delete(userKey(id, "rewards"))
		return nil
	}
	return t.setJSON(userKey(id, "rewards"), w)
}

// IsRegistered reports the explicit registration flag of a user.
func (t *Txn) IsRegistered(id uint64) (bool, error) {
	_, found, err := t.Get(userKey(id, "registered"))
	return found, err
}

// SetRegistered sets or clears the registration flag.
func (t *Txn) SetRegistered(id uint64, registered bool) {
	if registered {
		t.Set(userKey(id, "registered"), []byte{1})
		return
	}
	t.Delete(userKey(id, "registered"))
}

// ---------------------------------------------------------------------------
// Protocol settings
// ---------------------------------------------------------------------------

// AccumulatedFees returns the protocol fee wrapper.
func (t *Txn) AccumulatedFees() (rewards.Wrapper, error) {
	w := rewards.NewWrapper()
	_, err := t.getJSON([]byte(keyAccumulatedFees), &w)
	return w, err
}

// SetAccumulatedFees stores the protocol fee wrapper.
func (t *Txn) SetAccumulatedFees(w rewards.Wrapper) error {
	if w.IsEmpty() {
		t.Delete([]byte(keyAccumulatedFees))
		return nil
	}
	return t.setJSON([]byte(keyAccumulatedFees), w)
}

// FeePercentage returns the fee in basis points.
func (t *Txn) FeePercentage() (uint64, error) {
	bps, _, err := t.getUint64([]byte(keyFeePercentage))
	return bps, err
}

// SetFeePercentage stores the fee in basis points.
func (t *Txn) SetFeePercentage(bps uint64) {
	t.setUint64([]byte(keyFeePercentage), bps)
}

// ProxyClaimAddress returns the principal allowed to compound on behalf of users.
func (t *Txn) ProxyClaimAddress() (sdk.AccAddress, error) {
	return t.getAddress([]byte(keyProxyClaimAddress))
}

// SetProxyClaimAddress stores the proxy claim principal.
func (t *Txn) SetProxyClaimAddress(addr sdk.AccAddress) {
	t.Set([]byte(keyProxyClaimAddress), addr.Bytes())
}

// AdminAddress returns the administrator.
func (t *Txn) AdminAddress() (sdk.AccAddress, error) {
	return t.getAddress([]byte(keyAdminAddress))
}

// SetAdminAddress stores the administrator.
func (t *Txn) SetAdminAddress(addr sdk.AccAddress) {
	t.Set([]byte(keyAdminAddress), addr.Bytes())
}

// LockedTokenID returns the governance locked token identifier.
func (t *Txn) LockedTokenID() (string, error) {
	return t.getString([]byte(keyLockedTokenID))
}

// SetLockedTokenID stores the governance locked token identifier.
func (t *Txn) SetLockedTokenID(tokenID string) {
	t.Set([]byte(keyLockedTokenID), []byte(tokenID))
}

// WrappedNativeTokenID returns the identifier of the wrapped native token.
func (t *Txn) WrappedNativeTokenID() (string, error) {
	return t.getString([]byte(keyWrappedNativeToken))
}

// SetWrappedNativeTokenID stores the identifier of the wrapped native token.
func (t *Txn) SetWrappedNativeTokenID(tokenID string) {
	t.Set([]byte(keyWrappedNativeToken), []byte(tokenID))
}
