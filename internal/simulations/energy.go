package simulations

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/types"
)

var (
	errEnergyNotDeployed = errors.New("Energy factory not deployed")
	errInvalidMerge      = errors.New("Invalid tokens for merge")
	errInvalidSignature  = errors.New("Invalid signature")
	errNothingToWrap     = errors.New("Payment must be more than 0")
)

// EnergyFactoryAddress is the fixed address of the simulated energy factory.
var EnergyFactoryAddress = ContractAddress("energy-factory")

// FeesCollectorAddress is the fixed address of the simulated fees collector.
var FeesCollectorAddress = ContractAddress("fees-collector")

// MetabondingAddress is the fixed address of the simulated metabonding contract.
var MetabondingAddress = ContractAddress("metabonding")

// NativeWrapperAddress is the fixed address of the simulated native token wrapper.
var NativeWrapperAddress = ContractAddress("native-wrapper")

type energyState struct {
	LockedTokenID string
	BaseTokenID   string
	NextNonce     uint64
	Attributes    map[uint64]types.LockedTokenAttributes
	Energy        map[string]sdkmath.Int
}

func newEnergyState() *energyState {
	return &energyState{
		Attributes: make(map[uint64]types.LockedTokenAttributes),
		Energy:     make(map[string]sdkmath.Int),
	}
}

func (e *energyState) clone() *energyState {
	out := &energyState{
		LockedTokenID: e.LockedTokenID,
		BaseTokenID:   e.BaseTokenID,
		NextNonce:     e.NextNonce,
		Attributes:    make(map[uint64]types.LockedTokenAttributes, len(e.Attributes)),
		Energy:        make(map[string]sdkmath.Int, len(e.Energy)),
	}
	for k, v := range e.Attributes {
		out.Attributes[k] = v
	}
	for k, v := range e.Energy {
		out.Energy[k] = v
	}
	return out
}

func (e *energyState) energyOf(addr sdk.AccAddress) sdkmath.Int {
	if v, ok := e.Energy[string(addr)]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}

// weight is the energy conferred by a locked token: amount times remaining epochs.
func (e *energyState) weight(p types.Payment, epoch uint64) (sdkmath.Int, error) {
	attrs, ok := e.Attributes[p.Nonce]
	if !ok || p.TokenID != e.LockedTokenID {
		return sdkmath.Int{}, fmt.Errorf("unknown locked token %s", p.Key())
	}
	if attrs.UnlockEpoch <= epoch {
		return sdkmath.ZeroInt(), nil
	}
	return p.Amount.Mul(sdkmath.NewIntFromUint64(attrs.UnlockEpoch - epoch)), nil
}

func (e *energyState) adjust(addr sdk.AccAddress, delta sdkmath.Int) {
	e.Energy[string(addr)] = e.energyOf(addr).Add(delta)
}

// DeployEnergyFactory configures the locked token issued for baseTokenID rewards.
func (c *Chain) DeployEnergyFactory(lockedTokenID, baseTokenID string) sdk.AccAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.energy.LockedTokenID = lockedTokenID
	c.state.energy.BaseTokenID = baseTokenID
	c.state.setStorage(EnergyFactoryAddress, "lockedTokenId", []byte(lockedTokenID))
	c.state.setStorage(EnergyFactoryAddress, "baseAssetTokenId", []byte(baseTokenID))
	return EnergyFactoryAddress
}

// Energy returns the energy attributed to addr.
func (c *Chain) Energy(addr sdk.AccAddress) sdkmath.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.energy.energyOf(addr)
}

// LockedAttributes returns the attributes of a locked token nonce.
func (c *Chain) LockedAttributes(nonce uint64) (types.LockedTokenAttributes, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	attrs, ok := c.state.energy.Attributes[nonce]
	return attrs, ok
}

// LockTokens locks amount of the base token for owner, as a user would through the factory.
func (c *Chain) LockTokens(owner sdk.AccAddress, amount sdkmath.Int, lockEpochs uint64) (types.Payment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.lockVirtual(c.state.energy.BaseTokenID, amount, lockEpochs, owner, owner)
}

func (w *world) lockVirtual(tokenID string, amount sdkmath.Int, lockEpochs uint64, dest, energyAddress sdk.AccAddress) (types.Payment, error) {
	e := w.energy
	if e.LockedTokenID == "" {
		return types.Payment{}, errEnergyNotDeployed
	}
	if amount.IsNil() || !amount.IsPositive() {
		return types.Payment{}, fmt.Errorf("Invalid lock amount")
	}
	e.NextNonce++
	attrs := types.LockedTokenAttributes{OriginalTokenID: tokenID, UnlockEpoch: w.epoch + lockEpochs}
	e.Attributes[e.NextNonce] = attrs
	locked := types.NewPayment(e.LockedTokenID, e.NextNonce, amount)
	w.mint(dest, locked)
	e.adjust(energyAddress, amount.Mul(sdkmath.NewIntFromUint64(lockEpochs)))
	return locked, nil
}

func (w *world) mergeLocked(caller, originalCaller sdk.AccAddress, tokens []types.Payment) (types.Payment, error) {
	e := w.energy
	if e.LockedTokenID == "" {
		return types.Payment{}, errEnergyNotDeployed
	}
	if len(tokens) < 2 {
		return types.Payment{}, errInvalidMerge
	}
	parts := make([]rewards.LockedPart, 0, len(tokens))
	total := sdkmath.ZeroInt()
	oldWeight := sdkmath.ZeroInt()
	var originalTokenID string
	for _, tok := range tokens {
		attrs, ok := e.Attributes[tok.Nonce]
		if tok.TokenID != e.LockedTokenID || !ok || tok.IsZero() {
			return types.Payment{}, errInvalidMerge
		}
		if originalTokenID == "" {
			originalTokenID = attrs.OriginalTokenID
		}
		unlock := attrs.UnlockEpoch
		if unlock < w.epoch {
			unlock = w.epoch
		}
		parts = append(parts, rewards.LockedPart{Amount: tok.Amount, UnlockEpoch: unlock})
		weight, err := e.weight(tok, w.epoch)
		if err != nil {
			return types.Payment{}, err
		}
		oldWeight = oldWeight.Add(weight)
		total = total.Add(tok.Amount)
	}
	unlockEpoch, err := rewards.WeightedUnlockEpoch(parts)
	if err != nil {
		return types.Payment{}, err
	}
	for _, tok := range tokens {
		if err := w.burn(caller, tok); err != nil {
			return types.Payment{}, err
		}
	}
	e.NextNonce++
	e.Attributes[e.NextNonce] = types.LockedTokenAttributes{OriginalTokenID: originalTokenID, UnlockEpoch: unlockEpoch}
	merged := types.NewPayment(e.LockedTokenID, e.NextNonce, total)
	w.mint(caller, merged)

	newWeight, err := e.weight(merged, w.epoch)
	if err != nil {
		return types.Payment{}, err
	}
	e.adjust(originalCaller, newWeight.Sub(oldWeight))
	return merged, nil
}

func (w *world) moveEnergy(addr sdk.AccAddress, tokens []types.Payment, sign int64) error {
	total := sdkmath.ZeroInt()
	for _, tok := range tokens {
		weight, err := w.energy.weight(tok, w.epoch)
		if err != nil {
			return err
		}
		total = total.Add(weight)
	}
	w.energy.adjust(addr, total.MulRaw(sign))
	return nil
}

// --- Fees collector, metabonding and the native wrapper ---

// FundFeesCollector makes rewards claimable by user from the fees collector.
func (c *Chain) FundFeesCollector(user sdk.AccAddress, list ...types.Payment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range list {
		c.state.mint(FeesCollectorAddress, p)
	}
	c.state.feeRewards[string(user)] = append(c.state.feeRewards[string(user)], list...)
}

// FundMetabonding makes rewards claimable by user for a week.
func (c *Chain) FundMetabonding(user sdk.AccAddress, week uint64, list ...types.Payment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range list {
		c.state.mint(MetabondingAddress, p)
	}
	weeks, ok := c.state.metabondingRewards[string(user)]
	if !ok {
		weeks = make(map[uint64][]types.Payment)
		c.state.metabondingRewards[string(user)] = weeks
	}
	weeks[week] = append(weeks[week], list...)
}

// DeployNativeWrapper sets the identifier of the wrapped native token.
func (c *Chain) DeployNativeWrapper(wrappedTokenID string) sdk.AccAddress {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.wrappedNativeID = wrappedTokenID
	c.state.setStorage(NativeWrapperAddress, "wrappedEgldTokenId", []byte(wrappedTokenID))
	return NativeWrapperAddress
}

func (w *world) claimFees(caller, user sdk.AccAddress) ([]types.Payment, error) {
	list := w.feeRewards[string(user)]
	delete(w.feeRewards, string(user))
	if err := w.transfer(FeesCollectorAddress, caller, list...); err != nil {
		return nil, err
	}
	return types.ClonePayments(list), nil
}

func (w *world) claimMetabonding(caller, user sdk.AccAddress, args []contracts.ClaimArgs) ([]types.Payment, error) {
	out := []types.Payment{}
	weeks := w.metabondingRewards[string(user)]
	for _, arg := range args {
		if len(arg.Signature) == 0 {
			return nil, errInvalidSignature
		}
		list, ok := weeks[arg.Week]
		if !ok {
			continue
		}
		delete(weeks, arg.Week)
		if err := w.transfer(MetabondingAddress, caller, list...); err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	return out, nil
}

func (w *world) wrapNative(caller sdk.AccAddress, amount sdkmath.Int) (types.Payment, error) {
	if w.wrappedNativeID == "" {
		return types.Payment{}, contracts.ErrUnknownContract
	}
	if amount.IsNil() || !amount.IsPositive() {
		return types.Payment{}, errNothingToWrap
	}
	if err := w.burn(caller, types.NewFungible(NativeTokenID, amount)); err != nil {
		return types.Payment{}, err
	}
	wrapped := types.NewFungible(w.wrappedNativeID, amount)
	w.mint(caller, wrapped)
	return wrapped, nil
}
