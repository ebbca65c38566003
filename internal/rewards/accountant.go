/*

The accountant applies the fee and merge rules to rewards wrappers.

Fees are charged in kind: fee = floor(amount * bps / MaxPercentage) is cut from each payment
and moved into the protocol fee wrapper. For the governance locked slot the energy that the
fee portion confers is moved from the user to the protocol principal before the portion is
merged into the fee wrapper.

*/

package rewards

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/types"
)

// MaxPercentage is the basis point denominator used for every percentage in the engine.
const MaxPercentage uint64 = 10_000

var accountantLogger = logger.GetForComponent("rewards_accountant")

// Accountant merges and charges rewards wrappers.
type Accountant struct {
	energy        contracts.EnergyFactory
	lockedTokenID string
}

// NewAccountant returns an accountant routing lockedTokenID payments into the locked slot.
func NewAccountant(energy contracts.EnergyFactory, lockedTokenID string) *Accountant {
	return &Accountant{energy: energy, lockedTokenID: lockedTokenID}
}

// LockedTokenID returns the governance locked token identifier.
func (a *Accountant) LockedTokenID() string {
	return a.lockedTokenID
}

// IsLocked reports whether the payment is a governance locked token.
func (a *Accountant) IsLocked(p types.Payment) bool {
	return a.lockedTokenID != "" && p.TokenID == a.lockedTokenID
}

// FeeAmount returns floor(amount * bps / MaxPercentage).
func FeeAmount(amount sdkmath.Int, bps uint64) sdkmath.Int {
	if amount.IsNil() || bps == 0 {
		return sdkmath.ZeroInt()
	}
	return amount.Mul(sdkmath.NewIntFromUint64(bps)).Quo(sdkmath.NewIntFromUint64(MaxPercentage))
}

// ValidateFeePercentage accepts values strictly between 0 and MaxPercentage.
func ValidateFeePercentage(bps uint64) error {
	if bps == 0 || bps >= MaxPercentage {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "Invalid fees percentage %d", bps)
	}
	return nil
}

// AddPayment routes a reward payment into the wrapper. Zero payments are ignored; locked
// tokens are merged into the locked slot on behalf of owner.
func (a *Accountant) AddPayment(ctx context.Context, w *Wrapper, p types.Payment, owner sdk.AccAddress) error {
	if p.IsZero() {
		return nil
	}
	if a.IsLocked(p) {
		return a.mergeLocked(ctx, w, p, owner)
	}
	return w.Other.Add(p)
}

// AddPayments routes each payment in order.
func (a *Accountant) AddPayments(ctx context.Context, w *Wrapper, list []types.Payment, owner sdk.AccAddress) error {
	for _, p := range list {
		if err := a.AddPayment(ctx, w, p, owner); err != nil {
			return err
		}
	}
	return nil
}

// Merge moves every reward of src into dst. The locked slots must hold the same token.
func (a *Accountant) Merge(ctx context.Context, dst *Wrapper, src Wrapper, owner sdk.AccAddress) error {
	if src.Locked != nil && !src.Locked.IsZero() {
		if err := a.mergeLocked(ctx, dst, *src.Locked, owner); err != nil {
			return err
		}
	}
	return dst.Other.Merge(src.Other)
}

func (a *Accountant) mergeLocked(ctx context.Context, w *Wrapper, p types.Payment, owner sdk.AccAddress) error {
	if w.Locked == nil || w.Locked.IsZero() {
		locked := p
		w.Locked = &locked
		return nil
	}
	if w.Locked.TokenID != p.TokenID {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "Locked token mismatch: %s vs %s", w.Locked.TokenID, p.TokenID)
	}
	if w.Locked.Nonce == p.Nonce {
		merged := w.Locked.WithAmount(w.Locked.Amount.Add(p.Amount))
		w.Locked = &merged
		return nil
	}
	if a.energy == nil {
		return errorsmod.Wrap(types.ErrInvalidState, "Energy factory not configured")
	}
	merged, err := a.energy.MergeTokens(ctx, owner, []types.Payment{*w.Locked, p})
	if err != nil {
		return types.ExternalFailure("energy_factory", err)
	}
	if merged.TokenID != p.TokenID {
		return errorsmod.Wrap(types.ErrExternalFailure, "Merged locked token has unexpected identifier")
	}
	accountantLogger.Debug().
		Str("owner", owner.String()).
		Stringer("merged", merged).
		Msg("Merged locked rewards")
	w.Locked = &merged
	return nil
}

// FeeReceipt lists what was cut from a wrapper.
type FeeReceipt struct {
	Other  []types.Payment
	Locked *types.Payment
}

// DeductFees cuts the fee from every payment of w and moves it into fees. The energy of the
// locked fee portion is moved from user to feeOwner.
func (a *Accountant) DeductFees(ctx context.Context, w *Wrapper, bps uint64, user, feeOwner sdk.AccAddress, fees *Wrapper) (FeeReceipt, error) {
	receipt := FeeReceipt{}
	if bps == 0 {
		return receipt, nil
	}
	if err := ValidateFeePercentage(bps); err != nil {
		return receipt, err
	}

	for _, p := range w.Other.Payments() {
		fee := FeeAmount(p.Amount, bps)
		if fee.IsZero() {
			continue
		}
		feePayment := p.WithAmount(fee)
		if err := w.Other.Deduct(feePayment); err != nil {
			return receipt, err
		}
		if err := fees.Other.Add(feePayment); err != nil {
			return receipt, err
		}
		receipt.Other = append(receipt.Other, feePayment)
	}

	if w.Locked != nil && !w.Locked.IsZero() {
		fee := FeeAmount(w.Locked.Amount, bps)
		if !fee.IsZero() {
			feePayment := w.Locked.WithAmount(fee)
			if a.energy == nil {
				return receipt, errorsmod.Wrap(types.ErrInvalidState, "Energy factory not configured")
			}
			if err := a.energy.DeductEnergy(ctx, user, []types.Payment{feePayment}); err != nil {
				return receipt, types.ExternalFailure("energy_factory", err)
			}
			if err := a.energy.AddEnergy(ctx, feeOwner, []types.Payment{feePayment}); err != nil {
				return receipt, types.ExternalFailure("energy_factory", err)
			}
			userPortion := w.Locked.WithAmount(w.Locked.Amount.Sub(fee))
			w.Locked = &userPortion
			if err := a.mergeLocked(ctx, fees, feePayment, feeOwner); err != nil {
				return receipt, err
			}
			receipt.Locked = &feePayment
		}
	}

	accountantLogger.Debug().
		Str("user", user.String()).
		Uint64("feeBps", bps).
		Int("feePayments", len(receipt.Other)).
		Bool("lockedFee", receipt.Locked != nil).
		Msg("Fees deducted from rewards")
	return receipt, nil
}

// MoveLockedEnergy transfers the energy of the locked slot of w from one principal to another.
func (a *Accountant) MoveLockedEnergy(ctx context.Context, w Wrapper, from, to sdk.AccAddress) error {
	if w.Locked == nil || w.Locked.IsZero() || from.Equals(to) {
		return nil
	}
	if a.energy == nil {
		return errorsmod.Wrap(types.ErrInvalidState, "Energy factory not configured")
	}
	tokens := []types.Payment{*w.Locked}
	if err := a.energy.DeductEnergy(ctx, from, tokens); err != nil {
		return types.ExternalFailure("energy_factory", err)
	}
	if err := a.energy.AddEnergy(ctx, to, tokens); err != nil {
		return types.ExternalFailure("energy_factory", err)
	}
	return nil
}
