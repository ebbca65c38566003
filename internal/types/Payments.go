/*

This file contains the token payment type moved around by every engine operation.

A payment is the triple (token identifier, nonce, amount). Nonce zero is a fungible token,
any other nonce is a distinct non-fungible unit whose attributes live with the issuer.

*/

package types

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
)

// Payment is a single token transfer leg.
type Payment struct {
	TokenID string      `json:"token_id"`
	Nonce   uint64      `json:"nonce"`
	Amount  sdkmath.Int `json:"amount"`
}

// NewPayment builds a payment.
func NewPayment(tokenID string, nonce uint64, amount sdkmath.Int) Payment {
	return Payment{TokenID: tokenID, Nonce: nonce, Amount: amount}
}

// NewFungible builds a nonce zero payment.
func NewFungible(tokenID string, amount sdkmath.Int) Payment {
	return Payment{TokenID: tokenID, Amount: amount}
}

// IsFungible reports whether the payment carries a divisible token.
func (p Payment) IsFungible() bool {
	return p.Nonce == 0
}

// IsZero reports whether the amount is unset or zero.
func (p Payment) IsZero() bool {
	return p.Amount.IsNil() || p.Amount.IsZero()
}

// CanMerge reports whether two payments share the same (token, nonce) identity.
func (p Payment) CanMerge(other Payment) bool {
	return p.TokenID == other.TokenID && p.Nonce == other.Nonce
}

// WithAmount returns a copy of the payment carrying a different amount.
func (p Payment) WithAmount(amount sdkmath.Int) Payment {
	return Payment{TokenID: p.TokenID, Nonce: p.Nonce, Amount: amount}
}

// Key identifies the (token, nonce) pair, used as a map key by ledgers.
func (p Payment) Key() string {
	return TokenKey(p.TokenID, p.Nonce)
}

// TokenKey formats a (token, nonce) identity.
func TokenKey(tokenID string, nonce uint64) string {
	return fmt.Sprintf("%s-%d", tokenID, nonce)
}

func (p Payment) String() string {
	amount := "0"
	if !p.Amount.IsNil() {
		amount = p.Amount.String()
	}
	if p.Nonce == 0 {
		return amount + p.TokenID
	}
	return fmt.Sprintf("%s%s#%d", amount, p.TokenID, p.Nonce)
}

// ValidateBasic checks the token identifier and that the amount is strictly positive.
func (p Payment) ValidateBasic() error {
	if p.TokenID == "" {
		return errorsmod.Wrap(ErrInvalidArgument, "Invalid token identifier")
	}
	if p.Amount.IsNil() || !p.Amount.IsPositive() {
		return errorsmod.Wrapf(ErrInvalidArgument, "Invalid payment amount for %s", p.TokenID)
	}
	return nil
}

// RequireFungible rejects NFT payments where a fungible one is expected.
func (p Payment) RequireFungible() error {
	if err := p.ValidateBasic(); err != nil {
		return err
	}
	if !p.IsFungible() {
		return errorsmod.Wrap(ErrInvalidArgument, "Only fungible tokens accepted")
	}
	return nil
}

// NonZero drops empty payments, keeping order.
func NonZero(payments []Payment) []Payment {
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if !p.IsZero() {
			out = append(out, p)
		}
	}
	return out
}

// ClonePayments returns an independent copy of a payment slice.
func ClonePayments(payments []Payment) []Payment {
	if payments == nil {
		return nil
	}
	out := make([]Payment, len(payments))
	copy(out, payments)
	return out
}
