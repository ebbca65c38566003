/*

UniquePayments is an ordered collection of payments in which no two entries share the same
(token, nonce) identity and no entry has a zero amount. Adding a payment whose identity is
already present sums the amounts; deducting one that reaches zero drops the entry.

*/

package payments

import (
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/autofarm/internal/types"
)

// UniquePayments holds payments keyed by (token, nonce) in insertion order.
type UniquePayments struct {
	payments []types.Payment
}

// New returns an empty collection.
func New() UniquePayments {
	return UniquePayments{}
}

// FromPayments builds a collection, merging duplicates. Zero amounts are rejected.
func FromPayments(list []types.Payment) (UniquePayments, error) {
	u := New()
	for _, p := range list {
		if err := u.Add(p); err != nil {
			return UniquePayments{}, err
		}
	}
	return u, nil
}

// Add inserts the payment or merges it into the entry with the same identity.
func (u *UniquePayments) Add(p types.Payment) error {
	if err := p.ValidateBasic(); err != nil {
		return err
	}
	if i, ok := u.Find(p.TokenID, p.Nonce); ok {
		u.payments = u.Payments()
		u.payments[i].Amount = u.payments[i].Amount.Add(p.Amount)
		return nil
	}
	u.payments = append(u.Payments(), p)
	return nil
}

// Deduct subtracts the payment from the entry with the same identity. The entry is removed
// when its amount reaches zero. A missing entry or an amount larger than held is an error.
func (u *UniquePayments) Deduct(p types.Payment) error {
	if err := p.ValidateBasic(); err != nil {
		return err
	}
	i, ok := u.Find(p.TokenID, p.Nonce)
	if !ok {
		return errorsmod.Wrapf(types.ErrInvalidState, "Payment %s not found", types.TokenKey(p.TokenID, p.Nonce))
	}
	held := u.payments[i].Amount
	if held.LT(p.Amount) {
		return errorsmod.Wrapf(types.ErrInvalidArgument, "Insufficient amount of %s: have %s, want %s",
			types.TokenKey(p.TokenID, p.Nonce), held, p.Amount)
	}
	remaining := held.Sub(p.Amount)
	if remaining.IsZero() {
		u.RemoveAt(i)
		return nil
	}
	u.payments = u.Payments()
	u.payments[i].Amount = remaining
	return nil
}

// Merge adds every entry of other into u.
func (u *UniquePayments) Merge(other UniquePayments) error {
	for _, p := range other.payments {
		if err := u.Add(p); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the index of the entry with the given identity.
func (u UniquePayments) Find(tokenID string, nonce uint64) (int, bool) {
	for i, p := range u.payments {
		if p.TokenID == tokenID && p.Nonce == nonce {
			return i, true
		}
	}
	return -1, false
}

// FindToken returns the index of the first entry of the given token, whatever its nonce.
func (u UniquePayments) FindToken(tokenID string) (int, bool) {
	for i, p := range u.payments {
		if p.TokenID == tokenID {
			return i, true
		}
	}
	return -1, false
}

// AmountOf returns the amount held for the identity, zero when absent.
func (u UniquePayments) AmountOf(tokenID string, nonce uint64) sdkmath.Int {
	if i, ok := u.Find(tokenID, nonce); ok {
		return u.payments[i].Amount
	}
	return sdkmath.ZeroInt()
}

// TotalOf sums every nonce of the given token.
func (u UniquePayments) TotalOf(tokenID string) sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, p := range u.payments {
		if p.TokenID == tokenID {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// Get returns the entry at index i.
func (u UniquePayments) Get(i int) types.Payment {
	return u.payments[i]
}

// RemoveAt drops the entry at index i, shifting later entries down.
func (u *UniquePayments) RemoveAt(i int) types.Payment {
	p := u.payments[i]
	rest := make([]types.Payment, 0, len(u.payments)-1)
	rest = append(rest, u.payments[:i]...)
	u.payments = append(rest, u.payments[i+1:]...)
	return p
}

// Len returns the number of entries.
func (u UniquePayments) Len() int {
	return len(u.payments)
}

// IsEmpty reports whether the collection has no entries.
func (u UniquePayments) IsEmpty() bool {
	return len(u.payments) == 0
}

// Payments returns a copy of the entries in order.
func (u UniquePayments) Payments() []types.Payment {
	out := make([]types.Payment, len(u.payments))
	copy(out, u.payments)
	return out
}

// Clone returns an independent copy.
func (u UniquePayments) Clone() UniquePayments {
	return UniquePayments{payments: u.Payments()}
}

// Clear empties the collection and returns what it held.
func (u *UniquePayments) Clear() []types.Payment {
	out := u.payments
	u.payments = nil
	if out == nil {
		return []types.Payment{}
	}
	return out
}

// MarshalJSON encodes the collection as a list.
func (u UniquePayments) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Payments())
}

// UnmarshalJSON decodes a list, enforcing the uniqueness rules.
func (u *UniquePayments) UnmarshalJSON(data []byte) error {
	var list []types.Payment
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	decoded, err := FromPayments(list)
	if err != nil {
		return err
	}
	*u = decoded
	return nil
}
