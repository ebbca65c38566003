/*

This file contains the rewards wrapper: an optional governance locked token slot next to a
UniquePayments collection for every other reward token. The locked slot is kept separate
because locked units carry unlock epochs and must be merged by the energy factory.

*/

package rewards

import (
	"github.com/elys-network/autofarm/internal/payments"
	"github.com/elys-network/autofarm/internal/types"
)

// Wrapper groups rewards owned by a user or by the protocol fee accumulator.
type Wrapper struct {
	Locked *types.Payment          `json:"locked,omitempty"`
	Other  payments.UniquePayments `json:"other"`
}

// NewWrapper returns an empty wrapper.
func NewWrapper() Wrapper {
	return Wrapper{Other: payments.New()}
}

// IsEmpty reports whether neither slot holds anything.
func (w Wrapper) IsEmpty() bool {
	return (w.Locked == nil || w.Locked.IsZero()) && w.Other.IsEmpty()
}

// Clone returns an independent copy.
func (w Wrapper) Clone() Wrapper {
	out := Wrapper{Other: w.Other.Clone()}
	if w.Locked != nil {
		locked := *w.Locked
		out.Locked = &locked
	}
	return out
}

// All lists the locked slot first, then the other payments in order.
func (w Wrapper) All() []types.Payment {
	out := make([]types.Payment, 0, w.Other.Len()+1)
	if w.Locked != nil && !w.Locked.IsZero() {
		out = append(out, *w.Locked)
	}
	return append(out, w.Other.Payments()...)
}

// Take empties the wrapper and returns its content as a list, locked slot first.
func (w *Wrapper) Take() []types.Payment {
	out := w.All()
	w.Locked = nil
	w.Other = payments.New()
	return out
}
