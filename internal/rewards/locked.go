package rewards

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// LockedPart is an (amount, unlock epoch) pair taking part in a locked token merge.
type LockedPart struct {
	Amount      sdkmath.Int
	UnlockEpoch uint64
}

// WeightedUnlockEpoch returns ceil(sum(amount_i * epoch_i) / sum(amount_i)).
func WeightedUnlockEpoch(parts []LockedPart) (uint64, error) {
	if len(parts) == 0 {
		return 0, fmt.Errorf("no locked parts to merge")
	}
	weighted := sdkmath.ZeroInt()
	total := sdkmath.ZeroInt()
	for _, part := range parts {
		if part.Amount.IsNil() || !part.Amount.IsPositive() {
			return 0, fmt.Errorf("locked part amount must be positive")
		}
		weighted = weighted.Add(part.Amount.Mul(sdkmath.NewIntFromUint64(part.UnlockEpoch)))
		total = total.Add(part.Amount)
	}
	epoch := weighted.Add(total).SubRaw(1).Quo(total)
	if !epoch.IsUint64() {
		return 0, fmt.Errorf("merged unlock epoch overflows")
	}
	return epoch.Uint64(), nil
}
