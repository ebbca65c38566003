package vault

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/types"
)

// ClaimAllRewardsAndCompound claims every reward source of user, charges the fee, attributes
// the rest and compounds what matches an existing farm position.
func (e *Engine) ClaimAllRewardsAndCompound(ctx context.Context, caller, user sdk.AccAddress, claimArgs []contracts.ClaimArgs) (types.CompoundReport, error) {
	var report types.CompoundReport
	_, err := e.execute(ctx, "claim_all_rewards_and_compound", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		proxy, err := requireProxy(txn, caller)
		if err != nil {
			return nil, err
		}
		c, err := e.compounder(txn)
		if err != nil {
			return nil, err
		}
		report, err = c.Run(ctx, txn, user, claimArgs, proxy)
		return nil, err
	})
	if err != nil {
		return types.CompoundReport{}, err
	}
	return report, nil
}

// ClaimFees sends the accumulated protocol fees to the proxy claim principal.
func (e *Engine) ClaimFees(ctx context.Context, caller sdk.AccAddress) ([]types.Payment, error) {
	return e.execute(ctx, "claim_fees", caller, nil, func(txn *store.Txn) ([]types.Payment, error) {
		if _, err := requireProxy(txn, caller); err != nil {
			return nil, err
		}
		fees, err := txn.AccumulatedFees()
		if err != nil {
			return nil, err
		}
		out := fees.Take()
		if err := txn.SetAccumulatedFees(rewards.NewWrapper()); err != nil {
			return nil, err
		}
		return out, nil
	})
}
