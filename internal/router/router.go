package router

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/autofarm/internal/driver"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/types"
)

var routerLogger = logger.GetForComponent("swap_router")

// Router executes multi-pair swap paths.
type Router struct {
	driver *driver.Driver
}

// New returns a router swapping through d.
func New(d *driver.Driver) *Router {
	return &Router{driver: d}
}

// Swap threads input through every step of path. The returned list ends with the final
// output; earlier entries are refunds of fixed output steps that belong to the user.
// An empty path passes the input through unchanged.
func (r *Router) Swap(ctx context.Context, input types.Payment, path []types.SwapOperation, wantTokenID string, minFinal sdkmath.Int) ([]types.Payment, error) {
	if err := input.RequireFungible(); err != nil {
		return nil, err
	}
	refunds := []types.Payment{}
	current := input
	for i, op := range path {
		if err := op.Validate(); err != nil {
			return nil, errorsmod.Wrapf(types.ErrInvalidArgument, "Invalid swap step %d: %v", i, err)
		}
		switch op.Mode {
		case types.SwapFixedInput:
			out, err := r.driver.SwapFixedInput(ctx, op.PairAddress, current, op.OutputTokenID, op.Amount)
			if err != nil {
				return nil, err
			}
			current = out
		case types.SwapFixedOutput:
			res, err := r.driver.SwapFixedOutput(ctx, op.PairAddress, current, op.OutputTokenID, op.Amount)
			if err != nil {
				return nil, err
			}
			if !res.Refund.IsZero() {
				refunds = append(refunds, res.Refund)
			}
			current = res.Output
		}
		routerLogger.Debug().
			Int("step", i).
			Str("pair", op.PairAddress.String()).
			Stringer("output", current).
			Msg("Swap step executed")
	}

	if current.TokenID != wantTokenID {
		return nil, errorsmod.Wrap(types.ErrInvalidArgument, "Invalid swap output token identifier")
	}
	if !minFinal.IsNil() && current.Amount.LT(minFinal) {
		return nil, errorsmod.Wrap(types.ErrSlippageExceeded, "Slippage exceeded")
	}
	return append(refunds, current), nil
}

// Final returns the last payment of a swap result.
func Final(result []types.Payment) types.Payment {
	return result[len(result)-1]
}

// Refunds returns every payment of a swap result but the last.
func Refunds(result []types.Payment) []types.Payment {
	return result[:len(result)-1]
}
