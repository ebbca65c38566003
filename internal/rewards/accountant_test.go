package rewards

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/autofarm/internal/types"
)

type energyCall struct {
	op     string
	addr   string
	tokens []types.Payment
}

type fakeEnergy struct {
	calls     []energyCall
	nextNonce uint64
	mergeErr  error
}

func (f *fakeEnergy) LockVirtual(_ context.Context, tokenID string, amount sdkmath.Int, _ uint64, _, _ sdk.AccAddress) (types.Payment, error) {
	f.nextNonce++
	return types.NewPayment(tokenID, f.nextNonce, amount), nil
}

func (f *fakeEnergy) MergeTokens(_ context.Context, caller sdk.AccAddress, tokens []types.Payment) (types.Payment, error) {
	if f.mergeErr != nil {
		return types.Payment{}, f.mergeErr
	}
	f.calls = append(f.calls, energyCall{op: "merge", addr: caller.String(), tokens: tokens})
	total := sdkmath.ZeroInt()
	for _, tok := range tokens {
		total = total.Add(tok.Amount)
	}
	f.nextNonce++
	return types.NewPayment(tokens[0].TokenID, 100+f.nextNonce, total), nil
}

func (f *fakeEnergy) DeductEnergy(_ context.Context, from sdk.AccAddress, tokens []types.Payment) error {
	f.calls = append(f.calls, energyCall{op: "deduct", addr: from.String(), tokens: tokens})
	return nil
}

func (f *fakeEnergy) AddEnergy(_ context.Context, to sdk.AccAddress, tokens []types.Payment) error {
	f.calls = append(f.calls, energyCall{op: "add", addr: to.String(), tokens: tokens})
	return nil
}

var (
	userAddr  = sdk.AccAddress([]byte("user________________"))
	proxyAddr = sdk.AccAddress([]byte("proxy_______________"))
)

func intOf(v int64) sdkmath.Int { return sdkmath.NewInt(v) }

func TestFeeAmountFloors(t *testing.T) {
	require.True(t, FeeAmount(intOf(999), 1000).Equal(intOf(99)))
	require.True(t, FeeAmount(intOf(9), 1000).IsZero())
	require.True(t, FeeAmount(intOf(1000), 0).IsZero())
}

func TestValidateFeePercentage(t *testing.T) {
	require.NoError(t, ValidateFeePercentage(1))
	require.NoError(t, ValidateFeePercentage(9999))
	require.True(t, errors.Is(ValidateFeePercentage(0), types.ErrInvalidArgument))
	require.True(t, errors.Is(ValidateFeePercentage(10_000), types.ErrInvalidArgument))
}

func TestAddPaymentRoutesLockedToken(t *testing.T) {
	energy := &fakeEnergy{}
	acc := NewAccountant(energy, "XMEX")
	w := NewWrapper()
	ctx := context.Background()

	require.NoError(t, acc.AddPayment(ctx, &w, types.NewPayment("XMEX", 1, intOf(10)), userAddr))
	require.NoError(t, acc.AddPayment(ctx, &w, types.NewFungible("MEX", intOf(5)), userAddr))
	require.NoError(t, acc.AddPayment(ctx, &w, types.NewFungible("MEX", sdkmath.ZeroInt()), userAddr))

	require.NotNil(t, w.Locked)
	require.True(t, w.Locked.Amount.Equal(intOf(10)))
	require.Equal(t, 1, w.Other.Len())
	require.Empty(t, energy.calls)

	// same nonce is summed locally
	require.NoError(t, acc.AddPayment(ctx, &w, types.NewPayment("XMEX", 1, intOf(4)), userAddr))
	require.True(t, w.Locked.Amount.Equal(intOf(14)))
	require.Empty(t, energy.calls)

	// a different nonce goes through the energy factory
	require.NoError(t, acc.AddPayment(ctx, &w, types.NewPayment("XMEX", 2, intOf(6)), userAddr))
	require.True(t, w.Locked.Amount.Equal(intOf(20)))
	require.NotEqual(t, uint64(1), w.Locked.Nonce)
	require.Len(t, energy.calls, 1)
	require.Equal(t, "merge", energy.calls[0].op)
	require.Equal(t, userAddr.String(), energy.calls[0].addr)
}

func TestMergeFailureIsExternal(t *testing.T) {
	energy := &fakeEnergy{mergeErr: errors.New("Invalid merge")}
	acc := NewAccountant(energy, "XMEX")
	w := NewWrapper()
	ctx := context.Background()
	require.NoError(t, acc.AddPayment(ctx, &w, types.NewPayment("XMEX", 1, intOf(10)), userAddr))

	err := acc.AddPayment(ctx, &w, types.NewPayment("XMEX", 2, intOf(10)), userAddr)
	require.True(t, errors.Is(err, types.ErrExternalFailure))
	require.Equal(t, "Invalid merge", err.Error())
}

func TestDeductFees(t *testing.T) {
	energy := &fakeEnergy{}
	acc := NewAccountant(energy, "XMEX")
	ctx := context.Background()

	w := NewWrapper()
	require.NoError(t, acc.AddPayment(ctx, &w, types.NewFungible("MEX", intOf(1000)), userAddr))
	require.NoError(t, acc.AddPayment(ctx, &w, types.NewFungible("DUST", intOf(5)), userAddr))
	require.NoError(t, acc.AddPayment(ctx, &w, types.NewPayment("XMEX", 3, intOf(500)), userAddr))

	fees := NewWrapper()
	receipt, err := acc.DeductFees(ctx, &w, 1000, userAddr, proxyAddr, &fees)
	require.NoError(t, err)

	require.Len(t, receipt.Other, 1)
	require.True(t, receipt.Other[0].Amount.Equal(intOf(100)))
	require.NotNil(t, receipt.Locked)
	require.True(t, receipt.Locked.Amount.Equal(intOf(50)))

	require.True(t, w.Other.AmountOf("MEX", 0).Equal(intOf(900)))
	require.True(t, w.Other.AmountOf("DUST", 0).Equal(intOf(5)))
	require.True(t, w.Locked.Amount.Equal(intOf(450)))
	require.Equal(t, uint64(3), w.Locked.Nonce)

	require.True(t, fees.Other.AmountOf("MEX", 0).Equal(intOf(100)))
	require.True(t, fees.Locked.Amount.Equal(intOf(50)))

	require.Len(t, energy.calls, 2)
	require.Equal(t, "deduct", energy.calls[0].op)
	require.Equal(t, userAddr.String(), energy.calls[0].addr)
	require.Equal(t, "add", energy.calls[1].op)
	require.Equal(t, proxyAddr.String(), energy.calls[1].addr)
}

func TestDeductFeesPreservesTotals(t *testing.T) {
	acc := NewAccountant(&fakeEnergy{}, "XMEX")
	ctx := context.Background()
	w := NewWrapper()
	amounts := []int64{1, 9, 10, 11, 12345, 99999}
	for i, a := range amounts {
		require.NoError(t, acc.AddPayment(ctx, &w, types.NewPayment("TOK", uint64(i), intOf(a)), userAddr))
	}
	fees := NewWrapper()
	_, err := acc.DeductFees(ctx, &w, 1234, userAddr, proxyAddr, &fees)
	require.NoError(t, err)

	for i, a := range amounts {
		sum := w.Other.AmountOf("TOK", uint64(i)).Add(fees.Other.AmountOf("TOK", uint64(i)))
		require.True(t, sum.Equal(intOf(a)), "nonce %d", i)
	}
}

func TestWeightedUnlockEpoch(t *testing.T) {
	epoch, err := WeightedUnlockEpoch([]LockedPart{
		{Amount: intOf(100), UnlockEpoch: 10},
		{Amount: intOf(100), UnlockEpoch: 11},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(11), epoch)

	epoch, err = WeightedUnlockEpoch([]LockedPart{{Amount: intOf(7), UnlockEpoch: 20}})
	require.NoError(t, err)
	require.Equal(t, uint64(20), epoch)

	_, err = WeightedUnlockEpoch(nil)
	require.Error(t, err)
}

func TestWeightedUnlockEpochStaysWithinBounds(t *testing.T) {
	for small := int64(1); small < 50; small += 7 {
		epoch, err := WeightedUnlockEpoch([]LockedPart{
			{Amount: intOf(small), UnlockEpoch: 5},
			{Amount: intOf(1000), UnlockEpoch: 100},
		})
		require.NoError(t, err)
		require.GreaterOrEqual(t, epoch, uint64(5))
		require.LessOrEqual(t, epoch, uint64(100))
	}
}
