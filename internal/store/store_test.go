package store

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/autofarm/internal/payments"
	"github.com/elys-network/autofarm/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemStore()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addr(name string) sdk.AccAddress {
	b := make([]byte, 20)
	copy(b, name)
	return sdk.AccAddress(b)
}

func TestTxnBuffersUntilCommit(t *testing.T) {
	s := newTestStore(t)

	txn := s.Begin()
	txn.Set([]byte("k"), []byte("v"))
	v, found, err := txn.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v"), v)
	txn.Discard()

	txn = s.Begin()
	_, found, err = txn.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, found)
	txn.Set([]byte("k"), []byte("v2"))
	require.NoError(t, txn.Commit())
	txn.Discard()

	txn = s.Begin()
	defer txn.Discard()
	v, found, err = txn.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v2"), v)

	txn.Delete([]byte("k"))
	_, found, err = txn.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestCommitTwiceFails(t *testing.T) {
	s := newTestStore(t)
	txn := s.Begin()
	require.NoError(t, txn.Commit())
	require.ErrorIs(t, txn.Commit(), ErrTxnClosed)
}

func TestPersistentStoreReopens(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	txn := s.Begin()
	txn.SetFeePercentage(250)
	require.NoError(t, txn.Commit())
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	txn = s.Begin()
	defer txn.Discard()
	bps, err := txn.FeePercentage()
	require.NoError(t, err)
	require.Equal(t, uint64(250), bps)
}

func TestUserIDsAreDenseAndStable(t *testing.T) {
	s := newTestStore(t)
	txn := s.Begin()
	defer txn.Discard()

	id, err := txn.UserID(addr("alice"))
	require.NoError(t, err)
	require.Equal(t, UnknownUserID, id)

	alice, err := txn.GetOrCreateUserID(addr("alice"))
	require.NoError(t, err)
	bob, err := txn.GetOrCreateUserID(addr("bob"))
	require.NoError(t, err)
	again, err := txn.GetOrCreateUserID(addr("alice"))
	require.NoError(t, err)

	require.Equal(t, uint64(1), alice)
	require.Equal(t, uint64(2), bob)
	require.Equal(t, alice, again)

	back, err := txn.UserAddress(bob)
	require.NoError(t, err)
	require.True(t, back.Equals(addr("bob")))

	next, err := txn.NextUserID()
	require.NoError(t, err)
	require.Equal(t, uint64(3), next)
}

func TestFarmConfigIndexes(t *testing.T) {
	s := newTestStore(t)
	txn := s.Begin()
	defer txn.Discard()

	cfg := types.FarmConfig{
		Address:                addr("farm1"),
		FarmingTokenID:         "LP-1",
		FarmTokenID:            "FARM-1",
		RewardTokenID:          "MEX",
		State:                  types.FarmStateActive,
		PairAddress:            addr("pair1"),
		DivisionSafetyConstant: sdkmath.NewInt(1_000_000_000_000),
	}
	require.NoError(t, txn.SetFarmConfig(cfg))
	require.NoError(t, txn.SetFarmConfig(cfg))

	list, err := txn.FarmAddresses()
	require.NoError(t, err)
	require.Len(t, list, 1)

	byToken, found, err := txn.FarmByFarmToken("FARM-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "LP-1", byToken.FarmingTokenID)
	require.Equal(t, types.FarmStateActive, byToken.State)

	byFarming, found, err := txn.FarmByFarmingToken("LP-1")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, byFarming.Address.Equals(cfg.Address))

	require.NoError(t, txn.DeleteFarmConfig(cfg.Address))
	_, found, err = txn.FarmByFarmToken("FARM-1")
	require.NoError(t, err)
	require.False(t, found)
	list, err = txn.FarmAddresses()
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestUserCollectionsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	txn := s.Begin()
	list, err := payments.FromPayments([]types.Payment{
		types.NewPayment("FARM-1", 4, sdkmath.NewInt(100)),
		types.NewPayment("FARM-2", 1, sdkmath.NewInt(50)),
	})
	require.NoError(t, err)
	require.NoError(t, txn.SetUserFarmTokens(7, list))
	txn.SetRegistered(7, true)
	require.NoError(t, txn.Commit())

	txn = s.Begin()
	defer txn.Discard()
	stored, err := txn.UserFarmTokens(7)
	require.NoError(t, err)
	require.Equal(t, 2, stored.Len())
	require.True(t, stored.AmountOf("FARM-2", 1).Equal(sdkmath.NewInt(50)))

	registered, err := txn.IsRegistered(7)
	require.NoError(t, err)
	require.True(t, registered)

	require.NoError(t, txn.SetUserFarmTokens(7, payments.New()))
	empty, err := txn.UserFarmTokens(7)
	require.NoError(t, err)
	require.True(t, empty.IsEmpty())

	rw, err := txn.UserRewards(7)
	require.NoError(t, err)
	require.True(t, rw.IsEmpty())
}
