package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/autofarm/internal/simulations"
	"github.com/elys-network/autofarm/internal/state"
	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/types"
	"github.com/elys-network/autofarm/internal/vault"
)

type fakeHistory struct {
	snapshots []types.CompoundSnapshot
	pingErr   error
	lastLimit int
	lastUser  string
}

func (h *fakeHistory) RecentSnapshots(limit int) ([]types.CompoundSnapshot, error) {
	h.lastLimit = limit
	return h.snapshots, nil
}

func (h *fakeHistory) SnapshotsForUser(userAddress string, limit int) ([]types.CompoundSnapshot, error) {
	h.lastUser, h.lastLimit = userAddress, limit
	out := []types.CompoundSnapshot{}
	for _, s := range h.snapshots {
		if s.UserAddress == userAddress {
			out = append(out, s)
		}
	}
	return out, nil
}

func (h *fakeHistory) FeeSummary() (*state.FeeSummary, error) {
	return state.Summarize(h.snapshots)
}

func (h *fakeHistory) Ping() error {
	return h.pingErr
}

type apiFixture struct {
	engine *vault.Engine
	user   sdk.AccAddress
	farm   sdk.AccAddress
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	ctx := context.Background()
	chain := simulations.NewChain()
	chain.DeployEnergyFactory("XMEX", "MEX")
	st, err := store.NewMemStore()
	require.NoError(t, err)

	admin := simulations.AccountAddress("admin")
	address := simulations.AccountAddress("engine")
	engine, err := vault.NewEngine(st, chain.Host(address), vault.Options{
		Address:              address,
		AdminAddress:         admin,
		ProxyClaimAddress:    simulations.AccountAddress("proxy"),
		FeePercentage:        1_000,
		LockedTokenID:        "XMEX",
		NativeTokenID:        simulations.NativeTokenID,
		WrappedNativeTokenID: "WEGLD",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	farm := chain.DeployFarm(simulations.FarmParams{
		FarmingTokenID: "LPAB",
		FarmTokenID:    "FARMAB",
		RewardTokenID:  "MEX",
		PerBlockReward: sdkmath.NewInt(100),
	})
	_, err = engine.RegisterFarm(ctx, admin, farm)
	require.NoError(t, err)

	user := simulations.AccountAddress("user")
	require.NoError(t, engine.Register(ctx, user))
	return apiFixture{engine: engine, user: user, farm: farm}
}

func get(t *testing.T, handler http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body := map[string]interface{}{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	rec, body := get(t, NewWebServer("", f.engine, nil).Handler(), "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", body["status"])
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	history := &fakeHistory{pingErr: errors.New("connection refused")}
	rec, body = get(t, NewWebServer("", f.engine, history).Handler(), "/api/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "DEGRADED", body["status"])
}

func TestUsersAndFarms(t *testing.T) {
	f := newAPIFixture(t)
	handler := NewWebServer("", f.engine, nil).Handler()

	rec, body := get(t, handler, "/api/users")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["count"])

	rec, body = get(t, handler, "/api/users/"+f.user.String())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, f.user.String(), body["address"])
	require.Equal(t, true, body["registered"])

	rec, _ = get(t, handler, "/api/users/"+simulations.AccountAddress("stranger").String())
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, handler, "/api/users/not-an-address")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = get(t, handler, "/api/farms")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["count"])
	farms := body["farms"].([]interface{})
	require.Equal(t, "FARMAB", farms[0].(map[string]interface{})["farm_token_id"])

	rec, body = get(t, handler, "/api/metastaking")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 0, body["count"])

	rec, body = get(t, handler, "/api/settings")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1_000, body["fee_percentage"])
}

func TestCompoundHistory(t *testing.T) {
	f := newAPIFixture(t)

	rec, _ := get(t, NewWebServer("", f.engine, nil).Handler(), "/api/compounds")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	history := &fakeHistory{snapshots: []types.CompoundSnapshot{
		{SnapshotID: 1, UserAddress: f.user.String(), Success: true,
			Fees: []types.Payment{types.NewFungible("MEX", sdkmath.NewInt(10))}},
		{SnapshotID: 2, UserAddress: "other", Success: false, Message: "paused"},
	}}
	handler := NewWebServer("", f.engine, history).Handler()

	rec, body := get(t, handler, "/api/compounds?limit=500")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 2, body["count"])
	require.Equal(t, 20, history.lastLimit)

	rec, body = get(t, handler, "/api/compounds/"+f.user.String()+"?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["count"])
	require.Equal(t, 5, history.lastLimit)
	require.Equal(t, f.user.String(), history.lastUser)

	rec, body = get(t, handler, "/api/fees")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, body, "accumulated")
	summary := body["history"].(map[string]interface{})
	require.EqualValues(t, 1, summary["failed"])
	require.EqualValues(t, 1, summary["successful"])
}

func TestMetricsAndPreflight(t *testing.T) {
	f := newAPIFixture(t)
	handler := NewWebServer("", f.engine, nil).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "autofarm_engine_endpoint_calls_total")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/users", nil))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
