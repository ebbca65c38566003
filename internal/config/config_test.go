package config

import (
	"testing"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
)

func address(label string) sdk.AccAddress {
	return sdk.AccAddress([]byte(label + "-0123456789abcdefgh")[:20])
}

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"AUTOFARM_STORE_DIR", "AUTOFARM_ENGINE_ADDRESS", "AUTOFARM_ADMIN_ADDRESS", "AUTOFARM_PROXY_ADDRESS",
		"AUTOFARM_FEE_BPS", "AUTOFARM_LOCKED_TOKEN_ID", "AUTOFARM_NATIVE_TOKEN_ID", "AUTOFARM_WRAPPED_NATIVE_TOKEN_ID",
		"AUTOFARM_KEEPER_ENABLED", "AUTOFARM_KEEPER_INTERVAL", "WEB_PORT", "GRPC_HEALTH_PORT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "LOG_LEVEL", "LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	admin := address("admin")
	t.Setenv("AUTOFARM_ADMIN_ADDRESS", admin.String())

	require.NoError(t, LoadConfig())
	require.True(t, AdminAddress.Equals(admin))
	require.True(t, ProxyAddress.Empty())
	require.True(t, EngineAddress.Empty())
	require.Equal(t, DefaultEngineParameters.FeePercentage, FeePercentage)
	require.Equal(t, "WEGLD", WrappedNativeTokenID)
	require.Equal(t, 10*time.Minute, KeeperInterval)
	require.False(t, KeeperEnabled)
	require.Equal(t, "8080", WebPort)
	require.Nil(t, HistoryDB)
	require.Equal(t, "info", LogLevel)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTOFARM_ADMIN_ADDRESS", address("admin").String())
	t.Setenv("AUTOFARM_PROXY_ADDRESS", address("proxy").String())
	t.Setenv("AUTOFARM_FEE_BPS", "250")
	t.Setenv("AUTOFARM_KEEPER_ENABLED", "true")
	t.Setenv("AUTOFARM_KEEPER_INTERVAL", "90s")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "autofarm")
	t.Setenv("DB_NAME", "history")

	require.NoError(t, LoadConfig())
	require.Equal(t, uint64(250), FeePercentage)
	require.True(t, KeeperEnabled)
	require.Equal(t, 90*time.Second, KeeperInterval)
	require.NotNil(t, HistoryDB)
	require.Equal(t, 5432, HistoryDB.Port)
	require.Equal(t, "disable", HistoryDB.SSLMode)
	require.Contains(t, HistoryDB.DSN(), "dbname=history")
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	require.ErrorContains(t, LoadConfig(), "AUTOFARM_ADMIN_ADDRESS")

	t.Setenv("AUTOFARM_ADMIN_ADDRESS", "not-bech32")
	require.ErrorContains(t, LoadConfig(), "bech32")

	t.Setenv("AUTOFARM_ADMIN_ADDRESS", address("admin").String())
	t.Setenv("AUTOFARM_FEE_BPS", "10000")
	require.ErrorIs(t, LoadConfig(), ErrInvalidFee)

	t.Setenv("AUTOFARM_FEE_BPS", "")
	t.Setenv("AUTOFARM_KEEPER_ENABLED", "yes please")
	require.ErrorContains(t, LoadConfig(), "valid bool")

	t.Setenv("AUTOFARM_KEEPER_ENABLED", "1")
	require.ErrorContains(t, LoadConfig(), "AUTOFARM_PROXY_ADDRESS")

	t.Setenv("AUTOFARM_KEEPER_ENABLED", "")
	t.Setenv("DB_HOST", "db")
	require.ErrorContains(t, LoadConfig(), "DB_USER")
}

func TestRequireMemoryStore(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTOFARM_ADMIN_ADDRESS", address("admin").String())
	require.NoError(t, LoadConfig())
	require.NoError(t, RequireMemoryStore(true))

	t.Setenv("AUTOFARM_STORE_DIR", t.TempDir())
	require.NoError(t, LoadConfig())
	require.ErrorIs(t, RequireMemoryStore(true), ErrStoreWithoutChain)
	require.NoError(t, RequireMemoryStore(false))
}
