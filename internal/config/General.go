package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/autofarm/internal/state"
)

// maxFeePercentage is the exclusive upper bound of the fee in basis points.
const maxFeePercentage = 10_000

var (
	ErrInvalidFee        = errors.New("fee percentage must be strictly between 0 and 10000 basis points")
	ErrStoreWithoutChain = errors.New("AUTOFARM_STORE_DIR cannot be used with the in-process chain, whose balances are lost on restart")
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// StoreDir is the goleveldb directory of the engine state. Empty keeps state in memory.
	// See RequireMemoryStore.
	StoreDir string

	// EngineAddress is the account the engine holds positions with. Empty lets the host pick one.
	EngineAddress sdk.AccAddress
	// AdminAddress may register contracts and change settings.
	AdminAddress sdk.AccAddress
	// ProxyAddress is the proxy claim principal. Required when the keeper is enabled.
	ProxyAddress sdk.AccAddress

	FeePercentage        uint64
	LockedTokenID        string
	NativeTokenID        string
	WrappedNativeTokenID string

	// KeeperEnabled starts the compounding keeper next to the query API.
	KeeperEnabled  bool
	KeeperInterval time.Duration

	WebPort        string
	GRPCHealthPort string

	// HistoryDB is set when DB_HOST is present.
	HistoryDB *state.DBConfig

	LogLevel string
	LogFile  string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Only AUTOFARM_ADMIN_ADDRESS is mandatory; everything else falls back to DefaultEngineParameters.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error
	defaults := DefaultEngineParameters

	StoreDir = getEnvOr("AUTOFARM_STORE_DIR", "")
	if strings.HasPrefix(StoreDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		StoreDir = filepath.Join(home, StoreDir[2:])
	}

	if EngineAddress, err = getEnvAsAddress("AUTOFARM_ENGINE_ADDRESS", false); err != nil {
		return err
	}
	if AdminAddress, err = getEnvAsAddress("AUTOFARM_ADMIN_ADDRESS", true); err != nil {
		return err
	}
	if ProxyAddress, err = getEnvAsAddress("AUTOFARM_PROXY_ADDRESS", false); err != nil {
		return err
	}

	if FeePercentage, err = getEnvAsUint64Or("AUTOFARM_FEE_BPS", defaults.FeePercentage); err != nil {
		return err
	}
	if FeePercentage == 0 || FeePercentage >= maxFeePercentage {
		return fmt.Errorf("%w, got: %d", ErrInvalidFee, FeePercentage)
	}

	LockedTokenID = getEnvOr("AUTOFARM_LOCKED_TOKEN_ID", defaults.LockedTokenID)
	NativeTokenID = getEnvOr("AUTOFARM_NATIVE_TOKEN_ID", defaults.NativeTokenID)
	WrappedNativeTokenID = getEnvOr("AUTOFARM_WRAPPED_NATIVE_TOKEN_ID", defaults.WrappedNativeTokenID)

	if KeeperEnabled, err = getEnvAsBoolOr("AUTOFARM_KEEPER_ENABLED", false); err != nil {
		return err
	}
	if KeeperInterval, err = getEnvAsDurationOr("AUTOFARM_KEEPER_INTERVAL", defaults.KeeperInterval); err != nil {
		return err
	}
	if KeeperEnabled && ProxyAddress.Empty() {
		return errors.New("environment variable AUTOFARM_PROXY_ADDRESS is required when the keeper is enabled")
	}

	WebPort = getEnvOr("WEB_PORT", defaults.WebPort)
	GRPCHealthPort = getEnvOr("GRPC_HEALTH_PORT", defaults.GRPCHealthPort)

	if HistoryDB, err = loadDatabaseConfig(); err != nil {
		return err
	}

	LogLevel = getEnvOr("LOG_LEVEL", "info")
	LogFile = getEnvOr("LOG_FILE", "")

	log.Debug().
		Str("StoreDir", StoreDir).
		Str("AdminAddress", AdminAddress.String()).
		Uint64("FeePercentage", FeePercentage).
		Bool("KeeperEnabled", KeeperEnabled).
		Bool("HistoryDB", HistoryDB != nil).
		Msg("Configuration loaded successfully.")

	return nil
}

// RequireMemoryStore fails when a persistent store is configured while the engine is hosted
// on the in-process chain. Persisted positions would refer to tokens the fresh chain no longer
// holds.
func RequireMemoryStore(simulatedHost bool) error {
	if simulatedHost && StoreDir != "" {
		return fmt.Errorf("%w: %s", ErrStoreWithoutChain, StoreDir)
	}
	return nil
}

// loadDatabaseConfig returns nil when no history database is configured.
func loadDatabaseConfig() (*state.DBConfig, error) {
	host := getEnvOr("DB_HOST", "")
	if host == "" {
		return nil, nil
	}
	port, err := getEnvAsUint64Or("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	user, err := getEnv("DB_USER")
	if err != nil {
		return nil, err
	}
	name, err := getEnv("DB_NAME")
	if err != nil {
		return nil, err
	}
	return &state.DBConfig{
		Host:     host,
		Port:     int(port),
		User:     user,
		Password: getEnvOr("DB_PASSWORD", ""),
		DBName:   name,
		SSLMode:  getEnvOr("DB_SSLMODE", "disable"),
	}, nil
}

// getEnv retrieves a string environment variable. Returns error if not set or empty.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOr retrieves a string environment variable, or fallback when it is unset or empty.
func getEnvOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsUint64Or retrieves an environment variable as a uint64. Returns error if invalid.
func getEnvAsUint64Or(key string, fallback uint64) (uint64, error) {
	valueStr := getEnvOr(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsBoolOr(key string, fallback bool) (bool, error) {
	valueStr := getEnvOr(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, errors.New("environment variable " + key + " must be a valid bool, got: " + valueStr)
	}
	return value, nil
}

func getEnvAsDurationOr(key string, fallback time.Duration) (time.Duration, error) {
	valueStr := getEnvOr(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return 0, errors.New("environment variable " + key + " must be a positive duration, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsAddress parses a bech32 account address.
func getEnvAsAddress(key string, required bool) (sdk.AccAddress, error) {
	valueStr := getEnvOr(key, "")
	if valueStr == "" {
		if required {
			return nil, errors.New("environment variable " + key + " is required but not set")
		}
		return nil, nil
	}
	addr, err := sdk.AccAddressFromBech32(valueStr)
	if err != nil {
		return nil, fmt.Errorf("environment variable %s must be a bech32 address: %w", key, err)
	}
	return addr, nil
}
