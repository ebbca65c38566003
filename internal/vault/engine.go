/*

This file contains the engine implementing Manager on top of the store and the contract
host. Every mutating endpoint goes through execute, which makes the call atomic:

  - engine state is written to a buffered store transaction, committed only on success;
  - host side effects are reverted to a journal snapshot on failure;
  - payments attached to the call are received inside that snapshot, and the payments
    returned by the endpoint are sent back to the caller before the commit.

*/

package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/composer"
	"github.com/elys-network/autofarm/internal/compound"
	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/driver"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/router"
	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/types"
)

var (
	ErrMissingAddress  = errors.New("engine address is not configured")
	ErrMissingAdmin    = errors.New("administrator address is not configured")
	ErrInvalidFeeSetup = errors.New("initial fee percentage is invalid")
)

var engineLogger = logger.GetForComponent("vault_engine")

// Options configure a new engine. Protocol settings are only written when the store does not
// hold them yet.
type Options struct {
	Address              sdk.AccAddress
	AdminAddress         sdk.AccAddress
	ProxyClaimAddress    sdk.AccAddress
	FeePercentage        uint64
	LockedTokenID        string
	NativeTokenID        string
	WrappedNativeTokenID string
}

// Engine implements Manager.
type Engine struct {
	address  sdk.AccAddress
	store    *store.Store
	host     *contracts.Host
	driver   *driver.Driver
	composer *composer.Composer
	metrics  *engineMetrics
}

var _ Manager = (*Engine)(nil)

// NewEngine validates the host and seeds the protocol settings.
func NewEngine(st *store.Store, host *contracts.Host, opts Options) (*Engine, error) {
	if err := host.Validate(); err != nil {
		return nil, err
	}
	if opts.Address.Empty() {
		return nil, ErrMissingAddress
	}

	d := driver.New(host.Resolver)
	e := &Engine{
		address:  opts.Address,
		store:    st,
		host:     host,
		driver:   d,
		composer: composer.New(d, router.New(d), host.NativeWrapper, opts.NativeTokenID),
		metrics:  defaultEngineMetrics(),
	}
	if err := e.seed(opts); err != nil {
		return nil, err
	}
	engineLogger.Info().
		Str("address", opts.Address.String()).
		Str("nativeToken", opts.NativeTokenID).
		Msg("Engine initialized")
	return e, nil
}

func (e *Engine) seed(opts Options) error {
	txn := e.store.Begin()
	defer txn.Discard()

	admin, err := txn.AdminAddress()
	if err != nil {
		return err
	}
	if admin.Empty() {
		if opts.AdminAddress.Empty() {
			return ErrMissingAdmin
		}
		txn.SetAdminAddress(opts.AdminAddress)
	}
	proxy, err := txn.ProxyClaimAddress()
	if err != nil {
		return err
	}
	if proxy.Empty() && !opts.ProxyClaimAddress.Empty() {
		txn.SetProxyClaimAddress(opts.ProxyClaimAddress)
	}
	bps, err := txn.FeePercentage()
	if err != nil {
		return err
	}
	if bps == 0 && opts.FeePercentage != 0 {
		if err := rewards.ValidateFeePercentage(opts.FeePercentage); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFeeSetup, err)
		}
		txn.SetFeePercentage(opts.FeePercentage)
	}
	locked, err := txn.LockedTokenID()
	if err != nil {
		return err
	}
	if locked == "" && opts.LockedTokenID != "" {
		txn.SetLockedTokenID(opts.LockedTokenID)
	}
	wrapped, err := txn.WrappedNativeTokenID()
	if err != nil {
		return err
	}
	if wrapped == "" && opts.WrappedNativeTokenID != "" {
		txn.SetWrappedNativeTokenID(opts.WrappedNativeTokenID)
	}
	return txn.Commit()
}

// Address returns the engine account.
func (e *Engine) Address() sdk.AccAddress {
	return e.address
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// endpointFunc runs the body of an endpoint and returns the payments owed to the caller.
type endpointFunc func(txn *store.Txn) ([]types.Payment, error)

// execute runs fn atomically. received are taken from caller before fn runs.
func (e *Engine) execute(ctx context.Context, endpoint string, caller sdk.AccAddress, received []types.Payment, fn endpointFunc) ([]types.Payment, error) {
	start := time.Now()
	if caller.Empty() {
		return nil, errorsmod.Wrap(types.ErrInvalidArgument, "Empty caller address")
	}
	for _, p := range received {
		if err := p.ValidateBasic(); err != nil {
			return nil, err
		}
	}

	txn := e.store.Begin()
	defer txn.Discard()
	snapshot := -1
	if e.host.Journal != nil {
		snapshot = e.host.Journal.Snapshot()
	}
	fail := func(err error) ([]types.Payment, error) {
		txn.Discard()
		if snapshot >= 0 {
			e.host.Journal.RevertToSnapshot(snapshot)
		}
		e.metrics.observe(endpoint, "reverted", time.Since(start))
		engineLogger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Str("caller", caller.String()).
			Msg("Endpoint reverted")
		return nil, err
	}

	if len(received) > 0 {
		if err := e.host.Ledger.Receive(ctx, caller, received); err != nil {
			return fail(types.ExternalFailure("ledger", err))
		}
	}
	out, err := fn(txn)
	if err != nil {
		return fail(err)
	}
	out = types.NonZero(out)
	if len(out) > 0 {
		if err := e.host.Ledger.Send(ctx, caller, out); err != nil {
			return fail(types.ExternalFailure("ledger", err))
		}
	}
	if err := txn.Commit(); err != nil {
		return fail(err)
	}

	e.metrics.observe(endpoint, "ok", time.Since(start))
	engineLogger.Debug().
		Str("endpoint", endpoint).
		Str("caller", caller.String()).
		Int("received", len(received)).
		Int("sent", len(out)).
		Dur("duration", time.Since(start)).
		Msg("Endpoint executed")
	return out, nil
}

// view runs fn on a transaction that is always discarded.
func (e *Engine) view(fn func(txn *store.Txn) error) error {
	txn := e.store.Begin()
	defer txn.Discard()
	return fn(txn)
}

func requireAdmin(txn *store.Txn, caller sdk.AccAddress) error {
	admin, err := txn.AdminAddress()
	if err != nil {
		return err
	}
	if admin.Empty() || !admin.Equals(caller) {
		return errorsmod.Wrap(types.ErrUnauthorized, "Endpoint can only be called by the administrator")
	}
	return nil
}

func requireProxy(txn *store.Txn, caller sdk.AccAddress) (sdk.AccAddress, error) {
	proxy, err := txn.ProxyClaimAddress()
	if err != nil {
		return nil, err
	}
	if proxy.Empty() || !proxy.Equals(caller) {
		return nil, errorsmod.Wrap(types.ErrUnauthorized, "Endpoint can only be called by the proxy claim address")
	}
	return proxy, nil
}

// accountant binds the fee and reward accounting to the configured locked token.
func (e *Engine) accountant(txn *store.Txn) (*rewards.Accountant, error) {
	lockedTokenID, err := txn.LockedTokenID()
	if err != nil {
		return nil, err
	}
	return rewards.NewAccountant(e.host.Energy, lockedTokenID), nil
}

func (e *Engine) compounder(txn *store.Txn) (*compound.Compounder, error) {
	accountant, err := e.accountant(txn)
	if err != nil {
		return nil, err
	}
	return compound.New(e.driver, accountant, e.host.FeesCollector, e.host.Metabonding, e.host.Storage), nil
}
