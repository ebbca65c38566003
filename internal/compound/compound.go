/*

This file contains the claim and compound orchestrator run by the proxy claim principal on
behalf of one user. A run has four phases, applied in order within a single store
transaction:

  1. Aggregate: claim metabonding rewards, fees collector rewards, every Active farm
     position and every metastaking position into a fresh rewards wrapper.
  2. Charge fees: cut the fee percentage from every aggregated payment into the protocol
     fee accumulator, moving the energy of the locked portion to the fee owner.
  3. Attribute: merge what is left into the user's pending rewards.
  4. Compound: walk the pending fungible rewards and fold each one into the user's existing
     position of the farm that accepts it as farming token.

Boosted rewards paid while compounding are attributed after the walk, so one run folds a
single level of rewards.

*/

package compound

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/driver"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/payments"
	"github.com/elys-network/autofarm/internal/registry"
	"github.com/elys-network/autofarm/internal/rewards"
	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/types"
)

var compoundLogger = logger.GetForComponent("compound_orchestrator")

// Compounder claims and compounds the rewards of one user per run.
type Compounder struct {
	driver        *driver.Driver
	accountant    *rewards.Accountant
	feesCollector contracts.FeesCollector
	metabonding   contracts.Metabonding
	storage       contracts.StorageReader
}

// New returns a compounder.
func New(d *driver.Driver, accountant *rewards.Accountant, feesCollector contracts.FeesCollector, metabonding contracts.Metabonding, storage contracts.StorageReader) *Compounder {
	return &Compounder{
		driver:        d,
		accountant:    accountant,
		feesCollector: feesCollector,
		metabonding:   metabonding,
		storage:       storage,
	}
}

// run carries the state of one invocation.
type run struct {
	txn         *store.Txn
	user        sdk.AccAddress
	farmTokens  payments.UniquePayments
	msTokens    payments.UniquePayments
	farmStates  map[string]types.FarmState
	report      types.CompoundReport
	accumulated rewards.Wrapper
}

// Run executes the four phases for user. feeOwner receives the energy of locked fees.
func (c *Compounder) Run(ctx context.Context, txn *store.Txn, user sdk.AccAddress, claimArgs []contracts.ClaimArgs, feeOwner sdk.AccAddress) (types.CompoundReport, error) {
	start := time.Now()
	reg := registry.New(txn)
	id, err := reg.LookupID(user)
	if err != nil {
		return types.CompoundReport{}, err
	}
	entry, err := reg.Entry(user)
	if err != nil {
		return types.CompoundReport{}, err
	}

	r := &run{
		txn:         txn,
		user:        user,
		farmTokens:  entry.FarmTokens,
		msTokens:    entry.MetastakingTokens,
		farmStates:  make(map[string]types.FarmState),
		accumulated: rewards.NewWrapper(),
		report:      types.CompoundReport{Claimed: []types.Payment{}, Fees: []types.Payment{}, Compounded: []types.Payment{}},
	}

	if err := c.aggregate(ctx, r, claimArgs); err != nil {
		return types.CompoundReport{}, err
	}
	r.report.Claimed = r.accumulated.Other.Payments()
	r.report.ClaimedLocked = copyLocked(r.accumulated.Locked)

	if err := c.chargeFees(ctx, r, feeOwner); err != nil {
		return types.CompoundReport{}, err
	}

	pending := entry.Rewards
	if err := c.accountant.Merge(ctx, &pending, r.accumulated, user); err != nil {
		return types.CompoundReport{}, err
	}

	boosted, err := c.compound(ctx, r, &pending)
	if err != nil {
		return types.CompoundReport{}, err
	}
	if err := c.accountant.Merge(ctx, &pending, boosted, user); err != nil {
		return types.CompoundReport{}, err
	}

	if err := reg.SaveFarmTokens(id, r.farmTokens); err != nil {
		return types.CompoundReport{}, err
	}
	if err := reg.SaveMetastakingTokens(id, r.msTokens); err != nil {
		return types.CompoundReport{}, err
	}
	if err := reg.SaveRewards(id, pending); err != nil {
		return types.CompoundReport{}, err
	}

	compoundLogger.Info().
		Str("user", user.String()).
		Int("claimed", len(r.report.Claimed)).
		Bool("claimedLocked", r.report.ClaimedLocked != nil).
		Int("compounded", len(r.report.Compounded)).
		Dur("duration", time.Since(start)).
		Msg("Rewards claimed and compounded")
	return r.report, nil
}

func (c *Compounder) aggregate(ctx context.Context, r *run, claimArgs []contracts.ClaimArgs) error {
	if len(claimArgs) > 0 {
		if c.metabonding == nil {
			return errorsmod.Wrap(types.ErrInvalidState, "Metabonding not configured")
		}
		list, err := c.metabonding.ClaimRewards(ctx, r.user, claimArgs)
		if err != nil {
			return types.ExternalFailure("metabonding", err)
		}
		if err := c.accountant.AddPayments(ctx, &r.accumulated, list, r.user); err != nil {
			return err
		}
	}

	if c.feesCollector != nil {
		list, err := c.feesCollector.ClaimRewards(ctx, r.user)
		if err != nil {
			return types.ExternalFailure("fees_collector", err)
		}
		if err := c.accountant.AddPayments(ctx, &r.accumulated, list, r.user); err != nil {
			return err
		}
	}

	for _, position := range r.farmTokens.Payments() {
		cfg, found, err := r.txn.FarmByFarmToken(position.TokenID)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		state, err := c.farmState(ctx, r, cfg)
		if err != nil {
			return err
		}
		if !state.ClaimAllowed() {
			compoundLogger.Debug().
				Str("farm", cfg.Address.String()).
				Stringer("state", state).
				Msg("Skipping farm claim")
			continue
		}
		res, err := c.driver.ClaimFarm(ctx, cfg.Address, r.user, position)
		if err != nil {
			return err
		}
		if err := replace(&r.farmTokens, position, res.NewFarmToken); err != nil {
			return err
		}
		if err := c.accountant.AddPayment(ctx, &r.accumulated, res.Rewards, r.user); err != nil {
			return err
		}
	}

	for _, position := range r.msTokens.Payments() {
		cfg, found, err := r.txn.MetastakingByDualYieldToken(position.TokenID)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		res, err := c.driver.ClaimMetastaking(ctx, cfg.Address, r.user, position)
		if err != nil {
			return err
		}
		if err := replace(&r.msTokens, position, res.NewDualYieldToken); err != nil {
			return err
		}
		if err := c.accountant.AddPayments(ctx, &r.accumulated, []types.Payment{res.LPFarmRewards, res.StakingFarmRewards}, r.user); err != nil {
			return err
		}
	}
	return nil
}

// farmState re-reads the state key of a farm once per run and refreshes the cached config.
func (c *Compounder) farmState(ctx context.Context, r *run, cfg types.FarmConfig) (types.FarmState, error) {
	key := string(cfg.Address)
	if state, ok := r.farmStates[key]; ok {
		return state, nil
	}
	state := cfg.State
	if c.storage != nil {
		raw, err := c.storage.ReadStorage(ctx, cfg.Address, types.StorageKeyState)
		if err != nil {
			return state, types.ExternalFailure("farm", err)
		}
		state, err = types.ParseFarmState(raw)
		if err != nil {
			return state, errorsmod.Wrap(types.ErrExternalFailure, err.Error())
		}
		if state != cfg.State {
			compoundLogger.Info().
				Str("farm", cfg.Address.String()).
				Stringer("from", cfg.State).
				Stringer("to", state).
				Msg("Farm state changed")
			cfg.State = state
			if err := r.txn.SetFarmConfig(cfg); err != nil {
				return state, err
			}
		}
	}
	r.farmStates[key] = state
	return state, nil
}

func (c *Compounder) chargeFees(ctx context.Context, r *run, feeOwner sdk.AccAddress) error {
	bps, err := r.txn.FeePercentage()
	if err != nil {
		return err
	}
	fees, err := r.txn.AccumulatedFees()
	if err != nil {
		return err
	}
	receipt, err := c.accountant.DeductFees(ctx, &r.accumulated, bps, r.user, feeOwner, &fees)
	if err != nil {
		return err
	}
	if receipt.Other != nil {
		r.report.Fees = receipt.Other
	}
	r.report.FeesLocked = receipt.Locked
	return r.txn.SetAccumulatedFees(fees)
}

// compound walks the pending fungible rewards. A payment is folded when a farm with that
// farming token is Active and the user already holds a position of it; the entry is then
// removed and the index stays put. Otherwise the index advances.
func (c *Compounder) compound(ctx context.Context, r *run, pending *rewards.Wrapper) (rewards.Wrapper, error) {
	boosted := rewards.NewWrapper()
	i := 0
	for i < pending.Other.Len() {
		reward := pending.Other.Get(i)
		cfg, ok, err := c.compoundTarget(ctx, r, reward)
		if err != nil {
			return boosted, err
		}
		if !ok {
			i++
			continue
		}
		idx, _ := r.farmTokens.FindToken(cfg.FarmTokenID)
		position := r.farmTokens.Get(idx)

		res, err := c.driver.EnterFarm(ctx, cfg.Address, r.user, reward, position)
		if err != nil {
			return boosted, err
		}
		if err := replace(&r.farmTokens, position, res.NewFarmToken); err != nil {
			return boosted, err
		}
		pending.Other.RemoveAt(i)
		if err := c.accountant.AddPayment(ctx, &boosted, res.BoostedRewards, r.user); err != nil {
			return boosted, err
		}
		r.report.Compounded = append(r.report.Compounded, reward)

		compoundLogger.Debug().
			Str("user", r.user.String()).
			Str("farm", cfg.Address.String()).
			Stringer("reward", reward).
			Stringer("position", res.NewFarmToken).
			Msg("Compounded reward")
	}
	return boosted, nil
}

func (c *Compounder) compoundTarget(ctx context.Context, r *run, reward types.Payment) (types.FarmConfig, bool, error) {
	if !reward.IsFungible() {
		return types.FarmConfig{}, false, nil
	}
	cfg, found, err := r.txn.FarmByFarmingToken(reward.TokenID)
	if err != nil || !found {
		return types.FarmConfig{}, false, err
	}
	if _, held := r.farmTokens.FindToken(cfg.FarmTokenID); !held {
		return types.FarmConfig{}, false, nil
	}
	state, err := c.farmState(ctx, r, cfg)
	if err != nil {
		return types.FarmConfig{}, false, err
	}
	cfg.State = state
	return cfg, state.ClaimAllowed(), nil
}

func replace(inventory *payments.UniquePayments, old, fresh types.Payment) error {
	if err := inventory.Deduct(old); err != nil {
		return err
	}
	return inventory.Add(fresh)
}

func copyLocked(p *types.Payment) *types.Payment {
	if p == nil || p.IsZero() {
		return nil
	}
	out := *p
	return &out
}
