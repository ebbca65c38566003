package avm

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/autofarm/internal/contracts"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/types"
	"github.com/elys-network/autofarm/internal/vault"
)

var (
	ErrMissingManager = errors.New("vault manager cannot be nil")
	ErrMissingProxy   = errors.New("proxy address cannot be empty")
)

// HistoryRecorder persists what each keeper run did.
type HistoryRecorder interface {
	NextRunNumber() (int, error)
	SaveCompoundSnapshot(snapshot types.CompoundSnapshot) (int64, error)
}

// ClaimArgsSource supplies the governance emission claim arguments of a user, if any.
type ClaimArgsSource func(user sdk.AccAddress) []contracts.ClaimArgs

// Keeper drives ClaimAllRewardsAndCompound for every registered user on a schedule,
// acting as the proxy principal of the engine.
type Keeper struct {
	logger    zerolog.Logger
	manager   vault.Manager
	proxy     sdk.AccAddress
	recorder  HistoryRecorder
	claimArgs ClaimArgsSource
	metrics   *keeperMetrics
	now       func() time.Time

	// Runtime state
	runCount int
}

// Config holds the dependencies of a Keeper. Recorder and ClaimArgs are optional.
type Config struct {
	Manager   vault.Manager
	Proxy     sdk.AccAddress
	Recorder  HistoryRecorder
	ClaimArgs ClaimArgsSource
}

// RunSummary is the outcome of one keeper cycle.
type RunSummary struct {
	RunID     string
	RunNumber int
	Users     int
	Failed    int
	Snapshots []types.CompoundSnapshot
}

// NewKeeper creates a keeper.
func NewKeeper(cfg Config) (*Keeper, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("keeper configuration validation failed: %w", ErrMissingManager)
	}
	if cfg.Proxy.Empty() {
		return nil, fmt.Errorf("keeper configuration validation failed: %w", ErrMissingProxy)
	}

	k := &Keeper{
		logger:    logger.GetForComponent("keeper"),
		manager:   cfg.Manager,
		proxy:     cfg.Proxy,
		recorder:  cfg.Recorder,
		claimArgs: cfg.ClaimArgs,
		metrics:   defaultKeeperMetrics(),
		now:       time.Now,
	}
	k.logger.Info().
		Str("proxy", k.proxy.String()).
		Bool("history", k.recorder != nil).
		Msg("Keeper created")
	return k, nil
}

// RunLoop runs a cycle immediately and then on every tick until ctx is cancelled.
func (k *Keeper) RunLoop(ctx context.Context, interval time.Duration) {
	k.logger.Info().Dur("interval", interval).Msg("Starting keeper loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	k.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			k.logger.Info().Msg("Keeper loop stopped due to context cancellation")
			return
		case <-ticker.C:
			k.RunCycle(ctx)
		}
	}
}

// RunCycle compounds every registered user once. A failing user is logged and skipped.
func (k *Keeper) RunCycle(ctx context.Context) RunSummary {
	start := k.now()
	summary := RunSummary{RunID: uuid.New().String(), RunNumber: k.nextRunNumber()}
	runLogger := k.logger.With().Str("run_id", summary.RunID).Int("run", summary.RunNumber).Logger()
	runLogger.Info().Msg("--- Starting keeper run ---")

	users, err := k.manager.RegisteredUsers()
	if err != nil {
		runLogger.Error().Err(err).Msg("Failed to list registered users")
		k.metrics.runs.WithLabelValues("failed").Inc()
		return summary
	}

	for _, entry := range users {
		if ctx.Err() != nil {
			runLogger.Warn().Err(ctx.Err()).Msg("Keeper run interrupted")
			break
		}
		summary.Users++
		snapshot := k.compoundUser(ctx, summary, entry.Address)
		if !snapshot.Success {
			summary.Failed++
			runLogger.Warn().
				Str("user", snapshot.UserAddress).
				Str("error", snapshot.Message).
				Msg("Compound failed, skipping user")
		}
		k.record(runLogger, snapshot)
		summary.Snapshots = append(summary.Snapshots, snapshot)
	}

	elapsed := k.now().Sub(start)
	k.metrics.duration.Observe(elapsed.Seconds())
	k.metrics.runs.WithLabelValues("completed").Inc()
	runLogger.Info().
		Int("users", summary.Users).
		Int("failed", summary.Failed).
		Str("duration", elapsed.String()).
		Msg("--- Keeper run completed ---")
	return summary
}

func (k *Keeper) compoundUser(ctx context.Context, summary RunSummary, user sdk.AccAddress) types.CompoundSnapshot {
	start := k.now()
	var args []contracts.ClaimArgs
	if k.claimArgs != nil {
		args = k.claimArgs(user)
	}

	report, err := k.manager.ClaimAllRewardsAndCompound(ctx, k.proxy, user, args)
	snapshot := types.CompoundSnapshot{
		RunID:          summary.RunID,
		RunNumber:      summary.RunNumber,
		UserAddress:    user.String(),
		Timestamp:      start,
		DurationMillis: k.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		snapshot.Message = err.Error()
		k.metrics.compounds.WithLabelValues("failed").Inc()
		return snapshot
	}

	snapshot.Success = true
	snapshot.Claimed = report.Claimed
	snapshot.ClaimedLocked = report.ClaimedLocked
	snapshot.Fees = report.Fees
	snapshot.FeesLocked = report.FeesLocked
	snapshot.Compounded = report.Compounded
	k.metrics.compounds.WithLabelValues("succeeded").Inc()
	return snapshot
}

func (k *Keeper) record(runLogger zerolog.Logger, snapshot types.CompoundSnapshot) {
	if k.recorder == nil {
		return
	}
	snapshotID, err := k.recorder.SaveCompoundSnapshot(snapshot)
	if err != nil {
		runLogger.Error().Err(err).Str("user", snapshot.UserAddress).Msg("Failed to save compound snapshot")
		return
	}
	runLogger.Debug().Int64("snapshot_id", snapshotID).Msg("Compound snapshot saved")
}

// nextRunNumber increments the persistent counter, falling back to the in-process count.
func (k *Keeper) nextRunNumber() int {
	k.runCount++
	if k.recorder == nil {
		return k.runCount
	}
	run, err := k.recorder.NextRunNumber()
	if err != nil {
		k.logger.Error().Err(err).Msg("Failed to increment run number, using fallback")
		return k.runCount
	}
	k.runCount = run
	return run
}
