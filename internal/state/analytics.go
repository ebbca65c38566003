package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/autofarm/internal/payments"
	"github.com/elys-network/autofarm/internal/types"
)

const (
	defaultSnapshotLimit = 20
	maxSnapshotLimit     = 200
)

// FeeSummary aggregates the protocol fees charged by the keeper across every snapshot.
type FeeSummary struct {
	Snapshots  int                     `json:"snapshots"`
	Successful int                     `json:"successful"`
	Failed     int                     `json:"failed"`
	Fees       []types.Payment         `json:"fees"`
	LockedFees sdkmath.Int             `json:"locked_fees"`
	Compounded payments.UniquePayments `json:"compounded"`
}

const selectSnapshotSQL = `
	SELECT
		snapshot_id, run_id, run_number, user_address, snapshot_timestamp, duration_millis,
		claimed, claimed_locked, fees, fees_locked, compounded, success, COALESCE(message, '')
	FROM compound_snapshots
`

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultSnapshotLimit
	}
	if limit > maxSnapshotLimit {
		return maxSnapshotLimit
	}
	return limit
}

func scanSnapshots(rows *sql.Rows) ([]types.CompoundSnapshot, error) {
	defer rows.Close()
	out := []types.CompoundSnapshot{}
	for rows.Next() {
		var snapshot types.CompoundSnapshot
		var cols snapshotColumns
		err := rows.Scan(
			&snapshot.SnapshotID, &snapshot.RunID, &snapshot.RunNumber, &snapshot.UserAddress,
			&snapshot.Timestamp, &snapshot.DurationMillis,
			&cols.claimed, &cols.claimedLocked, &cols.fees, &cols.feesLocked, &cols.compounded,
			&snapshot.Success, &snapshot.Message,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan snapshot row")
			continue
		}
		if err := decodeSnapshot(&snapshot, cols); err != nil {
			log.Error().Err(err).Int64("snapshot_id", snapshot.SnapshotID).Msg("Failed to decode snapshot")
			continue
		}
		out = append(out, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

// GetRecentSnapshots retrieves the most recent compound snapshots.
func GetRecentSnapshots(limit int) ([]types.CompoundSnapshot, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	rows, err := DB.Query(selectSnapshotSQL+` ORDER BY snapshot_timestamp DESC, snapshot_id DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query recent snapshots: %w", err)
	}
	return scanSnapshots(rows)
}

// GetSnapshotsForUser retrieves the most recent compound snapshots of one user.
func GetSnapshotsForUser(userAddress string, limit int) ([]types.CompoundSnapshot, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	rows, err := DB.Query(selectSnapshotSQL+` WHERE user_address = $1 ORDER BY snapshot_timestamp DESC, snapshot_id DESC LIMIT $2`,
		userAddress, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots of %s: %w", userAddress, err)
	}
	return scanSnapshots(rows)
}

// GetFeeSummary aggregates every stored snapshot.
func GetFeeSummary() (*FeeSummary, error) {
	if DB == nil {
		return nil, ErrNotInitialized
	}
	rows, err := DB.Query(selectSnapshotSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	snapshots, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	summary, err := Summarize(snapshots)
	if err != nil {
		return nil, err
	}
	log.Info().Int("snapshots", summary.Snapshots).Int("failed", summary.Failed).Msg("Retrieved fee summary")
	return summary, nil
}

// Summarize folds snapshots into a FeeSummary. Failed snapshots are only counted.
func Summarize(snapshots []types.CompoundSnapshot) (*FeeSummary, error) {
	fees := payments.New()
	summary := &FeeSummary{LockedFees: sdkmath.ZeroInt(), Compounded: payments.New()}
	for _, s := range snapshots {
		summary.Snapshots++
		if !s.Success {
			summary.Failed++
			continue
		}
		summary.Successful++
		for _, p := range s.Fees {
			if err := fees.Add(p); err != nil {
				return nil, fmt.Errorf("snapshot %d: %w", s.SnapshotID, err)
			}
		}
		if s.FeesLocked != nil && !s.FeesLocked.IsZero() {
			summary.LockedFees = summary.LockedFees.Add(s.FeesLocked.Amount)
		}
		for _, p := range s.Compounded {
			// Compounded rewards are fungible; positions differ per snapshot.
			if err := summary.Compounded.Add(types.NewFungible(p.TokenID, p.Amount)); err != nil {
				return nil, fmt.Errorf("snapshot %d: %w", s.SnapshotID, err)
			}
		}
	}
	summary.Fees = fees.Payments()
	return summary, nil
}
