// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"

	"github.com/elys-network/autofarm/internal/types"
)

// snapshotColumns are the JSONB encodings of a snapshot.
type snapshotColumns struct {
	claimed, claimedLocked, fees, feesLocked, compounded []byte
}

func encodeSnapshot(snapshot types.CompoundSnapshot) (snapshotColumns, error) {
	var cols snapshotColumns
	var err error
	if cols.claimed, err = json.Marshal(nonNil(snapshot.Claimed)); err != nil {
		return cols, fmt.Errorf("failed to marshal claimed: %w", err)
	}
	if cols.claimedLocked, err = marshalOptional(snapshot.ClaimedLocked); err != nil {
		return cols, fmt.Errorf("failed to marshal claimed_locked: %w", err)
	}
	if cols.fees, err = json.Marshal(nonNil(snapshot.Fees)); err != nil {
		return cols, fmt.Errorf("failed to marshal fees: %w", err)
	}
	if cols.feesLocked, err = marshalOptional(snapshot.FeesLocked); err != nil {
		return cols, fmt.Errorf("failed to marshal fees_locked: %w", err)
	}
	if cols.compounded, err = json.Marshal(nonNil(snapshot.Compounded)); err != nil {
		return cols, fmt.Errorf("failed to marshal compounded: %w", err)
	}
	return cols, nil
}

func decodeSnapshot(snapshot *types.CompoundSnapshot, cols snapshotColumns) error {
	if len(cols.claimed) > 0 {
		if err := json.Unmarshal(cols.claimed, &snapshot.Claimed); err != nil {
			return fmt.Errorf("failed to unmarshal claimed: %w", err)
		}
	}
	if len(cols.claimedLocked) > 0 && string(cols.claimedLocked) != "null" {
		snapshot.ClaimedLocked = new(types.Payment)
		if err := json.Unmarshal(cols.claimedLocked, snapshot.ClaimedLocked); err != nil {
			return fmt.Errorf("failed to unmarshal claimed_locked: %w", err)
		}
	}
	if len(cols.fees) > 0 {
		if err := json.Unmarshal(cols.fees, &snapshot.Fees); err != nil {
			return fmt.Errorf("failed to unmarshal fees: %w", err)
		}
	}
	if len(cols.feesLocked) > 0 && string(cols.feesLocked) != "null" {
		snapshot.FeesLocked = new(types.Payment)
		if err := json.Unmarshal(cols.feesLocked, snapshot.FeesLocked); err != nil {
			return fmt.Errorf("failed to unmarshal fees_locked: %w", err)
		}
	}
	if len(cols.compounded) > 0 {
		if err := json.Unmarshal(cols.compounded, &snapshot.Compounded); err != nil {
			return fmt.Errorf("failed to unmarshal compounded: %w", err)
		}
	}
	return nil
}

func marshalOptional(p *types.Payment) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func nonNil(list []types.Payment) []types.Payment {
	if list == nil {
		return []types.Payment{}
	}
	return list
}

// tokenIDs lists the distinct token identifiers of list in order.
func tokenIDs(list []types.Payment) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, p := range list {
		if !seen[p.TokenID] {
			seen[p.TokenID] = true
			out = append(out, p.TokenID)
		}
	}
	return out
}

// SaveCompoundSnapshot saves a keeper compound snapshot to the database.
func SaveCompoundSnapshot(snapshot types.CompoundSnapshot) (int64, error) {
	if DB == nil {
		return 0, ErrNotInitialized
	}
	cols, err := encodeSnapshot(snapshot)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO compound_snapshots (
			run_id, run_number, user_address, snapshot_timestamp, duration_millis,
			claimed, claimed_locked, fees, fees_locked, compounded, compounded_tokens,
			success, message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.RunID, snapshot.RunNumber, snapshot.UserAddress, snapshot.Timestamp, snapshot.DurationMillis,
		cols.claimed, cols.claimedLocked, cols.fees, cols.feesLocked, cols.compounded,
		pq.Array(tokenIDs(snapshot.Compounded)),
		snapshot.Success, snapshot.Message,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save compound snapshot: %w", err)
	}

	log.Debug().
		Int64("snapshot_id", snapshotID).
		Str("run_id", snapshot.RunID).
		Str("user", snapshot.UserAddress).
		Bool("success", snapshot.Success).
		Msg("Compound snapshot saved to database")
	return snapshotID, nil
}
