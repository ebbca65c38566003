/*

This file manages the persistent keeper run counter.
The counter is stored in the database to ensure continuity across restarts.

*/

package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ensureRunCounterTable creates the keeper_runs table if it doesn't exist
func ensureRunCounterTable() error {
	if DB == nil {
		return ErrNotInitialized
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS keeper_runs (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_run INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);

		INSERT INTO keeper_runs (id, current_run)
		VALUES (1, 0)
		ON CONFLICT (id) DO NOTHING;
	`

	if _, err := DB.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create keeper_runs table: %w", err)
	}

	log.Debug().Msg("Ensured keeper_runs table exists")
	return nil
}

// GetRunCounter retrieves the number of the last keeper run.
func GetRunCounter() (int, error) {
	if DB == nil {
		return 0, ErrNotInitialized
	}
	if err := ensureRunCounterTable(); err != nil {
		return 0, err
	}

	var current int
	err := DB.QueryRow(`SELECT current_run FROM keeper_runs WHERE id = 1;`).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().Msg("No keeper run row found, initializing to 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current run number: %w", err)
	}
	return current, nil
}

// IncrementRunCounter increments the run counter and returns the new value.
func IncrementRunCounter() (int, error) {
	if DB == nil {
		return 0, ErrNotInitialized
	}
	if err := ensureRunCounterTable(); err != nil {
		return 0, err
	}

	updateQuery := `
		UPDATE keeper_runs
		SET current_run = current_run + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_run;`

	var next int
	if err := DB.QueryRow(updateQuery).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to increment run number: %w", err)
	}

	log.Info().Int("run", next).Msg("Incremented keeper run counter")
	return next, nil
}

// ResetRunCounter resets the run counter to a specific value (for maintenance)
func ResetRunCounter(run int) error {
	if DB == nil {
		return ErrNotInitialized
	}
	if run < 0 {
		return fmt.Errorf("run number cannot be negative: %d", run)
	}
	if err := ensureRunCounterTable(); err != nil {
		return err
	}

	result, err := DB.Exec(`UPDATE keeper_runs SET current_run = $1, updated_at = CURRENT_TIMESTAMP WHERE id = 1;`, run)
	if err != nil {
		return fmt.Errorf("failed to reset run number to %d: %w", run, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no rows updated when resetting run number")
	}

	log.Warn().Int("run", run).Msg("Reset keeper run counter")
	return nil
}
