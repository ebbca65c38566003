// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// ErrNotInitialized is returned by every query made before InitDB.
var ErrNotInitialized = errors.New("database not initialized")

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// DSN formats the connection string understood by lib/pq.
func (cfg DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	var err error
	DB, err = sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.DBName).Msg("Connected to the PostgreSQL history database")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
		DB = nil
	}
}

// EnsureSchema applies the DDL of the compound history tables. Safe to run repeatedly.
func EnsureSchema() error {
	if DB == nil {
		return ErrNotInitialized
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS compound_snapshots (
			snapshot_id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL,
			run_number INTEGER NOT NULL,
			user_address VARCHAR(128) NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			duration_millis BIGINT NOT NULL DEFAULT 0,
			claimed JSONB,
			claimed_locked JSONB,
			fees JSONB,
			fees_locked JSONB,
			compounded JSONB,
			compounded_tokens TEXT[],
			success BOOLEAN NOT NULL,
			message TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_compound_snapshots_timestamp ON compound_snapshots(snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_compound_snapshots_user ON compound_snapshots(user_address, snapshot_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_compound_snapshots_run ON compound_snapshots(run_id);
	`
	if _, err := DB.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	if err := ensureRunCounterTable(); err != nil {
		return err
	}
	log.Info().Msg("Database schema ensured (compound_snapshots, keeper_runs).")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
