package history

import (
	"context"
	"database/sql"

	"github.com/ledgerforge/utxoledger/errs"
)

// schemaVersion is the DDL generation this package knows how to create
// and speak to. DatabaseSchema.Version reports it; the core treats
// schema management as a hook and never drives migrations itself.
const schemaVersion = 1

// DatabaseSchema manages the three-table relational schema Postgres
// uses. It is a thin wrapper over *sql.DB: Create and Drop execute their
// statements one at a time directly on db, outside any *sql.Tx, unlike
// the data writes in postgres.go.
type DatabaseSchema struct {
	db *sql.DB
}

// NewDatabaseSchema wraps db for schema management.
func NewDatabaseSchema(db *sql.DB) *DatabaseSchema {
	return &DatabaseSchema{db: db}
}

// Version reports the schema generation this package targets.
func (s *DatabaseSchema) Version() int { return schemaVersion }

// Exists reports whether the ledgers table has already been created.
func (s *DatabaseSchema) Exists(ctx context.Context) (bool, error) {
	var name sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT to_regclass('public.ledgers')::text`).Scan(&name)
	if err != nil {
		return false, errs.Wrap(errs.KindPersistence, "checking schema existence", err)
	}
	return name.Valid && name.String != "", nil
}

// Create issues the DDL for all three tables and their required
// indexes. Idempotent: every statement uses IF NOT EXISTS.
func (s *DatabaseSchema) Create(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledgers (
			id TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			total_unspent BIGINT NOT NULL DEFAULT 0,
			total_fees BIGINT NOT NULL DEFAULT 0,
			total_minted BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS outputs (
			id TEXT NOT NULL,
			ledger_id TEXT NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			lock_type TEXT NOT NULL,
			lock_owner TEXT,
			lock_pubkey TEXT,
			lock_custom_data TEXT,
			is_spent BOOLEAN NOT NULL DEFAULT FALSE,
			created_by TEXT NOT NULL,
			spent_by TEXT,
			PRIMARY KEY (ledger_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT NOT NULL,
			ledger_id TEXT NOT NULL REFERENCES ledgers(id) ON DELETE CASCADE,
			is_coinbase BOOLEAN NOT NULL DEFAULT FALSE,
			signed_by TEXT,
			fee BIGINT,
			coinbase_amount BIGINT,
			PRIMARY KEY (ledger_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outputs_spent ON outputs (ledger_id, is_spent)`,
		`CREATE INDEX IF NOT EXISTS idx_outputs_owner ON outputs (ledger_id, lock_owner)`,
		`CREATE INDEX IF NOT EXISTS idx_outputs_amount ON outputs (ledger_id, amount)`,
		`CREATE INDEX IF NOT EXISTS idx_outputs_created_by ON outputs (ledger_id, created_by)`,
		`CREATE INDEX IF NOT EXISTS idx_outputs_lock_type ON outputs (ledger_id, lock_type)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_coinbase ON transactions (ledger_id, is_coinbase)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errs.Wrap(errs.KindPersistence, "creating schema", err)
		}
	}
	return nil
}

// Drop removes all three tables, in FK-safe order.
func (s *DatabaseSchema) Drop(ctx context.Context) error {
	stmts := []string{
		`DROP TABLE IF EXISTS outputs`,
		`DROP TABLE IF EXISTS transactions`,
		`DROP TABLE IF EXISTS ledgers`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errs.Wrap(errs.KindPersistence, "dropping schema", err)
		}
	}
	return nil
}
