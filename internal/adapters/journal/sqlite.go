// Package journal persists upload receipts in a local SQLite database.
// Receipts carry identifiers and verdicts only; frame pixels and credential
// values never reach this store.
package journal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/aidamian/local-guard/internal/ports"
)

const defaultTable = "upload_receipts"

type SQLiteJournal struct {
	db        *sql.DB
	tableName string
}

// Open creates the receipts database at path, initializing the schema on
// first use. SQLite allows a single writer, so the pool is capped at one
// connection.
func Open(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	j := New(db, defaultTable)
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// New wraps an existing handle; used by tests with a mocked database.
func New(db *sql.DB, table string) *SQLiteJournal {
	return &SQLiteJournal{db: db, tableName: table}
}

func (j *SQLiteJournal) initSchema() error {
	_, err := j.db.Exec(`CREATE TABLE IF NOT EXISTS ` + j.tableName + ` (
		id TEXT PRIMARY KEY,
		idempotency_key TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		top_category TEXT NOT NULL,
		completed_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("journal: init schema: %w", err)
	}
	return nil
}

// Record inserts one receipt. Replaying the same receipt id is a no-op so a
// retried journal write stays idempotent.
func (j *SQLiteJournal) Record(receipt ports.UploadReceipt) error {
	_, err := j.db.Exec(
		"INSERT INTO "+j.tableName+" (id, idempotency_key, attempts, outcome, top_category, completed_at) VALUES (?,?,?,?,?,?) ON CONFLICT (id) DO NOTHING",
		receipt.ID,
		receipt.IdempotencyKey,
		receipt.Attempts,
		receipt.Outcome,
		receipt.TopCategory,
		receipt.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("journal: record receipt: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

var _ ports.Journal = (*SQLiteJournal)(nil)
