package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nft-go/internal/database/migrations"
	"nft-go/internal/model"
	"nft-go/internal/nft"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal stores the mint journal and the operation history in SQLite.
type SQLiteJournal struct {
	db    *sql.DB
	path  string
	clock nft.Clock
}

// NewSQLiteJournal opens (creating if needed) the database at path and
// migrates it to the latest schema. path can be ":memory:".
func NewSQLiteJournal(path string, clock nft.Clock) (*SQLiteJournal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	if clock == nil {
		clock = nft.RealClock{}
	}
	return &SQLiteJournal{db: db, path: path, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Every pooled connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}
	return db, nil
}

// Mint journal

// RecordMint stores a confirmed mint with recorded = false.
// Recording the same tx hash twice is a no-op.
func (s *SQLiteJournal) RecordMint(entry *model.MintJournalEntry) error {
	recordJSON, err := json.Marshal(&entry.Record)
	if err != nil {
		return fmt.Errorf("encoding journal record: %w", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	_, err = s.db.ExecContext(context.Background(), `
		INSERT INTO mints (tx_hash, token_id, metadata_cid, record_json, recorded, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT (tx_hash) DO NOTHING`,
		entry.TxHash, int64(entry.TokenID), entry.MetadataCID, string(recordJSON), formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("recording mint %s: %w", entry.TxHash, err)
	}
	return nil
}

// MarkMintRecorded flags the mint as present in the ledger.
func (s *SQLiteJournal) MarkMintRecorded(txHash string) error {
	res, err := s.db.ExecContext(context.Background(),
		"UPDATE mints SET recorded = 1 WHERE tx_hash = ?", txHash)
	if err != nil {
		return fmt.Errorf("marking mint %s recorded: %w", txHash, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mint %s not found in journal", txHash)
	}
	return nil
}

// PendingMints returns mints not yet marked recorded, oldest first.
func (s *SQLiteJournal) PendingMints() ([]*model.MintJournalEntry, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT tx_hash, token_id, metadata_cid, record_json, recorded, created_at
		FROM mints WHERE recorded = 0 ORDER BY created_at, tx_hash`)
	if err != nil {
		return nil, fmt.Errorf("listing pending mints: %w", err)
	}
	defer rows.Close()

	var out []*model.MintJournalEntry
	for rows.Next() {
		var (
			e          model.MintJournalEntry
			tokenID    int64
			recordJSON string
			createdAt  string
		)
		if err := rows.Scan(&e.TxHash, &tokenID, &e.MetadataCID, &recordJSON, &e.Recorded, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning pending mint: %w", err)
		}
		if err := json.Unmarshal([]byte(recordJSON), &e.Record); err != nil {
			return nil, fmt.Errorf("decoding journal record %s: %w", e.TxHash, err)
		}
		e.TokenID = uint64(tokenID)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Operations

// CreateOperation records the start of an operation.
func (s *SQLiteJournal) CreateOperation(operation, parameters string) (*model.Operation, error) {
	started := s.clock.Now()
	res, err := s.db.ExecContext(context.Background(), `
		INSERT INTO operations (operation, parameters, status, started_at)
		VALUES (?, ?, 'running', ?)`,
		operation, parameters, formatTime(started))
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return &model.Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  started,
	}, nil
}

// FinishOperation sets the final status and finish time.
func (s *SQLiteJournal) FinishOperation(id int64, status string) error {
	_, err := s.db.ExecContext(context.Background(),
		"UPDATE operations SET status = ?, finished_at = ? WHERE id = ?",
		status, formatTime(s.clock.Now()), id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

// ListOperations returns the most recent operations, newest first.
func (s *SQLiteJournal) ListOperations(limit int) ([]*model.Operation, error) {
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT id, operation, parameters, status, started_at, finished_at
		FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var out []*model.Operation
	for rows.Next() {
		var (
			op       model.Operation
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if op.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, err
			}
			op.FinishedAt = &t
		}
		out = append(out, &op)
	}
	return out, rows.Err()
}

// Path returns the database location.
func (s *SQLiteJournal) Path() string {
	return s.path
}

// CheckMigrations verifies the schema version matches this binary.
func (s *SQLiteJournal) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

var _ nft.Journal = (*SQLiteJournal)(nil)
