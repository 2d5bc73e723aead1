// Package journal keeps an append-only, secret-free history of record
// lifecycle transitions in a local SQLite database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/dmitrijs2005/dbkeeper/internal/dbx"
	"github.com/dmitrijs2005/dbkeeper/internal/journal/migrations"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
)

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

func RunMigrations(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Journal is safe for concurrent use.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at dsn and migrates it.
// Use ":memory:" for a throwaway journal.
func Open(ctx context.Context, dsn string) (*Journal, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" a single database and serialises writers.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal migrations: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Observe appends t. It satisfies the orchestrator's observer hook.
func (j *Journal) Observe(ctx context.Context, t models.Transition) error {
	return appendTransition(ctx, j.db, t)
}

func appendTransition(ctx context.Context, db dbx.DBTX, t models.Transition) error {
	if t.At.IsZero() {
		t.At = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO transitions (record_id, kind, from_stage, to_stage, error_class, at_unix_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.RecordID, string(t.Kind), string(t.From), string(t.To), t.ErrorClass, t.At.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append transition for %s: %w", t.RecordID, err)
	}
	return nil
}

// History returns the transitions of one record, oldest first.
func (j *Journal) History(ctx context.Context, recordID string) ([]models.Transition, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT record_id, kind, from_stage, to_stage, error_class, at_unix_ns
		FROM transitions WHERE record_id = ? ORDER BY id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	var out []models.Transition
	for rows.Next() {
		var (
			t        models.Transition
			kind     string
			from, to string
			at       int64
		)
		if err := rows.Scan(&t.RecordID, &kind, &from, &to, &t.ErrorClass, &at); err != nil {
			return nil, fmt.Errorf("failed to scan transition row: %w", err)
		}
		t.Kind = models.Kind(kind)
		t.From = models.Stage(from)
		t.To = models.Stage(to)
		t.At = time.Unix(0, at)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transition rows: %w", err)
	}
	return out, nil
}

// Clear drops the whole history, used when the vault is reset.
func (j *Journal) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, j.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transitions`); err != nil {
			return fmt.Errorf("failed to clear transitions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'transitions'`); err != nil {
			return fmt.Errorf("failed to reset transition ids: %w", err)
		}
		return nil
	})
}
