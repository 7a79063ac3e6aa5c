package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/compendium/internal/models"
)

// SQLiteSnapshot writes registry snapshots to a SQLite database. Each call to
// WriteSnapshot adds a new snapshot; earlier ones are kept.
type SQLiteSnapshot struct {
	db *sql.DB
}

var _ SnapshotWriter = (*SQLiteSnapshot)(nil)

// NewSQLiteSnapshot opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteSnapshot(dbPath string) (*SQLiteSnapshot, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteSnapshot{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		module TEXT NOT NULL,
		entry_count INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS entries (
		snapshot_id TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		category TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT,
		version INTEGER,
		body TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, id),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_entries_category ON entries(snapshot_id, category);

	CREATE TABLE IF NOT EXISTS entry_tags (
		snapshot_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_entry_tags_tag ON entry_tags(snapshot_id, tag);

	CREATE TABLE IF NOT EXISTS cross_references (
		snapshot_id TEXT NOT NULL,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		relationship TEXT NOT NULL,
		label TEXT,
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// WriteSnapshot stores entries in one transaction under a fresh snapshot id.
// Entries keep their declaration position; the full entry is kept as JSON.
func (s *SQLiteSnapshot) WriteSnapshot(ctx context.Context, module string, entries []models.Entry) (*SnapshotInfo, error) {
	info := &SnapshotInfo{
		ID:         uuid.New().String(),
		Module:     module,
		EntryCount: len(entries),
		CreatedAt:  time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, module, entry_count, created_at) VALUES (?, ?, ?, ?)`,
		info.ID, info.Module, info.EntryCount, info.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	entryStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (snapshot_id, id, position, kind, category, name, status, version, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer entryStmt.Close()

	tagStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entry_tags (snapshot_id, entry_id, tag) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer tagStmt.Close()

	refStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cross_references (snapshot_id, source_id, target_id, relationship, label)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer refStmt.Close()

	for pos, e := range entries {
		body, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entry %s: %w", e.ID, err)
		}
		if _, err := entryStmt.ExecContext(ctx, info.ID, e.ID, pos, string(e.Kind), string(e.Category),
			e.Name.Primary, string(e.Status), e.Version, string(body)); err != nil {
			return nil, fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
		for _, tag := range e.Tags {
			if _, err := tagStmt.ExecContext(ctx, info.ID, e.ID, models.NormalizeTag(tag)); err != nil {
				return nil, err
			}
		}
		for _, ref := range e.CrossReferences {
			if _, err := refStmt.ExecContext(ctx, info.ID, e.ID, ref.TargetID, ref.Relationship, ref.Label.Primary); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return info, nil
}

// ListSnapshots returns every snapshot, newest first.
func (s *SQLiteSnapshot) ListSnapshots(ctx context.Context) ([]*SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, module, entry_count, created_at FROM snapshots ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.Module, &info.EntryCount, &info.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &info)
	}
	return out, rows.Err()
}

// SnapshotEntryIDs returns the ids stored in a snapshot in declaration order.
func (s *SQLiteSnapshot) SnapshotEntryIDs(ctx context.Context, snapshotID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM entries WHERE snapshot_id = ? ORDER BY position`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountTagged returns how many entries in a snapshot carry tag.
func (s *SQLiteSnapshot) CountTagged(ctx context.Context, snapshotID, tag string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT entry_id) FROM entry_tags WHERE snapshot_id = ? AND tag = ?`,
		snapshotID, models.NormalizeTag(tag),
	).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteSnapshot) Close() error {
	return s.db.Close()
}
