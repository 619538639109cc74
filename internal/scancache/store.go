// Package scancache persists scene scan results in SQLite so unchanged
// documents are not rescanned.
package scancache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/assetkeeper/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// formatVersion is bumped whenever extraction rules change, invalidating
// every cached row.
const formatVersion = 1

// Store is a SQLite-backed scene.Cache.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens or creates the cache database at dbPath. ":memory:" is
// accepted for tests.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Lookup returns the cached references for document when size and
// modification time still match. Any database error is a miss.
func (s *Store) Lookup(document string, size int64, modTime time.Time) (*models.ReferenceSet, bool) {
	var refsJSON string
	err := s.db.QueryRowContext(context.Background(),
		`SELECT refs_json FROM scan_cache
		 WHERE document = ? AND size = ? AND mod_time_ns = ? AND format = ?`,
		document, size, modTime.UnixNano(), formatVersion,
	).Scan(&refsJSON)
	if err != nil {
		return nil, false
	}

	refs := models.NewReferenceSet(document)
	if err := json.Unmarshal([]byte(refsJSON), refs); err != nil {
		return nil, false
	}
	return refs, true
}

// Store saves refs for document, replacing any earlier row.
func (s *Store) Store(document string, size int64, modTime time.Time, refs *models.ReferenceSet) error {
	// Diagnostics describe one scan and are not cached.
	row := *refs
	row.Diagnostics = nil
	data, err := json.Marshal(&row)
	if err != nil {
		return fmt.Errorf("marshal references: %w", err)
	}

	_, err = s.db.ExecContext(context.Background(),
		`INSERT INTO scan_cache (document, size, mod_time_ns, format, refs_json, scanned_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(document) DO UPDATE SET
		   size = excluded.size,
		   mod_time_ns = excluded.mod_time_ns,
		   format = excluded.format,
		   refs_json = excluded.refs_json,
		   scanned_at = excluded.scanned_at`,
		document, size, modTime.UnixNano(), formatVersion, string(data),
	)
	if err != nil {
		return fmt.Errorf("store scan of %s: %w", document, err)
	}
	return nil
}

// Invalidate removes the row for document. Missing rows are not an error.
func (s *Store) Invalidate(ctx context.Context, document string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scan_cache WHERE document = ?`, document); err != nil {
		return fmt.Errorf("invalidate %s: %w", document, err)
	}
	return nil
}

// Count returns the number of cached documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_cache`).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count scan cache: %w", err)
	}
	return n, nil
}

// Clear deletes every cached row.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scan_cache`); err != nil {
		return fmt.Errorf("clear scan cache: %w", err)
	}
	return nil
}
