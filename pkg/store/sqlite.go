package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite keeps one row per workspace document.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) a document database at dbPath.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize document store: %w", err)
	}
	return s, nil
}

// init creates the database schema
func (s *SQLite) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		key TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) Read(ctx context.Context, key string) (*Document, error) {
	doc, _, err := s.ReadVersion(ctx, key)
	return doc, err
}

func (s *SQLite) ReadVersion(ctx context.Context, key string) (*Document, int64, error) {
	var body string
	var version int64
	err := s.db.QueryRowContext(ctx,
		"SELECT body, version FROM documents WHERE key = ?", key,
	).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", key, err)
	}

	doc, err := decode([]byte(body))
	if err != nil {
		return nil, 0, err
	}
	return doc, version, nil
}

func (s *SQLite) Write(ctx context.Context, key string, doc *Document) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO documents (key, body, version, updated_at) VALUES (?, ?, 1, ?)
	ON CONFLICT(key) DO UPDATE SET
		body = excluded.body,
		version = documents.version + 1,
		updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, string(data), time.Now()); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) WriteIfVersion(ctx context.Context, key string, doc *Document, version int64) error {
	if err := validKey(key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var res sql.Result
	if version == 0 {
		res, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO documents (key, body, version, updated_at) VALUES (?, ?, 1, ?)",
			key, string(data), time.Now())
	} else {
		res, err = tx.ExecContext(ctx,
			"UPDATE documents SET body = ?, version = version + 1, updated_at = ? WHERE key = ? AND version = ?",
			string(data), time.Now(), key, version)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if n == 0 {
		var current int64
		if err := tx.QueryRowContext(ctx, "SELECT version FROM documents WHERE key = ?", key).Scan(&current); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("write %s: %w", key, err)
		}
		return &ConflictError{Key: key, Expected: version, Current: current}
	}
	return tx.Commit()
}

func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM documents ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the document database
func (s *SQLite) Close() error {
	return s.db.Close()
}
