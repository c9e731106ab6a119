package workspace

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Registry manages workspace registration
type Registry struct {
	db      *sql.DB
	dataDir string
}

// NewRegistry creates a new workspace registry
func NewRegistry(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "workspaces.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	r := &Registry{
		db:      db,
		dataDir: dataDir,
	}

	if err := r.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize registry: %w", err)
	}

	return r, nil
}

func (r *Registry) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		key TEXT PRIMARY KEY,
		title TEXT,
		settings TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_workspaces_last_used ON workspaces(last_used);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Add registers a workspace, or updates its title and settings if the key is
// already known. The original creation time is kept.
func (r *Registry) Add(w *Workspace) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("validate workspace: %w", err)
	}

	settings, err := json.Marshal(w.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	query := `
	INSERT INTO workspaces (key, title, settings, created_at, last_used)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		title = excluded.title,
		settings = excluded.settings,
		last_used = excluded.last_used
	`

	now := time.Now().UTC()
	_, err = r.db.Exec(query, w.Key, w.Title, string(settings), now, now)
	return err
}

// Ensure registers key if it is unknown, without marking it as used. It
// reports whether a row was added.
func (r *Registry) Ensure(key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	res, err := r.db.Exec(`
	INSERT INTO workspaces (key, title, settings, created_at, last_used)
	VALUES (?, '', 'null', ?, ?)
	ON CONFLICT(key) DO NOTHING
	`, key, time.Now().UTC(), time.Time{})
	if err != nil {
		return false, fmt.Errorf("ensure workspace %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get retrieves a workspace by key
func (r *Registry) Get(key string) (*Workspace, error) {
	query := `
	SELECT key, title, settings, created_at, last_used
	FROM workspaces WHERE key = ?
	`

	w, err := scanWorkspace(r.db.QueryRow(query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// List returns all registered workspaces, most recently used first.
func (r *Registry) List() ([]*Workspace, error) {
	query := `
	SELECT key, title, settings, created_at, last_used
	FROM workspaces ORDER BY last_used DESC, key
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []*Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		workspaces = append(workspaces, w)
	}

	return workspaces, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row scanner) (*Workspace, error) {
	w := &Workspace{}
	var title, settings sql.NullString
	if err := row.Scan(&w.Key, &title, &settings, &w.CreatedAt, &w.LastUsed); err != nil {
		return nil, err
	}
	w.Title = title.String
	if settings.Valid && settings.String != "" && settings.String != "null" {
		if err := json.Unmarshal([]byte(settings.String), &w.Settings); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}
	return w, nil
}

// Touch marks a workspace as just used, registering it first if needed.
func (r *Registry) Touch(key string) (*Workspace, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err := r.db.Exec(`
	INSERT INTO workspaces (key, created_at, last_used) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET last_used = excluded.last_used
	`, key, now, now)
	if err != nil {
		return nil, fmt.Errorf("update last used: %w", err)
	}
	return r.Get(key)
}

// Current returns the most recently used workspace, registering DefaultKey if
// the registry is empty.
func (r *Registry) Current() (*Workspace, error) {
	workspaces, err := r.List()
	if err != nil {
		return nil, err
	}
	if len(workspaces) > 0 {
		return workspaces[0], nil
	}
	return r.Touch(DefaultKey)
}

// Remove removes a workspace from the registry. The workspace document in the
// store is left alone.
func (r *Registry) Remove(key string) error {
	res, err := r.db.Exec("DELETE FROM workspaces WHERE key = ?", key)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nil
}

// Close closes the registry database
func (r *Registry) Close() error {
	return r.db.Close()
}
