// Package search keeps a full-text index of file contents per workspace.
package search

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mattsolo1/grove-playground/pkg/language"
	"github.com/mattsolo1/grove-playground/pkg/tree"
)

const defaultLimit = 50

// Index manages the search index
type Index struct {
	db     *sql.DB
	useFTS bool
}

// Hit is a file matching a query.
type Hit struct {
	Workspace string            `json:"workspace"`
	FileID    string            `json:"fileId"`
	Path      string            `json:"path"`
	Language  language.Language `json:"language"`
	Snippet   string            `json:"snippet"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Options for searching
type Options struct {
	Workspace string
	Language  language.Language
	Limit     int
}

// NewIndex opens (or creates) the index database at dbPath.
func NewIndex(dbPath string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	idx := &Index{db: db}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize index: %w", err)
	}

	return idx, nil
}

func (idx *Index) init() error {
	idx.useFTS = idx.checkFTS5Support()

	metaSchema := `
	CREATE TABLE IF NOT EXISTS files_meta (
		workspace TEXT NOT NULL,
		file_id TEXT NOT NULL,
		path TEXT NOT NULL,
		language TEXT NOT NULL,
		content TEXT NOT NULL,
		updated_at TIMESTAMP,
		PRIMARY KEY (workspace, file_id)
	);

	CREATE INDEX IF NOT EXISTS idx_files_meta_language ON files_meta(language);
	`
	if _, err := idx.db.Exec(metaSchema); err != nil {
		return err
	}

	if idx.useFTS {
		ftsSchema := `
		CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
			workspace UNINDEXED,
			file_id UNINDEXED,
			path,
			content,
			tokenize = 'porter unicode61'
		);
		`
		if _, err := idx.db.Exec(ftsSchema); err != nil {
			// FTS5 compiled in but unusable; fall back to LIKE.
			idx.useFTS = false
		}
	}

	return nil
}

// checkFTS5Support reports whether the sqlite build has FTS5. go-sqlite3 only
// includes it with the sqlite_fts5 build tag.
func (idx *Index) checkFTS5Support() bool {
	_, err := idx.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS fts5_test USING fts5(content)")
	if err != nil {
		return false
	}
	_, _ = idx.db.Exec("DROP TABLE IF EXISTS fts5_test")
	return true
}

// UsesFTS reports whether queries run against the FTS5 table.
func (idx *Index) UsesFTS() bool { return idx.useFTS }

// Reindex replaces everything indexed for a workspace with the files of items.
func (idx *Index) Reindex(workspace string, items []tree.Item) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if idx.useFTS {
		if _, err := tx.Exec("DELETE FROM files_fts WHERE workspace = ?", workspace); err != nil {
			return err
		}
	}
	if _, err := tx.Exec("DELETE FROM files_meta WHERE workspace = ?", workspace); err != nil {
		return err
	}

	err = tree.Walk(items, func(p string, item tree.Item) error {
		if !item.IsFile() {
			return nil
		}
		return idx.insert(tx, workspace, item.ID, p, item.Content, item.UpdatedAt)
	})
	if err != nil {
		return fmt.Errorf("reindex %s: %w", workspace, err)
	}

	return tx.Commit()
}

// IndexFile indexes or reindexes a single file.
func (idx *Index) IndexFile(workspace, fileID, path, content string, updatedAt time.Time) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := idx.delete(tx, workspace, fileID); err != nil {
		return err
	}
	if err := idx.insert(tx, workspace, fileID, path, content, updatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateContent reindexes the content of a file already in the index, keeping
// its path. Unknown files are ignored.
func (idx *Index) UpdateContent(workspace, fileID, content string, updatedAt time.Time) error {
	var path string
	err := idx.db.QueryRow(
		"SELECT path FROM files_meta WHERE workspace = ? AND file_id = ?",
		workspace, fileID,
	).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return idx.IndexFile(workspace, fileID, path, content, updatedAt)
}

// RemoveFile removes a file from the index
func (idx *Index) RemoveFile(workspace, fileID string) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := idx.delete(tx, workspace, fileID); err != nil {
		return err
	}

	return tx.Commit()
}

func (idx *Index) delete(tx *sql.Tx, workspace, fileID string) error {
	if idx.useFTS {
		if _, err := tx.Exec("DELETE FROM files_fts WHERE workspace = ? AND file_id = ?", workspace, fileID); err != nil {
			return err
		}
	}
	_, err := tx.Exec("DELETE FROM files_meta WHERE workspace = ? AND file_id = ?", workspace, fileID)
	return err
}

func (idx *Index) insert(tx *sql.Tx, workspace, fileID, path, content string, updatedAt time.Time) error {
	lang := language.ExtensionOf(path)
	if idx.useFTS {
		_, err := tx.Exec(`
			INSERT INTO files_fts (workspace, file_id, path, content)
			VALUES (?, ?, ?, ?)
		`, workspace, fileID, path, content)
		if err != nil {
			return err
		}
	}

	_, err := tx.Exec(`
		INSERT INTO files_meta (workspace, file_id, path, language, content, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, workspace, fileID, path, string(lang), content, updatedAt)
	return err
}

// Search performs a full-text search
func (idx *Index) Search(query string, opts *Options) ([]Hit, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if idx.useFTS {
		return idx.searchWithFTS(query, opts)
	}
	return idx.searchWithoutFTS(query, opts)
}

func filters(opts *Options, prefix string) ([]string, []any) {
	var conditions []string
	var args []any
	if opts.Workspace != "" {
		conditions = append(conditions, prefix+"workspace = ?")
		args = append(args, opts.Workspace)
	}
	if opts.Language != "" {
		conditions = append(conditions, prefix+"language = ?")
		args = append(args, string(opts.Language))
	}
	return conditions, args
}

func (idx *Index) searchWithFTS(query string, opts *Options) ([]Hit, error) {
	conditions, args := filters(opts, "m.")
	conditions = append(conditions, "files_fts MATCH ?")
	args = append(args, ftsQuery(query), opts.Limit)

	searchQuery := fmt.Sprintf(`
		SELECT
			m.workspace, m.file_id, m.path, m.language, m.updated_at,
			snippet(files_fts, 3, '<match>', '</match>', '...', 16) AS snippet
		FROM files_fts f
		JOIN files_meta m ON f.workspace = m.workspace AND f.file_id = m.file_id
		WHERE %s
		ORDER BY rank
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	rows, err := idx.db.Query(searchQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var lang string
		if err := rows.Scan(&h.Workspace, &h.FileID, &h.Path, &lang, &h.UpdatedAt, &h.Snippet); err != nil {
			return nil, err
		}
		h.Language = language.Language(lang)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (idx *Index) searchWithoutFTS(query string, opts *Options) ([]Hit, error) {
	conditions, args := filters(opts, "")
	pattern := "%" + strings.ReplaceAll(query, " ", "%") + "%"
	conditions = append(conditions, "(path LIKE ? OR content LIKE ?)")
	args = append(args, pattern, pattern, opts.Limit)

	searchQuery := fmt.Sprintf(`
		SELECT workspace, file_id, path, language, updated_at, content
		FROM files_meta
		WHERE %s
		ORDER BY path
		LIMIT ?
	`, strings.Join(conditions, " AND "))

	rows, err := idx.db.Query(searchQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var lang, content string
		if err := rows.Scan(&h.Workspace, &h.FileID, &h.Path, &lang, &h.UpdatedAt, &content); err != nil {
			return nil, err
		}
		h.Language = language.Language(lang)
		h.Snippet = snippet(content, strings.Fields(query)[0])
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ftsQuery quotes each term so punctuation in user input is not parsed as
// FTS5 query syntax.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// snippet marks the first case-insensitive occurrence of term in content,
// keeping a few words of context, in the same shape FTS5's snippet() returns.
func snippet(content, term string) string {
	const context = 40
	at := strings.Index(content, term)
	if lower := strings.ToLower(content); at < 0 && len(lower) == len(content) {
		at = strings.Index(lower, strings.ToLower(term))
	}
	if at < 0 {
		if len(content) > 2*context {
			return content[:runeEnd(content, 2*context)] + "..."
		}
		return content
	}
	start, end := at-context, at+len(term)+context
	prefix, suffix := "...", "..."
	if start <= 0 {
		start, prefix = 0, ""
	}
	if end >= len(content) {
		end, suffix = len(content), ""
	}
	start, end = runeStart(content, start), runeEnd(content, end)
	return prefix + content[start:at] + "<match>" + content[at:at+len(term)] + "</match>" + content[at+len(term):end] + suffix
}

// runeStart moves i back to the first byte of the rune containing it.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// runeEnd moves i forward past the rune containing it.
func runeEnd(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

// Close closes the index
func (idx *Index) Close() error {
	return idx.db.Close()
}
