package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-playground/pkg/autosave"
	"github.com/mattsolo1/grove-playground/pkg/language"
	"github.com/mattsolo1/grove-playground/pkg/search"
	"github.com/mattsolo1/grove-playground/pkg/store"
	"github.com/mattsolo1/grove-playground/pkg/tree"
	"github.com/mattsolo1/grove-playground/pkg/workspace"
)

// ListWorkspaces returns the registered workspaces, most recently used first.
// Documents found in the store but missing from the registry are registered
// first, so workspaces created by other clients show up.
func (s *Service) ListWorkspaces(ctx context.Context) ([]*workspace.Workspace, error) {
	if l, ok := s.Store.(store.Lister); ok {
		keys, err := l.Keys(ctx)
		if err != nil {
			s.log.WithError(err).Warn("Failed to list stored workspaces")
		}
		for _, key := range keys {
			added, err := s.Registry.Ensure(key)
			if err != nil {
				s.log.WithError(err).WithField("workspace", key).Debug("Skipping stored document")
				continue
			}
			if added {
				s.log.WithField("workspace", key).Info("Registered stored workspace")
			}
		}
	}
	return s.Registry.List()
}

// AddWorkspace registers a workspace and creates its document if missing.
func (s *Service) AddWorkspace(ctx context.Context, key, title string) (*workspace.Workspace, error) {
	w := &workspace.Workspace{Key: key, Title: title}
	if err := s.Registry.Add(w); err != nil {
		return nil, fmt.Errorf("add workspace %s: %w", key, err)
	}
	if _, err := s.ensureDocument(ctx, key); err != nil {
		return nil, err
	}
	return s.Registry.Get(key)
}

// RemoveWorkspace forgets a workspace. Its document stays in the store; the
// active workspace cannot be removed.
func (s *Service) RemoveWorkspace(key string) error {
	if key == s.Active() {
		return fmt.Errorf("workspace %s is active", key)
	}
	if err := s.Registry.Remove(key); err != nil {
		return fmt.Errorf("remove workspace %s: %w", key, err)
	}
	return nil
}

// Export is the YAML form of a workspace.
type Export struct {
	Workspace  string      `yaml:"workspace"`
	ExportedAt time.Time   `yaml:"exported_at"`
	Items      []tree.Item `yaml:"items"`
}

// ExportWorkspace writes the active workspace's stored tree as YAML. Pending
// edits are flushed first.
func (s *Service) ExportWorkspace(ctx context.Context, w io.Writer) error {
	s.Flush(ctx)
	key, doc, err := s.Document(ctx)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Export{Workspace: key, ExportedAt: time.Now().UTC(), Items: doc.Items}); err != nil {
		return fmt.Errorf("encode workspace %s: %w", key, err)
	}
	return enc.Close()
}

// ImportWorkspace replaces the document of key with the tree read from r. If
// key is empty the workspace named in the export is used. Importing into the
// active workspace discards its open buffers.
func (s *Service) ImportWorkspace(ctx context.Context, r io.Reader, key string) (string, error) {
	var exp Export
	if err := yaml.NewDecoder(r).Decode(&exp); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("decode import: %w", err)
	}
	if key == "" {
		key = exp.Workspace
	}
	if err := workspace.ValidateKey(key); err != nil {
		return "", err
	}
	if err := tree.Validate(exp.Items); err != nil {
		return "", fmt.Errorf("import %s: %w", key, err)
	}

	// Importing into the active workspace starts a new session first: open
	// buffers are dropped and edits made before the import are committed to
	// the old tree, which the import then replaces. Edits arriving from here
	// on belong to the new session and land in the imported tree.
	s.mu.Lock()
	var old *autosave.Scheduler
	if key == s.active && s.scheduler != nil {
		old = s.swap(key)
	}
	s.mu.Unlock()
	if old != nil {
		s.retire(ctx, old)
	}

	doc := &store.Document{Items: exp.Items, UpdatedAt: time.Now().UTC()}
	if err := s.Store.Write(ctx, key, doc); err != nil {
		return "", fmt.Errorf("write workspace %s: %w", key, err)
	}
	if _, err := s.Registry.Touch(key); err != nil {
		s.log.WithError(err).WithField("workspace", key).Warn("Failed to update workspace registry")
	}
	if err := s.Index.Reindex(key, exp.Items); err != nil {
		s.log.WithError(err).WithField("workspace", key).Warn("Failed to index workspace")
	}
	return key, nil
}

// Search looks up files of the active workspace by content.
func (s *Service) Search(query string, lang language.Language, limit int) ([]search.Hit, error) {
	key, err := s.activeKey()
	if err != nil {
		return nil, err
	}
	return s.Index.Search(query, &search.Options{Workspace: key, Language: lang, Limit: limit})
}
