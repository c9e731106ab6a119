package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mattsolo1/grove-playground/pkg/buffer"
	"github.com/mattsolo1/grove-playground/pkg/language"
	"github.com/mattsolo1/grove-playground/pkg/store"
	"github.com/mattsolo1/grove-playground/pkg/tree"
)

// File is what the editor shows for a single file.
type File struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Path      string            `json:"path"`
	Language  language.Language `json:"language"`
	Content   string            `json:"content"`
	Status    buffer.Status     `json:"status"`
	Revision  uint64            `json:"revision"`
	Open      bool              `json:"open"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

// lookup finds a file in the active workspace's stored tree.
func (s *Service) lookup(ctx context.Context, fileID string) (tree.Item, string, error) {
	_, doc, err := s.Document(ctx)
	if err != nil {
		return tree.Item{}, "", err
	}
	item, ok := tree.Locate(doc.Items, fileID)
	if !ok {
		return tree.Item{}, "", fmt.Errorf("file %s: %w", fileID, tree.ErrNotFound)
	}
	if !item.IsFile() {
		return tree.Item{}, "", fmt.Errorf("%s: %w", fileID, ErrNotAFile)
	}
	p, _ := tree.PathOf(doc.Items, fileID)
	return item, p, nil
}

// OpenFile seeds the buffer for a file from the stored tree. A file that is
// already open keeps its buffered content.
func (s *Service) OpenFile(ctx context.Context, fileID string) (*File, error) {
	item, p, err := s.lookup(ctx, fileID)
	if err != nil {
		return nil, err
	}
	s.Buffer.Open(fileID, item.Content)
	return s.view(item, p), nil
}

// GetFile returns a file with its buffered content when open, or its stored
// content otherwise.
func (s *Service) GetFile(ctx context.Context, fileID string) (*File, error) {
	item, p, err := s.lookup(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return s.view(item, p), nil
}

func (s *Service) view(item tree.Item, p string) *File {
	f := &File{
		ID:        item.ID,
		Name:      item.Name,
		Path:      p,
		Language:  language.ExtensionOf(item.Name),
		Content:   item.Content,
		Status:    buffer.StatusSaved,
		UpdatedAt: item.UpdatedAt,
	}
	if s.Buffer.Has(item.ID) {
		f.Open = true
		f.Content = s.Buffer.Get(item.ID)
		f.Status = s.Buffer.Status(item.ID)
		f.Revision = s.Buffer.Revision(item.ID)
	}
	return f
}

// Edit records new content for a file. The buffer is updated synchronously
// and persistence is left to the scheduler; Edit never touches the store.
// The buffer entry and the scheduler it is handed to always belong to the
// same workspace session.
func (s *Service) Edit(fileID, content string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.scheduler == nil {
		return 0, ErrNoWorkspace
	}

	revision := s.Buffer.Set(fileID, content)
	s.scheduler.Notify(fileID, content, revision)
	return revision, nil
}

// CloseFile flushes pending edits and drops the file's buffer. A file whose
// last save failed stays buffered so its content is not lost; the returned
// bool reports whether the buffer was dropped.
func (s *Service) CloseFile(ctx context.Context, fileID string) (bool, error) {
	if _, err := s.activeKey(); err != nil {
		return false, err
	}
	if !s.Buffer.Has(fileID) {
		return true, nil
	}
	s.Flush(ctx)
	if st := s.Buffer.Status(fileID); st != buffer.StatusSaved {
		return false, fmt.Errorf("file %s not saved (%s)", fileID, st)
	}
	s.Buffer.Evict(fileID)
	return true, nil
}

// mutate applies a structural change to the active workspace's tree. Pending
// edits are flushed first so the read below sees them.
func (s *Service) mutate(ctx context.Context, fn func([]tree.Item) ([]tree.Item, error)) (string, *store.Document, error) {
	s.Flush(ctx)

	key, doc, err := s.Document(ctx)
	if err != nil {
		return "", nil, err
	}
	items, err := fn(doc.Items)
	if err != nil {
		return "", nil, err
	}
	doc.Items = items
	doc.UpdatedAt = time.Now().UTC()
	if err := s.Store.Write(ctx, key, doc); err != nil {
		return "", nil, fmt.Errorf("write workspace %s: %w", key, err)
	}
	return key, doc, nil
}

// CreateFile adds a file under parentID ("" for the root).
func (s *Service) CreateFile(ctx context.Context, parentID, name, content string) (tree.Item, error) {
	item := tree.NewFile(name, content)
	key, doc, err := s.mutate(ctx, func(items []tree.Item) ([]tree.Item, error) {
		return tree.Insert(items, parentID, item)
	})
	if err != nil {
		return tree.Item{}, fmt.Errorf("create file %s: %w", name, err)
	}
	p, _ := tree.PathOf(doc.Items, item.ID)
	if err := s.Index.IndexFile(key, item.ID, p, content, item.UpdatedAt); err != nil {
		s.log.WithError(err).WithField("file_id", item.ID).Warn("Failed to index file")
	}
	return item, nil
}

// CreateFolder adds an empty folder under parentID ("" for the root).
func (s *Service) CreateFolder(ctx context.Context, parentID, name string) (tree.Item, error) {
	item := tree.NewFolder(name)
	_, _, err := s.mutate(ctx, func(items []tree.Item) ([]tree.Item, error) {
		return tree.Insert(items, parentID, item)
	})
	if err != nil {
		return tree.Item{}, fmt.Errorf("create folder %s: %w", name, err)
	}
	return item, nil
}

// Delete removes an item and everything below it. Buffers of removed files
// are dropped.
func (s *Service) Delete(ctx context.Context, id string) error {
	var removed tree.Item
	key, _, err := s.mutate(ctx, func(items []tree.Item) ([]tree.Item, error) {
		item, ok := tree.Locate(items, id)
		if !ok {
			return nil, fmt.Errorf("%s: %w", id, tree.ErrNotFound)
		}
		removed = item
		out, _ := tree.Remove(items, id)
		return out, nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	for _, it := range tree.Files([]tree.Item{removed}) {
		s.Buffer.Evict(it.ID)
		if err := s.Index.RemoveFile(key, it.ID); err != nil {
			s.log.WithError(err).WithField("file_id", it.ID).Warn("Failed to remove file from index")
		}
	}
	return nil
}

// Rename changes an item's name.
func (s *Service) Rename(ctx context.Context, id, name string) error {
	key, doc, err := s.mutate(ctx, func(items []tree.Item) ([]tree.Item, error) {
		return tree.Rename(items, id, name)
	})
	if err != nil {
		return fmt.Errorf("rename %s: %w", id, err)
	}
	if err := s.Index.Reindex(key, doc.Items); err != nil {
		s.log.WithError(err).WithField("workspace", key).Warn("Failed to index workspace")
	}
	return nil
}
