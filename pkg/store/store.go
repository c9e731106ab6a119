// Package store defines the whole-document contract the autosave scheduler
// persists workspaces through, and the backends that implement it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattsolo1/grove-playground/pkg/tree"
)

var (
	// ErrNotFound is returned by Read when no document exists for a key.
	ErrNotFound = errors.New("document not found")
	// ErrVersionConflict is returned by WriteIfVersion when the stored document
	// changed since it was read.
	ErrVersionConflict = errors.New("document version conflict")
)

// Document is the persisted form of a workspace: the ordered items of its root
// folder.
type Document struct {
	Items     []tree.Item `json:"items"`
	UpdatedAt time.Time   `json:"updatedAt,omitempty"`
}

// Store reads and writes whole workspace documents. There are no partial or
// field-level writes.
type Store interface {
	Read(ctx context.Context, key string) (*Document, error)
	Write(ctx context.Context, key string, doc *Document) error
	Close() error
}

// Versioned is implemented by stores that can detect concurrent writes. The
// version returned by ReadVersion is 0 for an absent document.
type Versioned interface {
	Store
	ReadVersion(ctx context.Context, key string) (*Document, int64, error)
	WriteIfVersion(ctx context.Context, key string, doc *Document, version int64) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

// ConflictError describes a rejected conditional write.
type ConflictError struct {
	Key      string
	Expected int64
	Current  int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("document %s: expected version %d, found %d", e.Key, e.Expected, e.Current)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

func encode(doc *Document) ([]byte, error) {
	if doc == nil {
		doc = &Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("workspace key cannot be empty")
	}
	return nil
}
