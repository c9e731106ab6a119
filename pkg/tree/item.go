package tree

import (
	"time"

	"github.com/google/uuid"
)

// ItemType categorizes the nodes of a workspace tree.
type ItemType string

const (
	TypeFile   ItemType = "file"
	TypeFolder ItemType = "folder"
)

// Item is a single node in a workspace tree. It is either a file (Content,
// UpdatedAt) or a folder (Items); Type tells which.
//
// Items are treated as immutable values: the functions in this package never
// modify an Item or its Items slice in place, they return rebuilt copies.
type Item struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Type      ItemType  `json:"type" yaml:"type"`
	Content   string    `json:"content,omitempty" yaml:"content,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`

	// Hierarchy
	Items []Item `json:"items,omitempty" yaml:"items,omitempty"`
}

// NewFile creates a file item with a fresh id.
func NewFile(name, content string) Item {
	return Item{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      TypeFile,
		Content:   content,
		UpdatedAt: time.Now().UTC(),
	}
}

// NewFolder creates an empty folder item with a fresh id.
func NewFolder(name string, children ...Item) Item {
	return Item{
		ID:    uuid.New().String(),
		Name:  name,
		Type:  TypeFolder,
		Items: children,
	}
}

func (i Item) IsFolder() bool { return i.Type == TypeFolder }

func (i Item) IsFile() bool { return i.Type == TypeFile }

// WithContent returns an updater that sets a file's content and modification
// time. Folders are returned unchanged.
func WithContent(content string, at time.Time) func(Item) Item {
	return func(it Item) Item {
		if it.IsFolder() {
			return it
		}
		it.Content = content
		it.UpdatedAt = at
		return it
	}
}

// WithName returns an updater that renames an item.
func WithName(name string) func(Item) Item {
	return func(it Item) Item {
		it.Name = name
		return it
	}
}
