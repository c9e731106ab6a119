// Package workspace tracks the workspaces a user has opened. The tree of each
// workspace lives in the document store; the registry only remembers keys.
package workspace

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// DefaultKey is the workspace used when none has been selected.
const DefaultKey = "default"

var ErrNotFound = errors.New("workspace not found")

// Workspace represents a registered workspace
type Workspace struct {
	Key       string         `yaml:"key" json:"key"`
	Title     string         `yaml:"title,omitempty" json:"title,omitempty"`
	Settings  map[string]any `yaml:"settings,omitempty" json:"settings,omitempty"`
	CreatedAt time.Time      `yaml:"created_at" json:"created_at"`
	LastUsed  time.Time      `yaml:"last_used" json:"last_used"`
}

// DisplayName returns the title, or the key when no title is set.
func (w *Workspace) DisplayName() string {
	if w.Title != "" {
		return w.Title
	}
	return w.Key
}

// Validate checks that the workspace key can be used as a store key.
func (w *Workspace) Validate() error {
	return ValidateKey(w.Key)
}

// ValidateKey rejects empty keys and keys containing whitespace or path
// separators.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("workspace key cannot be empty")
	}
	if strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("workspace key %q cannot contain path separators", key)
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return fmt.Errorf("workspace key %q cannot contain whitespace", key)
	}
	return nil
}
