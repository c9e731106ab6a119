package tree

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("item not found")
	ErrDuplicateID = errors.New("duplicate item id")
	ErrInvalidItem = errors.New("invalid item")
	ErrNotAFolder  = errors.New("item is not a folder")
	errStopWalk    = errors.New("stop walk")
)

// DuplicateIDError reports an id that occurs more than once in a tree. Trees
// with duplicate ids violate the uniqueness invariant and must not be merged
// into.
type DuplicateIDError struct {
	ID    string
	Paths []string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate item id %q at %s", e.ID, strings.Join(e.Paths, ", "))
}

func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}

// Locate walks the tree depth-first and returns the first item whose id
// matches.
func Locate(items []Item, id string) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
		if it.IsFolder() && len(it.Items) > 0 {
			if found, ok := Locate(it.Items, id); ok {
				return found, true
			}
		}
	}
	return Item{}, false
}

// Replace returns a tree identical to items except that the item with the
// given id is replaced by fn(item). Every folder on the path from the root to
// that item is rebuilt; all other subtrees are shared with the input. If id is
// absent the input is returned unchanged.
func Replace(items []Item, id string, fn func(Item) Item) []Item {
	out, ok := replace(items, id, fn)
	if !ok {
		return items
	}
	return out
}

func replace(items []Item, id string, fn func(Item) Item) ([]Item, bool) {
	for i, it := range items {
		if it.ID == id {
			out := make([]Item, len(items))
			copy(out, items)
			out[i] = fn(it)
			return out, true
		}
		if it.IsFolder() && len(it.Items) > 0 {
			children, ok := replace(it.Items, id, fn)
			if !ok {
				continue
			}
			out := make([]Item, len(items))
			copy(out, items)
			it.Items = children
			out[i] = it
			return out, true
		}
	}
	return nil, false
}

// Walk visits every item depth-first in display order. p is the slash-joined
// path of names from the root. Returning a non-nil error stops the walk and is
// returned from Walk.
func Walk(items []Item, fn func(p string, item Item) error) error {
	err := walk(items, "", fn)
	if errors.Is(err, errStopWalk) {
		return nil
	}
	return err
}

func walk(items []Item, prefix string, fn func(string, Item) error) error {
	for _, it := range items {
		p := path.Join(prefix, it.Name)
		if err := fn(p, it); err != nil {
			return err
		}
		if it.IsFolder() {
			if err := walk(it.Items, p, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// PathOf returns the display path of the item with the given id.
func PathOf(items []Item, id string) (string, bool) {
	var found string
	_ = Walk(items, func(p string, it Item) error {
		if it.ID == id {
			found = p
			return errStopWalk
		}
		return nil
	})
	return found, found != ""
}

// Files returns every file in the tree keyed by its display path.
func Files(items []Item) map[string]Item {
	files := make(map[string]Item)
	_ = Walk(items, func(p string, it Item) error {
		if it.IsFile() {
			files[p] = it
		}
		return nil
	})
	return files
}

// Validate checks the structural invariants of a tree: every id is non-empty
// and unique across all depths, files carry no children and folders carry no
// content.
func Validate(items []Item) error {
	seen := make(map[string]string)
	var dup *DuplicateIDError
	err := Walk(items, func(p string, it Item) error {
		if it.ID == "" {
			return fmt.Errorf("%w: %s has no id", ErrInvalidItem, p)
		}
		switch it.Type {
		case TypeFile:
			if len(it.Items) > 0 {
				return fmt.Errorf("%w: file %s has children", ErrInvalidItem, p)
			}
		case TypeFolder:
			if it.Content != "" {
				return fmt.Errorf("%w: folder %s has content", ErrInvalidItem, p)
			}
		default:
			return fmt.Errorf("%w: %s has unknown type %q", ErrInvalidItem, p, it.Type)
		}
		if first, ok := seen[it.ID]; ok {
			if dup == nil {
				dup = &DuplicateIDError{ID: it.ID, Paths: []string{first}}
			}
			if dup.ID == it.ID {
				dup.Paths = append(dup.Paths, p)
			}
			return nil
		}
		seen[it.ID] = p
		return nil
	})
	if err != nil {
		return err
	}
	if dup != nil {
		return dup
	}
	return nil
}

// Equal reports whether two trees are structurally identical, including the
// order of every folder's children.
func Equal(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Name != y.Name || x.Type != y.Type || x.Content != y.Content {
			return false
		}
		if !x.UpdatedAt.Equal(y.UpdatedAt) {
			return false
		}
		if !Equal(x.Items, y.Items) {
			return false
		}
	}
	return true
}
