package tree

import "fmt"

// Insert appends item to the folder identified by parentID, or to the root
// when parentID is empty. The item's id must not already exist in the tree.
func Insert(items []Item, parentID string, item Item) ([]Item, error) {
	if item.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if _, exists := Locate(items, item.ID); exists {
		return nil, fmt.Errorf("insert %s: %w", item.ID, ErrDuplicateID)
	}
	if parentID == "" {
		out := make([]Item, len(items), len(items)+1)
		copy(out, items)
		return append(out, item), nil
	}

	parent, ok := Locate(items, parentID)
	if !ok {
		return nil, fmt.Errorf("insert into %s: %w", parentID, ErrNotFound)
	}
	if !parent.IsFolder() {
		return nil, fmt.Errorf("insert into %s: %w", parentID, ErrNotAFolder)
	}
	return Replace(items, parentID, func(folder Item) Item {
		children := make([]Item, len(folder.Items), len(folder.Items)+1)
		copy(children, folder.Items)
		folder.Items = append(children, item)
		return folder
	}), nil
}

// Remove returns the tree without the item identified by id (and its whole
// subtree, for folders). The bool reports whether anything was removed.
func Remove(items []Item, id string) ([]Item, bool) {
	for i, it := range items {
		if it.ID == id {
			out := make([]Item, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
		if it.IsFolder() && len(it.Items) > 0 {
			children, ok := Remove(it.Items, id)
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
	return items, false
}

// Rename changes the name of the item identified by id.
func Rename(items []Item, id, name string) ([]Item, error) {
	if _, ok := Locate(items, id); !ok {
		return nil, fmt.Errorf("rename %s: %w", id, ErrNotFound)
	}
	return Replace(items, id, WithName(name)), nil
}
