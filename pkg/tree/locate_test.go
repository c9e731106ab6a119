package tree

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 1, 11, 10, 0, 0, 0, time.UTC)

func file(id, content string) Item {
	return Item{ID: id, Name: "file-" + id + ".txt", Type: TypeFile, Content: content, UpdatedAt: fixedTime}
}

func folder(id string, children ...Item) Item {
	return Item{ID: id, Name: "folder-" + id, Type: TypeFolder, Items: children}
}

// sampleTree is R: [File 1 "a", Folder 2: [File 3 "b"]].
func sampleTree() []Item {
	return []Item{
		file("1", "a"),
		folder("2", file("3", "b")),
	}
}

// deepTree nests a file `depth` folders deep.
func deepTree(depth int) []Item {
	leaf := file("leaf", "deep")
	for i := depth; i > 0; i-- {
		leaf = folder(fmt.Sprintf("f%d", i), file(fmt.Sprintf("s%d", i), ""), leaf)
	}
	return []Item{leaf}
}

func TestLocate(t *testing.T) {
	items := []Item{
		file("a", "1"),
		folder("b",
			file("c", "2"),
			folder("d",
				file("e", "3"),
				folder("f"),
			),
		),
		file("g", "4"),
	}

	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		t.Run(id, func(t *testing.T) {
			got, ok := Locate(items, id)
			require.True(t, ok)
			assert.Equal(t, id, got.ID)
		})
	}

	_, ok := Locate(items, "missing")
	assert.False(t, ok)

	_, ok = Locate(nil, "a")
	assert.False(t, ok)
}

func TestLocateDeep(t *testing.T) {
	items := deepTree(50)

	got, ok := Locate(items, "leaf")
	require.True(t, ok)
	assert.Equal(t, "deep", got.Content)
}

func TestLocateFirstMatchWins(t *testing.T) {
	// Duplicate ids violate the invariant; Locate still resolves
	// deterministically in traversal order and Validate flags the fault.
	items := []Item{
		folder("p", file("dup", "nested")),
		file("dup", "top"),
	}

	got, ok := Locate(items, "dup")
	require.True(t, ok)
	assert.Equal(t, "nested", got.Content)
	assert.ErrorIs(t, Validate(items), ErrDuplicateID)
}

func TestReplace(t *testing.T) {
	items := sampleTree()
	at := fixedTime.Add(time.Hour)

	updated := Replace(items, "3", WithContent("bb", at))

	leaf, ok := Locate(updated, "3")
	require.True(t, ok)
	assert.Equal(t, "bb", leaf.Content)
	assert.True(t, at.Equal(leaf.UpdatedAt))

	// Item 1 and the root ordering are untouched.
	require.Len(t, updated, 2)
	assert.Equal(t, "1", updated[0].ID)
	assert.Equal(t, "2", updated[1].ID)
	assert.Equal(t, "a", updated[0].Content)
	require.Len(t, updated[1].Items, 1)

	// The input was not mutated.
	orig, _ := Locate(items, "3")
	assert.Equal(t, "b", orig.Content)
}

func TestReplacePreservesSiblingOrder(t *testing.T) {
	items := []Item{
		folder("root",
			file("x", "1"),
			file("y", "2"),
			folder("z", file("z1", ""), file("z2", ""), file("z3", "")),
			file("w", "3"),
		),
		folder("other", file("o1", "")),
	}

	updated := Replace(items, "z2", WithContent("changed", fixedTime))

	var before, after []string
	_ = Walk(items, func(p string, it Item) error {
		before = append(before, it.ID)
		return nil
	})
	_ = Walk(updated, func(p string, it Item) error {
		after = append(after, it.ID)
		return nil
	})
	assert.Equal(t, before, after)

	// Unrelated branches are shared, not copied.
	assert.Same(t, &items[1].Items[0], &updated[1].Items[0])
}

func TestReplaceAbsentIDIsNoop(t *testing.T) {
	items := sampleTree()

	updated := Replace(items, "999", WithContent("x", fixedTime))

	assert.True(t, Equal(items, updated))
	assert.Same(t, &items[0], &updated[0])
}

func TestReplaceIdempotent(t *testing.T) {
	items := sampleTree()
	set := WithContent("x", fixedTime)

	once := Replace(items, "3", set)
	twice := Replace(once, "3", set)

	assert.True(t, Equal(once, twice))
}

func TestReplaceDeep(t *testing.T) {
	items := deepTree(30)

	updated := Replace(items, "leaf", WithContent("new", fixedTime))

	got, ok := Locate(updated, "leaf")
	require.True(t, ok)
	assert.Equal(t, "new", got.Content)
	orig, _ := Locate(items, "leaf")
	assert.Equal(t, "deep", orig.Content)
}

func TestWithContentIgnoresFolders(t *testing.T) {
	items := sampleTree()

	updated := Replace(items, "2", WithContent("oops", fixedTime))

	assert.True(t, Equal(items, updated))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		wantErr error
	}{
		{
			name:  "valid",
			items: sampleTree(),
		},
		{
			name:    "duplicate across depths",
			items:   []Item{file("1", ""), folder("2", folder("3", file("1", "")))},
			wantErr: ErrDuplicateID,
		},
		{
			name:    "file with children",
			items:   []Item{{ID: "1", Name: "f", Type: TypeFile, Items: []Item{file("2", "")}}},
			wantErr: ErrInvalidItem,
		},
		{
			name:    "folder with content",
			items:   []Item{{ID: "1", Name: "d", Type: TypeFolder, Content: "x"}},
			wantErr: ErrInvalidItem,
		},
		{
			name:    "missing id",
			items:   []Item{{Name: "f", Type: TypeFile}},
			wantErr: ErrInvalidItem,
		},
		{
			name:    "unknown type",
			items:   []Item{{ID: "1", Name: "f", Type: "link"}},
			wantErr: ErrInvalidItem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.items)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDuplicateIDErrorPaths(t *testing.T) {
	items := []Item{file("1", ""), folder("2", file("1", ""))}

	err := Validate(items)

	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "1", dup.ID)
	assert.Equal(t, []string{"file-1.txt", "folder-2/file-1.txt"}, dup.Paths)
}

func TestPathOfAndFiles(t *testing.T) {
	items := sampleTree()

	p, ok := PathOf(items, "3")
	require.True(t, ok)
	assert.Equal(t, "folder-2/file-3.txt", p)

	_, ok = PathOf(items, "nope")
	assert.False(t, ok)

	files := Files(items)
	assert.Len(t, files, 2)
	assert.Equal(t, "b", files["folder-2/file-3.txt"].Content)
}
