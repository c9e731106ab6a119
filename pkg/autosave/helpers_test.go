package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/store"
	"github.com/mattsolo1/grove-playground/pkg/tree"
)

var epoch = time.Date(2025, 1, 11, 10, 0, 0, 0, time.UTC)

// fakeClock fires timers only when advanced. With async set, due callbacks
// run on their own goroutines like time.AfterFunc; otherwise they run inline
// before Advance returns.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	async  bool
}

type fakeTimer struct {
	clock  *fakeClock
	when   time.Time
	f      func()
	active bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), f: f, active: true}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.when = t.clock.now.Add(d)
	t.active = true
	return was
}

// Advance moves time forward by d, firing due timers in order with the clock
// set to each timer's deadline.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.active && !t.when.After(target) && (next == nil || t.when.Before(next.when)) {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.when
		next.active = false
		c.mu.Unlock()
		if c.async {
			go next.f()
		} else {
			next.f()
		}
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// recordingStore wraps a store and records every successful write.
type recordingStore struct {
	store.Store
	clock *fakeClock

	mu       sync.Mutex
	writes   []write
	writeErr error
	readErr  error
}

type write struct {
	at  time.Time
	key string
	doc *store.Document
}

func (r *recordingStore) Read(ctx context.Context, key string) (*store.Document, error) {
	r.mu.Lock()
	err := r.readErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.Store.Read(ctx, key)
}

func (r *recordingStore) Write(ctx context.Context, key string, doc *store.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.writes = append(r.writes, write{at: r.clock.Now(), key: key, doc: doc})
	return r.Store.Write(ctx, key, doc)
}

func (r *recordingStore) Writes() []write {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]write(nil), r.writes...)
}

var errUnavailable = errors.New("store unavailable")

// seedTree is R: [File 1 "a", Folder 2: [File 3 "b"]].
func seedTree() []tree.Item {
	return []tree.Item{
		{ID: "1", Name: "main.go", Type: tree.TypeFile, Content: "a", UpdatedAt: epoch},
		{ID: "2", Name: "src", Type: tree.TypeFolder, Items: []tree.Item{
			{ID: "3", Name: "util.go", Type: tree.TypeFile, Content: "b", UpdatedAt: epoch},
		}},
	}
}

func seededMemory(t *testing.T, keys ...string) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	for _, key := range keys {
		require.NoError(t, m.Write(context.Background(), key, &store.Document{Items: seedTree()}))
	}
	return m
}

func contentOf(t *testing.T, s store.Store, key, fileID string) string {
	t.Helper()
	doc, err := s.Read(context.Background(), key)
	require.NoError(t, err)
	item, ok := tree.Locate(doc.Items, fileID)
	require.True(t, ok, "file %s not in %s", fileID, key)
	return item.Content
}

func quietLogger() Option {
	return WithLogger(logging.Discard())
}
