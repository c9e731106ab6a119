package store

import (
	"context"
	"sort"
	"sync"
)

type memoryRecord struct {
	data    []byte
	version int64
}

// Memory is an in-process Versioned store. Documents are held encoded so that
// callers never share slices with the stored copy.
type Memory struct {
	mu   sync.Mutex
	docs map[string]memoryRecord
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]memoryRecord)}
}

func (m *Memory) Read(ctx context.Context, key string) (*Document, error) {
	doc, _, err := m.ReadVersion(ctx, key)
	return doc, err
}

func (m *Memory) ReadVersion(ctx context.Context, key string) (*Document, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	rec, ok := m.docs[key]
	m.mu.Unlock()
	if !ok {
		return nil, 0, ErrNotFound
	}
	doc, err := decode(rec.data)
	if err != nil {
		return nil, 0, err
	}
	return doc, rec.version, nil
}

func (m *Memory) Write(ctx context.Context, key string, doc *Document) error {
	return m.write(ctx, key, doc, -1)
}

func (m *Memory) WriteIfVersion(ctx context.Context, key string, doc *Document, version int64) error {
	return m.write(ctx, key, doc, version)
}

func (m *Memory) write(ctx context.Context, key string, doc *Document, expected int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validKey(key); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.docs[key].version
	if expected >= 0 && current != expected {
		return &ConflictError{Key: key, Expected: expected, Current: current}
	}
	m.docs[key] = memoryRecord{data: data, version: current + 1}
	return nil
}

func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Close() error { return nil }
