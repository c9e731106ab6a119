// Package buffer holds the in-memory working content of open files. It is the
// source the editor renders from and never waits on persistence.
package buffer

import (
	"sort"
	"sync"
)

// Status is the persistence state of a buffered file.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusSaved   Status = "saved"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

type entry struct {
	content  string
	revision uint64
	status   Status
}

// Buffer maps file ids to their latest edited content.
type Buffer struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func New() *Buffer {
	return &Buffer{entries: make(map[string]*entry)}
}

// Open seeds an entry for a file that is being opened for editing. An existing
// entry wins: once a file is buffered its content only changes through Set.
// Returns true if a new entry was created.
func (b *Buffer) Open(fileID, content string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[fileID]; ok {
		return false
	}
	b.entries[fileID] = &entry{content: content, status: StatusSaved}
	return true
}

// Set overwrites the content of a file and returns the new revision. It always
// succeeds.
func (b *Buffer) Set(fileID, content string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[fileID]
	if !ok {
		e = &entry{}
		b.entries[fileID] = e
	}
	e.content = content
	e.revision++
	e.status = StatusPending
	return e.revision
}

// Get returns the last content set for fileID, or "" if the file was never
// buffered.
func (b *Buffer) Get(fileID string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.entries[fileID]; ok {
		return e.content
	}
	return ""
}

// Has reports whether fileID is buffered.
func (b *Buffer) Has(fileID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.entries[fileID]
	return ok
}

// Revision returns the current revision of fileID (0 if never edited).
func (b *Buffer) Revision(fileID string) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.entries[fileID]; ok {
		return e.revision
	}
	return 0
}

func (b *Buffer) Status(fileID string) Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.entries[fileID]; ok {
		return e.status
	}
	return StatusUnknown
}

// MarkSaved records that revision was persisted. Marks for revisions older
// than the current one are ignored since a newer edit is still pending.
func (b *Buffer) MarkSaved(fileID string, revision uint64) {
	b.mark(fileID, revision, StatusSaved)
}

// MarkFailed records that persisting revision failed.
func (b *Buffer) MarkFailed(fileID string, revision uint64) {
	b.mark(fileID, revision, StatusFailed)
}

func (b *Buffer) mark(fileID string, revision uint64, status Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[fileID]
	if !ok || e.revision != revision {
		return
	}
	e.status = status
}

// Evict drops a file's entry.
func (b *Buffer) Evict(fileID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, fileID)
}

// Reset drops every entry.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]*entry)
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// IDs returns the buffered file ids in sorted order.
func (b *Buffer) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.entries))
	for id := range b.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
