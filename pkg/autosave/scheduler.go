// Package autosave coalesces editor changes into debounced whole-document
// writes.
//
// Each change to a file (re)arms that file's timer. When the timer fires
// after a quiet window the scheduler reads the workspace document, replaces
// the file's content in the tree and writes the whole document back. A
// Scheduler is bound to one workspace key for its whole life.
//
// Cycles for different files of the same workspace are not serialized. Two
// overlapping cycles can therefore lose an update: if A reads, B reads, B
// writes and then A writes, A's document was built from a snapshot without
// B's change and silently reverts it. WithOptimisticConcurrency closes that
// window on stores implementing store.Versioned.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/store"
	"github.com/mattsolo1/grove-playground/pkg/tree"
)

type fileState struct {
	content  string
	revision uint64
	timer    Timer
	queued   bool
	running  bool
	done     chan struct{}
}

// Scheduler debounces edits per file and commits them to one workspace
// document.
type Scheduler struct {
	store        store.Store
	key          string
	window       time.Duration
	writeTimeout time.Duration
	clock        Clock
	log          *logrus.Entry
	onCommit     func(Result)
	status       StatusSink
	optimistic   bool
	maxAttempts  int

	mu     sync.Mutex
	files  map[string]*fileState
	closed bool
	report Report
}

// New creates a scheduler whose writes all target workspaceKey.
func New(st store.Store, workspaceKey string, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:        st,
		key:          workspaceKey,
		window:       DefaultWindow,
		writeTimeout: DefaultWriteTimeout,
		clock:        realClock{},
		maxAttempts:  1,
		files:        make(map[string]*fileState),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.NewLogger("grove-playground.autosave")
	}
	s.log = s.log.WithField("workspace", workspaceKey)
	s.report.Workspace = workspaceKey
	return s
}

// Workspace returns the key this scheduler writes to.
func (s *Scheduler) Workspace() string { return s.key }

// Window returns the quiescence window.
func (s *Scheduler) Window() time.Duration { return s.window }

// Notify records the latest content of a file and restarts its quiet window.
// Only the last content seen before the window elapses is committed.
func (s *Scheduler) Notify(fileID, content string, revision uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	f, ok := s.files[fileID]
	if !ok {
		f = &fileState{}
		s.files[fileID] = f
	}
	f.content = content
	f.revision = revision
	f.queued = true

	if f.timer == nil {
		f.timer = s.clock.AfterFunc(s.window, func() { s.fire(fileID) })
		return
	}
	f.timer.Reset(s.window)
}

// fire runs when a file's window elapses.
func (s *Scheduler) fire(fileID string) {
	s.mu.Lock()
	f, ok := s.files[fileID]
	if !ok || s.closed || !f.queued {
		s.mu.Unlock()
		return
	}
	if f.running {
		// The previous cycle for this file is still in flight; try again
		// once it has had time to finish.
		f.timer.Reset(s.window)
		s.mu.Unlock()
		return
	}
	content, revision := s.begin(f)
	s.mu.Unlock()

	res := s.commit(context.Background(), fileID, content, revision)
	s.finish(fileID, res)
}

// begin marks a file's cycle as running. Callers hold s.mu.
func (s *Scheduler) begin(f *fileState) (string, uint64) {
	f.queued = false
	f.running = true
	f.done = make(chan struct{})
	return f.content, f.revision
}

func (s *Scheduler) finish(fileID string, res Result) {
	s.mu.Lock()
	if f, ok := s.files[fileID]; ok {
		f.running = false
		close(f.done)
		f.done = nil
		switch {
		case f.queued && !s.closed:
			// Edited while committing: give the new content its own window.
			f.timer.Reset(s.window)
		case !f.queued:
			delete(s.files, fileID)
		}
	}
	switch res.Outcome {
	case OutcomeCommitted:
		s.report.Committed++
	case OutcomeSkipped:
		s.report.Skipped++
	case OutcomeFailed:
		s.report.Failed++
	}
	if res.Attempts > 1 {
		s.report.Conflicts += res.Attempts - 1
	}
	s.mu.Unlock()

	if s.status != nil {
		switch res.Outcome {
		case OutcomeCommitted:
			s.status.MarkSaved(fileID, res.Revision)
		case OutcomeFailed:
			s.status.MarkFailed(fileID, res.Revision)
		}
	}
	if s.onCommit != nil {
		s.onCommit(res)
	}
}

// commit runs one read-merge-write cycle. Errors never escape: they are
// logged and reported in the Result.
func (s *Scheduler) commit(ctx context.Context, fileID, content string, revision uint64) Result {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()

	res := Result{
		Workspace: s.key,
		FileID:    fileID,
		Revision:  revision,
		Content:   content,
	}
	log := s.log.WithFields(logrus.Fields{"file_id": fileID, "revision": revision})

	if v, ok := s.store.(store.Versioned); ok && s.optimistic {
		s.commitVersioned(ctx, v, &res, log)
	} else {
		s.commitBlind(ctx, &res)
	}
	res.At = s.clock.Now()

	switch res.Outcome {
	case OutcomeCommitted:
		log.WithField("attempts", res.Attempts).Info("File saved")
	case OutcomeSkipped:
		log.WithField("reason", res.Reason).Debug("Save skipped")
	case OutcomeFailed:
		log.WithError(res.Err).WithField("attempts", res.Attempts).Error("Error saving file")
	}
	return res
}

func (s *Scheduler) commitBlind(ctx context.Context, res *Result) {
	res.Attempts = 1
	doc, err := s.store.Read(ctx, s.key)
	if !s.merged(res, doc, err) {
		return
	}
	if err := s.store.Write(ctx, s.key, doc); err != nil {
		res.fail(fmt.Errorf("write workspace %s: %w", s.key, err))
		return
	}
	res.Outcome = OutcomeCommitted
}

func (s *Scheduler) commitVersioned(ctx context.Context, v store.Versioned, res *Result, log *logrus.Entry) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		res.Attempts = attempt
		doc, version, err := v.ReadVersion(ctx, s.key)
		if !s.merged(res, doc, err) {
			return
		}
		err = v.WriteIfVersion(ctx, s.key, doc, version)
		if err == nil {
			res.Outcome = OutcomeCommitted
			return
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			res.fail(fmt.Errorf("write workspace %s: %w", s.key, err))
			return
		}
		log.WithField("attempt", attempt).Debug("Workspace changed since read, retrying")
	}
	res.fail(fmt.Errorf("write workspace %s after %d attempts: %w", s.key, s.maxAttempts, store.ErrVersionConflict))
}

// merged applies the result's content to doc in place of the read snapshot's
// items. It returns false when the cycle must stop, with res already
// describing why.
func (s *Scheduler) merged(res *Result, doc *store.Document, readErr error) bool {
	if errors.Is(readErr, store.ErrNotFound) {
		res.Outcome = OutcomeSkipped
		res.Reason = "workspace document does not exist"
		return false
	}
	if readErr != nil {
		res.fail(fmt.Errorf("read workspace %s: %w", s.key, readErr))
		return false
	}
	if err := tree.Validate(doc.Items); err != nil {
		res.fail(fmt.Errorf("workspace %s: %w", s.key, err))
		return false
	}
	if _, ok := tree.Locate(doc.Items, res.FileID); !ok {
		res.Outcome = OutcomeSkipped
		res.Reason = "file no longer exists"
		return false
	}
	now := s.clock.Now()
	doc.Items = tree.Replace(doc.Items, res.FileID, tree.WithContent(res.Content, now))
	doc.UpdatedAt = now
	return true
}

func (r *Result) fail(err error) {
	r.Outcome = OutcomeFailed
	r.Err = err
}

// Flush commits every file with pending content now instead of waiting for
// its window, and waits for cycles already in flight. Files are committed one
// at a time.
func (s *Scheduler) Flush(ctx context.Context) []Result {
	var results []Result
	for {
		if ctx.Err() != nil {
			return results
		}

		s.mu.Lock()
		fileID, f := s.nextPending()
		if f == nil {
			s.mu.Unlock()
			return results
		}
		if f.running {
			done := f.done
			s.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return results
			}
			continue
		}
		if f.timer != nil {
			f.timer.Stop()
		}
		content, revision := s.begin(f)
		s.mu.Unlock()

		res := s.commit(ctx, fileID, content, revision)
		s.finish(fileID, res)
		results = append(results, res)
	}
}

// nextPending returns the first file, in id order, that is queued or has a
// cycle in flight. Callers hold s.mu.
func (s *Scheduler) nextPending() (string, *fileState) {
	ids := make([]string, 0, len(s.files))
	for id := range s.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if f := s.files[id]; f.queued || f.running {
			return id, f
		}
	}
	return "", nil
}

// Pending returns the ids of files whose latest content is not yet committed.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, f := range s.files {
		if f.queued {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Report returns a snapshot of the scheduler's counters.
func (s *Scheduler) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.report
	for _, f := range s.files {
		if f.queued {
			r.Pending++
		}
	}
	return r
}

// Close stops all timers. Content not yet committed is dropped; call Flush
// first to keep it. Cycles already in flight still complete against this
// scheduler's workspace.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	var dropped []string
	for id, f := range s.files {
		if f.timer != nil {
			f.timer.Stop()
		}
		if f.queued {
			dropped = append(dropped, id)
			f.queued = false
		}
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		s.log.WithField("files", dropped).Warn("Closing autosave with unsaved edits")
	}
}
