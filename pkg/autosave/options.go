package autosave

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultWindow       = 1000 * time.Millisecond
	DefaultWriteTimeout = 10 * time.Second
	DefaultMaxAttempts  = 3
)

// StatusSink receives the persistence state of each committed revision.
// *buffer.Buffer implements it.
type StatusSink interface {
	MarkSaved(fileID string, revision uint64)
	MarkFailed(fileID string, revision uint64)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWindow sets the quiescence window after the last edit of a file before
// it is committed.
func WithWindow(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.window = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithWriteTimeout bounds a whole read-merge-write cycle.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithOnCommit registers a callback invoked after every cycle, outside the
// scheduler's lock.
func WithOnCommit(fn func(Result)) Option {
	return func(s *Scheduler) { s.onCommit = fn }
}

func WithStatus(sink StatusSink) Option {
	return func(s *Scheduler) { s.status = sink }
}

// WithOptimisticConcurrency makes cycles use conditional writes when the store
// supports them, re-reading and re-merging on a version conflict up to
// maxAttempts times. Without it concurrent cycles for different files of the
// same workspace can overwrite each other.
func WithOptimisticConcurrency(maxAttempts int) Option {
	return func(s *Scheduler) {
		if maxAttempts <= 0 {
			maxAttempts = DefaultMaxAttempts
		}
		s.optimistic = true
		s.maxAttempts = maxAttempts
	}
}
