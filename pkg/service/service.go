package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-playground/pkg/autosave"
	"github.com/mattsolo1/grove-playground/pkg/buffer"
	"github.com/mattsolo1/grove-playground/pkg/logging"
	"github.com/mattsolo1/grove-playground/pkg/search"
	"github.com/mattsolo1/grove-playground/pkg/store"
	"github.com/mattsolo1/grove-playground/pkg/workspace"
)

var (
	// ErrNoWorkspace is returned by operations that need an active workspace
	// before one has been opened.
	ErrNoWorkspace = errors.New("no active workspace")
	ErrNotAFile    = errors.New("item is not a file")
)

// Service is the editing session: one active workspace, the buffers of its
// open files and the scheduler persisting them.
type Service struct {
	Store    store.Store
	Registry *workspace.Registry
	Index    *search.Index
	Buffer   *buffer.Buffer
	Config   *Config

	log           *logrus.Entry
	schedulerOpts []autosave.Option

	// mu guards the active workspace and its scheduler. Edit holds the read
	// side while it buffers and notifies, so a switch never splits the two;
	// nothing holds it across store I/O.
	mu        sync.RWMutex
	active    string
	scheduler *autosave.Scheduler
}

// Config holds service configuration
type Config struct {
	DataDir      string
	Window       time.Duration
	WriteTimeout time.Duration
	Optimistic   bool
	MaxAttempts  int
}

// Option configures a Service.
type Option func(*Service)

// WithSchedulerOptions appends options to every scheduler the service creates.
func WithSchedulerOptions(opts ...autosave.Option) Option {
	return func(s *Service) { s.schedulerOpts = append(s.schedulerOpts, opts...) }
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Service) { s.log = log }
}

// New creates a service over st. The workspace registry and search index are
// kept in config.DataDir. The service owns st and closes it in Close.
func New(config *Config, st store.Store, opts ...Option) (*Service, error) {
	registry, err := workspace.NewRegistry(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	index, err := search.NewIndex(filepath.Join(config.DataDir, "index.db"))
	if err != nil {
		registry.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	s := &Service{
		Store:    st,
		Registry: registry,
		Index:    index,
		Buffer:   buffer.New(),
		Config:   config,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.NewLogger("grove-playground.service")
	}
	return s, nil
}

// Active returns the key of the active workspace, or "" if none is open.
func (s *Service) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Scheduler returns the scheduler bound to the active workspace.
func (s *Service) Scheduler() *autosave.Scheduler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduler
}

func (s *Service) activeKey() (string, error) {
	key := s.Active()
	if key == "" {
		return "", ErrNoWorkspace
	}
	return key, nil
}

// OpenWorkspace makes key the active workspace, creating an empty document
// for it if the store has none. Switching away from another workspace flushes
// its pending edits to that workspace, stops its scheduler and closes its open
// files.
func (s *Service) OpenWorkspace(ctx context.Context, key string) (*store.Document, error) {
	if err := workspace.ValidateKey(key); err != nil {
		return nil, err
	}

	doc, err := s.ensureDocument(ctx, key)
	if err != nil {
		return nil, err
	}
	if _, err := s.Registry.Touch(key); err != nil {
		s.log.WithError(err).WithField("workspace", key).Warn("Failed to update workspace registry")
	}
	if err := s.Index.Reindex(key, doc.Items); err != nil {
		s.log.WithError(err).WithField("workspace", key).Warn("Failed to index workspace")
	}

	s.mu.Lock()
	if s.active == key && s.scheduler != nil {
		s.mu.Unlock()
		return doc, nil
	}
	old := s.swap(key)
	s.mu.Unlock()

	if old != nil {
		s.retire(ctx, old)
	}
	s.log.WithField("workspace", key).Info("Workspace opened")
	return doc, nil
}

// swap installs a fresh scheduler for key and empties the buffer, returning
// the scheduler it replaced. Callers hold s.mu and retire the old scheduler
// after releasing it.
func (s *Service) swap(key string) *autosave.Scheduler {
	old := s.scheduler
	s.active = key
	s.scheduler = s.newScheduler(key)
	if old != nil {
		s.Buffer.Reset()
	}
	return old
}

// retire flushes and closes a scheduler. Its late cycles still target the
// workspace it was created for.
func (s *Service) retire(ctx context.Context, sched *autosave.Scheduler) {
	for _, res := range sched.Flush(ctx) {
		if res.Outcome == autosave.OutcomeFailed {
			s.log.WithError(res.Err).WithFields(logrus.Fields{
				"workspace": res.Workspace,
				"file_id":   res.FileID,
			}).Warn("Edit lost while leaving workspace")
		}
	}
	sched.Close()
}

func (s *Service) newScheduler(key string) *autosave.Scheduler {
	status := &schedulerStatus{svc: s}
	opts := []autosave.Option{
		autosave.WithWindow(s.Config.Window),
		autosave.WithWriteTimeout(s.Config.WriteTimeout),
		autosave.WithStatus(status),
		autosave.WithOnCommit(s.onCommit),
		autosave.WithLogger(logging.NewLogger("grove-playground.autosave")),
	}
	if s.Config.Optimistic {
		opts = append(opts, autosave.WithOptimisticConcurrency(s.Config.MaxAttempts))
	}
	opts = append(opts, s.schedulerOpts...)
	status.sched = autosave.New(s.Store, key, opts...)
	return status.sched
}

// schedulerStatus forwards save states to the buffer only while its scheduler
// is the active one. A retired scheduler finishing its last cycles must not
// mark entries that now belong to the next session.
type schedulerStatus struct {
	svc   *Service
	sched *autosave.Scheduler
}

func (st *schedulerStatus) current() bool {
	return st.svc.Scheduler() == st.sched
}

func (st *schedulerStatus) MarkSaved(fileID string, revision uint64) {
	if st.current() {
		st.svc.Buffer.MarkSaved(fileID, revision)
	}
}

func (st *schedulerStatus) MarkFailed(fileID string, revision uint64) {
	if st.current() {
		st.svc.Buffer.MarkFailed(fileID, revision)
	}
}

// onCommit keeps the search index in step with committed content.
func (s *Service) onCommit(res autosave.Result) {
	if res.Outcome != autosave.OutcomeCommitted {
		return
	}
	if err := s.Index.UpdateContent(res.Workspace, res.FileID, res.Content, res.At); err != nil {
		s.log.WithError(err).WithField("file_id", res.FileID).Warn("Failed to update search index")
	}
}

func (s *Service) ensureDocument(ctx context.Context, key string) (*store.Document, error) {
	doc, err := s.Store.Read(ctx, key)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read workspace %s: %w", key, err)
	}
	doc = &store.Document{UpdatedAt: time.Now().UTC()}
	if err := s.Store.Write(ctx, key, doc); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", key, err)
	}
	return doc, nil
}

// Document reads the active workspace's document from the store.
func (s *Service) Document(ctx context.Context) (string, *store.Document, error) {
	key, err := s.activeKey()
	if err != nil {
		return "", nil, err
	}
	doc, err := s.Store.Read(ctx, key)
	if err != nil {
		return key, nil, fmt.Errorf("read workspace %s: %w", key, err)
	}
	return key, doc, nil
}

// Flush commits every pending edit of the active workspace now.
func (s *Service) Flush(ctx context.Context) []autosave.Result {
	sched := s.Scheduler()
	if sched == nil {
		return nil
	}
	return sched.Flush(ctx)
}

// Report returns the active scheduler's counters.
func (s *Service) Report() autosave.Report {
	sched := s.Scheduler()
	if sched == nil {
		return autosave.Report{}
	}
	return sched.Report()
}

// Close flushes pending edits and releases the store, index and registry.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	old := s.scheduler
	s.active, s.scheduler = "", nil
	s.mu.Unlock()

	if old != nil {
		s.retire(ctx, old)
	}

	return errors.Join(s.Index.Close(), s.Registry.Close(), s.Store.Close())
}
