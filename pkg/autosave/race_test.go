package autosave

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-playground/pkg/store"
)

type opKind string

const (
	opRead  opKind = "read"
	opWrite opKind = "write"
)

// gate is a store operation parked until the test releases it.
type gate struct {
	kind    opKind
	proceed chan struct{}
}

// gatedStore blocks every operation until the test lets it through, so the
// interleaving of concurrent cycles can be chosen step by step.
type gatedStore struct {
	mem     *store.Memory
	arrived chan gate
}

func newGatedStore(mem *store.Memory) *gatedStore {
	return &gatedStore{mem: mem, arrived: make(chan gate)}
}

func (g *gatedStore) wait(ctx context.Context, kind opKind) error {
	op := gate{kind: kind, proceed: make(chan struct{})}
	select {
	case g.arrived <- op:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-op.proceed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedStore) Read(ctx context.Context, key string) (*store.Document, error) {
	if err := g.wait(ctx, opRead); err != nil {
		return nil, err
	}
	return g.mem.Read(ctx, key)
}

func (g *gatedStore) Write(ctx context.Context, key string, doc *store.Document) error {
	if err := g.wait(ctx, opWrite); err != nil {
		return err
	}
	return g.mem.Write(ctx, key, doc)
}

func (g *gatedStore) ReadVersion(ctx context.Context, key string) (*store.Document, int64, error) {
	if err := g.wait(ctx, opRead); err != nil {
		return nil, 0, err
	}
	return g.mem.ReadVersion(ctx, key)
}

func (g *gatedStore) WriteIfVersion(ctx context.Context, key string, doc *store.Document, version int64) error {
	if err := g.wait(ctx, opWrite); err != nil {
		return err
	}
	return g.mem.WriteIfVersion(ctx, key, doc, version)
}

func (g *gatedStore) Close() error { return nil }

func (g *gatedStore) next(t *testing.T, want opKind) gate {
	t.Helper()
	select {
	case op := <-g.arrived:
		require.Equal(t, want, op.kind)
		return op
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for store operation", string(want))
	}
	return gate{}
}

func (g *gatedStore) allow(t *testing.T, want opKind) {
	t.Helper()
	close(g.next(t, want).proceed)
}

func waitResult(t *testing.T, results <-chan Result, fileID string) Result {
	t.Helper()
	select {
	case r := <-results:
		require.Equal(t, fileID, r.FileID)
		return r
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for commit", fileID)
	}
	return Result{}
}

type raceFixture struct {
	clock   *fakeClock
	mem     *store.Memory
	gated   *gatedStore
	results chan Result
	s       *Scheduler
}

func newRaceFixture(t *testing.T, opts ...Option) *raceFixture {
	f := &raceFixture{
		clock:   newFakeClock(),
		mem:     seededMemory(t, "ws"),
		results: make(chan Result, 8),
	}
	f.clock.async = true
	f.gated = newGatedStore(f.mem)
	opts = append([]Option{
		WithClock(f.clock),
		quietLogger(),
		WithOnCommit(func(r Result) { f.results <- r }),
	}, opts...)
	f.s = New(f.gated, "ws", opts...)
	t.Cleanup(f.s.Close)
	return f
}

// startOverlap arms file 1 and file 3 one millisecond apart, lets cycle A
// (file 1) read and parks its write, then runs cycle B (file 3) to
// completion. It returns A's parked write.
func (f *raceFixture) startOverlap(t *testing.T) gate {
	f.s.Notify("1", "A", 1)
	f.clock.Advance(1 * ms)
	f.s.Notify("3", "B", 1)

	f.clock.Advance(DefaultWindow - 1*ms)
	f.gated.allow(t, opRead)
	aWrite := f.gated.next(t, opWrite)

	f.clock.Advance(1 * ms)
	f.gated.allow(t, opRead)
	f.gated.allow(t, opWrite)
	b := waitResult(t, f.results, "3")
	require.Equal(t, OutcomeCommitted, b.Outcome)
	require.Equal(t, "B", contentOf(t, f.mem, "ws", "3"))

	return aWrite
}

func TestOverlappingCyclesLoseUpdate(t *testing.T) {
	f := newRaceFixture(t)

	aWrite := f.startOverlap(t)
	close(aWrite.proceed)
	a := waitResult(t, f.results, "1")
	require.Equal(t, OutcomeCommitted, a.Outcome)

	// A wrote back the snapshot it read before B committed.
	assert.Equal(t, "A", contentOf(t, f.mem, "ws", "1"))
	assert.Equal(t, "b", contentOf(t, f.mem, "ws", "3"), "B's update is lost")
	assert.Equal(t, 2, f.s.Report().Committed)
}

func TestOptimisticConcurrencyKeepsBothUpdates(t *testing.T) {
	f := newRaceFixture(t, WithOptimisticConcurrency(3))

	aWrite := f.startOverlap(t)
	close(aWrite.proceed)

	// A's conditional write is rejected, so it re-reads and re-merges.
	f.gated.allow(t, opRead)
	f.gated.allow(t, opWrite)
	a := waitResult(t, f.results, "1")

	assert.Equal(t, OutcomeCommitted, a.Outcome)
	assert.Equal(t, 2, a.Attempts)
	assert.Equal(t, "A", contentOf(t, f.mem, "ws", "1"))
	assert.Equal(t, "B", contentOf(t, f.mem, "ws", "3"))
	assert.Equal(t, 1, f.s.Report().Conflicts)
}

func TestOptimisticConcurrencyGivesUp(t *testing.T) {
	f := newRaceFixture(t, WithOptimisticConcurrency(1))

	aWrite := f.startOverlap(t)
	close(aWrite.proceed)
	a := waitResult(t, f.results, "1")

	assert.Equal(t, OutcomeFailed, a.Outcome)
	assert.ErrorIs(t, a.Err, store.ErrVersionConflict)
	assert.Equal(t, "a", contentOf(t, f.mem, "ws", "1"))
	assert.Equal(t, "B", contentOf(t, f.mem, "ws", "3"))
}

func TestEditDuringCommitIsCommittedAfterwards(t *testing.T) {
	f := newRaceFixture(t)

	f.s.Notify("1", "first", 1)
	f.clock.Advance(DefaultWindow)
	read := f.gated.next(t, opRead)

	f.s.Notify("1", "second", 2)
	close(read.proceed)
	f.gated.allow(t, opWrite)
	first := waitResult(t, f.results, "1")
	assert.Equal(t, uint64(1), first.Revision)
	assert.Equal(t, "first", contentOf(t, f.mem, "ws", "1"))
	assert.Equal(t, []string{"1"}, f.s.Pending())

	f.clock.Advance(DefaultWindow)
	f.gated.allow(t, opRead)
	f.gated.allow(t, opWrite)
	second := waitResult(t, f.results, "1")
	assert.Equal(t, uint64(2), second.Revision)
	assert.Equal(t, "second", contentOf(t, f.mem, "ws", "1"))
	assert.Empty(t, f.s.Pending())
}

func TestFlushWaitsForInFlightCycle(t *testing.T) {
	f := newRaceFixture(t)

	f.s.Notify("1", "in flight", 1)
	f.clock.Advance(DefaultWindow)
	read := f.gated.next(t, opRead)

	flushed := make(chan []Result, 1)
	go func() { flushed <- f.s.Flush(context.Background()) }()

	select {
	case <-flushed:
		t.Fatal("flush returned while a cycle was still running")
	case <-time.After(50 * ms):
	}

	close(read.proceed)
	f.gated.allow(t, opWrite)
	waitResult(t, f.results, "1")

	select {
	case results := <-flushed:
		assert.Empty(t, results, "nothing was left to commit after the in-flight cycle")
	case <-time.After(2 * time.Second):
		t.Fatal("flush did not return")
	}
	assert.Equal(t, "in flight", contentOf(t, f.mem, "ws", "1"))
}
