package records

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryTable mimics the external store: inserts are conditional on the
// ordinal slot being free, with an optional hook between operations so
// tests can force interleavings.
type memoryTable struct {
	mu          sync.Mutex
	rows        []Record
	byOrdinal   map[int]struct{}
	insertErr   error
	beforeWrite func()
}

func newMemoryTable() *memoryTable {
	return &memoryTable{byOrdinal: make(map[int]struct{})}
}

func (t *memoryTable) RowCount(context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows), nil
}

func (t *memoryTable) Insert(_ context.Context, rec Record) error {
	if t.beforeWrite != nil {
		t.beforeWrite()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.insertErr != nil {
		return t.insertErr
	}
	if _, taken := t.byOrdinal[rec.Ordinal]; taken {
		return ErrOrdinalTaken
	}
	t.byOrdinal[rec.Ordinal] = struct{}{}
	t.rows = append(t.rows, rec)
	return nil
}

func (t *memoryTable) ReadAll(context.Context) ([]Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.rows))
	copy(out, t.rows)
	return out, nil
}

// rawTable drops the ordinal uniqueness check, reproducing a store with
// no constraint: the count-then-write sequence can assign one ordinal
// to two rows.
type rawTable struct {
	mu   sync.Mutex
	rows []Record
}

func (t *rawTable) RowCount(context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows), nil
}

func (t *rawTable) Insert(_ context.Context, rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, rec)
	return nil
}

func (t *rawTable) ReadAll(context.Context) ([]Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.rows))
	copy(out, t.rows)
	return out, nil
}

func fixedClock() func() time.Time {
	ts := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestAppendStampsRecord(t *testing.T) {
	table := newMemoryTable()
	sink := NewSink(table, WithClock(fixedClock()))

	stamped, err := sink.Append(context.Background(), Record{
		Name:        "Ali",
		District:    "Chilonzor",
		Phone:       "+998901234567",
		UserID:      100,
		DisplayName: "Ali Valiyev",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stamped.Ordinal)
	assert.Equal(t, "2025-03-14", stamped.Date)
	assert.Equal(t, "10:30:00", stamped.Time)
	assert.Equal(t, StatusRegistered, stamped.Status)

	rows, err := sink.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	got := rows[0]
	assert.Equal(t, 1, got.Ordinal)
	assert.Equal(t, "2025-03-14", got.Date)
	assert.Equal(t, "10:30:00", got.Time)
	assert.Equal(t, StatusRegistered, got.Status)
}

func TestAppendOrdinalsAreSequential(t *testing.T) {
	table := newMemoryTable()
	sink := NewSink(table, WithClock(fixedClock()))

	for i := 0; i < 5; i++ {
		_, err := sink.Append(context.Background(), Record{Name: "n", Phone: "+998900000000"})
		require.NoError(t, err)
	}

	rows, err := sink.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for i, rec := range rows {
		assert.Equal(t, i+1, rec.Ordinal)
	}
}

// An unconstrained store lets two writers that interleave between the
// count read and the write share a single ordinal. The sink's retry
// loop depends on the store rejecting the second write instead.
func TestRawTableOrdinalRace(t *testing.T) {
	table := &rawTable{}
	ctx := context.Background()

	// Both writers read the count before either is allowed to write.
	var ready, done sync.WaitGroup
	ready.Add(2)
	done.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer done.Done()
			count, err := table.RowCount(ctx)
			assert.NoError(t, err)
			ready.Done()
			ready.Wait()
			assert.NoError(t, table.Insert(ctx, Record{Ordinal: count + 1}))
		}()
	}
	done.Wait()

	rows, err := table.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0].Ordinal, rows[1].Ordinal, "both writers computed the same ordinal")
}

func TestAppendRetriesOnOrdinalConflict(t *testing.T) {
	table := newMemoryTable()
	ctx := context.Background()

	// Occupy ordinal 1 behind the first count read.
	fired := false
	table.beforeWrite = func() {
		if fired {
			return
		}
		fired = true
		table.beforeWrite = nil
		require.NoError(t, table.Insert(ctx, Record{Ordinal: 1, Name: "rival"}))
	}

	sink := NewSink(table, WithClock(fixedClock()))
	stamped, err := sink.Append(ctx, Record{Name: "Ali", Phone: "+998901234567"})
	require.NoError(t, err)
	assert.Equal(t, 2, stamped.Ordinal)

	rows, err := sink.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Ordinal)
	assert.Equal(t, 2, rows[1].Ordinal)
}

func TestAppendConcurrentOrdinalsUnique(t *testing.T) {
	table := newMemoryTable()
	sink := NewSink(table, WithMaxRetries(50), WithClock(fixedClock()))
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = sink.Append(ctx, Record{Name: "n", Phone: "+998900000000"})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	rows, err := sink.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, writers)
	seen := make(map[int]bool, writers)
	for _, rec := range rows {
		assert.False(t, seen[rec.Ordinal], "duplicate ordinal %d", rec.Ordinal)
		seen[rec.Ordinal] = true
	}
}

func TestAppendGivesUpAfterMaxRetries(t *testing.T) {
	table := newMemoryTable()
	table.insertErr = ErrOrdinalTaken
	sink := NewSink(table, WithMaxRetries(3), WithClock(fixedClock()))

	_, err := sink.Append(context.Background(), Record{Name: "n"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrdinalTaken)
}

func TestAppendSurfacesTransportError(t *testing.T) {
	table := newMemoryTable()
	boom := errors.New("connection refused")
	table.insertErr = boom

	sink := NewSink(table, WithClock(fixedClock()))
	_, err := sink.Append(context.Background(), Record{Name: "n"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
