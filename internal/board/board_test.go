package board

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/leadBoard/internal/models"
)

type call struct {
	leadID   uint
	status   models.LeadStatus
	position int
}

type fakePersister struct {
	mu    sync.Mutex
	calls []call
	fail  error
}

func (f *fakePersister) UpdateLeadStatus(_ context.Context, leadID uint, status models.LeadStatus, position int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{leadID, status, position})
	return f.fail
}

func (f *fakePersister) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func initial() []Column {
	return []Column{
		{Status: models.StatusEnquiry, LeadIDs: []uint{1, 2, 3}},
		{Status: models.StatusProspect, LeadIDs: []uint{4}},
		{Status: models.StatusEnrollment, LeadIDs: nil},
	}
}

func TestMoveThenUndoRestoresBoard(t *testing.T) {
	p := &fakePersister{}
	b := New(initial(), p)

	done, err := b.Move(context.Background(), 2, models.StatusEnquiry, models.StatusProspect, 0)
	require.NoError(t, err)

	moved := b.Snapshot()
	assert.Equal(t, []uint{1, 3}, moved[0].LeadIDs)
	assert.Equal(t, []uint{2, 4}, moved[1].LeadIDs)
	require.NoError(t, <-done)
	assert.Equal(t, []call{{2, models.StatusProspect, 0}}, p.Calls())

	done, err = b.Undo(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.True(t, Equal(initial(), b.Snapshot()))
	assert.True(t, b.CanRedo())

	// Undo writes the lead back to its old column.
	assert.Equal(t, call{2, models.StatusEnquiry, 1}, p.Calls()[1])
}

func TestUndoWithoutResyncStaysLocal(t *testing.T) {
	p := &fakePersister{}
	b := New(initial(), p, WithResync(false))

	done, err := b.Move(context.Background(), 1, models.StatusEnquiry, models.StatusEnrollment, 5)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, []uint{1}, b.Snapshot()[2].LeadIDs)

	done, err = b.Undo(context.Background())
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.True(t, Equal(initial(), b.Snapshot()))
	assert.Len(t, p.Calls(), 1)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ctx := context.Background()

	for _, resync := range []bool{true, false} {
		b := New(initial(), &fakePersister{}, WithResync(resync))
		const n = 25

		for i := 0; i < n; i++ {
			snap := b.Snapshot()
			src := rng.Intn(len(snap))
			for len(snap[src].LeadIDs) == 0 {
				src = rng.Intn(len(snap))
			}
			lead := snap[src].LeadIDs[rng.Intn(len(snap[src].LeadIDs))]
			dst := rng.Intn(len(snap))
			_, err := b.Move(ctx, lead, snap[src].Status, snap[dst].Status, rng.Intn(5))
			require.NoError(t, err)
		}
		b.Wait()
		final := b.Snapshot()

		for i := 0; i < n; i++ {
			_, err := b.Undo(ctx)
			require.NoError(t, err)
		}
		b.Wait()
		assert.True(t, Equal(initial(), b.Snapshot()), "resync=%v", resync)
		_, err := b.Undo(ctx)
		assert.ErrorIs(t, err, ErrNothingToUndo)

		for i := 0; i < n; i++ {
			_, err := b.Redo(ctx)
			require.NoError(t, err)
		}
		b.Wait()
		assert.True(t, Equal(final, b.Snapshot()), "resync=%v", resync)
		_, err = b.Redo(ctx)
		assert.ErrorIs(t, err, ErrNothingToRedo)
	}
}

func TestFailedPersistRollsBack(t *testing.T) {
	boom := errors.New("server said no")
	p := &fakePersister{fail: boom}

	var reported error
	b := New(initial(), p, WithErrorHandler(func(err error) { reported = err }))

	done, err := b.Move(context.Background(), 3, models.StatusEnquiry, models.StatusProspect, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, <-done, boom)

	assert.True(t, Equal(initial(), b.Snapshot()))
	assert.False(t, b.CanUndo())
	assert.ErrorIs(t, reported, boom)
}

func TestFailedUndoResyncRollsBack(t *testing.T) {
	p := &fakePersister{}
	b := New(initial(), p)

	done, err := b.Move(context.Background(), 4, models.StatusProspect, models.StatusEnquiry, 0)
	require.NoError(t, err)
	require.NoError(t, <-done)
	moved := b.Snapshot()

	p.mu.Lock()
	p.fail = errors.New("offline")
	p.mu.Unlock()

	done, err = b.Undo(context.Background())
	require.NoError(t, err)
	assert.Error(t, <-done)

	assert.True(t, Equal(moved, b.Snapshot()))
	assert.True(t, b.CanUndo())
	assert.False(t, b.CanRedo())
}

func TestMoveValidation(t *testing.T) {
	b := New(initial(), nil)

	_, err := b.Move(context.Background(), 9, models.StatusEnquiry, models.StatusProspect, 0)
	assert.ErrorIs(t, err, ErrLeadNotInColumn)

	_, err = b.Move(context.Background(), 1, models.StatusArchived, models.StatusProspect, 0)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = b.Move(context.Background(), 1, models.StatusEnquiry, models.StatusOnHold, 0)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	assert.True(t, Equal(initial(), b.Snapshot()))
	assert.False(t, b.CanUndo())
}

func TestMoveWithinColumn(t *testing.T) {
	b := New(initial(), nil)

	done, err := b.Move(context.Background(), 1, models.StatusEnquiry, models.StatusEnquiry, 2)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, []uint{2, 3, 1}, b.Snapshot()[0].LeadIDs)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	b := New(initial(), nil)
	snap := b.Snapshot()
	snap[0].LeadIDs[0] = 99
	assert.Equal(t, uint(1), b.Snapshot()[0].LeadIDs[0])
	assert.False(t, Equal(snap, b.Snapshot()))
}

// columnStore applies status updates the way the server does: the lead leaves
// its column and is inserted at position among the destination's other leads.
type columnStore struct {
	mu   sync.Mutex
	cols []Column
}

func (s *columnStore) UpdateLeadStatus(_ context.Context, leadID uint, status models.LeadStatus, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cols {
		if at := indexOf(s.cols[i].LeadIDs, leadID); at >= 0 {
			s.cols[i].LeadIDs = append(s.cols[i].LeadIDs[:at], s.cols[i].LeadIDs[at+1:]...)
		}
	}
	for i := range s.cols {
		if s.cols[i].Status != status {
			continue
		}
		ids := s.cols[i].LeadIDs
		if position < 0 || position > len(ids) {
			position = len(ids)
		}
		ids = append(ids, 0)
		copy(ids[position+1:], ids[position:])
		ids[position] = leadID
		s.cols[i].LeadIDs = ids
	}
	return nil
}

func (s *columnStore) Snapshot() []Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.cols)
}

func TestUndoReorderReachesServer(t *testing.T) {
	store := &columnStore{cols: initial()}
	b := New(initial(), store)
	ctx := context.Background()

	done, err := b.Move(ctx, 1, models.StatusEnquiry, models.StatusEnquiry, 2)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.True(t, Equal(b.Snapshot(), store.Snapshot()))

	done, err = b.Undo(ctx)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.True(t, Equal(initial(), store.Snapshot()))
}

func TestServerFollowsBoard(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	ctx := context.Background()
	store := &columnStore{cols: initial()}
	b := New(initial(), store)

	for i := 0; i < 30; i++ {
		snap := b.Snapshot()
		src := rng.Intn(len(snap))
		for len(snap[src].LeadIDs) == 0 {
			src = rng.Intn(len(snap))
		}
		lead := snap[src].LeadIDs[rng.Intn(len(snap[src].LeadIDs))]
		dst := rng.Intn(len(snap))

		var done <-chan error
		var err error
		switch {
		case i%5 == 3 && b.CanUndo():
			done, err = b.Undo(ctx)
		case i%7 == 4 && b.CanRedo():
			done, err = b.Redo(ctx)
		default:
			done, err = b.Move(ctx, lead, snap[src].Status, snap[dst].Status, rng.Intn(4))
		}
		require.NoError(t, err)
		require.NoError(t, <-done)
		require.True(t, Equal(b.Snapshot(), store.Snapshot()), "step %d", i)
	}
}
