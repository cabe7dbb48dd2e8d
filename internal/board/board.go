// Package board keeps a client-side copy of the lead board. Moves are applied
// immediately and persisted in the background; a failed persist puts the
// board back the way it was.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/s/leadBoard/internal/models"
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrLeadNotInColumn = errors.New("lead is not in the source column")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrNothingToRedo   = errors.New("nothing to redo")
)

// Column is one status column and the ids of its leads, top to bottom.
type Column struct {
	Status  models.LeadStatus `json:"status"`
	LeadIDs []uint            `json:"lead_ids"`
}

// Persister stores a lead's new column and position on the server.
type Persister interface {
	UpdateLeadStatus(ctx context.Context, leadID uint, status models.LeadStatus, position int) error
}

type entry struct {
	cols []Column
}

type Board struct {
	mu      sync.Mutex
	columns []Column
	undo    []*entry
	redo    []*entry

	persist Persister
	resync  bool
	onError func(error)
	wg      sync.WaitGroup
}

type Option func(*Board)

// WithResync controls whether Undo and Redo write the restored columns back
// to the server. It is on by default; with it off they only touch local state.
func WithResync(on bool) Option {
	return func(b *Board) { b.resync = on }
}

// WithErrorHandler is called after a failed persist has been rolled back.
func WithErrorHandler(fn func(error)) Option {
	return func(b *Board) { b.onError = fn }
}

func New(columns []Column, p Persister, opts ...Option) *Board {
	b := &Board{
		columns: clone(columns),
		persist: p,
		resync:  true,
	}
	if b.persist == nil {
		b.persist = localOnly{}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type localOnly struct{}

func (localOnly) UpdateLeadStatus(context.Context, uint, models.LeadStatus, int) error { return nil }

// Snapshot returns a deep copy of the current columns.
func (b *Board) Snapshot() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.columns)
}

func (b *Board) CanUndo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.undo) > 0
}

func (b *Board) CanRedo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.redo) > 0
}

// Wait blocks until every background persist has finished.
func (b *Board) Wait() { b.wg.Wait() }

// Move takes leadID out of from and inserts it into to at index (clamped to
// the column length). The returned channel yields the persist result once.
func (b *Board) Move(ctx context.Context, leadID uint, from, to models.LeadStatus, index int) (<-chan error, error) {
	b.mu.Lock()
	src, dst := b.column(from), b.column(to)
	if src < 0 {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, from)
	}
	if dst < 0 {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, to)
	}
	at := indexOf(b.columns[src].LeadIDs, leadID)
	if at < 0 {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: lead %d, column %s", ErrLeadNotInColumn, leadID, from)
	}

	pre := &entry{cols: clone(b.columns)}

	ids := b.columns[src].LeadIDs
	b.columns[src].LeadIDs = append(ids[:at:at], ids[at+1:]...)

	dest := b.columns[dst].LeadIDs
	if index < 0 {
		index = 0
	}
	if index > len(dest) {
		index = len(dest)
	}
	next := make([]uint, 0, len(dest)+1)
	next = append(next, dest[:index]...)
	next = append(next, leadID)
	next = append(next, dest[index:]...)
	b.columns[dst].LeadIDs = next

	b.undo = append(b.undo, pre)
	b.redo = nil
	b.mu.Unlock()

	return b.background(func() error {
		return b.persist.UpdateLeadStatus(ctx, leadID, to, index)
	}, func() {
		b.columns = clone(pre.cols)
		b.undo = truncateAt(b.undo, pre)
		b.redo = nil
	}), nil
}

// Undo restores the snapshot taken before the last move.
func (b *Board) Undo(ctx context.Context) (<-chan error, error) {
	return b.swap(ctx, &b.undo, &b.redo, ErrNothingToUndo)
}

// Redo re-applies the last undone move.
func (b *Board) Redo(ctx context.Context) (<-chan error, error) {
	return b.swap(ctx, &b.redo, &b.undo, ErrNothingToRedo)
}

func (b *Board) swap(ctx context.Context, pop, push *[]*entry, empty error) (<-chan error, error) {
	b.mu.Lock()
	if len(*pop) == 0 {
		b.mu.Unlock()
		return nil, empty
	}
	target := (*pop)[len(*pop)-1]
	*pop = (*pop)[:len(*pop)-1]

	cur := &entry{cols: clone(b.columns)}
	*push = append(*push, cur)
	b.columns = clone(target.cols)

	var changes []change
	if b.resync {
		changes = diff(cur.cols, target.cols)
	}
	b.mu.Unlock()

	return b.background(func() error {
		for _, c := range changes {
			if err := b.persist.UpdateLeadStatus(ctx, c.leadID, c.status, c.position); err != nil {
				return err
			}
		}
		return nil
	}, func() {
		b.columns = clone(cur.cols)
		*push = truncateAt(*push, cur)
		*pop = append(*pop, target)
	}), nil
}

// background runs fn off the caller's goroutine; on error rollback runs
// under the board lock.
func (b *Board) background(fn func() error, rollback func()) <-chan error {
	done := make(chan error, 1)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		err := fn()
		if err != nil {
			b.mu.Lock()
			rollback()
			b.mu.Unlock()
			if b.onError != nil {
				b.onError(err)
			}
		}
		done <- err
		close(done)
	}()
	return done
}

func (b *Board) column(status models.LeadStatus) int {
	for i, c := range b.columns {
		if c.Status == status {
			return i
		}
	}
	return -1
}

type change struct {
	leadID   uint
	status   models.LeadStatus
	position int
}

// diff lists the moves that turn from into to when replayed in order. Each
// move removes the lead from its column and inserts it at position in its
// target column, so leads reordered inside one column are included too.
func diff(from, to []Column) []change {
	sim := clone(from)
	var out []change
	for _, target := range to {
		ci := -1
		for i := range sim {
			if sim[i].Status == target.Status {
				ci = i
				break
			}
		}
		if ci < 0 {
			sim = append(sim, Column{Status: target.Status})
			ci = len(sim) - 1
		}

		for pos, id := range target.LeadIDs {
			col := sim[ci].LeadIDs
			if pos < len(col) && col[pos] == id {
				continue
			}
			for i := range sim {
				if at := indexOf(sim[i].LeadIDs, id); at >= 0 {
					sim[i].LeadIDs = append(sim[i].LeadIDs[:at], sim[i].LeadIDs[at+1:]...)
					break
				}
			}
			col = sim[ci].LeadIDs
			if pos > len(col) {
				pos = len(col)
			}
			col = append(col, 0)
			copy(col[pos+1:], col[pos:])
			col[pos] = id
			sim[ci].LeadIDs = col
			out = append(out, change{leadID: id, status: target.Status, position: pos})
		}
	}
	return out
}

// Equal reports whether both boards have the same columns with the same
// lead order.
func Equal(a, b []Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Status != b[i].Status || len(a[i].LeadIDs) != len(b[i].LeadIDs) {
			return false
		}
		for j := range a[i].LeadIDs {
			if a[i].LeadIDs[j] != b[i].LeadIDs[j] {
				return false
			}
		}
	}
	return true
}

func clone(cols []Column) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = Column{Status: c.Status, LeadIDs: append([]uint(nil), c.LeadIDs...)}
	}
	return out
}

func indexOf(ids []uint, id uint) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// truncateAt drops e and everything stacked on top of it.
func truncateAt(stack []*entry, e *entry) []*entry {
	for i, s := range stack {
		if s == e {
			return stack[:i]
		}
	}
	return stack
}
