package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/ryoshu-dev/ryoshu/internal/model"
)

// ErrPartialCommit is returned when some staged records did not persist.
// The Result says how many did.
var ErrPartialCommit = errors.New("batch commit incomplete")

// Writer persists one record.
type Writer interface {
	Put(ctx context.Context, r model.Receipt) error
}

// BulkWriter persists a set of records all-or-nothing.
type BulkWriter interface {
	PutAll(ctx context.Context, rs []model.Receipt) error
}

// Result reports what a commit did.
type Result struct {
	Attempted int      `json:"attempted"`
	Confirmed int      `json:"confirmed"`
	Failed    []string `json:"failed,omitempty"` // IDs still staged
}

// Accumulator stages captured receipts in capture order until they are
// committed. It is owned by one capture session and is not safe for
// concurrent use.
type Accumulator struct {
	items []model.Receipt
}

// New returns an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Append stages r after everything already staged.
func (a *Accumulator) Append(r model.Receipt) {
	a.items = append(a.items, r)
}

// Remove drops the staged record with the given ID. Absent IDs are ignored.
func (a *Accumulator) Remove(id string) {
	kept := a.items[:0]
	for _, r := range a.items {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	clear(a.items[len(kept):])
	a.items = kept
}

// Items returns a copy of the staged records in capture order.
func (a *Accumulator) Items() []model.Receipt {
	out := make([]model.Receipt, len(a.items))
	copy(out, a.items)
	return out
}

// Len returns the number of staged records.
func (a *Accumulator) Len() int {
	return len(a.items)
}

// Clear drops every staged record.
func (a *Accumulator) Clear() {
	a.items = nil
}

// Commit writes each staged record with its own Put, in capture order.
// Writes are independent: a failure does not undo earlier ones. Confirmed
// records leave the staging list; failed ones stay for a retry. Any failure
// yields ErrPartialCommit alongside the counts.
func (a *Accumulator) Commit(ctx context.Context, w Writer) (Result, error) {
	res := Result{Attempted: len(a.items)}
	if res.Attempted == 0 {
		return res, nil
	}

	var failed []model.Receipt
	var errs []error
	for _, r := range a.items {
		if err := ctx.Err(); err != nil {
			failed = append(failed, r)
			errs = append(errs, err)
			continue
		}
		if err := w.Put(ctx, r); err != nil {
			failed = append(failed, r)
			errs = append(errs, fmt.Errorf("%s: %w", r.ID, err))
			continue
		}
		res.Confirmed++
	}

	a.items = failed
	if len(failed) == 0 {
		return res, nil
	}
	for _, r := range failed {
		res.Failed = append(res.Failed, r.ID)
	}
	return res, fmt.Errorf("%w: %d of %d saved: %w", ErrPartialCommit, res.Confirmed, res.Attempted, errors.Join(errs...))
}

// CommitAtomic writes every staged record in one PutAll. On success the
// staging list is cleared; on failure nothing is confirmed and the staging
// list is left as it was.
func (a *Accumulator) CommitAtomic(ctx context.Context, w BulkWriter) (Result, error) {
	res := Result{Attempted: len(a.items)}
	if res.Attempted == 0 {
		return res, nil
	}

	if err := w.PutAll(ctx, a.Items()); err != nil {
		for _, r := range a.items {
			res.Failed = append(res.Failed, r.ID)
		}
		return res, fmt.Errorf("batch commit of %d receipts: %w", res.Attempted, err)
	}

	res.Confirmed = res.Attempted
	a.Clear()
	return res, nil
}
