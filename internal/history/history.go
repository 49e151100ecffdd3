package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ryoshu-dev/ryoshu/internal/model"
)

var (
	// ErrNotFound means no receipt has the requested ID.
	ErrNotFound = errors.New("receipt not found")
	// ErrMissingID means an edit was submitted without a receipt ID.
	ErrMissingID = errors.New("receipt id is required")
)

// Store is the subset of the record store the history view needs.
type Store interface {
	All(ctx context.Context) ([]model.Receipt, error)
	Get(ctx context.Context, id string) (model.Receipt, bool, error)
	Put(ctx context.Context, r model.Receipt) error
}

// Changes holds the editable fields of a receipt. Empty fields keep the
// stored value.
type Changes struct {
	Date     string         `json:"date"`
	Amount   string         `json:"amount"`
	Store    string         `json:"store"`
	Category model.Category `json:"category"`
}

// Service reads and edits saved receipts.
type Service struct {
	store Store
}

// NewService returns a Service backed by s.
func NewService(s Store) *Service {
	return &Service{store: s}
}

// Load returns every saved receipt, newest capture first.
func (s *Service) Load(ctx context.Context) ([]model.Receipt, error) {
	rs, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading receipts: %w", err)
	}
	SortNewestFirst(rs)
	return rs, nil
}

// SortNewestFirst orders rs by capture timestamp descending, then ID
// descending. Timestamps that fail to parse sort last.
func SortNewestFirst(rs []model.Receipt) {
	sort.SliceStable(rs, func(i, j int) bool {
		ti, erri := rs[i].CreatedAt()
		tj, errj := rs[j].CreatedAt()
		switch {
		case erri != nil && errj != nil:
			return lessID(rs[j].ID, rs[i].ID)
		case erri != nil:
			return false
		case errj != nil:
			return true
		case !ti.Equal(tj):
			return ti.After(tj)
		}
		return lessID(rs[j].ID, rs[i].ID)
	})
}

// lessID compares numeric IDs by length first so "999" < "1000".
func lessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Edit merges c into the stored receipt and saves it. The image, ID and
// timestamp are never changed.
func (s *Service) Edit(ctx context.Context, id string, c Changes) (model.Receipt, error) {
	if id == "" {
		return model.Receipt{}, ErrMissingID
	}

	r, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("reading receipt %s: %w", id, err)
	}
	if !ok {
		return model.Receipt{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if c.Date != "" {
		r.Date = c.Date
	}
	if c.Amount != "" {
		r.Amount = c.Amount
	}
	if c.Store != "" {
		r.Store = c.Store
	}
	if c.Category != "" {
		r.Category = c.Category
	}

	if err := s.store.Put(ctx, r); err != nil {
		return model.Receipt{}, fmt.Errorf("saving receipt %s: %w", id, err)
	}
	return r, nil
}

// Summary aggregates a list of receipts.
type Summary struct {
	Count      int                                `json:"count"`
	Total      decimal.Decimal                    `json:"total"`
	ByCategory map[model.Category]decimal.Decimal `json:"byCategory"`
	Invalid    int                                `json:"invalid"`
}

// Summarize totals rs. Receipts failing validation are counted in Invalid;
// their amount is added only when it parses.
func Summarize(rs []model.Receipt) Summary {
	sum := Summary{
		Count:      len(rs),
		Total:      decimal.Zero,
		ByCategory: make(map[model.Category]decimal.Decimal),
	}
	for _, r := range rs {
		if len(model.Validate(r)) > 0 {
			sum.Invalid++
		}
		amt, err := model.ParseAmount(r.Amount)
		if err != nil {
			continue
		}
		sum.Total = sum.Total.Add(amt)
		sum.ByCategory[r.Category] = sum.ByCategory[r.Category].Add(amt)
	}
	return sum
}
