package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/ryoshu-dev/ryoshu/internal/id"
	"github.com/ryoshu-dev/ryoshu/internal/model"
	"github.com/ryoshu-dev/ryoshu/internal/ocr"
)

// Fields are the user- or extractor-supplied metadata for a capture.
// Empty values take defaults when the record is built.
type Fields struct {
	Date     string
	Amount   string
	Store    string
	Category model.Category
}

// FieldsFromCandidate converts an extractor guess.
func FieldsFromCandidate(c ocr.Candidate) Fields {
	return Fields{Date: c.Date, Amount: c.Amount, Store: c.Store}
}

// Or returns f with every empty field taken from fallback.
func (f Fields) Or(fallback Fields) Fields {
	if f.Date == "" {
		f.Date = fallback.Date
	}
	if f.Amount == "" {
		f.Amount = fallback.Amount
	}
	if f.Store == "" {
		f.Store = fallback.Store
	}
	if f.Category == "" {
		f.Category = fallback.Category
	}
	return f
}

// ErrInvalidField is wrapped by every Fields.Check failure.
var ErrInvalidField = errors.New("invalid field")

// Check rejects typed values that could never display: a malformed date,
// a non-integer amount or an unknown category. Empty fields pass.
func (f Fields) Check() error {
	if f.Date != "" {
		if _, err := time.Parse(model.DateFormat, f.Date); err != nil {
			return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidField, f.Date)
		}
	}
	if f.Amount != "" {
		if _, err := model.ParseAmount(f.Amount); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidField, err)
		}
	}
	if f.Category != "" && !f.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidField, f.Category)
	}
	return nil
}

// Builder turns an image plus fields into a record ready to save.
type Builder struct {
	ids *id.Generator
}

// NewBuilder returns a Builder drawing IDs and capture instants from ids.
func NewBuilder(ids *id.Generator) *Builder {
	if ids == nil {
		ids = id.NewGenerator(nil)
	}
	return &Builder{ids: ids}
}

// Build assigns an ID and timestamp and fills defaults: today's date,
// amount 0, empty store, category 未分類.
func (b *Builder) Build(img Image, f Fields) model.Receipt {
	recID, at := b.ids.Next()
	f = f.Or(Fields{
		Date:     model.FormatDate(at),
		Amount:   model.DefaultAmount,
		Category: model.DefaultCategory,
	})
	return model.Receipt{
		ID:        recID,
		Image:     img.DataURI(),
		Date:      f.Date,
		Amount:    f.Amount,
		Store:     f.Store,
		Category:  f.Category,
		Timestamp: model.FormatTimestamp(at),
	}
}
