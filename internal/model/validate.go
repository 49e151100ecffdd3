package model

import (
	"fmt"
	"time"
)

// ValidationError describes one display-time problem with a stored receipt.
// Receipts are never rejected at write time; these are warnings.
type ValidationError struct {
	ReceiptID   string
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Field, e.ReceiptID, e.Description)
}

// Validate checks the fields a history view needs to render r.
func Validate(r Receipt) []ValidationError {
	var errs []ValidationError

	if r.ID == "" {
		errs = append(errs, ValidationError{ReceiptID: r.ID, Field: "id", Description: "missing id"})
	}

	if _, err := time.Parse(DateFormat, r.Date); err != nil {
		errs = append(errs, ValidationError{
			ReceiptID:   r.ID,
			Field:       "date",
			Description: fmt.Sprintf("date %q is not YYYY-MM-DD", r.Date),
		})
	}

	if _, err := ParseAmount(r.Amount); err != nil {
		errs = append(errs, ValidationError{ReceiptID: r.ID, Field: "amount", Description: err.Error()})
	}

	if !r.Category.Valid() {
		errs = append(errs, ValidationError{
			ReceiptID:   r.ID,
			Field:       "category",
			Description: fmt.Sprintf("unknown category %q", r.Category),
		})
	}

	if _, err := r.CreatedAt(); err != nil {
		errs = append(errs, ValidationError{ReceiptID: r.ID, Field: "timestamp", Description: err.Error()})
	}

	return errs
}
