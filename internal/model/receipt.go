package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the layout of Receipt.Date.
const DateFormat = "2006-01-02"

// TimestampFormat is the layout of Receipt.Timestamp (RFC 3339, millisecond precision).
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// DefaultAmount is stored when a capture supplies no amount.
const DefaultAmount = "0"

// Receipt is one persisted receipt entry.
type Receipt struct {
	ID        string   `json:"id"`        // millisecond epoch of capture, primary key
	Image     string   `json:"image"`     // data URI
	Date      string   `json:"date"`      // YYYY-MM-DD, user editable
	Amount    string   `json:"amount"`    // decimal integer, no currency symbol
	Store     string   `json:"store"`     // free text, may be empty
	Category  Category `json:"category"`
	Timestamp string   `json:"timestamp"` // creation instant, sort key for history
}

// CreatedAt parses Timestamp.
func (r Receipt) CreatedAt() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", r.Timestamp, err)
	}
	return t, nil
}

// FormatTimestamp renders t the way Receipt.Timestamp stores it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// FormatDate renders t the way Receipt.Date stores it.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// ParseAmount parses a receipt amount. Only non-negative integers are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return decimal.Zero, fmt.Errorf("amount %q is not a non-negative integer", s)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}
