package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validReceipt() Receipt {
	return Receipt{
		ID:        "1704414615123",
		Image:     "data:image/jpeg;base64,AAAA",
		Date:      "2024-01-05",
		Amount:    "1200",
		Store:     "コンビニ",
		Category:  CategoryFood,
		Timestamp: "2024-01-05T00:30:15.123Z",
	}
}

func TestValidate_Clean(t *testing.T) {
	assert.Empty(t, Validate(validReceipt()))
}

func TestValidate_EmptyStoreIsFine(t *testing.T) {
	r := validReceipt()
	r.Store = ""
	assert.Empty(t, Validate(r))
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Receipt)
		field  string
	}{
		{"missing id", func(r *Receipt) { r.ID = "" }, "id"},
		{"bad date", func(r *Receipt) { r.Date = "2024/01/05" }, "date"},
		{"negative amount", func(r *Receipt) { r.Amount = "-1" }, "amount"},
		{"fractional amount", func(r *Receipt) { r.Amount = "12.5" }, "amount"},
		{"unknown category", func(r *Receipt) { r.Category = "雑費" }, "category"},
		{"bad timestamp", func(r *Receipt) { r.Timestamp = "" }, "timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReceipt()
			tt.mutate(&r)
			errs := Validate(r)
			if assert.Len(t, errs, 1) {
				assert.Equal(t, tt.field, errs[0].Field)
				assert.Contains(t, errs[0].Error(), tt.field)
			}
		})
	}
}
