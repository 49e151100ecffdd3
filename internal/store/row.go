package store

import "github.com/ryoshu-dev/ryoshu/internal/model"

// receiptRow is the persisted shape of model.Receipt.
type receiptRow struct {
	ID        string `gorm:"primaryKey;size:32"`
	Image     string `gorm:"not null"`
	Date      string `gorm:"size:10"`
	Amount    string `gorm:"size:32"`
	Store     string
	Category  string `gorm:"size:32"`
	Timestamp string `gorm:"size:40"`
}

func (receiptRow) TableName() string { return "receipts" }

func toRow(r model.Receipt) receiptRow {
	return receiptRow{
		ID:        r.ID,
		Image:     r.Image,
		Date:      r.Date,
		Amount:    r.Amount,
		Store:     r.Store,
		Category:  string(r.Category),
		Timestamp: r.Timestamp,
	}
}

func (r receiptRow) toModel() model.Receipt {
	return model.Receipt{
		ID:        r.ID,
		Image:     r.Image,
		Date:      r.Date,
		Amount:    r.Amount,
		Store:     r.Store,
		Category:  model.Category(r.Category),
		Timestamp: r.Timestamp,
	}
}
