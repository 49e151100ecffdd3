package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ryoshu-dev/ryoshu/internal/model"
)

// SheetName is the worksheet holding exported receipts.
const SheetName = "領収書"

// WriteXLSX writes the same columns as WriteCSV to a single-sheet workbook.
// Amounts that parse are stored as numbers; anything else is kept as text.
func WriteXLSX(w io.Writer, receipts []model.Receipt) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range strings.Split(Header, ",") {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range receipts {
		row := i + 2
		values := make([]any, numFields)
		for col, v := range MarshalReceipt(r) {
			values[col] = v
		}
		if amt, err := model.ParseAmount(r.Amount); err == nil && amt.IsInteger() {
			values[colAmount] = amt.IntPart()
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", row, err)
		}
	}

	widths := map[string]float64{"A": 12, "B": 10, "C": 30, "D": 10}
	for col, width := range widths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("sizing column %s: %w", col, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
