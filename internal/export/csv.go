package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ryoshu-dev/ryoshu/internal/model"
)

// Header is the first line of every export.
const Header = "日付,金額,店舗名,カテゴリ"

// FilenamePrefix starts every export file name.
const FilenamePrefix = "領収書データ_"

const (
	numFields   = 4
	colDate     = 0
	colAmount   = 1
	colStore    = 2
	colCategory = 3
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options tune the CSV output.
type Options struct {
	// BOM prefixes the output with a UTF-8 byte order mark so spreadsheet
	// apps detect the encoding.
	BOM bool
}

// MarshalReceipt converts a receipt to an export row.
func MarshalReceipt(r model.Receipt) []string {
	row := make([]string, numFields)
	row[colDate] = r.Date
	row[colAmount] = r.Amount
	row[colStore] = r.Store
	row[colCategory] = string(r.Category)
	return row
}

// WriteCSV writes the header and one row per receipt, in the order given.
// Fields containing commas, quotes or newlines are quoted.
func WriteCSV(w io.Writer, receipts []model.Receipt, opts Options) error {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("writing BOM: %w", err)
		}
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range receipts {
		if err := cw.Write(MarshalReceipt(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename returns 領収書データ_YYYY-MM-DD.<ext> for the local date of now.
func Filename(now time.Time, ext string) string {
	return FilenamePrefix + now.Format(model.DateFormat) + "." + strings.TrimPrefix(ext, ".")
}
