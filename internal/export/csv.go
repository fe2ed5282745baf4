// Package export turns a session's transactions into tabular rows for CSV
// downloads and spreadsheet appends. Photos are never exported.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"keuangan/internal/core"
)

// Header is the column order shared by every export.
var Header = []string{"date", "description", "category", "type", "amount", "has_photo"}

// Row renders one transaction in Header order. Amounts are plain decimals
// so spreadsheets read them as numbers.
func Row(tx core.Transaction) []string {
	return []string{
		tx.Date,
		tx.Description,
		string(tx.Category),
		string(tx.Type),
		tx.Amount.String(),
		strconv.FormatBool(tx.HasPhoto()),
	}
}

// Rows renders txs in display order, without the header.
func Rows(txs []core.Transaction) [][]string {
	out := make([][]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, Row(tx))
	}
	return out
}

// WriteCSV writes the header and one line per transaction. Cells that a
// spreadsheet would read as a formula are prefixed with a quote.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rows := Rows(txs)
	for _, row := range rows {
		for i, cell := range row {
			row[i] = neutralize(cell)
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

func neutralize(cell string) string {
	if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}

// Filename is the download name for an export taken at date (YYYY-MM-DD).
func Filename(date string) string {
	return "transactions-" + date + ".csv"
}
