// Package memory is an in-process stand-in for a spreadsheet tab. It lets
// the sheets export run locally without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"keuangan/internal/core"
	"keuangan/internal/export"
	"keuangan/internal/ledger"
)

var _ ledger.Exporter = (*Sheet)(nil)

// Sheet keeps appended rows below a header row, like a real tab would.
type Sheet struct {
	mu   sync.Mutex
	name string
	rows [][]string
}

func New(name string) *Sheet {
	if name == "" {
		name = "Transactions"
	}
	return &Sheet{name: name}
}

// Export appends one row per transaction and returns the A1 range written.
func (s *Sheet) Export(ctx context.Context, txs []core.Transaction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(txs) == 0 {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Row 1 holds the header.
	first := len(s.rows) + 2
	s.rows = append(s.rows, export.Rows(txs)...)
	last := len(s.rows) + 1
	lastCol := 'A' + rune(len(export.Header)) - 1
	return fmt.Sprintf("%s!A%d:%c%d", s.name, first, lastCol, last), nil
}

// Rows returns a copy of everything exported so far, without the header.
func (s *Sheet) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
