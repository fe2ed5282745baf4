// Package memory is the slice-backed ledger store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"keuangan/internal/core"
	"keuangan/internal/ledger"
)

type Store struct {
	mu     sync.RWMutex
	items  []core.Transaction
	ids    map[int64]int
	closed bool
}

func New() *Store {
	return &Store{ids: make(map[int64]int)}
}

// Append stores tx at the end of the list.
func (s *Store) Append(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ledger.ErrClosed
	}
	if _, dup := s.ids[tx.ID]; dup {
		return fmt.Errorf("append transaction %d: %w", tx.ID, ledger.ErrDuplicateID)
	}
	s.ids[tx.ID] = len(s.items)
	s.items = append(s.items, tx)
	return nil
}

func (s *Store) List(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ledger.ErrClosed
	}
	return append([]core.Transaction(nil), s.items...), nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return core.Transaction{}, ledger.ErrClosed
	}
	i, ok := s.ids[id]
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return s.items[i], nil
}

// Close drops the records. Closing twice is fine.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	s.ids = nil
	return nil
}
