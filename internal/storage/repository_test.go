package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"keuangan/internal/core"
	"keuangan/internal/ledger"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := NewSQLiteRepository(context.Background())
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func record(id int64, desc string, typ core.Type, cat core.Category, amount string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Description: desc,
		Amount:      decimal.RequireFromString(amount),
		Type:        typ,
		Category:    cat,
		Date:        "3/7/2025",
		CreatedAt:   time.Date(2025, 3, 7, 9, 30, 0, 123, time.UTC),
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	in := record(42, "Lunch", core.Expense, "food", "50000.5")
	in.Photo = "data:image/png;base64,AAAA"
	if err := r.Append(ctx, in); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := r.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Description != in.Description || !got.Amount.Equal(in.Amount) || got.Type != in.Type ||
		got.Category != in.Category || got.Photo != in.Photo || got.Date != in.Date ||
		!got.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("round trip mismatch:\n in=%+v\ngot=%+v", in, got)
	}
}

func TestRepositoryListOrderAndErrors(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)

	empty, err := r.List(ctx)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v %v", empty, err)
	}

	// Insertion order wins over id order.
	_ = r.Append(ctx, record(3, "third id first", core.Income, "salary", "1"))
	_ = r.Append(ctx, record(1, "first id second", core.Expense, "health", "2"))
	list, err := r.List(ctx)
	if err != nil || len(list) != 2 || list[0].ID != 3 || list[1].ID != 1 {
		t.Fatalf("unexpected list %v %v", list, err)
	}

	if err := r.Append(ctx, record(3, "dup", core.Income, "salary", "1")); !errors.Is(err, ledger.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if err := r.Append(ctx, record(4, "bad", core.Income, "food", "1")); !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := r.Get(ctx, 99); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepositoriesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, b := newRepo(t), newRepo(t)
	_ = a.Append(ctx, record(1, "only in a", core.Income, "bonus", "10"))
	list, err := b.List(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("b should be empty, got %v %v", list, err)
	}
}

func TestRepositoryClose(t *testing.T) {
	ctx := context.Background()
	r := newRepo(t)
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := r.List(ctx); !errors.Is(err, ledger.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := r.Ping(ctx); !errors.Is(err, ledger.ErrClosed) {
		t.Fatalf("expected ErrClosed from ping, got %v", err)
	}
}
