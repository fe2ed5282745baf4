package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func tx(typ Type, cat Category, amount int64) Transaction {
	return Transaction{Type: typ, Category: cat, Amount: decimal.NewFromInt(amount)}
}

func TestComputeTotalsEmpty(t *testing.T) {
	got := ComputeTotals(nil)
	if !got.Income.IsZero() || !got.Expense.IsZero() || !got.Balance.IsZero() {
		t.Fatalf("expected zeros, got %+v", got)
	}
	if !got.Positive() {
		t.Fatalf("zero balance counts as positive")
	}
}

func TestComputeTotalsBalance(t *testing.T) {
	cases := [][]Transaction{
		{tx(Income, "salary", 5_000_000)},
		{tx(Expense, "food", 75_000)},
		{tx(Income, "salary", 5_000_000), tx(Expense, "food", 75_000), tx(Expense, "transport", 20_000)},
		{tx(Income, "bonus", 1), tx(Expense, "health", 2)},
	}
	for i, txs := range cases {
		got := ComputeTotals(txs)
		if !got.Balance.Equal(got.Income.Sub(got.Expense)) {
			t.Fatalf("case %d: balance %s != %s - %s", i, got.Balance, got.Income, got.Expense)
		}
	}

	got := ComputeTotals(cases[2])
	if !got.Income.Equal(decimal.NewFromInt(5_000_000)) || !got.Expense.Equal(decimal.NewFromInt(95_000)) {
		t.Fatalf("unexpected totals %+v", got)
	}
	if neg := ComputeTotals(cases[3]); neg.Positive() {
		t.Fatalf("expected negative balance, got %s", neg.Balance)
	}
}

func TestChartRowsEmpty(t *testing.T) {
	rows := ChartRows(nil)
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", rows)
	}
}

func TestChartRowsSameCategoryBothTypes(t *testing.T) {
	rows := ChartRows([]Transaction{
		tx(Income, "food", 100000),
		tx(Expense, "food", 40000),
	})
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	r := rows[0]
	if r.Category != "Food" || r.Key != "food" {
		t.Fatalf("unexpected label/key %q/%q", r.Category, r.Key)
	}
	if !r.Income.Equal(decimal.NewFromInt(100000)) || !r.Expense.Equal(decimal.NewFromInt(40000)) {
		t.Fatalf("unexpected sums %s/%s", r.Income, r.Expense)
	}
}

func TestChartRowsFirstSeenOrder(t *testing.T) {
	rows := ChartRows([]Transaction{
		tx(Expense, "transport", 1),
		tx(Income, "salary", 1),
		tx(Expense, "transport", 1),
		tx(Expense, "food", 1),
	})
	want := []string{"Transport", "Salary", "Food"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, w := range want {
		if rows[i].Category != w {
			t.Fatalf("row %d: expected %q, got %q", i, w, rows[i].Category)
		}
	}
	if !rows[0].Expense.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("transport expense should be 2, got %s", rows[0].Expense)
	}
}

func TestChartRowsConservation(t *testing.T) {
	txs := []Transaction{
		tx(Income, "salary", 5_000_000),
		tx(Income, "other", 250_000),
		tx(Expense, "other", 30_000),
		tx(Expense, "food", 75_000),
		tx(Expense, "food", 0),      // contributes nothing
		tx("transfer", "food", 999), // unknown type contributes nothing
		{Type: Income, Category: "bonus", Amount: decimal.NewFromInt(-10)},
	}
	totals := ComputeTotals(txs)
	income, expense := decimal.Zero, decimal.Zero
	for _, r := range ChartRows(txs) {
		income = income.Add(r.Income)
		expense = expense.Add(r.Expense)
	}
	if !income.Equal(totals.Income) || !expense.Equal(totals.Expense) {
		t.Fatalf("conservation broken: rows %s/%s totals %s/%s", income, expense, totals.Income, totals.Expense)
	}
}
