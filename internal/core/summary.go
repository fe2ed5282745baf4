package core

import "github.com/shopspring/decimal"

// Totals is the KPI summary of a transaction list.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// ChartRow is the per-category income and expense sum used by the bar chart.
type ChartRow struct {
	Key      Category // raw category token used for grouping
	Category string   // display label, first letter capitalised
	Income   decimal.Decimal
	Expense  decimal.Decimal
}

// Positive reports whether the balance is zero or above.
func (t Totals) Positive() bool {
	return !t.Balance.IsNegative()
}

// contribution returns the income and expense parts a transaction adds to
// the aggregates. Amounts that are not positive and unknown types add zero.
func contribution(tx Transaction) (income, expense decimal.Decimal) {
	if !tx.Amount.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	switch tx.Type {
	case Income:
		return tx.Amount, decimal.Zero
	case Expense:
		return decimal.Zero, tx.Amount
	}
	return decimal.Zero, decimal.Zero
}

// ComputeTotals sums income and expense over txs. An empty list yields zeros.
func ComputeTotals(txs []Transaction) Totals {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		in, out := contribution(tx)
		income = income.Add(in)
		expense = expense.Add(out)
	}
	return Totals{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}
}

// ChartRows groups txs by category in first-seen order. Grouping is
// case-sensitive on the raw token; the label is only capitalised for display.
// An empty list yields an empty, non-nil slice.
func ChartRows(txs []Transaction) []ChartRow {
	rows := make([]ChartRow, 0)
	index := make(map[Category]int)
	for _, tx := range txs {
		i, ok := index[tx.Category]
		if !ok {
			i = len(rows)
			index[tx.Category] = i
			rows = append(rows, ChartRow{
				Key:      tx.Category,
				Category: tx.Category.Label(),
				Income:   decimal.Zero,
				Expense:  decimal.Zero,
			})
		}
		in, out := contribution(tx)
		rows[i].Income = rows[i].Income.Add(in)
		rows[i].Expense = rows[i].Expense.Add(out)
	}
	return rows
}
