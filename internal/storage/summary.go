package storage

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pratik-sharma-25/expenseTracker/internal/core"
)

// aggregateSummary groups live expenses into per-bucket credit and debit
// totals. Buckets are calendar years for yearly, month numbers for monthly
// and ISO week numbers for weekly, sorted ascending. Totals are summed with
// decimals, never floats.
func aggregateSummary(expenses []core.Expense, period core.SummaryPeriod) []core.SummaryRow {
	byBucket := make(map[int]*core.SummaryRow)

	for _, e := range expenses {
		if e.IsDeleted {
			continue
		}

		var bucket int
		switch period {
		case core.SummaryYearly:
			bucket = e.Date.Year()
		case core.SummaryMonthly:
			bucket = int(e.Date.Month())
		case core.SummaryWeekly:
			_, bucket = e.Date.ISOWeek()
		}

		row, ok := byBucket[bucket]
		if !ok {
			row = &core.SummaryRow{
				Bucket:        bucket,
				TotalIncome:   decimal.Zero,
				TotalExpenses: decimal.Zero,
			}
			byBucket[bucket] = row
		}

		switch e.Type {
		case core.Credit:
			row.TotalIncome = row.TotalIncome.Add(e.Amount)
		case core.Debit:
			row.TotalExpenses = row.TotalExpenses.Add(e.Amount)
		}
	}

	rows := make([]core.SummaryRow, 0, len(byBucket))
	for _, row := range byBucket {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Bucket < rows[j].Bucket })

	return rows
}
