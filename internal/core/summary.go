package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	SummaryYearly  SummaryPeriod = "yearly"
	SummaryMonthly SummaryPeriod = "monthly"
	SummaryWeekly  SummaryPeriod = "weekly"
)

type (
	SummaryPeriod string

	// SummaryRow holds credit and debit totals for one bucket of a period
	// grouping: the year for yearly, month number for monthly, ISO week for
	// weekly.
	SummaryRow struct {
		Bucket        int
		TotalIncome   decimal.Decimal
		TotalExpenses decimal.Decimal
	}
)

var ErrInvalidSummaryPeriod = errors.New("summary type must be yearly, monthly or weekly")

func (p SummaryPeriod) Validate() error {
	switch p {
	case SummaryYearly, SummaryMonthly, SummaryWeekly:
		return nil
	default:
		return ErrInvalidSummaryPeriod
	}
}
