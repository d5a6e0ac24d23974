package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as bare JSON numbers on the wire and in API responses.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	Credit ExpenseType = "credit"
	Debit  ExpenseType = "debit"
)

type (
	ExpenseType string

	// Date is a calendar date without a time component.
	Date struct {
		time.Time
	}

	// Expense is the record visible to readers. ExpenseID is the stable public
	// identity assigned at creation time; the storage row id is never exposed.
	Expense struct {
		ExpenseID   string
		UserID      string
		Title       string
		Description string
		Amount      decimal.Decimal
		Date        Date
		Type        ExpenseType
		IsDeleted   bool
		CreatedOn   time.Time
		UpdatedOn   time.Time
	}

	// ExpenseFields is the mutable field set carried by create and update
	// intents.
	ExpenseFields struct {
		Title       string
		Description string
		Amount      decimal.Decimal
		Date        Date
		Type        ExpenseType
	}
)

var (
	ErrEmptyTitle      = errors.New("title is required")
	ErrTitleTooLong    = errors.New("title too long (max 200 characters)")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrFutureDate      = errors.New("date cannot be set to future")
	ErrInvalidDate     = errors.New("date is invalid")
	ErrInvalidType     = errors.New("type must be credit or debit")
	ErrMissingIdentity = errors.New("expense id is required")
	ErrMissingOwner    = errors.New("user id is required")

	ErrInvalidIntentKind = errors.New("unknown mutation intent kind")
	ErrMissingFields     = errors.New("intent has no field payload")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON accepts a quoted YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// InFuture reports whether the date lies after the given reference day.
func (d Date) InFuture(now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return d.Time.After(today)
}

func (t ExpenseType) Validate() error {
	switch t {
	case Credit, Debit:
		return nil
	default:
		return ErrInvalidType
	}
}

// Validate checks the field set against the record invariants. The reference
// time is used for the no-future-dates rule.
func (f ExpenseFields) Validate(now time.Time) error {
	if strings.TrimSpace(f.Title) == "" {
		return ErrEmptyTitle
	}
	if len(f.Title) > 200 {
		return ErrTitleTooLong
	}
	if f.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if err := f.Date.Validate(); err != nil {
		return err
	}
	if f.Date.InFuture(now) {
		return ErrFutureDate
	}
	return f.Type.Validate()
}
