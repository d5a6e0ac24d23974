package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pratik-sharma-25/expenseTracker/internal/core"
)

var (
	// ErrNotFound is returned by point lookups when no record matches.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when a signup reuses an existing email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// ListFilter narrows an expense listing. Soft-deleted records are always
// excluded. Page is 1-based.
type ListFilter struct {
	UserID string
	Search string
	Date   core.Date
	Page   int
	Limit  int
}

// Store is the document-store seam the API read path and the apply engine
// write path share. All three mutations are conditional match-then-set
// operations keyed by (expenseID, userID) and must be no-op-safe when
// nothing matches.
type Store interface {
	// InsertExpenseIfAbsent inserts a new record unless one with the same
	// expense id already exists; redelivered creates report inserted=false.
	InsertExpenseIfAbsent(ctx context.Context, e core.Expense) (inserted bool, err error)

	// UpdateExpenseWhere replaces the field set of the record matching
	// (expenseID, userID) whose stored updatedOn is not newer than the given
	// stamp. Returns matched=false when nothing qualifies.
	UpdateExpenseWhere(ctx context.Context, expenseID, userID string, fields core.ExpenseFields, updatedOn time.Time) (matched bool, err error)

	// SoftDeleteExpense marks the matching record deleted and refreshes its
	// updatedOn. The row is never removed.
	SoftDeleteExpense(ctx context.Context, expenseID, userID string, deletedOn time.Time) (matched bool, err error)

	// GetExpenseByID looks a record up by its public id, including
	// soft-deleted ones.
	GetExpenseByID(ctx context.Context, expenseID string) (core.Expense, error)

	// ListExpenses returns one page of the owner's live records plus the
	// total count matching the filter.
	ListExpenses(ctx context.Context, filter ListFilter) ([]core.Expense, int64, error)

	// SummaryRows aggregates the owner's live records into per-bucket credit
	// and debit totals for the given period.
	SummaryRows(ctx context.Context, userID string, period core.SummaryPeriod) ([]core.SummaryRow, error)

	CreateUser(ctx context.Context, u core.User) error
	GetUserByEmail(ctx context.Context, email string) (core.User, error)

	Close() error
}
