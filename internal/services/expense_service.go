package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pratik-sharma-25/expenseTracker/internal/amqp"
	"github.com/pratik-sharma-25/expenseTracker/internal/core"
	"github.com/pratik-sharma-25/expenseTracker/internal/storage"
)

// Publisher is the write-side seam to the message bus.
type Publisher interface {
	Publish(ctx context.Context, channel string, body []byte) error
}

// ExpenseService owns both halves of the split architecture from the API's
// point of view: mutations are validated and published as intents (the store
// is never written here), reads query the store directly. Between publish and
// apply there is a window where reads do not yet reflect the mutation.
type ExpenseService struct {
	store storage.Store
	bus   Publisher
	now   func() time.Time
}

func NewExpenseService(store storage.Store, bus Publisher) *ExpenseService {
	return &ExpenseService{
		store: store,
		bus:   bus,
		now:   time.Now,
	}
}

// Create validates the field set, assigns a fresh expense id and publishes a
// create intent. The returned id is the record's identity for all subsequent
// requests; the record itself materialises once the worker applies the
// intent.
func (s *ExpenseService) Create(ctx context.Context, userID string, fields core.ExpenseFields) (string, error) {
	if err := fields.Validate(s.now()); err != nil {
		return "", err
	}

	intent := core.MutationIntent{
		Kind:      core.KindCreate,
		ExpenseID: uuid.NewString(),
		UserID:    userID,
		Fields:    &fields,
		StampedOn: s.now().UTC(),
	}

	if err := s.publish(ctx, intent); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Create intent published",
		"expense_id", intent.ExpenseID,
		"user_id", userID)
	return intent.ExpenseID, nil
}

// Update validates the replacement field set and publishes an update intent
// for the given record.
func (s *ExpenseService) Update(ctx context.Context, userID, expenseID string, fields core.ExpenseFields) error {
	if err := fields.Validate(s.now()); err != nil {
		return err
	}

	if _, err := s.store.GetExpenseByID(ctx, expenseID); err != nil {
		return err
	}

	intent := core.MutationIntent{
		Kind:      core.KindUpdate,
		ExpenseID: expenseID,
		UserID:    userID,
		Fields:    &fields,
		StampedOn: s.now().UTC(),
	}

	if err := s.publish(ctx, intent); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Update intent published",
		"expense_id", expenseID,
		"user_id", userID)
	return nil
}

// Delete publishes a soft-delete intent. The record is tombstoned by the
// worker, never physically removed.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID string) error {
	if _, err := s.store.GetExpenseByID(ctx, expenseID); err != nil {
		return err
	}

	intent := core.MutationIntent{
		Kind:      core.KindDelete,
		ExpenseID: expenseID,
		UserID:    userID,
	}

	if err := s.publish(ctx, intent); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Delete intent published",
		"expense_id", expenseID,
		"user_id", userID)
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, intent core.MutationIntent) error {
	channel, body, err := amqp.EncodeIntent(intent)
	if err != nil {
		return fmt.Errorf("encode %s intent: %w", intent.Kind, err)
	}
	if err := s.bus.Publish(ctx, channel, body); err != nil {
		return fmt.Errorf("publish %s intent: %w", intent.Kind, err)
	}
	return nil
}

// Get returns a record by its public id, including soft-deleted ones.
func (s *ExpenseService) Get(ctx context.Context, expenseID string) (core.Expense, error) {
	return s.store.GetExpenseByID(ctx, expenseID)
}

// List returns one page of the owner's live records and the total match
// count.
func (s *ExpenseService) List(ctx context.Context, filter storage.ListFilter) ([]core.Expense, int64, error) {
	return s.store.ListExpenses(ctx, filter)
}

// Summary aggregates the owner's records into per-bucket income and expense
// totals.
func (s *ExpenseService) Summary(ctx context.Context, userID string, period core.SummaryPeriod) ([]core.SummaryRow, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return s.store.SummaryRows(ctx, userID, period)
}
