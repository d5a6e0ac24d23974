package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pratik-sharma-25/expenseTracker/internal/amqp"
	"github.com/pratik-sharma-25/expenseTracker/internal/core"
	"github.com/pratik-sharma-25/expenseTracker/internal/metrics"
	"github.com/pratik-sharma-25/expenseTracker/internal/storage"
)

const (
	maxApplyAttempts = 3
	retryBaseDelay   = 500 * time.Millisecond
)

// DeadLetterer parks messages that could not be decoded or applied.
type DeadLetterer interface {
	PublishDeadLetter(ctx context.Context, channel, reason string, body []byte) error
}

// ApplyEngine consumes mutation intents and applies them to the store. All
// applies are idempotent: redelivered creates are skipped, updates and
// deletes of missing or stale targets are silent no-ops, so at-least-once
// delivery and cross-channel reordering are both safe.
type ApplyEngine struct {
	store      storage.Store
	deadLetter DeadLetterer
}

func NewApplyEngine(store storage.Store, deadLetter DeadLetterer) *ApplyEngine {
	return &ApplyEngine{
		store:      store,
		deadLetter: deadLetter,
	}
}

// HandleMessage processes one delivery from an intent channel. It always
// returns nil: a malformed or poison message is parked on the dead-letter
// queue and dropped, never allowed to wedge the subscription.
func (e *ApplyEngine) HandleMessage(ctx context.Context, channel string, body []byte) error {
	intent, err := amqp.DecodeIntent(channel, body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping undecodable message",
			"channel", channel,
			"error", err)
		metrics.DecodeFailures.WithLabelValues(channel).Inc()
		e.park(ctx, channel, "decode: "+err.Error(), body)
		return nil
	}

	if err := e.applyWithRetry(ctx, intent); err != nil {
		slog.ErrorContext(ctx, "Apply failed after retries, dead-lettering",
			"channel", channel,
			"kind", intent.Kind,
			"expense_id", intent.ExpenseID,
			"error", err)
		e.park(ctx, channel, "apply: "+err.Error(), body)
	}

	return nil
}

// applyWithRetry retries store failures with exponential backoff. Apply
// no-ops are successes, so only infrastructure errors get retried.
func (e *ApplyEngine) applyWithRetry(ctx context.Context, intent core.MutationIntent) error {
	var err error
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBaseDelay << uint(attempt-1)):
			}
		}

		if err = e.apply(ctx, intent); err == nil {
			return nil
		}

		slog.WarnContext(ctx, "Apply attempt failed",
			"kind", intent.Kind,
			"expense_id", intent.ExpenseID,
			"attempt", attempt+1,
			"error", err)
	}
	return err
}

// apply is the single dispatch point for all three intent variants.
func (e *ApplyEngine) apply(ctx context.Context, intent core.MutationIntent) error {
	switch intent.Kind {
	case core.KindCreate:
		return e.applyCreate(ctx, intent)
	case core.KindUpdate:
		return e.applyUpdate(ctx, intent)
	case core.KindDelete:
		return e.applyDelete(ctx, intent)
	default:
		return fmt.Errorf("apply: %w", core.ErrInvalidIntentKind)
	}
}

func (e *ApplyEngine) applyCreate(ctx context.Context, intent core.MutationIntent) error {
	record := core.Expense{
		ExpenseID:   intent.ExpenseID,
		UserID:      intent.UserID,
		Title:       intent.Fields.Title,
		Description: intent.Fields.Description,
		Amount:      intent.Fields.Amount,
		Date:        intent.Fields.Date,
		Type:        intent.Fields.Type,
		CreatedOn:   intent.StampedOn,
		UpdatedOn:   intent.StampedOn,
	}

	inserted, err := e.store.InsertExpenseIfAbsent(ctx, record)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	if !inserted {
		// Redelivered create; the record is already there.
		metrics.IntentsApplied.WithLabelValues(string(intent.Kind), "noop").Inc()
		return nil
	}

	metrics.IntentsApplied.WithLabelValues(string(intent.Kind), "applied").Inc()
	slog.InfoContext(ctx, "Expense created",
		"expense_id", intent.ExpenseID,
		"user_id", intent.UserID)
	return nil
}

func (e *ApplyEngine) applyUpdate(ctx context.Context, intent core.MutationIntent) error {
	matched, err := e.store.UpdateExpenseWhere(ctx, intent.ExpenseID, intent.UserID, *intent.Fields, intent.StampedOn)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if !matched {
		// Create not yet applied, record deleted, or a newer write already
		// landed. At-least-once unordered delivery makes this normal.
		metrics.IntentsApplied.WithLabelValues(string(intent.Kind), "noop").Inc()
		slog.InfoContext(ctx, "Update matched nothing, skipped",
			"expense_id", intent.ExpenseID,
			"user_id", intent.UserID)
		return nil
	}

	metrics.IntentsApplied.WithLabelValues(string(intent.Kind), "applied").Inc()
	slog.InfoContext(ctx, "Expense updated",
		"expense_id", intent.ExpenseID,
		"user_id", intent.UserID)
	return nil
}

func (e *ApplyEngine) applyDelete(ctx context.Context, intent core.MutationIntent) error {
	matched, err := e.store.SoftDeleteExpense(ctx, intent.ExpenseID, intent.UserID, intent.StampedOn)
	if err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}
	if !matched {
		metrics.IntentsApplied.WithLabelValues(string(intent.Kind), "noop").Inc()
		slog.InfoContext(ctx, "Delete matched nothing, skipped",
			"expense_id", intent.ExpenseID,
			"user_id", intent.UserID)
		return nil
	}

	metrics.IntentsApplied.WithLabelValues(string(intent.Kind), "applied").Inc()
	slog.InfoContext(ctx, "Expense soft-deleted",
		"expense_id", intent.ExpenseID,
		"user_id", intent.UserID)
	return nil
}

func (e *ApplyEngine) park(ctx context.Context, channel, reason string, body []byte) {
	if e.deadLetter == nil {
		return
	}
	if err := e.deadLetter.PublishDeadLetter(ctx, channel, reason, body); err != nil {
		slog.ErrorContext(ctx, "Failed to dead-letter message",
			"channel", channel,
			"reason", reason,
			"error", err)
	}
}
