package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratik-sharma-25/expenseTracker/internal/amqp"
	"github.com/pratik-sharma-25/expenseTracker/internal/core"
	"github.com/pratik-sharma-25/expenseTracker/internal/storage"
)

type fakeDeadLetterer struct {
	mu     sync.Mutex
	parked []string // reasons
}

func (f *fakeDeadLetterer) PublishDeadLetter(_ context.Context, _, reason string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parked = append(f.parked, reason)
	return nil
}

func (f *fakeDeadLetterer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.parked)
}

// failingStore wraps the memory store and fails inserts a fixed number of
// times to exercise the retry path.
type failingStore struct {
	storage.Store
	mu       sync.Mutex
	failures int
}

func (s *failingStore) InsertExpenseIfAbsent(ctx context.Context, e core.Expense) (bool, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return false, errors.New("store unavailable")
	}
	s.mu.Unlock()
	return s.Store.InsertExpenseIfAbsent(ctx, e)
}

func createBody(t *testing.T, expenseID, userID string) []byte {
	t.Helper()
	body, err := json.Marshal(amqp.CreateMessage{
		ExpenseID: expenseID,
		Title:     "Lunch",
		Amount:    decimal.RequireFromString("12.5"),
		Date:      core.NewDate(2024, 3, 1),
		Type:      string(core.Debit),
		User:      userID,
		CreatedOn: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func updateBody(t *testing.T, expenseID, userID, amount string, updatedOn time.Time) []byte {
	t.Helper()
	body, err := json.Marshal(amqp.UpdateMessage{
		ExpenseID: expenseID,
		UserID:    userID,
		Title:     "Lunch",
		Amount:    decimal.RequireFromString(amount),
		Date:      core.NewDate(2024, 3, 1),
		Type:      string(core.Debit),
		UpdatedOn: updatedOn,
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func deleteBody(t *testing.T, expenseID, userID string) []byte {
	t.Helper()
	body, err := json.Marshal(amqp.DeleteMessage{UserID: userID, ExpenseID: expenseID})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestHandleMessage_IdempotentCreate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	engine := NewApplyEngine(store, &fakeDeadLetterer{})
	body := createBody(t, "exp-1", "user-a")

	// Same create delivered twice: exactly one record, no error.
	for i := 0; i < 2; i++ {
		if err := engine.HandleMessage(ctx, amqp.ChannelCreate, body); err != nil {
			t.Fatalf("HandleMessage() delivery %d error = %v", i+1, err)
		}
	}

	got, err := store.GetExpenseByID(ctx, "exp-1")
	if err != nil {
		t.Fatalf("record not created: %v", err)
	}
	if got.IsDeleted {
		t.Error("fresh record should not be deleted")
	}
	if !got.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Amount = %s, want 12.5", got.Amount)
	}

	_, total, err := store.ListExpenses(ctx, storage.ListFilter{UserID: "user-a"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("total = %d, want exactly 1", total)
	}
}

func TestHandleMessage_DeleteBeforeCreate(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	engine := NewApplyEngine(store, &fakeDeadLetterer{})

	// Delete arrives first: must not crash, must not create a phantom row.
	if err := engine.HandleMessage(ctx, amqp.ChannelDelete, deleteBody(t, "exp-1", "user-a")); err != nil {
		t.Fatalf("early delete error = %v", err)
	}
	if _, err := store.GetExpenseByID(ctx, "exp-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("phantom record after early delete: err = %v", err)
	}

	// Create applied afterwards: the record exists, not deleted.
	if err := engine.HandleMessage(ctx, amqp.ChannelCreate, createBody(t, "exp-1", "user-a")); err != nil {
		t.Fatalf("create error = %v", err)
	}
	got, err := store.GetExpenseByID(ctx, "exp-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.IsDeleted {
		t.Error("IsDeleted = true, want false (early delete is dropped)")
	}
}

func TestHandleMessage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	engine := NewApplyEngine(store, &fakeDeadLetterer{})

	if err := engine.HandleMessage(ctx, amqp.ChannelCreate, createBody(t, "exp-1", "user-a")); err != nil {
		t.Fatal(err)
	}
	created, err := store.GetExpenseByID(ctx, "exp-1")
	if err != nil {
		t.Fatal(err)
	}

	update := updateBody(t, "exp-1", "user-a", "15.0", created.UpdatedOn.Add(time.Minute))
	if err := engine.HandleMessage(ctx, amqp.ChannelUpdate, update); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetExpenseByID(ctx, "exp-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("15")) {
		t.Errorf("Amount = %s, want 15", got.Amount)
	}
	if !got.UpdatedOn.After(created.UpdatedOn) {
		t.Errorf("UpdatedOn = %v, want later than %v", got.UpdatedOn, created.UpdatedOn)
	}

	if err := engine.HandleMessage(ctx, amqp.ChannelDelete, deleteBody(t, "exp-1", "user-a")); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetExpenseByID(ctx, "exp-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsDeleted {
		t.Error("IsDeleted = false after delete intent")
	}
}

func TestHandleMessage_StaleUpdateSkipped(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	engine := NewApplyEngine(store, &fakeDeadLetterer{})

	if err := engine.HandleMessage(ctx, amqp.ChannelCreate, createBody(t, "exp-1", "user-a")); err != nil {
		t.Fatal(err)
	}
	created, _ := store.GetExpenseByID(ctx, "exp-1")

	fresh := updateBody(t, "exp-1", "user-a", "20", created.UpdatedOn.Add(2*time.Minute))
	stale := updateBody(t, "exp-1", "user-a", "5", created.UpdatedOn.Add(time.Minute))

	if err := engine.HandleMessage(ctx, amqp.ChannelUpdate, fresh); err != nil {
		t.Fatal(err)
	}
	// Redelivered older update arrives after the newer one.
	if err := engine.HandleMessage(ctx, amqp.ChannelUpdate, stale); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetExpenseByID(ctx, "exp-1")
	if !got.Amount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Amount = %s, want 20 (stale update must not win)", got.Amount)
	}
}

func TestHandleMessage_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	engine := NewApplyEngine(store, &fakeDeadLetterer{})

	if err := engine.HandleMessage(ctx, amqp.ChannelCreate, createBody(t, "exp-1", "user-a")); err != nil {
		t.Fatal(err)
	}

	hostile := deleteBody(t, "exp-1", "user-b")
	if err := engine.HandleMessage(ctx, amqp.ChannelDelete, hostile); err != nil {
		t.Fatal(err)
	}

	got, _ := store.GetExpenseByID(ctx, "exp-1")
	if got.IsDeleted {
		t.Error("delete from another owner must not touch the record")
	}
}

func TestHandleMessage_MalformedPayload(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	parked := &fakeDeadLetterer{}
	engine := NewApplyEngine(store, parked)

	// Malformed message is parked and dropped...
	if err := engine.HandleMessage(ctx, amqp.ChannelCreate, []byte(`{"expenseId": `)); err != nil {
		t.Fatalf("malformed payload should not surface an error, got %v", err)
	}
	if parked.count() != 1 {
		t.Errorf("dead-lettered = %d, want 1", parked.count())
	}

	// ...and the next valid message on the same channel still applies.
	if err := engine.HandleMessage(ctx, amqp.ChannelCreate, createBody(t, "exp-1", "user-a")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetExpenseByID(ctx, "exp-1"); err != nil {
		t.Errorf("valid message after malformed one was not applied: %v", err)
	}
}

func TestHandleMessage_StoreFailureRetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: storage.NewMemoryStore(), failures: 2}
	parked := &fakeDeadLetterer{}
	engine := NewApplyEngine(store, parked)

	if err := engine.HandleMessage(ctx, amqp.ChannelCreate, createBody(t, "exp-1", "user-a")); err != nil {
		t.Fatal(err)
	}
	if parked.count() != 0 {
		t.Errorf("dead-lettered = %d, want 0 (retry should have recovered)", parked.count())
	}
	if _, err := store.GetExpenseByID(ctx, "exp-1"); err != nil {
		t.Errorf("record missing after retries: %v", err)
	}
}

func TestHandleMessage_StoreFailureDeadLetters(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: storage.NewMemoryStore(), failures: maxApplyAttempts}
	parked := &fakeDeadLetterer{}
	engine := NewApplyEngine(store, parked)

	if err := engine.HandleMessage(ctx, amqp.ChannelCreate, createBody(t, "exp-1", "user-a")); err != nil {
		t.Fatalf("poison message should be swallowed, got %v", err)
	}
	if parked.count() != 1 {
		t.Errorf("dead-lettered = %d, want 1", parked.count())
	}
	if _, err := store.GetExpenseByID(ctx, "exp-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("record should not exist, err = %v", err)
	}
}
