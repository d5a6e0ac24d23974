package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pratik-sharma-25/expenseTracker/internal/core"
)

// MemoryStore is a map-backed Store used in tests and for local development
// without a database file. Semantics mirror SQLiteStore exactly, including
// the updatedOn guard on conditional writes.
type MemoryStore struct {
	mu       sync.RWMutex
	expenses map[string]core.Expense // keyed by expense id
	users    map[string]core.User    // keyed by email
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		expenses: make(map[string]core.Expense),
		users:    make(map[string]core.User),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) InsertExpenseIfAbsent(_ context.Context, e core.Expense) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[e.ExpenseID]; exists {
		return false, nil
	}
	s.expenses[e.ExpenseID] = e
	return true, nil
}

func (s *MemoryStore) UpdateExpenseWhere(_ context.Context, expenseID, userID string, fields core.ExpenseFields, updatedOn time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.expenses[expenseID]
	if !exists || e.UserID != userID || e.IsDeleted || e.UpdatedOn.After(updatedOn) {
		return false, nil
	}

	e.Title = fields.Title
	e.Description = fields.Description
	e.Amount = fields.Amount
	e.Date = fields.Date
	e.Type = fields.Type
	e.UpdatedOn = updatedOn
	s.expenses[expenseID] = e
	return true, nil
}

func (s *MemoryStore) SoftDeleteExpense(_ context.Context, expenseID, userID string, deletedOn time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.expenses[expenseID]
	if !exists || e.UserID != userID || e.UpdatedOn.After(deletedOn) {
		return false, nil
	}

	e.IsDeleted = true
	e.UpdatedOn = deletedOn
	s.expenses[expenseID] = e
	return true, nil
}

func (s *MemoryStore) GetExpenseByID(_ context.Context, expenseID string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.expenses[expenseID]
	if !exists {
		return core.Expense{}, ErrNotFound
	}
	return e, nil
}

func (s *MemoryStore) ListExpenses(_ context.Context, filter ListFilter) ([]core.Expense, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []core.Expense
	for _, e := range s.expenses {
		if e.UserID != filter.UserID || e.IsDeleted {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(e.Title), needle) &&
				!strings.Contains(strings.ToLower(e.Description), needle) {
				continue
			}
		}
		if !filter.Date.IsZero() && !e.Date.Equal(filter.Date.Time) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date.Time) {
			return matched[i].Date.After(matched[j].Date.Time)
		}
		return matched[i].CreatedOn.After(matched[j].CreatedOn)
	})

	total := int64(len(matched))

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end], total, nil
}

func (s *MemoryStore) SummaryRows(_ context.Context, userID string, period core.SummaryPeriod) ([]core.SummaryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []core.Expense
	for _, e := range s.expenses {
		if e.UserID == userID {
			owned = append(owned, e)
		}
	}

	return aggregateSummary(owned, period), nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.Email]; exists {
		return ErrDuplicateEmail
	}
	s.users[u.Email] = u
	return nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, exists := s.users[email]
	if !exists {
		return core.User{}, ErrNotFound
	}
	return u, nil
}
