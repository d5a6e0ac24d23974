package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/pratik-sharma-25/expenseTracker/internal/core"
)

// SQLiteStore implements Store on a local SQLite database. The integer row id
// stays internal; expense_id is the public identity and carries a UNIQUE
// constraint, which is what makes the idempotent insert work.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) InsertExpenseIfAbsent(ctx context.Context, e core.Expense) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (expense_id, user_id, title, description, amount, date, type, is_deleted, created_on, updated_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(expense_id) DO NOTHING`,
		e.ExpenseID, e.UserID, e.Title, e.Description, e.Amount.String(),
		e.Date.String(), string(e.Type), e.CreatedOn.UnixMilli(), e.UpdatedOn.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("insert expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		slog.InfoContext(ctx, "Expense already exists, insert skipped", "expense_id", e.ExpenseID)
		return false, nil
	}

	return true, nil
}

func (s *SQLiteStore) UpdateExpenseWhere(ctx context.Context, expenseID, userID string, fields core.ExpenseFields, updatedOn time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET title = ?, description = ?, amount = ?, date = ?, type = ?, updated_on = ?
		WHERE expense_id = ? AND user_id = ? AND is_deleted = 0 AND updated_on <= ?`,
		fields.Title, fields.Description, fields.Amount.String(), fields.Date.String(),
		string(fields.Type), updatedOn.UnixMilli(),
		expenseID, userID, updatedOn.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("update expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

func (s *SQLiteStore) SoftDeleteExpense(ctx context.Context, expenseID, userID string, deletedOn time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET is_deleted = 1, updated_on = ?
		WHERE expense_id = ? AND user_id = ? AND updated_on <= ?`,
		deletedOn.UnixMilli(), expenseID, userID, deletedOn.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("soft delete expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return affected > 0, nil
}

const expenseColumns = `expense_id, user_id, title, description, amount, date, type, is_deleted, created_on, updated_on`

func (s *SQLiteStore) GetExpenseByID(ctx context.Context, expenseID string) (core.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE expense_id = ?`, expenseID)

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}

	return e, nil
}

func (s *SQLiteStore) ListExpenses(ctx context.Context, filter ListFilter) ([]core.Expense, int64, error) {
	where := `WHERE user_id = ? AND is_deleted = 0`
	args := []any{filter.UserID}

	if filter.Search != "" {
		where += ` AND (title LIKE ? OR description LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if !filter.Date.IsZero() {
		where += ` AND date = ?`
		args = append(args, filter.Date.String())
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses `+where+
			` ORDER BY date DESC, created_on DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expenses: %w", err)
	}

	return expenses, total, nil
}

func (s *SQLiteStore) SummaryRows(ctx context.Context, userID string, period core.SummaryPeriod) ([]core.SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE user_id = ? AND is_deleted = 0`, userID)
	if err != nil {
		return nil, fmt.Errorf("query expenses for summary: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	return aggregateSummary(expenses, period), nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u core.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_on)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedOn.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var (
		u         core.User
		createdOn int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_on FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdOn)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}

	u.CreatedOn = time.UnixMilli(createdOn).UTC()
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e         core.Expense
		amount    string
		date      string
		typ       string
		isDeleted int64
		createdOn int64
		updatedOn int64
	)
	err := row.Scan(&e.ExpenseID, &e.UserID, &e.Title, &e.Description,
		&amount, &date, &typ, &isDeleted, &createdOn, &updatedOn)
	if err != nil {
		return core.Expense{}, err
	}

	e.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	e.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse stored date %q: %w", date, err)
	}
	e.Type = core.ExpenseType(typ)
	e.IsDeleted = isDeleted != 0
	e.CreatedOn = time.UnixMilli(createdOn).UTC()
	e.UpdatedOn = time.UnixMilli(updatedOn).UTC()

	return e, nil
}
