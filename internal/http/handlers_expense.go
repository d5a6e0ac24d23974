package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pratik-sharma-25/expenseTracker/internal/core"
	"github.com/pratik-sharma-25/expenseTracker/internal/storage"
)

// expenseRequest is the mutation body for create and update. Amount accepts
// both bare numbers and numeric strings.
type expenseRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Type        string          `json:"type"`
}

func (req expenseRequest) toFields() (core.ExpenseFields, error) {
	date, err := core.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return core.ExpenseFields{}, err
	}
	return core.ExpenseFields{
		Title:       sanitizeInput(req.Title),
		Description: sanitizeInput(req.Description),
		Amount:      req.Amount,
		Date:        date,
		Type:        core.ExpenseType(strings.ToLower(strings.TrimSpace(req.Type))),
	}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields, err := req.toFields()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := userFromContext(r.Context())
	expenseID, err := s.expenses.Create(r.Context(), userID, fields)
	if err != nil {
		s.writeMutationError(w, r, "create", err)
		return
	}

	// The response goes out as soon as the intent is on the bus; the record
	// itself appears once the worker applies it.
	writeJSON(w, http.StatusCreated, map[string]string{
		"message":   "Expense created successfully",
		"expenseId": expenseID,
	})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	filter := storage.ListFilter{
		UserID: userFromContext(r.Context()),
		Search: sanitizeInput(r.URL.Query().Get("search")),
		Page:   page,
		Limit:  limit,
	}

	if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
		date, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Date is invalid")
			return
		}
		filter.Date = date
	}

	expenses, total, err := s.expenses.List(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "Error retrieving expenses")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"expenses":     toExpenseResponses(expenses),
		"expenseCount": total,
	})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.expenses.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to get expense", "error", err)
		writeError(w, http.StatusInternalServerError, "Error retrieving expense")
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields, err := req.toFields()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := userFromContext(r.Context())
	if err := s.expenses.Update(r.Context(), userID, r.PathValue("id"), fields); err != nil {
		s.writeMutationError(w, r, "update", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Expense updated successfully"})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID := userFromContext(r.Context())
	if err := s.expenses.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeMutationError(w, r, "delete", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Expense will be deleted shortly"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period := core.SummaryPeriod(strings.TrimSpace(r.URL.Query().Get("type")))
	if err := period.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Type is invalid, could be either %s, %s, %s",
			core.SummaryYearly, core.SummaryMonthly, core.SummaryWeekly))
		return
	}

	userID := userFromContext(r.Context())
	cacheKey := userID + ":" + string(period)
	if rows, ok := s.summaryCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, toSummaryResponse(rows))
		return
	}

	rows, err := s.expenses.Summary(r.Context(), userID, period)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute summary", "error", err, "period", period)
		writeError(w, http.StatusInternalServerError, "Error fetching summary")
		return
	}
	s.summaryCache.Set(cacheKey, rows)

	writeJSON(w, http.StatusOK, toSummaryResponse(rows))
}

type summaryRowResponse struct {
	Bucket        int             `json:"bucket"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
}

func toSummaryResponse(rows []core.SummaryRow) []summaryRowResponse {
	out := make([]summaryRowResponse, len(rows))
	for i, row := range rows {
		out[i] = summaryRowResponse{
			Bucket:        row.Bucket,
			TotalIncome:   row.TotalIncome,
			TotalExpenses: row.TotalExpenses,
		}
	}
	return out
}

// writeMutationError maps write-path failures: validation problems are the
// client's fault, a missing target is 404, anything else (including a bus
// publish failure, which means the intent is lost) is a 500.
func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrTitleTooLong),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrFutureDate),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Expense not found")
	default:
		slog.ErrorContext(r.Context(), "Expense mutation failed",
			"operation", op,
			"error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error in expense %s", op))
	}
}
