package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"finanote/internal/core"
	"finanote/internal/ports"
)

// ExpenseService applies ownership rules on top of the expense store and
// computes monthly dashboards.
type ExpenseService struct {
	expenses  ports.ExpenseStore
	users     ports.UserStore
	publisher ports.EventPublisher
}

// NewExpenseService wires the service. publisher may be nil.
func NewExpenseService(expenses ports.ExpenseStore, users ports.UserStore, publisher ports.EventPublisher) *ExpenseService {
	return &ExpenseService{
		expenses:  expenses,
		users:     users,
		publisher: publisher,
	}
}

// Create stores a new expense owned by userID.
func (s *ExpenseService) Create(ctx context.Context, userID int64, f core.ExpenseFields) (core.Expense, error) {
	if err := f.Validate(); err != nil {
		return core.Expense{}, err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return core.Expense{}, fmt.Errorf("user %d: %w", userID, err)
	}

	e := core.Expense{UserID: userID}
	e.Apply(f)
	saved, err := s.expenses.Save(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense created",
		"expense_id", saved.ID,
		"user_id", userID,
		"amount_cents", saved.Amount.Cents,
		"category", saved.Category,
		"operation", "create")

	s.publish(ctx, core.NewExpenseEvent(core.ExpenseCreated, saved))
	return saved, nil
}

// List returns every expense of userID, newest first.
func (s *ExpenseService) List(ctx context.Context, userID int64) ([]core.Expense, error) {
	items, err := s.expenses.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return items, nil
}

// ListByMonth returns the expenses of userID dated within year/month, newest first.
func (s *ExpenseService) ListByMonth(ctx context.Context, userID int64, year, month int) ([]core.Expense, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return nil, err
	}
	items, err := s.expenses.FindByUserAndMonth(ctx, userID, year, month)
	if err != nil {
		return nil, fmt.Errorf("list expenses for %d-%02d: %w", year, month, err)
	}
	return items, nil
}

// ListByDateRange returns expenses of userID dated between start and end inclusive.
func (s *ExpenseService) ListByDateRange(ctx context.Context, userID int64, start, end core.Date) ([]core.Expense, error) {
	if err := start.Validate(); err != nil {
		return nil, core.NewValidationError("start", err)
	}
	if err := end.Validate(); err != nil {
		return nil, core.NewValidationError("end", err)
	}
	if end.Before(start.Time) {
		return nil, core.NewValidationError("end", core.ErrInvalidRange)
	}
	items, err := s.expenses.FindByUserAndDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list expenses between %s and %s: %w", start, end, err)
	}
	return items, nil
}

// Get returns an expense owned by userID.
func (s *ExpenseService) Get(ctx context.Context, userID, expenseID int64) (core.Expense, error) {
	return s.owned(ctx, userID, expenseID)
}

// Update replaces every editable field of an expense owned by userID.
func (s *ExpenseService) Update(ctx context.Context, userID, expenseID int64, f core.ExpenseFields) (core.Expense, error) {
	e, err := s.owned(ctx, userID, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	if err := f.Validate(); err != nil {
		return core.Expense{}, err
	}

	previous := e
	e.Apply(f)
	saved, err := s.expenses.Save(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", expenseID, err)
	}

	slog.InfoContext(ctx, "Expense updated",
		"expense_id", saved.ID,
		"user_id", userID,
		"operation", "update")

	s.publish(ctx, core.NewExpenseEvent(core.ExpenseUpdated, saved))
	// The month the expense left needs re-evaluating too.
	if !previous.Date.InMonth(saved.Date.Year(), saved.Date.Month()) {
		s.publish(ctx, core.NewExpenseEvent(core.ExpenseUpdated, previous))
	}
	return saved, nil
}

// Delete removes an expense owned by userID. Deleting twice yields ErrNotFound.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID int64) error {
	e, err := s.owned(ctx, userID, expenseID)
	if err != nil {
		return err
	}
	if err := s.expenses.Delete(ctx, expenseID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("expense %d: %w", expenseID, core.ErrNotFound)
		}
		return fmt.Errorf("delete expense %d: %w", expenseID, err)
	}

	slog.InfoContext(ctx, "Expense deleted",
		"expense_id", expenseID,
		"user_id", userID,
		"operation", "delete")

	s.publish(ctx, core.NewExpenseEvent(core.ExpenseDeleted, e))
	return nil
}

// Dashboard summarizes the spending of userID in year/month against their budget.
// All figures come from one read of the month's expenses.
func (s *ExpenseService) Dashboard(ctx context.Context, userID int64, year, month int) (core.DashboardStats, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return core.DashboardStats{}, err
	}

	var (
		user     core.User
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.GetUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		user = u
		return nil
	})
	g.Go(func() error {
		items, err := s.expenses.FindByUserAndMonth(gctx, userID, year, month)
		if err != nil {
			return fmt.Errorf("list expenses for %d-%02d: %w", year, month, err)
		}
		expenses = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.DashboardStats{}, err
	}

	stats := core.BuildDashboard(year, month, user.MonthlyBudget, expenses)
	slog.DebugContext(ctx, "Dashboard computed",
		"user_id", userID,
		"year", year,
		"month", month,
		"total_cents", stats.TotalExpenses.Cents,
		"transactions", stats.TotalTransactions)
	return stats, nil
}

// owned loads an expense and checks that userID owns it. Existence is checked
// first, so a caller probing another user's id gets ErrForbidden rather than
// ErrNotFound.
func (s *ExpenseService) owned(ctx context.Context, userID, expenseID int64) (core.Expense, error) {
	e, err := s.expenses.FindByID(ctx, expenseID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", expenseID, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("find expense %d: %w", expenseID, err)
	}
	if !e.OwnedBy(userID) {
		slog.WarnContext(ctx, "Expense access denied",
			"expense_id", expenseID,
			"user_id", userID)
		return core.Expense{}, fmt.Errorf("expense %d: %w", expenseID, core.ErrForbidden)
	}
	return e, nil
}

func (s *ExpenseService) publish(ctx context.Context, ev core.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	// The change is already stored; a lost notification only delays the watcher.
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", ev.Type,
			"expense_id", ev.ExpenseID,
			"error", err)
	}
}
