package ports

import (
	"context"

	"finanote/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseStore persists expenses. FindByID returns core.ErrNotFound when
	// the id does not exist. Listings are ordered by date descending.
	ExpenseStore interface {
		// Save inserts e when e.ID is zero and replaces the stored record otherwise.
		Save(ctx context.Context, e core.Expense) (core.Expense, error)
		FindByID(ctx context.Context, id int64) (core.Expense, error)
		FindByUser(ctx context.Context, userID int64) ([]core.Expense, error)
		FindByUserAndMonth(ctx context.Context, userID int64, year, month int) ([]core.Expense, error)
		// FindByUserAndDateRange is inclusive on both ends.
		FindByUserAndDateRange(ctx context.Context, userID int64, start, end core.Date) ([]core.Expense, error)
		// SumAmountByUserAndMonth reports ok=false when the month has no expenses.
		SumAmountByUserAndMonth(ctx context.Context, userID int64, year, month int) (total core.Money, ok bool, err error)
		// SumAmountGroupedByCategory lists categories in order of first
		// occurrence when the month is walked by date, then id.
		SumAmountGroupedByCategory(ctx context.Context, userID int64, year, month int) ([]core.CategoryAmount, error)
		// SumAmountGroupedByDay is ordered by day ascending.
		SumAmountGroupedByDay(ctx context.Context, userID int64, year, month int) ([]core.DailyAmount, error)
		Delete(ctx context.Context, id int64) error
	}

	UserStore interface {
		GetUser(ctx context.Context, id int64) (core.User, error)
		CreateUser(ctx context.Context, name, email string) (core.User, error)
		UpdateBudget(ctx context.Context, id int64, budget core.Money) (core.User, error)
	}

	// EventPublisher delivers expense change notifications to other processes.
	EventPublisher interface {
		PublishExpenseEvent(ctx context.Context, ev core.ExpenseEvent) error
	}
)
