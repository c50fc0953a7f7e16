// Package worker holds the background consumers of expense events.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"finanote/internal/amqp"
	"finanote/internal/core"
	"finanote/internal/ports"
)

// BudgetReport is the state of one user-month after an expense change.
type BudgetReport struct {
	UserID      int64
	Year        int
	Month       int
	Total       core.Money
	Budget      core.Money
	Percentage  float64
	Over        bool
	NewlyOver   bool // first event to push the month over budget
	TopCategory core.CategoryAmount
	PeakDay     core.DailyAmount
}

type monthKey struct {
	userID      int64
	year, month int
}

// BudgetWatcher recomputes monthly totals when expenses change and warns
// when a user goes over budget.
type BudgetWatcher struct {
	expenses ports.ExpenseStore
	users    ports.UserStore

	mu   sync.Mutex
	over map[monthKey]bool
}

func NewBudgetWatcher(expenses ports.ExpenseStore, users ports.UserStore) *BudgetWatcher {
	return &BudgetWatcher{
		expenses: expenses,
		users:    users,
		over:     make(map[monthKey]bool),
	}
}

// Handle evaluates the user-month named by ev.
func (w *BudgetWatcher) Handle(ctx context.Context, ev core.ExpenseEvent) (BudgetReport, error) {
	report := BudgetReport{UserID: ev.UserID, Year: ev.Year, Month: ev.Month}

	user, err := w.users.GetUser(ctx, ev.UserID)
	if err != nil {
		return report, fmt.Errorf("get user %d: %w", ev.UserID, err)
	}
	report.Budget = user.MonthlyBudget

	total, ok, err := w.expenses.SumAmountByUserAndMonth(ctx, ev.UserID, ev.Year, ev.Month)
	if err != nil {
		return report, fmt.Errorf("sum month: %w", err)
	}
	if ok {
		report.Total = total
	}
	report.Percentage = report.Total.Percentage(report.Budget)
	report.Over = report.Budget.Cents > 0 && report.Total.Cents > report.Budget.Cents

	key := monthKey{ev.UserID, ev.Year, ev.Month}
	w.mu.Lock()
	report.NewlyOver = report.Over && !w.over[key]
	if report.Over {
		w.over[key] = true
	} else {
		delete(w.over, key)
	}
	w.mu.Unlock()

	if !report.Over {
		slog.DebugContext(ctx, "Month within budget",
			"user_id", ev.UserID,
			"year", ev.Year,
			"month", ev.Month,
			"total_cents", report.Total.Cents,
			"budget_cents", report.Budget.Cents)
		return report, nil
	}

	if err := w.explain(ctx, &report); err != nil {
		return report, err
	}

	if report.NewlyOver {
		slog.WarnContext(ctx, "Monthly budget exceeded",
			"user_id", ev.UserID,
			"year", ev.Year,
			"month", ev.Month,
			"total", report.Total.String(),
			"budget", report.Budget.String(),
			"percentage", report.Percentage,
			"top_category", report.TopCategory.Category.DisplayName(),
			"top_category_amount", report.TopCategory.Amount.String(),
			"peak_day", report.PeakDay.Day,
			"peak_day_amount", report.PeakDay.Amount.String())
	}
	return report, nil
}

// explain fills in where the money went.
func (w *BudgetWatcher) explain(ctx context.Context, report *BudgetReport) error {
	var (
		byCategory []core.CategoryAmount
		byDay      []core.DailyAmount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if byCategory, err = w.expenses.SumAmountGroupedByCategory(gctx, report.UserID, report.Year, report.Month); err != nil {
			return fmt.Errorf("sum by category: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if byDay, err = w.expenses.SumAmountGroupedByDay(gctx, report.UserID, report.Year, report.Month); err != nil {
			return fmt.Errorf("sum by day: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for _, c := range byCategory {
		if c.Amount.Cents > report.TopCategory.Amount.Cents {
			report.TopCategory = c
		}
	}
	for _, d := range byDay {
		if d.Amount.Cents > report.PeakDay.Amount.Cents {
			report.PeakDay = d
		}
	}
	return nil
}

// HandleMessage adapts Handle to the AMQP consumer. Events for users that no
// longer exist are acknowledged and dropped.
func (w *BudgetWatcher) HandleMessage(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	_, err := w.Handle(ctx, msg.Event())
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Dropping event for unknown user",
			"event_id", msg.EventID,
			"user_id", msg.UserID)
		return nil
	}
	return err
}
