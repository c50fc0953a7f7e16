package worker

import (
	"context"
	"errors"
	"testing"

	"finanote/internal/amqp"
	"finanote/internal/core"
	"finanote/internal/memory"
	"finanote/internal/services"
)

func seed(t *testing.T, store *memory.Store, userID int64, cents int64, cat core.Category, day int) core.Expense {
	t.Helper()
	e, err := store.Save(context.Background(), core.Expense{
		UserID: userID, Description: "x", Amount: core.Money{Cents: cents},
		Category: cat, Date: core.NewDate(2024, 9, day),
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestBudgetWatcher_OverBudget(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u, _ := store.CreateUser(ctx, "Ivy", "ivy@example.com")
	store.UpdateBudget(ctx, u.ID, core.Money{Cents: 10000})
	w := NewBudgetWatcher(store, store)

	first := seed(t, store, u.ID, 4000, core.Food, 1)
	r, err := w.Handle(ctx, core.NewExpenseEvent(core.ExpenseCreated, first))
	if err != nil {
		t.Fatal(err)
	}
	if r.Over || r.Total.Cents != 4000 || r.Percentage != 40 {
		t.Fatalf("unexpected report %+v", r)
	}

	seed(t, store, u.ID, 2000, core.Transport, 5)
	last := seed(t, store, u.ID, 5000, core.Food, 5)
	r, err = w.Handle(ctx, core.NewExpenseEvent(core.ExpenseCreated, last))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Over || !r.NewlyOver || r.Total.Cents != 11000 {
		t.Fatalf("expected newly over budget, got %+v", r)
	}
	if r.TopCategory.Category != core.Food || r.TopCategory.Amount.Cents != 9000 {
		t.Fatalf("top category = %+v", r.TopCategory)
	}
	if r.PeakDay.Day != 5 || r.PeakDay.Amount.Cents != 7000 {
		t.Fatalf("peak day = %+v", r.PeakDay)
	}

	r, _ = w.Handle(ctx, core.NewExpenseEvent(core.ExpenseUpdated, last))
	if !r.Over || r.NewlyOver {
		t.Fatalf("repeat event should not re-alert: %+v", r)
	}

	store.Delete(ctx, last.ID)
	r, _ = w.Handle(ctx, core.NewExpenseEvent(core.ExpenseDeleted, last))
	if r.Over {
		t.Fatalf("expected back under budget: %+v", r)
	}
}

func TestBudgetWatcher_ZeroBudgetNeverOver(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u, _ := store.CreateUser(ctx, "Jo", "jo@example.com")
	store.UpdateBudget(ctx, u.ID, core.Money{})
	w := NewBudgetWatcher(store, store)

	e := seed(t, store, u.ID, 100, core.Other, 2)
	r, err := w.Handle(ctx, core.NewExpenseEvent(core.ExpenseCreated, e))
	if err != nil || r.Over || r.Percentage != 0 {
		t.Fatalf("report %+v err=%v", r, err)
	}
}

func TestBudgetWatcher_UnknownUser(t *testing.T) {
	store := memory.New()
	w := NewBudgetWatcher(store, store)
	ev := core.ExpenseEvent{Type: core.ExpenseCreated, UserID: 42, Year: 2024, Month: 9}

	if _, err := w.Handle(context.Background(), ev); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := w.HandleMessage(context.Background(), amqp.NewExpenseEventMessage(ev)); err != nil {
		t.Fatalf("unknown user should be acknowledged, got %v", err)
	}
}

// watcherPublisher feeds service events straight into a watcher.
type watcherPublisher struct {
	w       *BudgetWatcher
	reports []BudgetReport
}

func (p *watcherPublisher) PublishExpenseEvent(ctx context.Context, ev core.ExpenseEvent) error {
	r, err := p.w.Handle(ctx, ev)
	p.reports = append(p.reports, r)
	return err
}

func TestBudgetWatcher_MovingExpenseClearsOldMonth(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u, _ := store.CreateUser(ctx, "Kim", "kim@example.com")
	store.UpdateBudget(ctx, u.ID, core.Money{Cents: 10000})
	pub := &watcherPublisher{w: NewBudgetWatcher(store, store)}
	svc := services.NewExpenseService(store, store, pub)

	big := core.ExpenseFields{Description: "TV", Amount: core.Money{Cents: 15000}, Category: core.Shopping, Date: core.NewDate(2024, 9, 3)}
	e, err := svc.Create(ctx, u.ID, big)
	if err != nil {
		t.Fatal(err)
	}
	if r := pub.reports[len(pub.reports)-1]; !r.NewlyOver || r.Month != 9 {
		t.Fatalf("expected September over budget, got %+v", r)
	}

	big.Date = core.NewDate(2024, 10, 3)
	if _, err := svc.Update(ctx, u.ID, e.ID, big); err != nil {
		t.Fatal(err)
	}
	var september, october *BudgetReport
	for i := range pub.reports[1:] {
		r := &pub.reports[1+i]
		switch r.Month {
		case 9:
			september = r
		case 10:
			october = r
		}
	}
	if september == nil || september.Over || september.Total.Cents != 0 {
		t.Fatalf("September should be re-evaluated under budget, got %+v", september)
	}
	if october == nil || !october.NewlyOver {
		t.Fatalf("October should be newly over budget, got %+v", october)
	}

	big.Date = core.NewDate(2024, 9, 4)
	if _, err := svc.Update(ctx, u.ID, e.ID, big); err != nil {
		t.Fatal(err)
	}
	for _, r := range pub.reports[3:] {
		if r.Month == 9 && !r.NewlyOver {
			t.Fatalf("moving back should alert September again, got %+v", r)
		}
	}
}
