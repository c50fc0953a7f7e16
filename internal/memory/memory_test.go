package memory

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"finanote/internal/core"
)

func TestSaveAssignsIDsAndRejectsUnknownUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, _ := s.Save(ctx, core.Expense{UserID: 1, Date: core.NewDate(2024, 1, 1)})
	b, _ := s.Save(ctx, core.Expense{UserID: 1, Date: core.NewDate(2024, 1, 1)})
	if a.ID == 0 || b.ID <= a.ID {
		t.Fatalf("ids not increasing: %d %d", a.ID, b.ID)
	}

	if _, err := s.Save(ctx, core.Expense{ID: 42}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListingsOrderAndFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	add := func(userID int64, y, m, d int) int64 {
		e, _ := s.Save(ctx, core.Expense{UserID: userID, Amount: core.Money{Cents: 100}, Category: core.Other, Date: core.NewDate(y, m, d)})
		return e.ID
	}
	a := add(1, 2024, 2, 1)
	b := add(1, 2024, 2, 29)
	c := add(1, 2024, 2, 29)
	d := add(1, 2024, 3, 1)
	add(2, 2024, 2, 10)

	ids := func(items []core.Expense) []int64 {
		out := []int64{}
		for _, e := range items {
			out = append(out, e.ID)
		}
		return out
	}

	month, _ := s.FindByUserAndMonth(ctx, 1, 2024, 2)
	if got, want := ids(month), []int64{c, b, a}; !reflect.DeepEqual(got, want) {
		t.Fatalf("month = %v, want %v", got, want)
	}

	rng, _ := s.FindByUserAndDateRange(ctx, 1, core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 1))
	if got, want := ids(rng), []int64{d, c, b}; !reflect.DeepEqual(got, want) {
		t.Fatalf("range = %v, want %v", got, want)
	}

	empty, _ := s.FindByUser(ctx, 99)
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestAggregates(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, e := range []core.Expense{
		{UserID: 1, Category: core.Transport, Amount: core.Money{Cents: 250}, Date: core.NewDate(2024, 5, 9)},
		{UserID: 1, Category: core.Food, Amount: core.Money{Cents: 1000}, Date: core.NewDate(2024, 5, 2)},
		{UserID: 1, Category: core.Food, Amount: core.Money{Cents: 50}, Date: core.NewDate(2024, 5, 9)},
		{UserID: 1, Category: core.Health, Amount: core.Money{Cents: 999}, Date: core.NewDate(2024, 6, 1)},
	} {
		s.Save(ctx, e)
	}

	total, ok, _ := s.SumAmountByUserAndMonth(ctx, 1, 2024, 5)
	if !ok || total.Cents != 1300 {
		t.Fatalf("total = %d ok=%v", total.Cents, ok)
	}
	if _, ok, _ := s.SumAmountByUserAndMonth(ctx, 1, 2024, 4); ok {
		t.Fatalf("expected no sum for empty month")
	}

	byCat, _ := s.SumAmountGroupedByCategory(ctx, 1, 2024, 5)
	wantCat := []core.CategoryAmount{
		{Category: core.Food, Amount: core.Money{Cents: 1050}},
		{Category: core.Transport, Amount: core.Money{Cents: 250}},
	}
	if !reflect.DeepEqual(byCat, wantCat) {
		t.Fatalf("by category = %+v", byCat)
	}

	// Other and Health sort after Food in the catalog but occur first.
	for _, e := range []core.Expense{
		{UserID: 2, Category: core.Other, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 5, 1)},
		{UserID: 2, Category: core.Food, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 5, 3)},
		{UserID: 2, Category: core.Health, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 5, 1)},
	} {
		s.Save(ctx, e)
	}
	byCat, _ = s.SumAmountGroupedByCategory(ctx, 2, 2024, 5)
	var order []core.Category
	for _, c := range byCat {
		order = append(order, c.Category)
	}
	if want := []core.Category{core.Other, core.Health, core.Food}; !reflect.DeepEqual(order, want) {
		t.Fatalf("category order = %v, want %v", order, want)
	}

	byDay, _ := s.SumAmountGroupedByDay(ctx, 1, 2024, 5)
	wantDay := []core.DailyAmount{{Day: 2, Amount: core.Money{Cents: 1000}}, {Day: 9, Amount: core.Money{Cents: 300}}}
	if !reflect.DeepEqual(byDay, wantDay) {
		t.Fatalf("by day = %+v", byDay)
	}
}

func TestUsers(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, " Ann ", "Ann@Example.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Name != "Ann" || u.Email != "ann@example.com" || u.MonthlyBudget != core.DefaultMonthlyBudget {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := s.CreateUser(ctx, "Other", "ann@example.com"); !errors.Is(err, core.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := s.UpdateBudget(ctx, 7, core.Money{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got, _ := s.UpdateBudget(ctx, u.ID, core.Money{Cents: 0}); got.MonthlyBudget.Cents != 0 {
		t.Fatalf("budget not updated: %+v", got)
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Save(ctx, core.Expense{UserID: 1, Amount: core.Money{Cents: 1}, Date: core.NewDate(2024, 1, 1)})
		}()
	}
	wg.Wait()
	all, _ := s.FindByUser(ctx, 1)
	if len(all) != 50 {
		t.Fatalf("expected 50 expenses, got %d", len(all))
	}
}
