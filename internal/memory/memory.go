// Package memory is an in-process implementation of the store ports, used by
// the memory backend and by tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"finanote/internal/core"
	"finanote/internal/ports"
)

var (
	_ ports.ExpenseStore = (*Store)(nil)
	_ ports.UserStore    = (*Store)(nil)
)

type Store struct {
	mu         sync.RWMutex
	nextExpID  int64
	nextUserID int64
	expenses   map[int64]core.Expense
	users      map[int64]core.User
}

func New() *Store {
	return &Store{
		expenses: make(map[int64]core.Expense),
		users:    make(map[int64]core.User),
	}
}

// Save stores e, assigning an id on first save.
func (s *Store) Save(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		s.nextExpID++
		e.ID = s.nextExpID
	} else if _, ok := s.expenses[e.ID]; !ok {
		return core.Expense{}, fmt.Errorf("save expense %d: %w", e.ID, core.ErrNotFound)
	}
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) FindByID(_ context.Context, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (s *Store) FindByUser(_ context.Context, userID int64) ([]core.Expense, error) {
	return s.filter(func(e core.Expense) bool { return e.UserID == userID }), nil
}

func (s *Store) FindByUserAndMonth(_ context.Context, userID int64, year, month int) ([]core.Expense, error) {
	return s.filter(func(e core.Expense) bool {
		return e.UserID == userID && e.Date.InMonth(year, month)
	}), nil
}

func (s *Store) FindByUserAndDateRange(_ context.Context, userID int64, start, end core.Date) ([]core.Expense, error) {
	return s.filter(func(e core.Expense) bool {
		return e.UserID == userID && !e.Date.Before(start.Time) && !e.Date.After(end.Time)
	}), nil
}

func (s *Store) SumAmountByUserAndMonth(ctx context.Context, userID int64, year, month int) (core.Money, bool, error) {
	items, _ := s.FindByUserAndMonth(ctx, userID, year, month)
	if len(items) == 0 {
		return core.Money{}, false, nil
	}
	var total core.Money
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	return total, true, nil
}

// SumAmountGroupedByCategory orders categories by first occurrence, walking
// the month by date and then id.
func (s *Store) SumAmountGroupedByCategory(ctx context.Context, userID int64, year, month int) ([]core.CategoryAmount, error) {
	items, _ := s.FindByUserAndMonth(ctx, userID, year, month)
	pos := make(map[core.Category]int)
	out := make([]core.CategoryAmount, 0)
	// items are newest first
	for i := len(items) - 1; i >= 0; i-- {
		e := items[i]
		if p, ok := pos[e.Category]; ok {
			out[p].Amount = out[p].Amount.Add(e.Amount)
			continue
		}
		pos[e.Category] = len(out)
		out = append(out, core.CategoryAmount{Category: e.Category, Amount: e.Amount})
	}
	return out, nil
}

func (s *Store) SumAmountGroupedByDay(ctx context.Context, userID int64, year, month int) ([]core.DailyAmount, error) {
	items, _ := s.FindByUserAndMonth(ctx, userID, year, month)
	sums := make(map[int]core.Money)
	for _, e := range items {
		sums[e.Date.Day()] = sums[e.Date.Day()].Add(e.Amount)
	}
	out := make([]core.DailyAmount, 0, len(sums))
	for day, amt := range sums {
		out = append(out, core.DailyAmount{Day: day, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

// CreateUser provisions a user with the default monthly budget.
func (s *Store) CreateUser(_ context.Context, name, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return core.User{}, fmt.Errorf("create user %q: %w", email, core.ErrEmailTaken)
		}
	}
	s.nextUserID++
	u := core.User{
		ID:            s.nextUserID,
		Name:          strings.TrimSpace(name),
		Email:         email,
		MonthlyBudget: core.DefaultMonthlyBudget,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateBudget(_ context.Context, id int64, budget core.Money) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	u.MonthlyBudget = budget
	s.users[id] = u
	return u, nil
}

// filter returns matching expenses ordered by date descending, then id descending.
func (s *Store) filter(keep func(core.Expense) bool) []core.Expense {
	s.mu.RLock()
	out := make([]core.Expense, 0)
	for _, e := range s.expenses {
		if keep(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
