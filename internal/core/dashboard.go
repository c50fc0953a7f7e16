package core

import (
	"bytes"
	"encoding/json"
	"sort"
)

// CategoryAmount is a per-category sum as returned by stores.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// DailyAmount is a per-day-of-month sum.
type DailyAmount struct {
	Day    int   `json:"day"`
	Amount Money `json:"amount"`
}

// NamedAmount is one entry of an insertion-ordered name -> amount map.
type NamedAmount struct {
	Name   string
	Amount Money
}

// AmountsByName keeps insertion order and marshals to a JSON object.
type AmountsByName []NamedAmount

// Get returns the amount stored under name.
func (a AmountsByName) Get(name string) (Money, bool) {
	for _, e := range a {
		if e.Name == name {
			return e.Amount, true
		}
	}
	return Money{}, false
}

// Names returns the keys in order.
func (a AmountsByName) Names() []string {
	out := make([]string, len(a))
	for i, e := range a {
		out[i] = e.Name
	}
	return out
}

func (a AmountsByName) MarshalJSON() ([]byte, error) {
	return marshalOrdered(len(a), func(i int) (string, any) { return a[i].Name, a[i].Amount })
}

// NamedColor is one entry of an insertion-ordered name -> color map.
type NamedColor struct {
	Name  string
	Color string
}

// ColorsByName keeps insertion order and marshals to a JSON object.
type ColorsByName []NamedColor

// Get returns the color stored under name.
func (c ColorsByName) Get(name string) (string, bool) {
	for _, e := range c {
		if e.Name == name {
			return e.Color, true
		}
	}
	return "", false
}

func (c ColorsByName) MarshalJSON() ([]byte, error) {
	return marshalOrdered(len(c), func(i int) (string, any) { return c[i].Name, c[i].Color })
}

func marshalOrdered(n int, entry func(int) (string, any)) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, v := entry(i)
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DashboardStats is the monthly spending summary of one user.
type DashboardStats struct {
	Year               int           `json:"year"`
	Month              int           `json:"month"`
	TotalExpenses      Money         `json:"totalExpenses"`
	MonthlyBudget      Money         `json:"monthlyBudget"`
	RemainingBudget    Money         `json:"remainingBudget"`
	BudgetPercentage   float64       `json:"budgetPercentage"`
	ExpensesByCategory AmountsByName `json:"expensesByCategory"`
	CategoryColors     ColorsByName  `json:"categoryColors"`
	DailyExpenses      []DailyAmount `json:"dailyExpenses"`
	TotalTransactions  int           `json:"totalTransactions"`
}

// OverBudget reports whether spending exceeded a positive budget.
func (s DashboardStats) OverBudget() bool {
	return s.MonthlyBudget.Cents > 0 && s.TotalExpenses.Cents > s.MonthlyBudget.Cents
}

// BuildDashboard derives every dashboard field from a single set of expenses.
// Expenses outside year/month are ignored. Categories appear in the order
// they are first seen when walking the expenses chronologically (date, then id).
func BuildDashboard(year, month int, budget Money, expenses []Expense) DashboardStats {
	inMonth := make([]Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Date.InMonth(year, month) {
			inMonth = append(inMonth, e)
		}
	}
	sort.SliceStable(inMonth, func(i, j int) bool {
		if !inMonth[i].Date.Equal(inMonth[j].Date.Time) {
			return inMonth[i].Date.Before(inMonth[j].Date.Time)
		}
		return inMonth[i].ID < inMonth[j].ID
	})

	stats := DashboardStats{
		Year:               year,
		Month:              month,
		MonthlyBudget:      budget,
		ExpensesByCategory: AmountsByName{},
		CategoryColors:     ColorsByName{},
		DailyExpenses:      []DailyAmount{},
		TotalTransactions:  len(inMonth),
	}

	catPos := make(map[Category]int)
	dayTotals := make(map[int]Money)
	for _, e := range inMonth {
		stats.TotalExpenses = stats.TotalExpenses.Add(e.Amount)

		if i, ok := catPos[e.Category]; ok {
			stats.ExpensesByCategory[i].Amount = stats.ExpensesByCategory[i].Amount.Add(e.Amount)
		} else {
			catPos[e.Category] = len(stats.ExpensesByCategory)
			stats.ExpensesByCategory = append(stats.ExpensesByCategory, NamedAmount{Name: e.Category.DisplayName(), Amount: e.Amount})
			stats.CategoryColors = append(stats.CategoryColors, NamedColor{Name: e.Category.DisplayName(), Color: e.Category.Color()})
		}

		dayTotals[e.Date.Day()] = dayTotals[e.Date.Day()].Add(e.Amount)
	}

	for day, amount := range dayTotals {
		stats.DailyExpenses = append(stats.DailyExpenses, DailyAmount{Day: day, Amount: amount})
	}
	sort.Slice(stats.DailyExpenses, func(i, j int) bool {
		return stats.DailyExpenses[i].Day < stats.DailyExpenses[j].Day
	})

	stats.RemainingBudget = budget.Sub(stats.TotalExpenses)
	stats.BudgetPercentage = stats.TotalExpenses.Percentage(budget)
	return stats
}
