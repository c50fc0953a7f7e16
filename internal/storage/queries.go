package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Expense is a row of the expenses table.
type Expense struct {
	ID          int64
	UserID      int64
	Description string
	AmountCents int64
	Category    string
	ExpenseDate string
	Notes       string
}

type User struct {
	ID                 int64
	Name               string
	Email              string
	MonthlyBudgetCents int64
}

const expenseColumns = `id, user_id, description, amount_cents, category, expense_date, notes`

const createExpense = `
INSERT INTO expenses (user_id, description, amount_cents, category, expense_date, notes)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + expenseColumns

type CreateExpenseParams struct {
	UserID      int64
	Description string
	AmountCents int64
	Category    string
	ExpenseDate string
	Notes       string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.UserID, arg.Description, arg.AmountCents, arg.Category, arg.ExpenseDate, arg.Notes)
	return scanExpense(row)
}

const updateExpense = `
UPDATE expenses
SET description = ?, amount_cents = ?, category = ?, expense_date = ?, notes = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + expenseColumns

type UpdateExpenseParams struct {
	ID          int64
	Description string
	AmountCents int64
	Category    string
	ExpenseDate string
	Notes       string
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, updateExpense,
		arg.Description, arg.AmountCents, arg.Category, arg.ExpenseDate, arg.Notes, arg.ID)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpensesByUser = `
SELECT ` + expenseColumns + ` FROM expenses
WHERE user_id = ?
ORDER BY expense_date DESC, id DESC`

func (q *Queries) ListExpensesByUser(ctx context.Context, userID int64) ([]Expense, error) {
	return q.listExpenses(ctx, listExpensesByUser, userID)
}

// Dates are stored as YYYY-MM-DD text, so lexical comparison is chronological.
const listExpensesByUserAndRange = `
SELECT ` + expenseColumns + ` FROM expenses
WHERE user_id = ? AND expense_date BETWEEN ? AND ?
ORDER BY expense_date DESC, id DESC`

type DateRangeParams struct {
	UserID int64
	Start  string
	End    string
}

func (q *Queries) ListExpensesByUserAndRange(ctx context.Context, arg DateRangeParams) ([]Expense, error) {
	return q.listExpenses(ctx, listExpensesByUserAndRange, arg.UserID, arg.Start, arg.End)
}

const sumAmountByRange = `
SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM expenses
WHERE user_id = ? AND expense_date BETWEEN ? AND ?`

func (q *Queries) SumAmountByRange(ctx context.Context, arg DateRangeParams) (count int64, total int64, err error) {
	err = q.db.QueryRowContext(ctx, sumAmountByRange, arg.UserID, arg.Start, arg.End).Scan(&count, &total)
	return count, total, err
}

// Categories come out in first-occurrence order: the key sorts by date, then
// by zero-padded id.
const sumAmountGroupedByCategory = `
SELECT category, SUM(amount_cents) FROM expenses
WHERE user_id = ? AND expense_date BETWEEN ? AND ?
GROUP BY category
ORDER BY MIN(expense_date || '#' || printf('%019d', id))`

type CategorySum struct {
	Category    string
	TotalAmount int64
}

func (q *Queries) SumAmountGroupedByCategory(ctx context.Context, arg DateRangeParams) ([]CategorySum, error) {
	rows, err := q.db.QueryContext(ctx, sumAmountGroupedByCategory, arg.UserID, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategorySum
	for rows.Next() {
		var cs CategorySum
		if err := rows.Scan(&cs.Category, &cs.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

const sumAmountGroupedByDay = `
SELECT CAST(strftime('%d', expense_date) AS INTEGER) AS day, SUM(amount_cents) FROM expenses
WHERE user_id = ? AND expense_date BETWEEN ? AND ?
GROUP BY day
ORDER BY day`

type DaySum struct {
	Day         int64
	TotalAmount int64
}

func (q *Queries) SumAmountGroupedByDay(ctx context.Context, arg DateRangeParams) ([]DaySum, error) {
	rows, err := q.db.QueryContext(ctx, sumAmountGroupedByDay, arg.UserID, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DaySum
	for rows.Next() {
		var ds DaySum
		if err := rows.Scan(&ds.Day, &ds.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const userColumns = `id, name, email, monthly_budget_cents`

const createUser = `
INSERT INTO users (name, email, monthly_budget_cents) VALUES (?, ?, ?)
RETURNING ` + userColumns

type CreateUserParams struct {
	Name               string
	Email              string
	MonthlyBudgetCents int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, createUser, arg.Name, arg.Email, arg.MonthlyBudgetCents))
}

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const updateUserBudget = `
UPDATE users SET monthly_budget_cents = ? WHERE id = ?
RETURNING ` + userColumns

func (q *Queries) UpdateUserBudget(ctx context.Context, id int64, cents int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUserBudget, cents, id))
}

func (q *Queries) listExpenses(ctx context.Context, query string, args ...any) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (Expense, error) {
	var e Expense
	err := s.Scan(&e.ID, &e.UserID, &e.Description, &e.AmountCents, &e.Category, &e.ExpenseDate, &e.Notes)
	return e, err
}

func scanUser(s scanner) (User, error) {
	var u User
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.MonthlyBudgetCents)
	return u, err
}
