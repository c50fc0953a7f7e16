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

	"finanote/internal/core"
	"finanote/internal/ports"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	_ ports.ExpenseStore = (*SQLiteRepository)(nil)
	_ ports.UserStore    = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Save(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == 0 {
		row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
			UserID:      e.UserID,
			Description: e.Description,
			AmountCents: e.Amount.Cents,
			Category:    string(e.Category),
			ExpenseDate: e.Date.String(),
			Notes:       e.Notes,
		})
		if err != nil {
			return core.Expense{}, fmt.Errorf("create expense: %w", err)
		}
		slog.DebugContext(ctx, "Expense inserted", "id", row.ID, "user_id", row.UserID)
		return toCoreExpense(row)
	}

	row, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		ID:          e.ID,
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Category:    string(e.Category),
		ExpenseDate: e.Date.String(),
		Notes:       e.Notes,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return toCoreExpense(row)
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id int64) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense by id: %w", err)
	}
	return toCoreExpense(row)
}

func (r *SQLiteRepository) FindByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses by user: %w", err)
	}
	return toCoreExpenses(rows)
}

func (r *SQLiteRepository) FindByUserAndMonth(ctx context.Context, userID int64, year, month int) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByUserAndRange(ctx, monthRange(userID, year, month))
	if err != nil {
		return nil, fmt.Errorf("list expenses by month: %w", err)
	}
	return toCoreExpenses(rows)
}

func (r *SQLiteRepository) FindByUserAndDateRange(ctx context.Context, userID int64, start, end core.Date) ([]core.Expense, error) {
	rows, err := r.queries.ListExpensesByUserAndRange(ctx, DateRangeParams{
		UserID: userID,
		Start:  start.String(),
		End:    end.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses by range: %w", err)
	}
	return toCoreExpenses(rows)
}

func (r *SQLiteRepository) SumAmountByUserAndMonth(ctx context.Context, userID int64, year, month int) (core.Money, bool, error) {
	count, total, err := r.queries.SumAmountByRange(ctx, monthRange(userID, year, month))
	if err != nil {
		return core.Money{}, false, fmt.Errorf("sum month amount: %w", err)
	}
	return core.Money{Cents: total}, count > 0, nil
}

func (r *SQLiteRepository) SumAmountGroupedByCategory(ctx context.Context, userID int64, year, month int) ([]core.CategoryAmount, error) {
	sums, err := r.queries.SumAmountGroupedByCategory(ctx, monthRange(userID, year, month))
	if err != nil {
		return nil, fmt.Errorf("get category sums: %w", err)
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for _, cs := range sums {
		out = append(out, core.CategoryAmount{
			Category: core.Category(cs.Category),
			Amount:   core.Money{Cents: cs.TotalAmount},
		})
	}
	return out, nil
}

func (r *SQLiteRepository) SumAmountGroupedByDay(ctx context.Context, userID int64, year, month int) ([]core.DailyAmount, error) {
	sums, err := r.queries.SumAmountGroupedByDay(ctx, monthRange(userID, year, month))
	if err != nil {
		return nil, fmt.Errorf("get daily sums: %w", err)
	}
	out := make([]core.DailyAmount, 0, len(sums))
	for _, ds := range sums {
		out = append(out, core.DailyAmount{Day: int(ds.Day), Amount: core.Money{Cents: ds.TotalAmount}})
	}
	return out, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.DebugContext(ctx, "Expense deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := r.queries.GetUser(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, name, email string) (core.User, error) {
	u, err := r.queries.CreateUser(ctx, CreateUserParams{
		Name:               strings.TrimSpace(name),
		Email:              strings.ToLower(strings.TrimSpace(email)),
		MonthlyBudgetCents: core.DefaultMonthlyBudget.Cents,
	})
	if isUniqueViolation(err) {
		return core.User{}, fmt.Errorf("create user %q: %w", email, core.ErrEmailTaken)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, id int64, budget core.Money) (core.User, error) {
	u, err := r.queries.UpdateUserBudget(ctx, id, budget.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("update budget for user %d: %w", id, err)
	}
	return toCoreUser(u), nil
}

// isUniqueViolation reports a UNIQUE constraint failure. The primary code is
// checked as well in case extended result codes are off.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		(code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE"))
}

func monthRange(userID int64, year, month int) DateRangeParams {
	first, last := core.MonthBounds(year, month)
	return DateRangeParams{UserID: userID, Start: first.String(), End: last.String()}
}

func toCoreExpense(row Expense) (core.Expense, error) {
	date, err := core.ParseDate(row.ExpenseDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d has malformed date %q: %w", row.ID, row.ExpenseDate, err)
	}
	return core.Expense{
		ID:          row.ID,
		UserID:      row.UserID,
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		Category:    core.Category(row.Category),
		Date:        date,
		Notes:       row.Notes,
	}, nil
}

func toCoreExpenses(rows []Expense) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toCoreExpense(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toCoreUser(u User) core.User {
	return core.User{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		MonthlyBudget: core.Money{Cents: u.MonthlyBudgetCents},
	}
}
