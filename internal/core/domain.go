package core

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	dateLayout           = "2006-01-02"
	maxDescriptionLength = 200
)

// DefaultMonthlyBudget is assigned to newly provisioned users.
var DefaultMonthlyBudget = Money{Cents: 50000}

type (
	// Date is a calendar date stored as UTC midnight.
	Date struct {
		time.Time
	}

	// Money is an amount in cents.
	Money struct {
		Cents int64
	}

	// ExpenseFields are the user-editable parts of an expense.
	ExpenseFields struct {
		Description string
		Amount      Money
		Category    Category
		Date        Date
		Notes       string
	}

	Expense struct {
		ID          int64
		UserID      int64 // owner, fixed at creation
		Description string
		Amount      Money
		Category    Category
		Date        Date
		Notes       string
	}

	User struct {
		ID            int64  `json:"id"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		MonthlyBudget Money  `json:"monthlyBudget"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) Year() int {
	return d.Time.Year()
}

// InMonth reports whether d falls in the given calendar month.
func (d Date) InMonth(year, month int) bool {
	return d.Year() == year && d.Month() == month
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// ValidateMonth checks a year/month pair addressed by the caller.
func ValidateMonth(year, month int) error {
	if month < 1 || month > 12 {
		return NewValidationError("month", ErrInvalidMonth)
	}
	if year < 1 {
		return NewValidationError("year", ErrInvalidMonth)
	}
	return nil
}

// MonthBounds returns the first and last day of a calendar month.
func MonthBounds(year, month int) (Date, Date) {
	first := NewDate(year, month, 1)
	return first, Date{Time: first.AddDate(0, 1, -1)}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks every field and reports the first failure as a ValidationError.
func (f ExpenseFields) Validate() error {
	desc := strings.TrimSpace(f.Description)
	if desc == "" {
		return NewValidationError("description", ErrEmptyDescription)
	}
	if len(desc) > maxDescriptionLength {
		return NewValidationError("description", ErrDescriptionLong)
	}
	if err := f.Amount.Validate(); err != nil {
		return NewValidationError("amount", err)
	}
	if !f.Category.Valid() {
		return NewValidationError("category", ErrInvalidCategory)
	}
	if err := f.Date.Validate(); err != nil {
		return NewValidationError("expenseDate", err)
	}
	return nil
}

// Apply replaces every editable field of e with f.
func (e *Expense) Apply(f ExpenseFields) {
	e.Description = strings.TrimSpace(f.Description)
	e.Amount = f.Amount
	e.Category = f.Category
	e.Date = f.Date
	e.Notes = strings.TrimSpace(f.Notes)
}

// Fields returns the editable part of e.
func (e Expense) Fields() ExpenseFields {
	return ExpenseFields{
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		Date:        e.Date,
		Notes:       e.Notes,
	}
}

func (e Expense) Validate() error {
	return e.Fields().Validate()
}

// OwnedBy reports whether userID owns e.
func (e Expense) OwnedBy(userID int64) bool {
	return e.UserID == userID
}
