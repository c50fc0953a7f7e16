package core

// EventType names an expense lifecycle change.
type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent tells listeners which user-month was touched.
type ExpenseEvent struct {
	Type      EventType
	ExpenseID int64
	UserID    int64
	Year      int
	Month     int
}

// NewExpenseEvent builds an event for e.
func NewExpenseEvent(t EventType, e Expense) ExpenseEvent {
	return ExpenseEvent{
		Type:      t,
		ExpenseID: e.ID,
		UserID:    e.UserID,
		Year:      e.Date.Year(),
		Month:     e.Date.Month(),
	}
}
