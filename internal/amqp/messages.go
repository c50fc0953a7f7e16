package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finanote/internal/core"
)

// ExpenseEventMessage is the wire form of core.ExpenseEvent. It names the
// touched user-month only; consumers read current totals from the store.
type ExpenseEventMessage struct {
	EventID   string         `json:"event_id"`
	Type      core.EventType `json:"type"`
	ExpenseID int64          `json:"expense_id"`
	UserID    int64          `json:"user_id"`
	Year      int            `json:"year"`
	Month     int            `json:"month"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewExpenseEventMessage stamps ev with a fresh event id and the current time.
func NewExpenseEventMessage(ev core.ExpenseEvent) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		EventID:   uuid.NewString(),
		Type:      ev.Type,
		ExpenseID: ev.ExpenseID,
		UserID:    ev.UserID,
		Year:      ev.Year,
		Month:     ev.Month,
		Timestamp: time.Now().UTC(),
	}
}

// Event converts the message back to the domain event.
func (m *ExpenseEventMessage) Event() core.ExpenseEvent {
	return core.ExpenseEvent{
		Type:      m.Type,
		ExpenseID: m.ExpenseID,
		UserID:    m.UserID,
		Year:      m.Year,
		Month:     m.Month,
	}
}

func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON decodes a message and rejects ones that do not
// name a valid user-month.
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case core.ExpenseCreated, core.ExpenseUpdated, core.ExpenseDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.UserID <= 0 {
		return nil, fmt.Errorf("event %s has no user", msg.EventID)
	}
	if err := core.ValidateMonth(msg.Year, msg.Month); err != nil {
		return nil, fmt.Errorf("event %s: %w", msg.EventID, err)
	}
	return &msg, nil
}
