package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"finanote/internal/core"
)

// JSONResponseBuilder assembles a JSON response.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value to encode. A nil body writes no content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		http.Error(w, `{"status":500,"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n"))
}

// expenseResponse is the client view of an expense.
type expenseResponse struct {
	ID                  int64         `json:"id"`
	Description         string        `json:"description"`
	Amount              core.Money    `json:"amount"`
	Category            core.Category `json:"category"`
	CategoryDisplayName string        `json:"categoryDisplayName"`
	CategoryColor       string        `json:"categoryColor"`
	ExpenseDate         core.Date     `json:"expenseDate"`
	Notes               string        `json:"notes"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:                  e.ID,
		Description:         e.Description,
		Amount:              e.Amount,
		Category:            e.Category,
		CategoryDisplayName: e.Category.DisplayName(),
		CategoryColor:       e.Category.Color(),
		ExpenseDate:         e.Date,
		Notes:               e.Notes,
	}
}

func toExpenseResponses(items []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseResponse(e))
	}
	return out
}
