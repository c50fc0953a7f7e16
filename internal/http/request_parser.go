package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finanote/internal/core"
)

const maxBodyBytes = 64 << 10

// expenseRequest is the body of create and update requests. Amount stays raw
// so that both 12.5 and "12,50" are accepted.
type expenseRequest struct {
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Category    string          `json:"category"`
	ExpenseDate string          `json:"expenseDate"`
	Notes       string          `json:"notes"`
}

// parseExpenseRequest decodes the body into validated expense fields.
// Malformed JSON is a badRequestError; bad field values are ValidationErrors.
func parseExpenseRequest(w http.ResponseWriter, r *http.Request) (core.ExpenseFields, error) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return core.ExpenseFields{}, err
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.ExpenseFields{}, core.NewValidationError("amount", err)
	}

	var category core.Category
	if strings.TrimSpace(req.Category) != "" {
		if category, err = core.ParseCategory(req.Category); err != nil {
			return core.ExpenseFields{}, core.NewValidationError("category", err)
		}
	}

	var date core.Date
	if strings.TrimSpace(req.ExpenseDate) != "" {
		if date, err = core.ParseDate(req.ExpenseDate); err != nil {
			return core.ExpenseFields{}, core.NewValidationError("expenseDate", core.ErrInvalidDate)
		}
	}

	fields := core.ExpenseFields{
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Category:    category,
		Date:        date,
		Notes:       sanitizeInput(req.Notes),
	}
	return fields, fields.Validate()
}

// budgetRequest accepts "budget" as sent by the web client and
// "monthlyBudget" as returned by the profile endpoint.
type budgetRequest struct {
	Budget        json.RawMessage `json:"budget"`
	MonthlyBudget json.RawMessage `json:"monthlyBudget"`
}

func parseBudgetRequest(w http.ResponseWriter, r *http.Request) (core.Money, error) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return core.Money{}, err
	}
	field, raw := "budget", req.Budget
	if isAbsent(raw) {
		field, raw = "monthlyBudget", req.MonthlyBudget
	}
	if isAbsent(raw) {
		return core.Money{}, core.NewValidationError("budget", core.ErrMissingBudget)
	}
	budget, err := parseAmount(raw)
	if err != nil {
		return core.Money{}, core.NewValidationError(field, core.ErrInvalidBudget)
	}
	return budget, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequestError{msg: "request body too large"}
		}
		return badRequestError{msg: "could not read request body"}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequestError{msg: "request body is required"}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return badRequestError{msg: "malformed JSON body"}
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// parseAmount accepts a JSON number or string. A missing amount is zero and
// is left to the caller to reject.
func parseAmount(raw json.RawMessage) (core.Money, error) {
	if isAbsent(raw) {
		return core.Money{}, nil
	}
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return core.Money{}, core.ErrInvalidAmount
		}
		s = str
	}
	return core.ParseMoney(s)
}

// MonthParams is a calendar month addressed by a query string.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month, defaulting each to now. Values that
// are present but not integers are ValidationErrors; range checks are left to
// the service.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}
	for _, p := range []struct {
		key string
		dst *int
	}{{"year", &params.Year}, {"month", &params.Month}} {
		v := strings.TrimSpace(query.Get(p.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, core.NewValidationError(p.key, core.ErrInvalidMonth)
		}
		*p.dst = n
	}
	return params, nil
}

// ParseDateParam reads a required YYYY-MM-DD query parameter.
func ParseDateParam(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, core.NewValidationError(key, core.ErrMissingDate)
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.NewValidationError(key, core.ErrInvalidDate)
	}
	return d, nil
}

// parseID reads the {id} path segment. Ids that cannot exist are not found.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("expense %q: %w", r.PathValue("id"), core.ErrNotFound)
	}
	return id, nil
}
