package http

import (
	"net/http"
	"strconv"

	"finanote/internal/core"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(core.Categories()).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	fields, err := parseExpenseRequest(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.expenses.Create(r.Context(), userID, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+strconv.FormatInt(e.ID, 10)).
		Body(toExpenseResponse(e)).
		Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	items, err := s.expenses.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toExpenseResponses(items)).Write(w)
}

func (s *Server) handleListByMonth(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.expenses.ListByMonth(r.Context(), userID, params.Year, params.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toExpenseResponses(items)).Write(w)
}

func (s *Server) handleListByRange(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	query := r.URL.Query()
	start, err := ParseDateParam(query, "start")
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := ParseDateParam(query, "end")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.expenses.ListByDateRange(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toExpenseResponses(items)).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := s.expenses.Dashboard(r.Context(), userID, params.Year, params.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(stats).Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.expenses.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toExpenseResponse(e)).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	fields, err := parseExpenseRequest(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.expenses.Update(r.Context(), userID, id, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toExpenseResponse(e)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.expenses.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
