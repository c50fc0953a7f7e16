package http

import (
	"net/http"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	u, err := s.users.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(u).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	budget, err := parseBudgetRequest(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.users.UpdateBudget(r.Context(), userID, budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(u).Write(w)
}
