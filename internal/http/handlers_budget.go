package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"unidiary/internal/core"
	"unidiary/internal/gateway"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Budgets.Items())
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var b core.Budget
	if err := decodeJSON(w, r, &b); err != nil {
		writeFailure(w, r, err)
		return
	}
	b.ID, b.OwnerID = "", ""
	if err := b.Validate(); err != nil {
		writeFailure(w, r, err)
		return
	}

	created, err := s.tracker.Budgets.Add(r.Context(), b)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	patch, err := decodePatch(w, r, gateway.ColumnID, gateway.ColumnCreatedAt)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	updated, err := s.tracker.Budgets.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.tracker.Budgets.Get(id); !ok {
		writeError(w, http.StatusNotFound, gateway.KindNotFound.String(), "budget not found")
		return
	}
	if err := s.tracker.Budgets.Delete(r.Context(), id); err != nil {
		writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
