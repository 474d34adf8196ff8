package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"unidiary/internal/core"
	"unidiary/internal/gateway"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	items := s.tracker.Expenses.Items()
	if c := r.URL.Query().Get("category"); c != "" {
		filtered := make([]core.Expense, 0, len(items))
		for _, e := range items {
			if string(e.Category) == c {
				filtered = append(filtered, e)
			}
		}
		items = filtered
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.Expense
	if err := decodeJSON(w, r, &e); err != nil {
		writeFailure(w, r, err)
		return
	}
	e.ID, e.OwnerID = "", ""
	e.Description = sanitizeInput(e.Description)
	if e.RecurrenceInterval == "" {
		e.RecurrenceInterval = core.RecurrenceNone
	}
	if err := e.Validate(); err != nil {
		writeFailure(w, r, err)
		return
	}

	created, err := s.tracker.Expenses.Add(r.Context(), e)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	patch, err := decodePatch(w, r, gateway.ColumnID, gateway.ColumnCreatedAt)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	updated, err := s.tracker.Expenses.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.tracker.Expenses.Get(id); !ok {
		writeError(w, http.StatusNotFound, gateway.KindNotFound.String(), "expense not found")
		return
	}
	if err := s.tracker.Expenses.Delete(r.Context(), id); err != nil {
		writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	paid, err := s.tracker.MarkPaid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paid)
}
