package http

import (
	"net/http"

	"unidiary/internal/gateway"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Profile.Current())
}

// handleSaveProfile upserts the principal's profile from a partial document.
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	patch, err := decodePatch(w, r, gateway.ColumnUserID, gateway.ColumnCreatedAt, gateway.ColumnUpdatedAt)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	saved, err := s.tracker.Profile.Save(r.Context(), patch)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
