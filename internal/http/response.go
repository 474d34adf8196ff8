package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"unidiary/internal/core"
	"unidiary/internal/gateway"
	"unidiary/internal/log"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{
		Error:     message,
		Kind:      kind,
		RequestID: w.Header().Get("X-Request-ID"),
	})
}

// writeFailure maps a gateway or domain error onto a status code and logs it.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err, log.FieldStatusCode, status)
	} else {
		logger.InfoContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldStatusCode, status)
	}
	writeError(w, status, kind, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, gateway.ErrValidation), isDomainError(err), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, gateway.KindValidation.String()
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound, gateway.KindNotFound.String()
	case errors.Is(err, gateway.ErrTransport):
		return http.StatusBadGateway, gateway.KindTransport.String()
	}
	return http.StatusInternalServerError, ""
}

func isDomainError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidCategory,
		core.ErrInvalidRecurrence,
		core.ErrInvalidPeriod,
		core.ErrInvalidDate,
		core.ErrDescriptionTooLong,
		core.ErrRecurrenceMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
