package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gastos/internal/core"
	applog "gastos/internal/log"
)

const persistenceWarningHeader = "X-Persistence-Warning"

const (
	errTypeBadRequest = "bad_request"
	errTypeValidation = "validation"
	errTypeNotFound   = "not_found"
	errTypeInternal   = "internal"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// mutationBody wraps the result of a write. Warning is set when the
// change was applied in memory but could not be saved.
type mutationBody struct {
	Data    any    `json:"data"`
	Warning string `json:"warning,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, typ, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Type: typ, Message: msg}})
}

// writeError maps ledger errors to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: errorDetail{
			Type: errTypeValidation, Message: ve.Error(), Field: ve.Field,
		}})
	case core.IsNotFound(err):
		writeErrorMessage(w, http.StatusNotFound, errTypeNotFound, err.Error())
	case errors.Is(err, errBadRequest):
		writeErrorMessage(w, http.StatusBadRequest, errTypeBadRequest, err.Error())
	default:
		applog.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, r.Method,
			applog.NewFields().With(applog.FieldPath, r.URL.Path))
		writeErrorMessage(w, http.StatusInternalServerError, errTypeInternal, "internal error")
	}
}

// writeMutation answers a write. A persistence failure keeps the success
// status since the change is live; anything else is an error response.
func (s *Server) writeMutation(w http.ResponseWriter, r *http.Request, status int, data any, err error) {
	body := mutationBody{Data: data}
	if err != nil {
		if !core.IsPersistence(err) {
			s.writeError(w, r, err)
			return
		}
		applog.FromContext(r.Context()).LogWarn(r.Context(), "Change applied but not saved", err, r.Method,
			applog.NewFields().With(applog.FieldPath, r.URL.Path))
		body.Warning = "change applied but could not be saved"
		w.Header().Set(persistenceWarningHeader, "true")
	}
	writeJSON(w, status, body)
}
