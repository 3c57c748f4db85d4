// Package httputil holds the JSON plumbing shared by the ops handlers.
package httputil

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/pkg/errors"
	"github.com/campusvoice/contenttrust/pkg/json"
)

// maxBodyBytes caps request bodies; bulk id sets fit comfortably.
const maxBodyBytes = 1 << 20

// WriteJSONResponse writes v as a JSON response.
func WriteJSONResponse(w http.ResponseWriter, log *zap.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write JSON response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// WriteJSONError writes a JSON error response with an explicit status.
func WriteJSONError(w http.ResponseWriter, log *zap.Logger, status int, msg string, err error, fields ...zap.Field) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err != nil {
		log.Error(msg, append(fields, zap.Error(err))...)
	} else {
		log.Error(msg, fields...)
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	if encErr := json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   msg,
		"details": details,
	}); encErr != nil {
		log.Error("failed to write error response", zap.Error(encErr))
	}
}

// WriteServiceError maps a service error onto the transport through the
// error taxonomy and writes it.
func WriteServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	w.Header().Set("Content-Type", "application/json")
	status := errors.HTTPStatus(err)
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"kind":  errors.KindOf(err).String(),
	}); encErr != nil {
		log.Error("failed to write error response", zap.Error(encErr))
	}
}

// DecodeBody decodes a JSON request body into v.
func DecodeBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
