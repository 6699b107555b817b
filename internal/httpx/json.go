package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"tpvrestaurante/internal/pos"
)

const maxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

func writeCodedError(w http.ResponseWriter, status int, code, message string, details any) {
	body := map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	WriteJSON(w, status, body)
}

// WriteServiceError maps a pos error to its status code. Anything unknown is a 500
// whose message does not leak the cause.
func WriteServiceError(w http.ResponseWriter, err error) {
	var (
		validation *pos.ValidationError
		notFound   *pos.NotFoundError
		conflict   *pos.ConflictError
		partial    *pos.PartialFailureError
	)
	switch {
	case errors.As(err, &validation):
		var details any
		if len(validation.IDs) > 0 {
			details = map[string]any{"ids": validation.IDs}
		}
		writeCodedError(w, http.StatusBadRequest, "VALIDATION", validation.Reason, details)
	case errors.As(err, &notFound):
		writeCodedError(w, http.StatusNotFound, "NOT_FOUND", notFound.Error(), nil)
	case errors.Is(err, pos.ErrNotFound):
		writeCodedError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.As(err, &conflict):
		writeCodedError(w, http.StatusConflict, "CONFLICT", conflict.Reason, nil)
	case errors.As(err, &partial):
		writeCodedError(w, http.StatusInternalServerError, "PARTIAL_FAILURE", "operation stopped before finishing", map[string]any{
			"operation": partial.Op,
			"step":      partial.Step,
		})
	default:
		writeCodedError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

// ReadJSON decodes a single JSON object from the request body. An empty body leaves v
// untouched.
func ReadJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &pos.ValidationError{Reason: "invalid JSON body: " + strings.TrimPrefix(err.Error(), "json: ")}
	}
	return nil
}
