package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/middleware/trace"
)

const defaultMaxBodyBytes = 256 << 10

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognized is
// a 500 with a generic body; the detail stays in the server log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe core.FieldErrors
	switch {
	case errors.As(err, &fe):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fe})
	case errors.Is(err, core.ErrValidation):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrUnauthorized):
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, core.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, core.ErrConflict):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: "conflict"})
	default:
		s.logger.ErrorContext(r.Context(), "request failed",
			log.FieldError, err,
			log.FieldRequestID, trace.GetRequestID(r.Context()),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeJSON reads a JSON body into dst with a size cap. Malformed bodies
// surface as validation errors.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return s.decodeJSONLimit(w, r, dst, defaultMaxBodyBytes)
}

func (s *Server) decodeJSONLimit(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return core.FieldErrors{"body": "malformed JSON: " + err.Error()}
	}
	return nil
}

// pathID parses the named path segment as an entity ID.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, core.FieldErrors{name: "must be a positive integer"}
	}
	return id, nil
}

// parseAmountField converts a decimal string like "12.50" into Money,
// attributing a parse failure to the named field.
func parseAmountField(field, value string) (core.Money, error) {
	m, err := core.ParseAmount(value)
	if err != nil {
		return core.Money{}, core.FieldErrors{field: "must be a positive decimal amount"}
	}
	return m, nil
}

// parseTimeField accepts RFC 3339 timestamps or bare dates.
func parseTimeField(field, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, core.FieldErrors{field: "must be an RFC 3339 timestamp or YYYY-MM-DD date"}
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryBool(r *http.Request, name string) bool {
	return r.URL.Query().Get(name) == "true"
}
