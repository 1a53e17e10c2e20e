package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/premik/internal/model"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string     `json:"error"`
	Code  model.Kind `json:"code"`
	ID    string     `json:"id,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a validation error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message, Code: model.KindValidation})
}

// writeError maps a service error to its HTTP status. Anything that is not
// a domain error is logged and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *model.Error
	if !errors.As(err, &derr) {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		jsonResponse(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL"})
		return
	}

	status := http.StatusBadRequest
	switch derr.Kind {
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindInvalidTransition, model.KindInsufficientStock:
		status = http.StatusConflict
	}

	msg := derr.Message
	if msg == "" {
		msg = err.Error()
	}
	jsonResponse(w, status, errorBody{Error: msg, Code: derr.Kind, ID: derr.ID})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// pathInt64 parses a numeric path value.
func pathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// queryInt64 parses an optional numeric query parameter; absent means 0.
func queryInt64(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

// page parses limit and offset.
func page(r *http.Request) (limit, offset int, err error) {
	l, err := queryInt64(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	o, err := queryInt64(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	return int(l), int(o), nil
}

// csvResponse prepares headers for a CSV download.
func csvResponse(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

// actorRequest is the body of simple transition endpoints.
type actorRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// tokenRequest is the body of handoff confirmation endpoints.
type tokenRequest struct {
	Token string `json:"token"`
	Actor string `json:"actor"`
}

func (t tokenRequest) validate() error {
	if t.Token == "" {
		return model.Validation("token is required")
	}
	if t.Actor == "" {
		return model.Validation("actor is required")
	}
	return nil
}
