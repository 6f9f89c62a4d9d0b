package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/faucetdb/driftguard/internal/config"
	"github.com/faucetdb/driftguard/internal/engine"
	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/server/middleware"
	"github.com/faucetdb/driftguard/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError writes the error envelope, tagged with the request ID so a
// client report can be matched to the server log line.
func writeError(w http.ResponseWriter, r *http.Request, code int, message string, ctx ...map[string]interface{}) {
	detail := model.ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetRequestID(r.Context()),
	}
	if len(ctx) > 0 {
		detail.Context = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{Error: detail})
}

// readJSON decodes a request body strictly: unknown fields and trailing
// data are errors.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after the JSON body")
	}
	return nil
}

// queryLimit reads a positive page size. Missing or malformed values give
// def; values above max are capped.
func queryLimit(r *http.Request, key string, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return def
	}
	return min(n, max)
}

// queryBool accepts the strconv.ParseBool spellings; anything else is false.
func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// queryList splits a comma-separated query parameter. Repeated parameters
// are concatenated; blank items are dropped.
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, val := range r.URL.Query()[key] {
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// classifyError maps run errors to HTTP status codes. Bad inputs are the
// caller's fault; anything else is ours.
func classifyError(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, engine.ErrNoInputs), errors.Is(err, engine.ErrPathNotFound):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnknownService), errors.Is(err, config.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
