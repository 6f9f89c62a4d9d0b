package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/faucetdb/driftguard/internal/config"
	"github.com/faucetdb/driftguard/internal/engine"
	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/server/middleware"
	"github.com/faucetdb/driftguard/internal/service"
)

func TestQueryList(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"", nil},
		{"schema=a", []string{"a"}},
		{"schema=a,b", []string{"a", "b"}},
		{"schema=a,%20,b&schema=c", []string{"a", "b", "c"}},
		{"other=x", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/?"+tt.query, nil)
			got := queryList(r, "schema")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("queryList = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=7", 7},
		{"limit=x", 20},
		{"limit=0", 20},
		{"limit=-3", 20},
		{"limit=900", 500},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/?"+tt.query, nil)
		if got := queryLimit(r, "limit", 20, 500); got != tt.want {
			t.Errorf("queryLimit(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestQueryBool(t *testing.T) {
	r := httptest.NewRequest("GET", "/?a=1&b=true&c=TRUE&d=no&e=0", nil)
	for key, want := range map[string]bool{"a": true, "b": true, "c": true, "d": false, "e": false, "missing": false} {
		if got := queryBool(r, key); got != want {
			t.Errorf("queryBool(%s) = %v, want %v", key, got, want)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no inputs", engine.ErrNoInputs, http.StatusBadRequest},
		{"missing path", fmt.Errorf("%w: x.sql", engine.ErrPathNotFound), http.StatusBadRequest},
		{"unknown service", fmt.Errorf("%w: ghost", service.ErrUnknownService), http.StatusNotFound},
		{"not found", config.ErrNotFound, http.StatusNotFound},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError = %d, want %d", got, tt.want)
			}
		})
	}
	if got := classifyBodyError(errors.New("unexpected EOF")); got != http.StatusBadRequest {
		t.Errorf("classifyBodyError = %d", got)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/catalog?service=x", nil)
	req = req.WithContext(middleware.WithRequestID(req.Context(), "req-42"))
	writeError(rr, req, http.StatusNotFound, "Service not found: x", map[string]interface{}{"service": "x"})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
	var resp model.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != 404 || resp.Error.Message != "Service not found: x" || resp.Error.Context["service"] != "x" || resp.Error.RequestID != "req-42" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	var req suggestRequest
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a","extra":1}`))
	if err := readJSON(r, &req); err == nil {
		t.Error("expected error for unknown field")
	}

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a"} {"name":"b"}`))
	if err := readJSON(r, &req); err == nil {
		t.Error("expected error for trailing data")
	}

	req = suggestRequest{}
	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"a","limit":2}` + "\n"))
	if err := readJSON(r, &req); err != nil || req.Name != "a" || req.Limit != 2 {
		t.Errorf("req = %+v err = %v", req, err)
	}
}

func TestBaseURL(t *testing.T) {
	r := httptest.NewRequest("GET", "http://example.com:8484/openapi.json", nil)
	if got := baseURL(r); got != "http://example.com:8484" {
		t.Errorf("baseURL = %q", got)
	}
}
