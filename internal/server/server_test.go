package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/faucetdb/driftguard/internal/config"
	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/service"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const testJWTSecret = "test-secret-for-jwt-integration-tests"

var fixture = map[string]string{
	"schema/001_init.sql": "CREATE TABLE a_users (id UUID PRIMARY KEY, email TEXT NOT NULL);\n",
	"handlers/users.py": `def get_user(event):
    return accessor.find_one("a_user", {"id": event["id"]})
`,
}

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server  *Server
	store   *config.Store
	authSvc *service.AuthService
}

// newTestEnv creates a server over an in-memory file system and store.
// An empty secret turns authentication off.
func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()

	store, err := config.NewStore("") // in-memory SQLite
	if err != nil {
		t.Fatalf("config.NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fsys := afero.NewMemMapFs()
	for name, content := range fixture {
		if err := afero.WriteFile(fsys, name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := connector.NewRegistry()
	checks, err := service.NewCheckService(config.DefaultYAMLConfig(), fsys, store, registry, logger)
	if err != nil {
		t.Fatalf("NewCheckService: %v", err)
	}
	authSvc := service.NewAuthService(secret)

	cfg := DefaultConfig()
	cfg.RateLimit = 0
	srv := New(cfg, checks, registry, store, authSvc, logger)

	return &testEnv{server: srv, store: store, authSvc: authSvc}
}

// token issues a token with the given scopes.
func (e *testEnv) token(t *testing.T, scopes ...string) string {
	t.Helper()
	tok, err := e.authSvc.IssueJWT("tester", scopes, time.Hour)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	return tok
}

// do executes an HTTP request against the test server and returns the recorder.
// headers is an optional map of header key-value pairs.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

// doAuth executes an HTTP request with a bearer token.
func (e *testEnv) doAuth(t *testing.T, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func assertContentType(t *testing.T, rr *httptest.ResponseRecorder, want string) {
	t.Helper()
	got := rr.Header().Get("Content-Type")
	if got != want {
		t.Errorf("Content-Type = %q, want %q", got, want)
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Health check tests
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)

	rr := env.do(t, "GET", "/healthz", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	assertContentType(t, rr, "application/json")

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)

	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Status != "ok" || resp.Checks["store"] != "ok" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOpenAPISpec(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)

	rr := env.do(t, "GET", "/openapi.json", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	decodeJSON(t, rr, &doc)
	if doc.OpenAPI != "3.1.0" {
		t.Errorf("openapi = %q", doc.OpenAPI)
	}
	if _, ok := doc.Paths["/api/v1/check"]; !ok {
		t.Errorf("paths = %v", doc.Paths)
	}
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)

	endpoints := []struct {
		method, path string
	}{
		{"POST", "/api/v1/check"},
		{"GET", "/api/v1/catalog"},
		{"GET", "/api/v1/rules"},
		{"GET", "/api/v1/runs"},
		{"POST", "/api/v1/suggest"},
		{"GET", "/api/v1/services"},
	}
	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			rr := env.do(t, ep.method, ep.path, nil, nil)
			assertStatus(t, rr, http.StatusUnauthorized)
		})
	}
}

func TestScopes(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)
	readOnly := env.token(t, service.ScopeRead)

	rr := env.doAuth(t, "POST", "/api/v1/check", jsonBody(t, map[string]any{}), readOnly)
	assertStatus(t, rr, http.StatusForbidden)

	rr = env.doAuth(t, "GET", "/api/v1/rules", nil, readOnly)
	assertStatus(t, rr, http.StatusOK)
}

func TestAuthDisabled(t *testing.T) {
	env := newTestEnv(t, "")
	rr := env.do(t, "GET", "/api/v1/rules", nil, nil)
	assertStatus(t, rr, http.StatusOK)
}

// ---------------------------------------------------------------------------
// Check API
// ---------------------------------------------------------------------------

func TestCheckEndpoint(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)
	tok := env.token(t)

	rr := env.doAuth(t, "POST", "/api/v1/check", jsonBody(t, map[string]any{
		"schema":   []string{"schema"},
		"handlers": []string{"handlers"},
	}), tok)
	assertStatus(t, rr, http.StatusOK)

	var report model.Report
	decodeJSON(t, rr, &report)
	if report.Status != model.StatusFailed || len(report.Diagnostics) != 1 {
		t.Fatalf("report = %+v", report)
	}
	d := report.Diagnostics[0]
	if d.Category != model.CategoryMissingTable || !strings.Contains(d.Suggestion, "a_users") {
		t.Errorf("diagnostic = %+v", d)
	}

	// The run shows up in the history.
	rr = env.doAuth(t, "GET", "/api/v1/runs?limit=5", nil, tok)
	assertStatus(t, rr, http.StatusOK)
	var runs struct {
		Resource []config.RunRecord `json:"resource"`
		Count    int                `json:"count"`
	}
	decodeJSON(t, rr, &runs)
	if runs.Count != 1 || runs.Resource[0].ID != report.RunID || runs.Resource[0].Origin != service.OriginAPI {
		t.Errorf("runs = %+v", runs)
	}
}

func TestCheckEndpointErrors(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)
	tok := env.token(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"unknown field", `{"schemas": ["x"]}`, http.StatusBadRequest},
		{"missing path", `{"handlers": ["nowhere"]}`, http.StatusBadRequest},
		{"unknown service", `{"service": "ghost", "handlers": ["handlers"]}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.doAuth(t, "POST", "/api/v1/check", strings.NewReader(tt.body), tok)
			assertStatus(t, rr, tt.want)

			var errResp model.ErrorResponse
			decodeJSON(t, rr, &errResp)
			if errResp.Error.Code != tt.want || errResp.Error.Message == "" {
				t.Errorf("error = %+v", errResp)
			}
		})
	}
}

func TestCatalogEndpoint(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)
	tok := env.token(t)

	rr := env.doAuth(t, "GET", "/api/v1/catalog?schema=schema", nil, tok)
	assertStatus(t, rr, http.StatusOK)
	var resp struct {
		Tables     []model.Table     `json:"tables"`
		Procedures []model.Procedure `json:"procedures"`
	}
	decodeJSON(t, rr, &resp)
	if len(resp.Tables) != 1 || resp.Tables[0].Name != "a_users" || len(resp.Tables[0].Columns) != 2 {
		t.Errorf("tables = %+v", resp.Tables)
	}
	if resp.Procedures == nil {
		t.Error("procedures should be an empty array, not null")
	}

	rr = env.doAuth(t, "GET", "/api/v1/catalog?schema=schema&format=openapi", nil, tok)
	assertStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"AUsers"`) && !strings.Contains(rr.Body.String(), "a_users") {
		t.Errorf("openapi catalog = %s", rr.Body.String())
	}
}

func TestSuggestEndpoint(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)
	tok := env.token(t)

	rr := env.doAuth(t, "POST", "/api/v1/suggest", jsonBody(t, map[string]any{
		"name":       "get_usr",
		"candidates": []string{"get_user", "get_users", "delete_user"},
	}), tok)
	assertStatus(t, rr, http.StatusOK)

	var matches []struct {
		Candidate string  `json:"candidate"`
		Score     float64 `json:"score"`
	}
	decodeJSON(t, rr, &matches)
	if len(matches) < 2 || matches[0].Candidate != "get_user" || matches[1].Candidate != "get_users" {
		t.Errorf("matches = %+v", matches)
	}

	rr = env.doAuth(t, "POST", "/api/v1/suggest", jsonBody(t, map[string]any{"candidates": []string{"x"}}), tok)
	assertStatus(t, rr, http.StatusBadRequest)

	rr = env.doAuth(t, "POST", "/api/v1/suggest", jsonBody(t, map[string]any{"name": "x", "threshold": 2}), tok)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestServicesEndpoint(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)
	tok := env.token(t)

	svc := &model.ServiceConfig{Name: "orders", Driver: "postgres", DSN: "postgres://u:secret@db/orders", IsActive: true}
	if err := env.store.CreateService(t.Context(), svc); err != nil {
		t.Fatalf("CreateService: %v", err)
	}

	rr := env.doAuth(t, "GET", "/api/v1/services", nil, tok)
	assertStatus(t, rr, http.StatusOK)
	if strings.Contains(rr.Body.String(), "secret") {
		t.Errorf("DSN leaked: %s", rr.Body.String())
	}

	rr = env.doAuth(t, "GET", "/api/v1/services/orders", nil, tok)
	assertStatus(t, rr, http.StatusOK)

	rr = env.doAuth(t, "GET", "/api/v1/services/missing", nil, tok)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestRequestBodyLimit(t *testing.T) {
	env := newTestEnv(t, "")
	big := `{"name": "` + strings.Repeat("a", 2<<20) + `"}`
	rr := env.do(t, "POST", "/api/v1/suggest", strings.NewReader(big), nil)
	assertStatus(t, rr, http.StatusRequestEntityTooLarge)
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t, testJWTSecret)

	rr := env.do(t, "OPTIONS", "/api/v1/check", nil, map[string]string{
		"Origin":                         "http://localhost:3000",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "Authorization,Content-Type",
	})

	// Chi's CORS handler should return a 2xx for preflight.
	if rr.Code < 200 || rr.Code >= 300 {
		t.Errorf("CORS preflight status = %d, want 2xx", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, "")
	rr := env.do(t, "GET", "/api/v1/check", nil, nil)
	assertStatus(t, rr, http.StatusMethodNotAllowed)
}

func TestConfigAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"127.0.0.1", 8484, "127.0.0.1:8484"},
		{"::1", 9000, "[::1]:9000"},
		{"", 80, ":80"},
	}
	for _, tt := range tests {
		if got := (Config{Host: tt.host, Port: tt.port}).Addr(); got != tt.want {
			t.Errorf("Addr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestRunStopsWhenCancelled(t *testing.T) {
	env := newTestEnv(t, "")
	env.server.cfg.Port = 0
	env.server.cfg.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
