package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/afero"

	"github.com/faucetdb/driftguard/internal/config"
	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/service"
)

var fixture = map[string]string{
	"schema/001_orders.sql": `CREATE TABLE orders (
    id UUID PRIMARY KEY,
    total NUMERIC(10, 2) NOT NULL,
    note TEXT DEFAULT 'none'
);
CREATE FUNCTION order_total(p_order UUID) RETURNS NUMERIC AS $$ SELECT 1 $$ LANGUAGE sql;
`,
	"handlers/orders.py": `def get_order(event):
    return accessor.find_one("order", {"id": event["id"]})
`,
}

func newTestServer(t *testing.T) (*MCPServer, *config.Store) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range fixture {
		if err := afero.WriteFile(fsys, name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultYAMLConfig()
	cfg.Inputs.Procedures = []string{"schema"}
	checks, err := service.NewCheckService(cfg, fsys, store, connector.NewRegistry(), nil)
	if err != nil {
		t.Fatalf("NewCheckService: %v", err)
	}
	return NewMCPServer(checks, store, "test", nil), store
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("content = %+v", res.Content)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Content[0])
	}
	return text.Text, res.IsError
}

func TestArgsLimit(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want int
	}{
		{"absent", nil, 0},
		{"in range", 7, 7},
		{"float from json", float64(12), 12},
		{"negative", -3, 0},
		{"above max", 500, maxSuggestions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req mcp.CallToolRequest
			if tt.raw != nil {
				req.Params.Arguments = map[string]interface{}{"limit": tt.raw}
			}
			if got := (args{req}).limit("limit", maxSuggestions); got != tt.want {
				t.Errorf("limit = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestArgsName(t *testing.T) {
	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]interface{}{"table": "  orders ", "blank": "   "}
	a := args{req}
	if got, err := a.name("table"); err != nil || got != "orders" {
		t.Errorf("name(table) = %q, %v", got, err)
	}
	for _, key := range []string{"blank", "absent"} {
		if _, err := a.name(key); err == nil || !strings.Contains(err.Error(), key) {
			t.Errorf("name(%s) err = %v", key, err)
		}
	}
}

func TestAnnotations(t *testing.T) {
	ro := readOnlyAnnotation()
	if ro.ReadOnlyHint == nil || !*ro.ReadOnlyHint {
		t.Error("readOnlyAnnotation should set ReadOnlyHint")
	}
	rec := recordingAnnotation()
	if rec.ReadOnlyHint == nil || *rec.ReadOnlyHint {
		t.Error("recordingAnnotation should not be read-only")
	}
	if rec.DestructiveHint == nil || *rec.DestructiveHint {
		t.Error("recordingAnnotation should not be destructive")
	}
}

func TestArgsInputs(t *testing.T) {
	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]interface{}{
		"schema":   []interface{}{"db/schema"},
		"handlers": []interface{}{"src", "lib"},
		"service":  "orders",
		"refresh":  true,
	}
	got := args{req}.inputs()
	if len(got.Schema) != 1 || len(got.Handlers) != 2 || got.Service != "orders" || !got.Refresh || got.Baseline {
		t.Errorf("inputs = %+v", got)
	}
}

func TestHandleCheck(t *testing.T) {
	s, store := newTestServer(t)

	text, isErr := callTool(t, s.handleCheck, nil)
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var res struct {
		Report model.Report `json:"report"`
	}
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatal(err)
	}
	if res.Report.Status != model.StatusFailed || len(res.Report.Diagnostics) != 1 {
		t.Fatalf("report = %+v", res.Report)
	}
	if d := res.Report.Diagnostics[0]; d.Category != model.CategoryMissingTable || !strings.Contains(d.Suggestion, "orders") {
		t.Errorf("diagnostic = %+v", d)
	}

	runs, err := store.ListRuns(context.Background(), "default", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Origin != service.OriginMCP {
		t.Errorf("runs = %+v", runs)
	}

	text, isErr = callTool(t, s.handleCheck, map[string]interface{}{"handlers": []interface{}{"missing"}})
	if !isErr || !strings.Contains(text, "missing") {
		t.Errorf("expected tool error, got %q", text)
	}
}

func TestHandleListTables(t *testing.T) {
	s, _ := newTestServer(t)

	text, isErr := callTool(t, s.handleListTables, nil)
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var tables []struct {
		Name    string   `json:"name"`
		Source  string   `json:"source"`
		Columns []string `json:"columns"`
	}
	if err := json.Unmarshal([]byte(text), &tables); err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 || tables[0].Name != "orders" || strings.Join(tables[0].Columns, ",") != "id,total,note" {
		t.Errorf("tables = %+v", tables)
	}
}

func TestHandleDescribeTable(t *testing.T) {
	s, _ := newTestServer(t)

	text, isErr := callTool(t, s.handleDescribeTable, map[string]interface{}{"table": "orders"})
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var table model.Table
	if err := json.Unmarshal([]byte(text), &table); err != nil {
		t.Fatal(err)
	}
	if len(table.Columns) != 3 || table.Columns[0].Nullable || !table.Columns[2].Nullable {
		t.Errorf("table = %+v", table)
	}

	text, isErr = callTool(t, s.handleDescribeTable, map[string]interface{}{"table": "order"})
	if !isErr || !strings.Contains(text, "orders") {
		t.Errorf("expected suggestion in tool error, got %q", text)
	}

	_, isErr = callTool(t, s.handleDescribeTable, nil)
	if !isErr {
		t.Error("expected error for missing table argument")
	}
}

func TestHandleDescribeProcedure(t *testing.T) {
	s, _ := newTestServer(t)

	text, isErr := callTool(t, s.handleDescribeProcedure, map[string]interface{}{"procedure": "ORDER_TOTAL"})
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var proc model.Procedure
	if err := json.Unmarshal([]byte(text), &proc); err != nil {
		t.Fatal(err)
	}
	if proc.Name != "order_total" || len(proc.Parameters) != 1 || proc.Parameters[0].Name != "p_order" {
		t.Errorf("proc = %+v", proc)
	}

	text, isErr = callTool(t, s.handleDescribeProcedure, map[string]interface{}{"procedure": "order_totals"})
	if !isErr || !strings.Contains(text, "order_total") {
		t.Errorf("expected suggestion in tool error, got %q", text)
	}
}

func TestHandleSuggest(t *testing.T) {
	s, _ := newTestServer(t)

	text, isErr := callTool(t, s.handleSuggest, map[string]interface{}{
		"name":       "get_usr",
		"candidates": []interface{}{"get_user", "get_users", "delete_user"},
		"limit":      1,
	})
	if isErr {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var matches []struct {
		Candidate string `json:"candidate"`
	}
	if err := json.Unmarshal([]byte(text), &matches); err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Candidate != "get_user" {
		t.Errorf("matches = %+v", matches)
	}

	_, isErr = callTool(t, s.handleSuggest, map[string]interface{}{"name": "x", "threshold": 1.5})
	if !isErr {
		t.Error("expected error for out of range threshold")
	}
}

func TestResources(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	svc := &model.ServiceConfig{Name: "orders", Driver: "postgres", DSN: "postgres://u:secret@db/orders", IsActive: true}
	if err := store.CreateService(ctx, svc); err != nil {
		t.Fatal(err)
	}

	var req mcp.ReadResourceRequest
	req.Params.URI = servicesURI
	contents, err := s.handleServicesResource(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, `"orders"`) || strings.Contains(text, "secret") {
		t.Errorf("services resource = %s", text)
	}

	req.Params.URI = rulesURI
	contents, err = s.handleRulesResource(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(contents[0].(mcp.TextResourceContents).Text, "plural") {
		t.Errorf("rules resource = %+v", contents)
	}

	req.Params.URI = catalogURIPrefix
	if _, err := s.handleCatalogResource(ctx, req); err == nil {
		t.Error("expected error for catalog URI without a service")
	}
}
