package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDefaultPoolConfig(t *testing.T) {
	want := PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1, ConnMaxLifetime: 5 * time.Minute, ConnMaxIdleTime: time.Minute}
	if got := DefaultPoolConfig(); got != want {
		t.Errorf("DefaultPoolConfig() = %+v, want %+v", got, want)
	}
}

func TestServiceConfigJSONOmitsDSN(t *testing.T) {
	sc := ServiceConfig{
		Name:           "warehouse",
		Driver:         "snowflake",
		DSN:            "reader:s3cret@acme/analytics",
		PrivateKeyPath: "/keys/reader.p8",
		Schema:         "PUBLIC",
		Pool:           DefaultPoolConfig(),
		CreatedAt:      time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(sc)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "s3cret") {
		t.Errorf("DSN leaked into JSON: %s", b)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if m["schema"] != "PUBLIC" || m["private_key_path"] != "/keys/reader.p8" {
		t.Errorf("json = %s", b)
	}
}

func TestNewTableKeepsDeclarationOrder(t *testing.T) {
	tbl := NewTable("orders", []Column{
		{Name: "id", DeclaredType: "UUID"},
		{Name: "total", DeclaredType: "NUMERIC"},
		{Name: "status", DeclaredType: "TEXT"},
		{Name: "total", DeclaredType: "BIGINT"},
	}, Location{File: "a.sql", Line: 1})

	got := tbl.ColumnNames()
	want := []string{"id", "total", "status"}
	if len(got) != len(want) {
		t.Fatalf("ColumnNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ColumnNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	col, ok := tbl.Column("total")
	if !ok || col.DeclaredType != "BIGINT" {
		t.Errorf("Column(total) = %+v, %v; want the later BIGINT definition", col, ok)
	}
	if tbl.HasColumn("missing") {
		t.Error("HasColumn(missing) = true, want false")
	}
}

func TestTableLookupAfterJSONRoundTrip(t *testing.T) {
	tbl := NewTable("users", []Column{{Name: "id"}, {Name: "email"}}, Location{})
	b, err := json.Marshal(tbl)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var decoded Table
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !decoded.HasColumn("email") {
		t.Error("decoded table lost column lookup")
	}
}

func TestCatalogTableNamesSorted(t *testing.T) {
	c := NewCatalog()
	for _, name := range []string{"orders", "a_users", "items"} {
		c.Tables[name] = NewTable(name, nil, Location{})
	}
	got := c.TableNames()
	want := []string{"a_users", "items", "orders"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TableNames() = %v, want %v", got, want)
		}
	}
	var nilCatalog *Catalog
	if nilCatalog.Len() != 0 {
		t.Error("nil catalog should have length 0")
	}
}

func TestProcedureLookupIgnoresCase(t *testing.T) {
	c := NewProcedureCatalog()
	c.Put(&Procedure{Name: "Get_User"})

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"exact", "Get_User", true},
		{"lower", "get_user", true},
		{"upper", "GET_USER", true},
		{"other", "get_users", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.Lookup(tt.query)
			if ok != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.query, ok, tt.want)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name  string
		diags []Diagnostic
		want  Status
	}{
		{"empty", nil, StatusPassed},
		{"warnings only", []Diagnostic{{Severity: SeverityWarning}}, StatusPassedWithWarnings},
		{"error", []Diagnostic{{Severity: SeverityWarning}, {Severity: SeverityError}}, StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.diags); got != tt.want {
				t.Errorf("StatusOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseOperation(t *testing.T) {
	if op, ok := ParseOperation("upsert"); !ok || op != OpUpsert {
		t.Errorf("ParseOperation(upsert) = %q, %v", op, ok)
	}
	if _, ok := ParseOperation("merge"); ok {
		t.Error("ParseOperation(merge) should fail")
	}
	if !OpInsert.IsWrite() || OpFilter.IsWrite() {
		t.Error("IsWrite classification is wrong")
	}
}

func TestErrorResponseJSON(t *testing.T) {
	b, err := json.Marshal(ErrorResponse{Error: ErrorDetail{Code: 400, Message: "no input paths"}})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"error":{"code":400,"message":"no input paths"}}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}
