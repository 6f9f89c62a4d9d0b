package connector

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	var s Session

	if err := s.Ping(ctx); !errors.Is(err, errNotConnected) {
		t.Errorf("Ping before Open = %v", err)
	}
	var names []string
	if err := s.Select(ctx, &names, "SELECT 1"); !errors.Is(err, errNotConnected) {
		t.Errorf("Select before Open = %v", err)
	}

	dsn := filepath.Join(t.TempDir(), "live.db")
	if err := s.Open("sqlite", "sqlite", dsn, ConnectionConfig{}, "main"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Disconnect() })

	if s.Schema() != "main" {
		t.Errorf("Schema() = %q, want fallback main", s.Schema())
	}
	if got := s.DB().Stats().MaxOpenConnections; got != introspectionConns {
		t.Errorf("MaxOpenConnections = %d, want %d", got, introspectionConns)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if src := s.Source("sqlite"); src.File != "sqlite:main" {
		t.Errorf("Source = %+v", src)
	}

	if err := s.Disconnect(); err != nil {
		t.Errorf("Disconnect: %v", err)
	}
	if err := s.Disconnect(); err != nil {
		t.Errorf("second Disconnect: %v", err)
	}
}

func TestSessionOpenOptions(t *testing.T) {
	var s Session
	cfg := ConnectionConfig{SchemaName: "aux", MaxOpenConns: 5}
	if err := s.Open("sqlite", "sqlite", filepath.Join(t.TempDir(), "x.db"), cfg, "main"); err != nil {
		t.Fatal(err)
	}
	defer s.Disconnect()
	if s.Schema() != "aux" || s.DB().Stats().MaxOpenConnections != 5 {
		t.Errorf("schema %q, max open %d", s.Schema(), s.DB().Stats().MaxOpenConnections)
	}

	var bad Session
	err := bad.Open("fake", "no-such-sql-driver", "x", ConnectionConfig{}, "")
	if err == nil || !strings.HasPrefix(err.Error(), "fake connect:") {
		t.Errorf("err = %v", err)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name        string
		left, right byte
		want        string
	}{
		{`orders`, '"', '"', `"orders"`},
		{`we"ird`, '"', '"', `"we""ird"`},
		{"a`b", '`', '`', "`a``b`"},
		{"x]y", '[', ']', "[x]]y]"},
	}
	for _, tt := range tests {
		if got := Quote(tt.name, tt.left, tt.right); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}
