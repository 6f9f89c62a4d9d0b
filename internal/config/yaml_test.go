package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/faucetdb/driftguard/internal/model"
)

func TestDefaultYAMLConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	def := DefaultYAMLConfig()
	if cfg.Server.Port != def.Server.Port || cfg.Matching.Threshold != def.Matching.Threshold {
		t.Errorf("round trip lost values: %+v", cfg)
	}
	if len(cfg.Recognizers.FlatOps) != len(def.Recognizers.FlatOps) {
		t.Errorf("recognizers = %d flat ops, want %d", len(cfg.Recognizers.FlatOps), len(def.Recognizers.FlatOps))
	}
}

func TestParseYAMLConfig(t *testing.T) {
	t.Setenv("DG_SECRET", "s3cr3t")
	cfg, err := ParseYAMLConfig([]byte(`
inputs:
  schema: [db/migrations]
  handlers: [functions]
naming:
  prefixes:
    - prefix: a_
      module: accounts
  unknown_prefix_severity: error
matching:
  threshold: 0.7
recognizers:
  flat_ops:
    fetch: select
server:
  jwt_secret: ${DG_SECRET}
`))
	if err != nil {
		t.Fatalf("ParseYAMLConfig: %v", err)
	}
	if cfg.Server.JWTSecret != "s3cr3t" {
		t.Errorf("jwt secret = %q, want env expansion", cfg.Server.JWTSecret)
	}
	if cfg.Server.Port != 8484 {
		t.Errorf("unset server fields should keep defaults, port = %d", cfg.Server.Port)
	}
	if !cfg.Naming.Plural.Enabled || len(cfg.Naming.Prefixes) != 1 || cfg.Naming.UnknownPrefix != model.SeverityError {
		t.Errorf("naming = %+v", cfg.Naming)
	}
	if _, ok := cfg.Recognizers.FlatOps["fetch"]; !ok || len(cfg.Recognizers.FlatOps) != 1 {
		t.Errorf("flat ops = %v, want only fetch", cfg.Recognizers.FlatOps)
	}
	if len(cfg.Recognizers.ChainFilters) == 0 {
		t.Error("unset recognizer fields should keep defaults")
	}

	opts := cfg.EngineOptions()
	if opts.Threshold != 0.7 || opts.Schemas[0] != "public" {
		t.Errorf("engine options = %+v", opts)
	}
	in := cfg.EngineInputs()
	if in.Schema[0] != "db/migrations" || in.Handlers[0] != "functions" {
		t.Errorf("inputs = %+v", in)
	}
}

func TestParseYAMLConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"threshold", "matching:\n  threshold: 2\n", "threshold"},
		{"duration", "server:\n  shutdown_timeout: soon\n", "invalid duration"},
		{"syntax", "inputs: [\n", "parse config file"},
		{"body size", "server:\n  max_body_size: lots\n", "max_body_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAMLConfig([]byte(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadYAMLConfigMissing(t *testing.T) {
	_, err := LoadYAMLConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}

func TestServerConfigHelpers(t *testing.T) {
	tests := []struct {
		size string
		want int64
	}{
		{"", 0},
		{"1MB", 1000000},
		{"1MiB", 1 << 20},
		{"512 KiB", 512 << 10},
	}
	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			got, err := ServerConfig{MaxBodySize: tt.size}.BodyLimit()
			if err != nil || got != tt.want {
				t.Errorf("BodyLimit(%q) = %d, %v; want %d", tt.size, got, err, tt.want)
			}
		})
	}

	sc := ServerConfig{ShutdownTimeout: "3s", JWTExpiry: "bogus"}
	if got := sc.Shutdown(time.Minute); got != 3*time.Second {
		t.Errorf("Shutdown = %v", got)
	}
	if got := sc.TokenTTL(time.Hour); got != time.Hour {
		t.Errorf("TokenTTL = %v", got)
	}
}
