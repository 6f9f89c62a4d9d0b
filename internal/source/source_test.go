package source

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func newTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for path, content := range files {
		if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return fsys
}

func TestDiscover(t *testing.T) {
	fsys := newTestFs(t, map[string]string{
		"handlers/b.py":                 "",
		"handlers/a.py":                 "",
		"handlers/notes.txt":            "",
		"handlers/.venv/lib.py":         "",
		"handlers/__pycache__/a.py":     "",
		"handlers/node_modules/x/y.py":  "",
		"handlers/nested/c.py":          "",
		"schema/001.sql":                "",
		"routes/api.yaml":               "",
		"routes/extra.json":             "",
	})

	tests := []struct {
		name  string
		paths []string
		kind  Kind
		want  []string
	}{
		{"handlers", []string{"handlers"}, KindHandler, []string{"handlers/a.py", "handlers/b.py", "handlers/nested/c.py"}},
		{"explicit file kept", []string{"handlers/notes.txt"}, KindHandler, []string{"handlers/notes.txt"}},
		{"deduplicated", []string{"schema", "schema/001.sql"}, KindSchema, []string{"schema/001.sql"}},
		{"routes", []string{"routes"}, KindRoute, []string{"routes/api.yaml", "routes/extra.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Discover(fsys, tt.paths, tt.kind)
			if err != nil {
				t.Fatalf("Discover: %v", err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Discover() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiscoverMissingPath(t *testing.T) {
	_, err := Discover(afero.NewMemMapFs(), []string{"nope"}, KindSchema)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Discover(missing) error = %v, want fs.ErrNotExist", err)
	}
}

func TestParseAllKeepsOrder(t *testing.T) {
	fsys := newTestFs(t, map[string]string{
		"a.sql": "one",
		"b.sql": "two",
		"c.sql": "three",
	})
	paths := []string{"a.sql", "b.sql", "missing.sql", "c.sql"}
	results, err := ParseAll(context.Background(), fsys, paths, 2, func(path string, data []byte) (int, error) {
		return len(data), nil
	})
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	want := []int{3, 3, 0, 5}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("results[%d].Path = %q, want %q", i, r.Path, paths[i])
		}
		if r.Value != want[i] {
			t.Errorf("results[%d].Value = %d, want %d", i, r.Value, want[i])
		}
	}
	if results[2].Err == nil {
		t.Error("expected a read error for the missing file")
	}
}

func TestParseAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fsys := newTestFs(t, map[string]string{"a.sql": "x"})
	_, err := ParseAll(ctx, fsys, []string{"a.sql"}, 1, func(string, []byte) (string, error) {
		return "", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ParseAll error = %v, want context.Canceled", err)
	}
}
