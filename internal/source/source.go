// Package source reads analysis inputs from an afero file system.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel reads when the caller does not.
const DefaultConcurrency = 8

// Kind selects which file extensions a discovery walk collects.
type Kind string

const (
	KindSchema    Kind = "schema"
	KindProcedure Kind = "procedure"
	KindHandler   Kind = "handler"
	KindRoute     Kind = "route"
)

var extensions = map[Kind][]string{
	KindSchema:    {".sql"},
	KindProcedure: {".sql"},
	KindHandler:   {".py"},
	KindRoute:     {".yaml", ".yml", ".json"},
}

var skippedDirs = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
	"venv":         true,
}

// Matches reports whether path has an extension collected for kind.
func Matches(kind Kind, path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions[kind] {
		if e == ext {
			return true
		}
	}
	return false
}

// Discover expands paths into a sorted, deduplicated file list. Files named
// explicitly are always kept; directories are walked for files of the given
// kind, skipping hidden and vendored directories. A missing path is returned
// as an *fs.PathError.
func Discover(fsys afero.Fs, paths []string, kind Kind) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := fsys.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(p))
			continue
		}
		err = afero.Walk(fsys, p, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				name := info.Name()
				if path != p && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
					return filepath.SkipDir
				}
				return nil
			}
			if Matches(kind, path) {
				files = append(files, filepath.Clean(path))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return SortedUnique(files), nil
}

// SortedUnique returns a sorted copy of paths without duplicates.
func SortedUnique(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Result is the outcome of parsing one file.
type Result[T any] struct {
	Path  string
	Value T
	Err   error
}

// ParseAll reads and parses every path concurrently with at most limit
// workers. Results keep the order of paths. Per-file read and parse errors
// are recorded on the result; only context cancellation fails the call.
func ParseAll[T any](ctx context.Context, fsys afero.Fs, paths []string, limit int, parse func(path string, data []byte) (T, error)) ([]Result[T], error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	results := make([]Result[T], len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i].Path = path
			data, err := afero.ReadFile(fsys, path)
			if err != nil {
				results[i].Err = fmt.Errorf("read %s: %w", path, err)
				return nil
			}
			results[i].Value, results[i].Err = parse(path, data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
