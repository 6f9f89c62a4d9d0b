package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/afero"

	"github.com/faucetdb/driftguard/internal/config"
	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/connector/sqlite"
	"github.com/faucetdb/driftguard/internal/model"
)

var checkFixture = map[string]string{
	"schema/users.sql": "CREATE TABLE users (id UUID PRIMARY KEY, email TEXT NOT NULL);\n",
	"handlers/users.py": `def list_users(event):
    return accessor.find_many("users", select="id, emial")


def get_user(event):
    return accessor.find_one("user", {"id": event["id"]})
`,
}

type checkEnv struct {
	svc   *CheckService
	fs    afero.Fs
	store *config.Store
	reg   *connector.Registry
}

func newCheckEnv(t *testing.T, files map[string]string) *checkEnv {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fsys, name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := config.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := connector.NewRegistry()
	reg.RegisterDriver("sqlite", sqlite.New)

	cfg := config.DefaultYAMLConfig()
	cfg.Store.Project = "test"
	svc, err := NewCheckService(cfg, fsys, store, reg, nil)
	if err != nil {
		t.Fatalf("NewCheckService: %v", err)
	}
	return &checkEnv{svc: svc, fs: fsys, store: store, reg: reg}
}

func categories(diags []model.Diagnostic) []model.Category {
	out := make([]model.Category, len(diags))
	for i, d := range diags {
		out[i] = d.Category
	}
	return out
}

func TestCheckRecordsRun(t *testing.T) {
	env := newCheckEnv(t, checkFixture)
	ctx := context.Background()

	res, err := env.svc.Check(ctx, CheckRequest{Schema: []string{"schema"}, Handlers: []string{"handlers"}}, OriginAPI)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	got := categories(res.Report.Diagnostics)
	if len(got) != 2 || got[0] != model.CategoryMissingColumn || got[1] != model.CategoryMissingTable {
		t.Fatalf("categories = %v", got)
	}
	if res.Report.Status != model.StatusFailed {
		t.Errorf("status = %s", res.Report.Status)
	}

	runs, err := env.svc.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != res.Report.RunID || runs[0].Origin != OriginAPI || runs[0].Errors != 2 {
		t.Errorf("runs = %+v", runs)
	}
}

func TestCheckUsesConfiguredInputs(t *testing.T) {
	// Defaults name the "schema" and "handlers" directories.
	env := newCheckEnv(t, checkFixture)
	res, err := env.svc.Check(context.Background(), CheckRequest{}, OriginCLI)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Report.Stats.SchemaFiles != 1 || res.Report.Stats.HandlerFiles != 1 {
		t.Errorf("stats = %+v", res.Report.Stats)
	}
}

func TestCheckBaseline(t *testing.T) {
	env := newCheckEnv(t, checkFixture)
	ctx := context.Background()
	req := CheckRequest{Schema: []string{"schema"}, Handlers: []string{"handlers"}}

	first, err := env.svc.Check(ctx, req, OriginCLI)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	added, err := env.svc.AcceptBaseline(ctx, first.Report)
	if err != nil {
		t.Fatalf("AcceptBaseline: %v", err)
	}
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}

	req.Baseline = true
	second, err := env.svc.Check(ctx, req, OriginCLI)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if second.Report.Status != model.StatusPassed || second.Report.Suppressed != 2 || len(second.Resolved) != 0 {
		t.Errorf("second = %+v resolved=%v", second.Report, second.Resolved)
	}

	// Fix the column typo; its accepted entry is now resolved.
	fixed := `def list_users(event):
    return accessor.find_many("users", select="id, email")


def get_user(event):
    return accessor.find_one("user", {"id": event["id"]})
`
	if err := afero.WriteFile(env.fs, "handlers/users.py", []byte(fixed), 0o644); err != nil {
		t.Fatal(err)
	}
	third, err := env.svc.Check(ctx, req, OriginCLI)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if third.Report.Suppressed != 1 || len(third.Resolved) != 1 || third.Resolved[0].Category != model.CategoryMissingColumn {
		t.Errorf("third = suppressed %d resolved %+v", third.Report.Suppressed, third.Resolved)
	}
}

func TestCheckErrors(t *testing.T) {
	env := newCheckEnv(t, checkFixture)
	ctx := context.Background()

	if _, err := env.svc.Check(ctx, CheckRequest{Handlers: []string{"nope"}}, OriginAPI); err == nil {
		t.Error("expected error for missing path")
	}
	_, err := env.svc.Check(ctx, CheckRequest{Service: "ghost", Handlers: []string{"handlers"}}, OriginAPI)
	if !errors.Is(err, ErrUnknownService) {
		t.Errorf("err = %v, want ErrUnknownService", err)
	}
}

func TestLiveCatalogSnapshot(t *testing.T) {
	env := newCheckEnv(t, checkFixture)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "live.db")
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.MustExec(`CREATE TABLE users (id TEXT PRIMARY KEY, email TEXT NOT NULL)`)

	svc := &model.ServiceConfig{Name: "live", Driver: "sqlite", DSN: path, IsActive: true, Pool: model.DefaultPoolConfig()}
	if err := env.store.CreateService(ctx, svc); err != nil {
		t.Fatalf("CreateService: %v", err)
	}

	req := CheckRequest{Service: "live", Handlers: []string{"handlers"}}
	res, err := env.svc.Check(ctx, req, OriginCLI)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Report.Stats.Tables != 1 || res.Report.Stats.SchemaFiles != 0 {
		t.Errorf("stats = %+v", res.Report.Stats)
	}
	if _, err := env.store.GetSnapshot(ctx, "live"); err != nil {
		t.Fatalf("snapshot not cached: %v", err)
	}

	// The cached snapshot wins until refresh is requested.
	db.MustExec(`CREATE TABLE "user" (id TEXT)`)
	cat, _, err := env.svc.LiveCatalog(ctx, "live", false)
	if err != nil {
		t.Fatal(err)
	}
	if cat.Len() != 1 {
		t.Errorf("cached tables = %v", cat.TableNames())
	}

	req.Refresh = true
	res, err = env.svc.Check(ctx, req, OriginCLI)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	// "user" now resolves; the singular name only draws a naming warning.
	if n := res.Report.Count(model.SeverityError); n != 1 || res.Report.Diagnostics[0].Category != model.CategoryMissingColumn {
		t.Errorf("after refresh diagnostics = %+v", res.Report.Diagnostics)
	}
}

func TestSuggestDefaults(t *testing.T) {
	env := newCheckEnv(t, nil)
	got := env.svc.Suggest("get_usr", []string{"get_user", "get_users", "delete_user", "x"}, 0, 0)
	if len(got) < 2 || got[0].Candidate != "get_user" || got[1].Candidate != "get_users" {
		t.Errorf("Suggest = %+v", got)
	}
	if none := env.svc.Suggest("zzz", []string{"abc"}, 0, 0); none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}
