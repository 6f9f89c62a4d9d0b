package callsite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/pyast"
)

func newTestExtractor(t *testing.T, vocab Vocabulary) *Extractor {
	t.Helper()
	e, err := New(vocab, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func extract(t *testing.T, e *Extractor, src string) []model.CallSite {
	t.Helper()
	mod, err := pyast.Parse("handler.py", []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return e.Extract(mod)
}

// describe renders a call site as "line function op target [columns] shape".
func describe(s model.CallSite) string {
	target := s.Table
	if s.Operation == model.OpCall {
		target = s.Procedure
	}
	if target == "" {
		target = "?"
	}
	fn := s.Function
	if fn == "" {
		fn = "-"
	}
	return fmt.Sprintf("%d %s %s %s [%s] %s", s.Source.Line, fn, s.Operation, target, strings.Join(s.Columns, ","), s.Shape)
}

const handlerSource = `from db import accessor, client


def list_foo():
    return accessor.find_many("foo", {"bar": 1})


def get_users(user_id):
    rows = accessor.find_many("users", select="*")
    one = accessor.find_one(table="users", filters={"id": user_id}, select="id, email, profile(name)")
    return rows, one


async def chained(name):
    res = await (
        client.table("orders")
        .select("id, total:amount, status::text")
        .eq("status", "open")
        .or_("total.gt.10,and(kind.eq.a,kind.eq.b)")
        .order("created_at.desc")
        .execute()
    )
    client.table("orders").insert([{"id": 1, "total": 2}, {"note": "x"}]).execute()
    client.table(name).update({"status": "closed"}).eq("id", 1).execute()
    record = {}
    record.update({"a": 1})
    return res


def write(tbl):
    accessor.update_one("items", {"id": 1}, {"qty": 2})
    accessor.insert_one(tbl, dict(sku="x", qty=1))
    accessor.delete_many("items", filter="qty = 0 AND sku LIKE 'x%'")
    client.rpc("get_user", {"p_id": 1}).eq("email", "x").execute()
    db.call_procedure(name="archive_orders")
`

func TestExtract(t *testing.T) {
	e := newTestExtractor(t, DefaultVocabulary())
	sites := extract(t, e, handlerSource)

	want := []string{
		"5 list_foo select foo [bar] flat-call",
		"9 get_users select users [] flat-call",
		"10 get_users select users [id,email] flat-call",
		"17 chained select orders [id,amount,status] chained-builder",
		"18 chained filter orders [status] chained-builder",
		"19 chained filter orders [total,kind] chained-builder",
		"20 chained filter orders [created_at] chained-builder",
		"23 chained insert orders [id,total,note] chained-builder",
		"24 chained update ? [status] chained-builder",
		"24 chained filter ? [id] chained-builder",
		"31 write update items [id,qty] flat-call",
		"32 write insert ? [sku,qty] flat-call",
		"33 write delete items [qty,sku] flat-call",
		"34 write call get_user [] procedure-call",
		"35 write call archive_orders [] procedure-call",
	}
	if len(sites) != len(want) {
		for _, s := range sites {
			t.Log(describe(s))
		}
		t.Fatalf("got %d call sites, want %d", len(sites), len(want))
	}
	for i, w := range want {
		if got := describe(sites[i]); got != w {
			t.Errorf("site %d = %q, want %q", i, got, w)
		}
	}
	if sites[13].Column != 12 {
		t.Errorf("rpc column = %d, want 12", sites[13].Column)
	}
}

func TestExtractFindMany(t *testing.T) {
	e := newTestExtractor(t, DefaultVocabulary())
	sites := extract(t, e, `accessor.find_many("foo", {"bar": 1})`+"\n")
	if len(sites) != 1 {
		t.Fatalf("got %d sites, want 1", len(sites))
	}
	s := sites[0]
	if s.Table != "foo" || len(s.Columns) != 1 || s.Columns[0] != "bar" {
		t.Errorf("site = %+v, want table foo with columns [bar]", s)
	}
	if !s.Resolved() || s.Function != "" {
		t.Errorf("site should be resolved at module level: %+v", s)
	}
}

func TestExtractFlatTableKeywordWins(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		table string
		cols  string
	}{
		{"keyword and positional", `accessor.find_many("foo", {"bar": 1}, table="baz")`, "baz", "bar"},
		{"keyword before filters", `accessor.find_many({"bar": 1}, table="baz")`, "baz", "bar"},
		{"keyword only", `accessor.find_many(table="baz", filters={"qux": 2})`, "baz", "qux"},
		{"positional only", `accessor.find_many("foo", {"bar": 1})`, "foo", "bar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(t, DefaultVocabulary())
			sites := extract(t, e, tt.src+"\n")
			if len(sites) != 1 {
				t.Fatalf("got %d sites, want 1", len(sites))
			}
			s := sites[0]
			if cols := strings.Join(s.Columns, ","); s.Table != tt.table || cols != tt.cols {
				t.Errorf("site = %s [%s], want %s [%s]", s.Table, cols, tt.table, tt.cols)
			}
		})
	}
}

func TestExtractWildcardNeverAColumn(t *testing.T) {
	e := newTestExtractor(t, DefaultVocabulary())
	src := `accessor.find_many("foo", select="*")
client.table("foo").select("*").execute()
accessor.find_one("foo", columns=["*", "id"])
`
	for _, s := range extract(t, e, src) {
		for _, c := range s.Columns {
			if c == "*" {
				t.Errorf("line %d: wildcard reported as a column", s.Source.Line)
			}
		}
	}
}

func TestExtractScopes(t *testing.T) {
	e := newTestExtractor(t, DefaultVocabulary())
	src := `@router.get(accessor.find_one("cfg"))
def outer(limit=accessor.find_one("defaults")):
    def inner():
        accessor.find_one("a")
    accessor.find_one("b")
    return lambda: accessor.find_one("c")


class Repo:
    def load(self):
        return self.db.find_all("d")
`
	got := extract(t, e, src)
	want := []string{
		"1 - select cfg [] flat-call",
		"2 - select defaults [] flat-call",
		"4 inner select a [] flat-call",
		"5 outer select b [] flat-call",
		"6 outer select c [] flat-call",
		"11 load select d [] flat-call",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d sites, want %d", len(got), len(want))
	}
	for i, w := range want {
		if d := describe(got[i]); d != w {
			t.Errorf("site %d = %q, want %q", i, d, w)
		}
	}
}

func TestExtractIgnoresPlainMethods(t *testing.T) {
	e := newTestExtractor(t, DefaultVocabulary())
	src := `d = {}
d.update({"a": 1})
s.select()
items.order("x")
re.match("^a", text)
`
	if sites := extract(t, e, src); len(sites) != 0 {
		t.Errorf("expected no call sites, got %d: %s", len(sites), describe(sites[0]))
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := newTestExtractor(t, DefaultVocabulary())
	first := extract(t, e, handlerSource)
	second := extract(t, e, handlerSource)
	for i := range first {
		if describe(first[i]) != describe(second[i]) {
			t.Fatalf("run differs at %d: %q vs %q", i, describe(first[i]), describe(second[i]))
		}
	}
}

func TestCustomVocabulary(t *testing.T) {
	vocab := DefaultVocabulary().Merge(Vocabulary{
		FlatOps: map[string]string{"fetch": "select", "store": "insert"},
	})
	e := newTestExtractor(t, vocab)
	src := `repo.fetch("t", {"x": 1})
repo.store("t", {"y": 2})
repo.find_many("t", {"z": 3})
`
	got := extract(t, e, src)
	if len(got) != 2 {
		t.Fatalf("got %d sites, want 2", len(got))
	}
	if d := describe(got[1]); d != "2 - insert t [y] flat-call" {
		t.Errorf("site = %q", d)
	}

	_, err := New(Vocabulary{FlatOps: map[string]string{"fetch": "merge"}}, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown operation") {
		t.Errorf("New() error = %v, want unknown operation", err)
	}
}

func TestExtractFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "ok.py", []byte(`accessor.find_one("t")`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fsys, "bad.py", []byte("def f(:\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := newTestExtractor(t, DefaultVocabulary())

	sites, err := e.ExtractFile(context.Background(), fsys, "ok.py")
	if err != nil || len(sites) != 1 || sites[0].Source.File != "ok.py" {
		t.Errorf("ExtractFile(ok.py) = %v, %v", sites, err)
	}

	_, err = e.ExtractFile(context.Background(), fsys, "bad.py")
	var syntaxErr *pyast.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Errorf("ExtractFile(bad.py) error = %v, want *pyast.SyntaxError", err)
	}
}
