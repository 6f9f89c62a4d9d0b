package checker

import (
	"fmt"
	"sort"

	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/naming"
)

// keyGroup is every spelling of one key within a file.
type keyGroup struct {
	events  []model.KeyEvent
	snake   bool
	camel   bool
	written map[string]bool
	first   *model.KeyEvent // earliest write
}

// checkKeys reports reads of a record key spelled differently from how the
// same file writes it, when the file mixes snake_case and camelCase
// spellings of that key.
func (c *Checker) checkKeys(events map[string][]model.KeyEvent) []model.Diagnostic {
	files := make([]string, 0, len(events))
	for file := range events {
		files = append(files, file)
	}
	sort.Strings(files)

	var diags []model.Diagnostic
	for _, file := range files {
		groups := groupKeys(events[file])
		norms := make([]string, 0, len(groups))
		for norm := range groups {
			norms = append(norms, norm)
		}
		sort.Strings(norms)

		for _, norm := range norms {
			g := groups[norm]
			if !g.snake || !g.camel || g.first == nil {
				continue
			}
			for _, ev := range g.events {
				if ev.Kind.IsWrite() || g.written[ev.Key] {
					continue
				}
				diags = append(diags, diagnostic(model.SeverityError, model.CategoryKeyMismatch,
					model.Location{File: file, Line: ev.Line},
					fmt.Sprintf("key %q is read in %s but written as %q", ev.Key, scopeName(ev.Function), g.first.Key),
					fmt.Sprintf("use %q as written in %s at line %d", g.first.Key, scopeName(g.first.Function), g.first.Line)))
			}
		}
	}
	return diags
}

func groupKeys(events []model.KeyEvent) map[string]*keyGroup {
	groups := make(map[string]*keyGroup)
	for i := range events {
		ev := events[i]
		norm := naming.Snake(ev.Key)
		g, ok := groups[norm]
		if !ok {
			g = &keyGroup{written: make(map[string]bool)}
			groups[norm] = g
		}
		g.events = append(g.events, ev)
		switch {
		case naming.StyleOf(ev.Key) == naming.StyleSnake:
			g.snake = true
		case naming.IsCamelFamily(ev.Key):
			g.camel = true
		}
		if ev.Kind.IsWrite() {
			g.written[ev.Key] = true
			if g.first == nil || ev.Line < g.first.Line {
				g.first = &events[i]
			}
		}
	}
	return groups
}

func scopeName(fn string) string {
	if fn == "" {
		return "module scope"
	}
	return fmt.Sprintf("%s()", fn)
}
