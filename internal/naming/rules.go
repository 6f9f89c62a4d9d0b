package naming

import (
	"fmt"
	"strings"

	"github.com/faucetdb/driftguard/internal/model"
)

// Rules is the table naming rule table. The zero value checks nothing.
type Rules struct {
	Plural        PluralRule     `yaml:"plural" json:"plural"`
	Prefixes      []PrefixRule   `yaml:"prefixes" json:"prefixes"`
	UnknownPrefix model.Severity `yaml:"unknown_prefix_severity" json:"unknown_prefix_severity,omitempty"`
	Infixes       []InfixRule    `yaml:"infixes" json:"infixes"`
	Ignore        []string       `yaml:"ignore" json:"ignore"`
}

// PluralRule requires the last name segment to be plural.
type PluralRule struct {
	Enabled    bool           `yaml:"enabled" json:"enabled"`
	Severity   model.Severity `yaml:"severity" json:"severity"`
	Exceptions []string       `yaml:"exceptions" json:"exceptions,omitempty"`
}

// PrefixRule documents a module prefix such as "a_" for the accounts module.
type PrefixRule struct {
	Prefix string `yaml:"prefix" json:"prefix"`
	Module string `yaml:"module" json:"module"`
}

// InfixRule describes a specialized table shape: a name segment equal to Infix
// must be followed by at least MinSegments non-empty segments.
type InfixRule struct {
	Infix       string         `yaml:"infix" json:"infix"`
	MinSegments int            `yaml:"min_segments" json:"min_segments"`
	Severity    model.Severity `yaml:"severity" json:"severity"`
}

// Violation is one rule a table name breaks.
type Violation struct {
	Rule       string         `json:"rule"`
	Severity   model.Severity `json:"severity"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
}

// DefaultRules enables the plural rule as a warning.
func DefaultRules() Rules {
	return Rules{
		Plural: PluralRule{Enabled: true, Severity: model.SeverityWarning},
		Ignore: []string{"schema_migrations", "goose_db_version"},
	}
}

// Check returns the violations for a table name, in rule order: prefix,
// infix, plural.
func (r Rules) Check(table string) []Violation {
	if contains(r.Ignore, table) {
		return nil
	}
	var out []Violation

	rest := table
	if len(r.Prefixes) > 0 {
		prefix, ok := r.matchPrefix(table)
		if ok {
			rest = strings.TrimPrefix(table, prefix.Prefix)
		} else if r.UnknownPrefix != "" {
			out = append(out, Violation{
				Rule:       "prefix",
				Severity:   model.ParseSeverity(string(r.UnknownPrefix), model.SeverityWarning),
				Message:    fmt.Sprintf("table %q does not start with a documented module prefix", table),
				Suggestion: "use one of the documented prefixes: " + strings.Join(r.prefixList(), ", "),
			})
		}
	}

	segments := strings.Split(rest, "_")
	for _, rule := range r.Infixes {
		if v, ok := rule.check(table, segments); ok {
			out = append(out, v)
		}
	}

	if r.Plural.Enabled {
		last := segments[len(segments)-1]
		if last != "" && !IsPlural(last) && !contains(r.Plural.Exceptions, table) && !contains(r.Plural.Exceptions, last) {
			suggested := table[:len(table)-len(last)] + Pluralize(last)
			out = append(out, Violation{
				Rule:       "plural",
				Severity:   model.ParseSeverity(string(r.Plural.Severity), model.SeverityWarning),
				Message:    fmt.Sprintf("table %q is singular; table names are plural", table),
				Suggestion: fmt.Sprintf("rename to %q", suggested),
			})
		}
	}
	return out
}

// Module returns the documented module a table belongs to, if any.
func (r Rules) Module(table string) (string, bool) {
	p, ok := r.matchPrefix(table)
	return p.Module, ok
}

// matchPrefix picks the longest documented prefix of table.
func (r Rules) matchPrefix(table string) (PrefixRule, bool) {
	var best PrefixRule
	found := false
	for _, p := range r.Prefixes {
		if p.Prefix != "" && strings.HasPrefix(table, p.Prefix) && len(p.Prefix) > len(best.Prefix) {
			best, found = p, true
		}
	}
	return best, found
}

func (r Rules) prefixList() []string {
	out := make([]string, 0, len(r.Prefixes))
	for _, p := range r.Prefixes {
		out = append(out, p.Prefix)
	}
	return out
}

func (ir InfixRule) check(table string, segments []string) (Violation, bool) {
	for i, seg := range segments {
		if seg != ir.Infix {
			continue
		}
		tail := segments[i+1:]
		valid := len(tail) >= ir.MinSegments
		for _, s := range tail {
			if s == "" {
				valid = false
			}
		}
		if valid {
			return Violation{}, false
		}
		return Violation{
			Rule:     "infix",
			Severity: model.ParseSeverity(string(ir.Severity), model.SeverityError),
			Message: fmt.Sprintf("table %q uses the %q infix with %d segment(s) after it; at least %d non-empty segment(s) are required",
				table, ir.Infix, len(tail), ir.MinSegments),
			Suggestion: fmt.Sprintf("name it <prefix>%s_%s", ir.Infix, strings.TrimSuffix(strings.Repeat("<entity>_", max(ir.MinSegments, 1)), "_")),
		}, true
	}
	return Violation{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
