package baseline

import (
	"fmt"
	"strings"
	"time"

	"github.com/faucetdb/driftguard/internal/model"
)

// DiffTable compares the declared definition of a table with its live
// counterpart. Columns the schema files rely on but the database lacks or
// defines differently are breaking; extra live columns are additive.
func DiffTable(declared, live *model.Table) []Change {
	var changes []Change
	for _, col := range declared.Columns {
		liveCol, ok := live.Column(col.Name)
		if !ok {
			changes = append(changes, Change{
				Type:        ChangeBreaking,
				Category:    "column_removed",
				TableName:   declared.Name,
				ColumnName:  col.Name,
				OldValue:    col.DeclaredType,
				Description: fmt.Sprintf("column %q of table %q is declared but missing from the database", col.Name, declared.Name),
			})
			continue
		}
		if !sameType(col.DeclaredType, liveCol.DeclaredType) {
			changes = append(changes, Change{
				Type:        ChangeBreaking,
				Category:    "type_changed",
				TableName:   declared.Name,
				ColumnName:  col.Name,
				OldValue:    col.DeclaredType,
				NewValue:    liveCol.DeclaredType,
				Description: fmt.Sprintf("column %q is declared as %q but the database has %q", col.Name, col.DeclaredType, liveCol.DeclaredType),
			})
		}
		switch {
		case col.Nullable && !liveCol.Nullable:
			changes = append(changes, Change{
				Type:        ChangeBreaking,
				Category:    "nullable_changed",
				TableName:   declared.Name,
				ColumnName:  col.Name,
				OldValue:    "nullable",
				NewValue:    "not null",
				Description: fmt.Sprintf("column %q is declared nullable but is NOT NULL in the database", col.Name),
			})
		case !col.Nullable && liveCol.Nullable:
			changes = append(changes, Change{
				Type:        ChangeAdditive,
				Category:    "nullable_changed",
				TableName:   declared.Name,
				ColumnName:  col.Name,
				OldValue:    "not null",
				NewValue:    "nullable",
				Description: fmt.Sprintf("column %q is declared NOT NULL but is nullable in the database", col.Name),
			})
		}
	}
	for _, col := range live.Columns {
		if !declared.HasColumn(col.Name) {
			changes = append(changes, Change{
				Type:        ChangeAdditive,
				Category:    "column_added",
				TableName:   declared.Name,
				ColumnName:  col.Name,
				NewValue:    col.DeclaredType,
				Description: fmt.Sprintf("column %q exists in the database but not in the schema files", col.Name),
			})
		}
	}
	return changes
}

// DiffCatalogs compares every table of declared against live, in table name
// order.
func DiffCatalogs(declared, live *model.Catalog) SchemaDiff {
	diff := SchemaDiff{CheckedAt: time.Now().UTC()}
	for _, name := range declared.TableNames() {
		d, _ := declared.Table(name)
		l, ok := live.Table(name)
		if !ok {
			diff.Changes = append(diff.Changes, Change{
				Type:        ChangeBreaking,
				Category:    "table_removed",
				TableName:   name,
				Description: fmt.Sprintf("table %q is declared but missing from the database", name),
			})
			continue
		}
		diff.Changes = append(diff.Changes, DiffTable(d, l)...)
	}
	for _, name := range live.TableNames() {
		if _, ok := declared.Table(name); !ok {
			diff.Changes = append(diff.Changes, Change{
				Type:        ChangeAdditive,
				Category:    "table_added",
				TableName:   name,
				Description: fmt.Sprintf("table %q exists in the database but not in the schema files", name),
			})
		}
	}

	for _, c := range diff.Changes {
		switch c.Type {
		case ChangeAdditive:
			diff.AdditiveCount++
		case ChangeBreaking:
			diff.BreakingCount++
		}
	}
	diff.HasDrift = len(diff.Changes) > 0
	diff.HasBreaking = diff.BreakingCount > 0
	return diff
}

// sameType compares declared types loosely: case, spacing and the int
// aliases databases report back differently are ignored.
func sameType(a, b string) bool {
	return normalizeType(a) == normalizeType(b)
}

var typeAliases = map[string]string{
	"int4":                        "integer",
	"int":                         "integer",
	"int8":                        "bigint",
	"int2":                        "smallint",
	"bool":                        "boolean",
	"float8":                      "double precision",
	"float4":                      "real",
	"varchar":                     "character varying",
	"timestamptz":                 "timestamp with time zone",
	"timestamp without time zone": "timestamp",
	"decimal":                     "numeric",
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.Join(strings.Fields(t), " "))
	t = strings.ReplaceAll(t, ", ", ",")
	base, args := t, ""
	if i := strings.IndexByte(t, '('); i >= 0 {
		base, args = strings.TrimSpace(t[:i]), t[i:]
	}
	if alias, ok := typeAliases[base]; ok {
		base = alias
	}
	return base + args
}
