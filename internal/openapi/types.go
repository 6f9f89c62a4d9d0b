package openapi

import "strings"

// TypeMapping is the JSON type and format a declared column type maps to.
type TypeMapping struct {
	Type   string // string, integer, number, boolean, object, array
	Format string // int32, int64, float, double, date, date-time, time, uuid, byte
}

// typeGroups lists declared SQL type names by the mapping they share.
var typeGroups = []struct {
	mapping TypeMapping
	names   []string
}{
	{TypeMapping{"integer", "int32"}, []string{"int", "int2", "int4", "integer", "smallint", "tinyint", "mediumint", "serial", "smallserial"}},
	{TypeMapping{"integer", "int64"}, []string{"int8", "bigint", "bigserial", "oid"}},
	{TypeMapping{"number", "float"}, []string{"float", "float4", "real"}},
	{TypeMapping{"number", "double"}, []string{"float8", "double", "double precision", "decimal", "numeric", "money", "number"}},
	{TypeMapping{"string", "date"}, []string{"date"}},
	{TypeMapping{"string", "date-time"}, []string{
		"datetime", "datetime2", "datetimeoffset", "smalldatetime", "timestamp", "timestamptz",
		"timestamp with time zone", "timestamp without time zone", "timestamp_ntz", "timestamp_tz", "timestamp_ltz",
	}},
	{TypeMapping{"string", "time"}, []string{"time", "timetz", "time with time zone", "time without time zone"}},
	{TypeMapping{"boolean", ""}, []string{"boolean", "bool", "bit"}},
	{TypeMapping{"string", "byte"}, []string{"bytea", "binary", "varbinary", "blob", "longblob", "image", "raw"}},
	{TypeMapping{"string", "uuid"}, []string{"uuid", "uniqueidentifier"}},
	{TypeMapping{"object", ""}, []string{"json", "jsonb", "variant", "object"}},
	{TypeMapping{"array", ""}, []string{"array"}},
}

var declaredTypes = func() map[string]TypeMapping {
	m := make(map[string]TypeMapping)
	for _, g := range typeGroups {
		for _, name := range g.names {
			m[name] = g.mapping
		}
	}
	return m
}()

// MapDBType maps a declared column type such as "VARCHAR(255)", "int
// unsigned" or "text[]" to its JSON type. Unknown types are strings.
func MapDBType(declared string) TypeMapping {
	t := strings.ToLower(strings.TrimSpace(declared))
	if strings.HasSuffix(t, "[]") {
		return TypeMapping{"array", ""}
	}
	if i := strings.IndexByte(t, '('); i >= 0 {
		var rest string
		if j := strings.IndexByte(t, ')'); j > i {
			rest = strings.TrimSpace(t[j+1:])
		}
		t = strings.TrimSpace(t[:i] + " " + rest)
	}
	t = strings.TrimSpace(strings.TrimSuffix(t, " unsigned"))
	if m, ok := declaredTypes[t]; ok {
		return m
	}
	return TypeMapping{"string", ""}
}
