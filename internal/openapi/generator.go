// Package openapi reads routing configuration written as OpenAPI documents and
// generates the OpenAPI description of the driftguard HTTP API.
package openapi

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/faucetdb/driftguard/internal/model"
)

// GenerateAPISpec describes the driftguard HTTP API.
func GenerateAPISpec(baseURL, version string) *openapi3.T {
	doc := newDocument("driftguard API",
		"Checks DDL, stored procedures, handler code and routing configuration for drift.", version, baseURL)

	schemas := doc.Components.Schemas
	schemas["Diagnostic"] = diagnosticSchema()
	schemas["RunStats"] = statsSchema()
	schemas["Report"] = &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"run_id":      stringProp("Run identifier (UUIDv7)."),
			"status":      enumProp("Run status.", "passed", "passed-with-warnings", "failed"),
			"stats":       openapi3.NewSchemaRef("#/components/schemas/RunStats", nil),
			"diagnostics": arrayOf("#/components/schemas/Diagnostic"),
			"suppressed":  intProp("Diagnostics suppressed by the baseline."),
			"started_at":  &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()},
			"duration":    intProp("Run duration in nanoseconds."),
		},
	}}
	schemas["CheckRequest"] = &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"schema":     stringArrayProp("DDL files or directories."),
			"procedures": stringArrayProp("Stored procedure files or directories."),
			"handlers":   stringArrayProp("Handler source files or directories."),
			"routes":     stringArrayProp("OpenAPI routing documents or directories."),
			"service":    stringProp("Registered database to introspect instead of DDL files."),
			"refresh":    boolProp("Re-introspect the service instead of using its cached snapshot."),
			"baseline":   boolProp("Suppress diagnostics accepted into the baseline."),
		},
	}}
	schemas["SuggestRequest"] = &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:     &openapi3.Types{"object"},
		Required: []string{"name", "candidates"},
		Properties: openapi3.Schemas{
			"name":       stringProp("Unmatched name."),
			"candidates": stringArrayProp("Names to rank."),
			"threshold":  &openapi3.SchemaRef{Value: openapi3.NewFloat64Schema().WithMin(0).WithMax(1)},
			"limit":      intProp("Maximum number of suggestions."),
		},
	}}
	schemas["Match"] = &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type: &openapi3.Types{"object"},
		Properties: openapi3.Schemas{
			"candidate": stringProp(""),
			"score":     &openapi3.SchemaRef{Value: openapi3.NewFloat64Schema()},
		},
	}}

	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Liveness probe",
			OperationID: "healthz",
			Security:    &openapi3.SecurityRequirements{},
			Responses:   newResponses("200", "Server is healthy", &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}),
		},
	})
	doc.Paths.Set("/api/v1/check", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"check"},
			Summary:     "Run a consistency check",
			OperationID: "check",
			RequestBody: jsonBody("#/components/schemas/CheckRequest"),
			Responses:   newResponses("200", "Check report", openapi3.NewSchemaRef("#/components/schemas/Report", nil)),
		},
	})
	doc.Paths.Set("/api/v1/catalog", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"catalog"},
			Summary:     "Build the schema and procedure catalogs",
			OperationID: "catalog",
			Parameters: openapi3.Parameters{
				queryParam("schema", "Comma-separated DDL paths."),
				queryParam("procedures", "Comma-separated stored procedure paths."),
				queryParam("service", "Registered database to introspect."),
			},
			Responses: newResponses("200", "Catalogs", &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}),
		},
	})
	doc.Paths.Set("/api/v1/rules", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"check"},
			Summary:     "Show the naming rule table",
			OperationID: "rules",
			Responses:   newResponses("200", "Naming rules", &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}),
		},
	})
	doc.Paths.Set("/api/v1/runs", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"check"},
			Summary:     "List recorded runs",
			OperationID: "runs",
			Parameters:  openapi3.Parameters{queryParam("limit", "Maximum number of runs.")},
			Responses:   newResponses("200", "Run history", &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}),
		},
	})
	doc.Paths.Set("/api/v1/suggest", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"check"},
			Summary:     "Rank candidate names by similarity",
			OperationID: "suggest",
			RequestBody: jsonBody("#/components/schemas/SuggestRequest"),
			Responses:   newResponses("200", "Ranked candidates", arrayOf("#/components/schemas/Match")),
		},
	})
	doc.Paths.Set("/api/v1/services", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "List registered database services",
			OperationID: "listServices",
			Responses:   newResponses("200", "Services without their DSNs", &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}),
		},
	})
	doc.Paths.Set("/api/v1/services/{serviceName}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Describe a registered database service",
			OperationID: "getService",
			Parameters: openapi3.Parameters{{Value: openapi3.NewPathParameter("serviceName").
				WithSchema(openapi3.NewStringSchema())}},
			Responses: newResponses("200", "Service", &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}),
		},
	})
	return doc
}

// CatalogDocument publishes the tables of a catalog as component schemas,
// one record schema per table.
func CatalogDocument(cat *model.Catalog, title, baseURL string) *openapi3.T {
	doc := newDocument(title, fmt.Sprintf("Record schemas for %d table(s).", cat.Len()), "1.0.0", baseURL)
	for _, name := range cat.TableNames() {
		table, _ := cat.Table(name)
		doc.Components.Schemas[schemaName(name)] = tableSchema(table)
	}
	return doc
}

func newDocument(title, description, version, baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       title,
			Description: description,
			Version:     version,
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components
	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	doc.Security = openapi3.SecurityRequirements{{"bearerAuth": {}}}
	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
						},
					},
				},
			},
		},
	}
	doc.Paths = openapi3.NewPaths()
	return doc
}

// ─── Schema Builders ────────────────────────────────────────────────────────

// tableSchema describes one record of table. Columns without a default that
// are not nullable are required.
func tableSchema(table *model.Table) *openapi3.SchemaRef {
	props := openapi3.Schemas{}
	var required []string
	for _, col := range table.Columns {
		m := MapDBType(col.DeclaredType)
		s := &openapi3.Schema{Type: &openapi3.Types{m.Type}, Format: m.Format}
		s.Description = col.DeclaredType
		if col.Nullable {
			s.Nullable = true
		} else if col.Default == nil {
			required = append(required, col.Name)
		}
		if col.Default != nil {
			s.Default = *col.Default
		}
		props[col.Name] = &openapi3.SchemaRef{Value: s}
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
			Required:   required,
		},
	}
}

func diagnosticSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:     &openapi3.Types{"object"},
		Required: []string{"severity", "category", "file", "line", "message"},
		Properties: openapi3.Schemas{
			"severity": enumProp("", "error", "warning"),
			"category": enumProp("Defect class.",
				string(model.CategoryMissingTable), string(model.CategoryMissingColumn),
				string(model.CategoryUnresolvedTable), string(model.CategoryTableNaming),
				string(model.CategoryMissingProcedure), string(model.CategoryKeyMismatch),
				string(model.CategoryMissingHandler), string(model.CategoryParseFailure)),
			"file":       stringProp("Source file."),
			"line":       intProp("1-based line, 0 for file-level findings."),
			"message":    stringProp(""),
			"suggestion": stringProp("Closest known names, when any."),
		},
	}}
}

func statsSchema() *openapi3.SchemaRef {
	props := openapi3.Schemas{}
	for _, name := range []string{
		"files_scanned", "schema_files", "procedure_files", "handler_files", "route_files",
		"call_sites", "key_events", "tables", "procedures", "routes", "parse_failures",
	} {
		props[name] = intProp("")
	}
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}, Properties: props}}
}

func stringProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description}}
}

func intProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64", Description: description}}
}

func boolProp(description string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}, Description: description}}
}

func enumProp(description string, values ...string) *openapi3.SchemaRef {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: description, Enum: enum}}
}

func stringArrayProp(description string) *openapi3.SchemaRef {
	s := openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
	s.Description = description
	return &openapi3.SchemaRef{Value: s}
}

func arrayOf(ref string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:  &openapi3.Types{"array"},
		Items: openapi3.NewSchemaRef(ref, nil),
	}}
}

// ─── Operation Helpers ──────────────────────────────────────────────────────

func queryParam(name, description string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter(name).
			WithDescription(description).
			WithSchema(openapi3.NewStringSchema()),
	}
}

func jsonBody(ref string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(openapi3.NewSchemaRef(ref, nil)),
	}
}

// newResponses builds a Responses map with a success response and the
// standard error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()
	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	for _, e := range []struct{ code, desc string }{
		{"400", "Bad request"},
		{"401", "Unauthorized"},
		{"500", "Internal server error"},
	} {
		desc := e.desc
		responses.Set(e.code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

// schemaName turns a table name into a component schema name: "a_users"
// becomes "A_users".
func schemaName(table string) string {
	var b strings.Builder
	for _, r := range table {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return capitalize(b.String())
}

// capitalize returns a string with its first character uppercased.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
