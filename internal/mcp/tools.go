package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/driftguard/internal/service"
)

// inputOptions are the arguments every catalog-reading tool accepts.
func inputOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithArray("schema",
			mcp.Description("DDL files or directories. Omit to use the configured inputs."),
			mcp.WithStringItems(),
		),
		mcp.WithArray("procedures",
			mcp.Description("Procedure definition files or directories."),
			mcp.WithStringItems(),
		),
		mcp.WithString("service",
			mcp.Description("Registered database to read the schema from instead of DDL files."),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Re-introspect the service instead of using its cached snapshot."),
		),
	}
}

// registerTools registers all driftguard MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Checking -----

	checkOpts := []mcp.ToolOption{
		mcp.WithDescription(
			"Check handler source files against the database schema. Reports references " +
				"to tables, columns and stored procedures that do not exist, record keys " +
				"that are never written, route handlers that are missing and table names " +
				"that break the naming rules. Each diagnostic carries a file, a line and, " +
				"where possible, the most similar existing name. Run this after editing " +
				"handlers or migrations.",
		),
		mcp.WithToolAnnotation(recordingAnnotation()),
		mcp.WithArray("handlers",
			mcp.Description("Handler source files or directories."),
			mcp.WithStringItems(),
		),
		mcp.WithArray("routes",
			mcp.Description("OpenAPI routing documents or directories."),
			mcp.WithStringItems(),
		),
		mcp.WithBoolean("baseline",
			mcp.Description("Suppress diagnostics accepted into the project baseline."),
		),
	}
	srv.AddTool(mcp.NewTool("driftguard_check", append(checkOpts, inputOptions()...)...), s.handleCheck)

	// ----- Discovery -----

	srv.AddTool(
		mcp.NewTool("driftguard_list_tables", append([]mcp.ToolOption{
			mcp.WithDescription(
				"List the tables the schema declares with their column names. Use this " +
					"before writing a query to learn the exact table and column names.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		}, inputOptions()...)...),
		s.handleListTables,
	)

	srv.AddTool(
		mcp.NewTool("driftguard_describe_table", append([]mcp.ToolOption{
			mcp.WithDescription(
				"Describe one table: every column with its declared type, nullability " +
					"and default. An unknown table name returns the closest existing names.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Exact table name"),
			),
		}, inputOptions()...)...),
		s.handleDescribeTable,
	)

	srv.AddTool(
		mcp.NewTool("driftguard_describe_procedure", append([]mcp.ToolOption{
			mcp.WithDescription(
				"Describe one stored procedure or function: its parameters in order and " +
					"its return type. Names are matched without regard to case.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("procedure",
				mcp.Required(),
				mcp.Description("Procedure or function name"),
			),
		}, inputOptions()...)...),
		s.handleDescribeProcedure,
	)

	srv.AddTool(
		mcp.NewTool("driftguard_suggest",
			mcp.WithDescription(
				"Rank candidate names by similarity to a name. Use it to find the name a "+
					"typo was meant to be.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("The name to match"),
			),
			mcp.WithArray("candidates",
				mcp.Required(),
				mcp.Description("Names to rank"),
				mcp.WithStringItems(),
			),
			mcp.WithNumber("threshold",
				mcp.Description("Minimum similarity between 0 and 1 (default from configuration)"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of matches (default from configuration, max 50)"),
			),
		),
		s.handleSuggest,
	)

	srv.AddTool(
		mcp.NewTool("driftguard_list_services",
			mcp.WithDescription(
				"List the registered databases that can serve as the schema source, "+
					"with their driver and when their schema was last captured.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListServices,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

// handleCheck runs a consistency check and returns the report.
func (s *MCPServer) handleCheck(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	res, err := s.checks.Check(ctx, args{request}.inputs(), service.OriginMCP)
	if err != nil {
		return toolError("Check failed: %v", err)
	}
	return jsonResult(res)
}

// handleListTables returns the table names with their columns.
func (s *MCPServer) handleListTables(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	cat, _, _, err := s.checks.Catalogs(ctx, args{request}.inputs())
	if err != nil {
		return toolError("Failed to build catalog: %v", err)
	}

	type tableInfo struct {
		Name    string   `json:"name"`
		Source  string   `json:"source"`
		Columns []string `json:"columns"`
	}

	tables := make([]tableInfo, 0, cat.Len())
	for _, name := range cat.TableNames() {
		t, _ := cat.Table(name)
		tables = append(tables, tableInfo{
			Name:    t.Name,
			Source:  t.Source.File,
			Columns: t.ColumnNames(),
		})
	}
	return jsonResult(tables)
}

// handleDescribeTable returns the full definition of one table.
func (s *MCPServer) handleDescribeTable(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	tableName, err := args{request}.name("table")
	if err != nil {
		return toolError("%v", err)
	}

	cat, _, _, err := s.checks.Catalogs(ctx, args{request}.inputs())
	if err != nil {
		return toolError("Failed to build catalog: %v", err)
	}

	table, ok := cat.Table(tableName)
	if !ok {
		return notFound("Table", tableName, s.checks.Suggest(tableName, cat.TableNames(), 0, 0))
	}
	return jsonResult(table)
}

// handleDescribeProcedure returns the signature of one procedure.
func (s *MCPServer) handleDescribeProcedure(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	name, err := args{request}.name("procedure")
	if err != nil {
		return toolError("%v", err)
	}

	_, procs, _, err := s.checks.Catalogs(ctx, args{request}.inputs())
	if err != nil {
		return toolError("Failed to build catalog: %v", err)
	}

	proc, ok := procs.Lookup(name)
	if !ok {
		return notFound("Procedure", name, s.checks.Suggest(name, procs.Names(), 0, 0))
	}
	return jsonResult(proc)
}

// handleSuggest ranks candidates by similarity.
func (s *MCPServer) handleSuggest(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	a := args{request}
	name, err := a.name("name")
	if err != nil {
		return toolError("%v", err)
	}
	threshold := request.GetFloat("threshold", 0)
	if threshold < 0 || threshold > 1 {
		return toolError("threshold must be between 0 and 1, got %v", threshold)
	}
	return jsonResult(s.checks.Suggest(name, a.list("candidates"), threshold, a.limit("limit", maxSuggestions)))
}

// handleListServices returns the registered databases without their DSNs.
func (s *MCPServer) handleListServices(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	items, err := s.serviceInfos(ctx)
	if err != nil {
		return toolError("Failed to list services: %v", err)
	}
	return jsonResult(items)
}
