package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/faucetdb/driftguard/internal/service"
	"github.com/faucetdb/driftguard/internal/similarity"
)

// maxSuggestions bounds the limit argument of driftguard_suggest.
const maxSuggestions = 50

// args reads tool arguments. mcp-go already coerces JSON numbers and arrays,
// so each accessor only applies the tool's defaults.
type args struct {
	req mcp.CallToolRequest
}

// name returns a required, non-blank identifier argument.
func (a args) name(key string) (string, error) {
	val, err := a.req.RequireString(key)
	if val = strings.TrimSpace(val); err != nil || val == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

func (a args) list(key string) []string { return a.req.GetStringSlice(key, nil) }

// limit returns the key as a count in [1, max], or 0 when absent.
func (a args) limit(key string, max int) int {
	n := a.req.GetInt(key, 0)
	if n <= 0 {
		return 0
	}
	return min(n, max)
}

// inputs collects the input selection shared by the catalog and check tools.
func (a args) inputs() service.CheckRequest {
	return service.CheckRequest{
		Schema:     a.list("schema"),
		Procedures: a.list("procedures"),
		Handlers:   a.list("handlers"),
		Routes:     a.list("routes"),
		Service:    a.req.GetString("service", ""),
		Refresh:    a.req.GetBool("refresh", false),
		Baseline:   a.req.GetBool("baseline", false),
	}
}

// jsonResult returns data as an indented JSON text result.
func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError reports a failure to the agent without ending the session, so
// it can retry with corrected arguments.
func toolError(format string, a ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, a...)), nil
}

// notFound names the closest existing entities so the agent can correct a
// misspelled name in one round trip.
func notFound(kind, name string, closest []similarity.Match) (*mcp.CallToolResult, error) {
	if len(closest) == 0 {
		return toolError("%s %q not found.", kind, name)
	}
	return toolError("%s %q not found.\n\nClosest: %s", kind, name, strings.Join(similarity.Names(closest), ", "))
}
