package openapi

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/faucetdb/driftguard/internal/model"
)

// HandlerExtension names the operation extension that binds a route to its
// handler function. Operations without it fall back to their operationId.
const HandlerExtension = "x-handler"

// methodOrder lists HTTP methods in the order routes are reported.
var methodOrder = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodTrace,
}

// ParseRoutes loads an OpenAPI routing document, YAML or JSON, and returns
// its operations ordered by path, then method.
func ParseRoutes(ctx context.Context, path string, data []byte) ([]model.Route, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load routes %s: %w", path, err)
	}
	if doc.Paths == nil {
		return nil, nil
	}

	lines := operationLines(data)
	items := doc.Paths.Map()
	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var routes []model.Route
	for _, p := range paths {
		ops := items[p].Operations()
		for _, method := range methodOrder {
			op, ok := ops[method]
			if !ok || op == nil {
				continue
			}
			line := lines[p+" "+method]
			if line == 0 {
				line = lines[p]
			}
			routes = append(routes, model.Route{
				Method:      method,
				Path:        p,
				OperationID: op.OperationID,
				Handler:     handlerOf(op),
				Source:      model.Location{File: path, Line: line},
			})
		}
	}
	return routes, nil
}

func handlerOf(op *openapi3.Operation) string {
	if v, ok := op.Extensions[HandlerExtension]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return op.OperationID
}

// operationLines maps "path" and "path METHOD" to the line they are declared
// on. JSON documents parse as YAML, so both formats are covered.
func operationLines(data []byte) map[string]int {
	lines := make(map[string]int)
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return lines
	}
	paths := mappingValue(root.Content[0], "paths")
	if paths == nil {
		return lines
	}
	for i := 0; i+1 < len(paths.Content); i += 2 {
		key, item := paths.Content[i], paths.Content[i+1]
		lines[key.Value] = key.Line
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			method := item.Content[j]
			lines[key.Value+" "+strings.ToUpper(method.Value)] = method.Line
		}
	}
	return lines
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
