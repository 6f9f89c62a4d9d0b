package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	servicesURI      = "driftguard://services"
	rulesURI         = "driftguard://rules"
	catalogURIPrefix = "driftguard://catalog/"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	// -------------------------------------------------------------------
	// driftguard://services: registered databases
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			servicesURI,
			"Registered Database Services",
			mcp.WithResourceDescription(
				"Databases registered as schema sources, with their driver and "+
					"when their schema was last captured.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleServicesResource,
	)

	// -------------------------------------------------------------------
	// driftguard://rules: table naming rules in effect
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			rulesURI,
			"Table Naming Rules",
			mcp.WithResourceDescription(
				"Documented module prefixes, infix rules and the plural rule that "+
					"new table names must follow.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleRulesResource,
	)

	// -------------------------------------------------------------------
	// driftguard://catalog/{service}: cached catalog of a service
	// -------------------------------------------------------------------
	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			catalogURIPrefix+"{service}",
			"Service Catalog",
			mcp.WithTemplateDescription(
				"Tables and stored procedures of a registered database, read from "+
					"its cached snapshot or introspected on first use.",
			),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleCatalogResource,
	)
}

type serviceInfo struct {
	Name       string     `json:"name"`
	Label      string     `json:"label,omitempty"`
	Driver     string     `json:"driver"`
	IsActive   bool       `json:"is_active"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

func (s *MCPServer) serviceInfos(ctx context.Context) ([]serviceInfo, error) {
	services, err := s.store.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]serviceInfo, len(services))
	for i, svc := range services {
		items[i] = serviceInfo{
			Name:     svc.Name,
			Label:    svc.Label,
			Driver:   svc.Driver,
			IsActive: svc.IsActive,
		}
		if snap, err := s.store.GetSnapshot(ctx, svc.Name); err == nil {
			at := snap.CapturedAt
			items[i].CapturedAt = &at
		}
	}
	return items, nil
}

// handleServicesResource returns a JSON list of all registered services.
func (s *MCPServer) handleServicesResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	items, err := s.serviceInfos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return jsonContents(servicesURI, items)
}

// handleRulesResource returns the naming rule table.
func (s *MCPServer) handleRulesResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {
	return jsonContents(rulesURI, s.checks.Rules())
}

// handleCatalogResource returns the catalog of one registered service.
func (s *MCPServer) handleCatalogResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	name := strings.TrimPrefix(uri, catalogURIPrefix)
	if name == "" || name == uri {
		return nil, fmt.Errorf("invalid catalog URI %q: expected %s{service}", uri, catalogURIPrefix)
	}

	cat, procs, err := s.checks.LiveCatalog(ctx, name, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog for %q: %w", name, err)
	}
	return jsonContents(uri, map[string]interface{}{
		"tables":     cat.Tables,
		"procedures": procs.Sorted(),
	})
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
