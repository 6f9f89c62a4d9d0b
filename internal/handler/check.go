package handler

import (
	"net/http"

	"github.com/faucetdb/driftguard/internal/model"
	"github.com/faucetdb/driftguard/internal/openapi"
	"github.com/faucetdb/driftguard/internal/service"
)

// CheckHandler exposes consistency checks and the catalogs they build.
type CheckHandler struct {
	svc *service.CheckService
}

// NewCheckHandler creates a new CheckHandler.
func NewCheckHandler(svc *service.CheckService) *CheckHandler {
	return &CheckHandler{svc: svc}
}

// Check runs a consistency check. A failed run is still a 200: the status
// is part of the report.
// POST /api/v1/check
func (h *CheckHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req service.CheckRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, classifyBodyError(err), "Invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Check(r.Context(), req, service.OriginAPI)
	if err != nil {
		writeError(w, r, classifyError(err), "Check failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*model.Report
		Resolved interface{} `json:"resolved,omitempty"`
	}{res.Report, res.Resolved})
}

// catalogResponse is the payload of the Catalog endpoint.
type catalogResponse struct {
	Tables      []*model.Table     `json:"tables"`
	Procedures  []*model.Procedure `json:"procedures"`
	Diagnostics []model.Diagnostic `json:"diagnostics"`
}

// Catalog builds the schema and procedure catalogs. With format=openapi the
// tables are returned as an OpenAPI document of record schemas.
// GET /api/v1/catalog?schema=a,b&procedures=c&service=name&refresh=1
func (h *CheckHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	req := service.CheckRequest{
		Schema:     queryList(r, "schema"),
		Procedures: queryList(r, "procedures"),
		Service:    r.URL.Query().Get("service"),
		Refresh:    queryBool(r, "refresh"),
	}

	cat, procs, diags, err := h.svc.Catalogs(r.Context(), req)
	if err != nil {
		writeError(w, r, classifyError(err), "Catalog failed: "+err.Error())
		return
	}

	if r.URL.Query().Get("format") == "openapi" {
		writeJSON(w, http.StatusOK, openapi.CatalogDocument(cat, "driftguard catalog", baseURL(r)))
		return
	}

	resp := catalogResponse{
		Tables:      make([]*model.Table, 0, cat.Len()),
		Procedures:  procs.Sorted(),
		Diagnostics: diags,
	}
	for _, name := range cat.TableNames() {
		t, _ := cat.Table(name)
		resp.Tables = append(resp.Tables, t)
	}
	if resp.Procedures == nil {
		resp.Procedures = []*model.Procedure{}
	}
	if resp.Diagnostics == nil {
		resp.Diagnostics = []model.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Rules returns the naming rule table in effect.
// GET /api/v1/rules
func (h *CheckHandler) Rules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Rules())
}

// Runs lists recent runs, newest first.
// GET /api/v1/runs?limit=20
func (h *CheckHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, "limit", 20, 500)
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to list runs: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{Resource: runs, Count: len(runs)})
}

// suggestRequest is the payload of the Suggest endpoint.
type suggestRequest struct {
	Name       string   `json:"name"`
	Candidates []string `json:"candidates"`
	Threshold  float64  `json:"threshold"`
	Limit      int      `json:"limit"`
}

// Suggest ranks candidate names by similarity.
// POST /api/v1/suggest
func (h *CheckHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, classifyBodyError(err), "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		writeError(w, r, http.StatusBadRequest, "threshold must be between 0 and 1")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Suggest(req.Name, req.Candidates, req.Threshold, req.Limit))
}

func classifyBodyError(err error) int {
	if code := classifyError(err); code == http.StatusRequestEntityTooLarge {
		return code
	}
	return http.StatusBadRequest
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
