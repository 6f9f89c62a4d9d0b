package handler

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/faucetdb/driftguard/internal/openapi"
)

// OpenAPIHandler serves the OpenAPI description of the HTTP API. The
// document is built once per base URL.
type OpenAPIHandler struct {
	version string

	mu   sync.Mutex
	docs map[string]*openapi3.T
}

// NewOpenAPIHandler creates a new OpenAPIHandler.
func NewOpenAPIHandler(version string) *OpenAPIHandler {
	return &OpenAPIHandler{version: version, docs: make(map[string]*openapi3.T)}
}

// ServeSpec writes the API document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	base := baseURL(r)

	h.mu.Lock()
	doc, ok := h.docs[base]
	if !ok {
		doc = openapi.GenerateAPISpec(base, h.version)
		h.docs[base] = doc
	}
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, doc)
}
