package handler

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/faucetdb/driftguard/internal/config"
	"github.com/faucetdb/driftguard/internal/connector"
	"github.com/faucetdb/driftguard/internal/model"
)

// SystemHandler reports on registered database services. Services are
// managed from the CLI; the API only reads them.
type SystemHandler struct {
	store    *config.Store
	registry *connector.Registry
}

func NewSystemHandler(store *config.Store, registry *connector.Registry) *SystemHandler {
	return &SystemHandler{store: store, registry: registry}
}

// serviceView is a registered service plus the state of its last captured
// catalog. ServiceConfig never serializes its DSN.
type serviceView struct {
	model.ServiceConfig
	Supported  bool       `json:"supported"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
	Tables     int        `json:"tables"`
	Procedures int        `json:"procedures"`
}

// ListServices handles GET /api/v1/services.
func (h *SystemHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to list services: "+err.Error())
		return
	}

	drivers := h.registry.Drivers()
	views := make([]serviceView, 0, len(services))
	for _, svc := range services {
		views = append(views, h.view(r, svc, drivers))
	}
	writeJSON(w, http.StatusOK, model.ListResponse{Resource: views, Count: len(views)})
}

// GetService handles GET /api/v1/services/{serviceName}.
func (h *SystemHandler) GetService(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "serviceName")
	svc, err := h.store.GetServiceByName(r.Context(), name)
	switch {
	case errors.Is(err, config.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Service not found: "+name)
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "Failed to get service: "+err.Error())
	default:
		writeJSON(w, http.StatusOK, h.view(r, *svc, h.registry.Drivers()))
	}
}

func (h *SystemHandler) view(r *http.Request, svc model.ServiceConfig, drivers []string) serviceView {
	v := serviceView{ServiceConfig: svc, Supported: slices.Contains(drivers, svc.Driver)}
	if snap, err := h.store.GetSnapshot(r.Context(), svc.Name); err == nil {
		v.CapturedAt = &snap.CapturedAt
		v.Tables = snap.Catalog.Len()
		v.Procedures = snap.Procedures.Len()
	}
	return v
}
