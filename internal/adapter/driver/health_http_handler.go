package driver

import (
	"net/http"

	"github.com/alorle/iptv-player/internal/application"
)

// HealthHTTPHandler handles HTTP requests for health checks.
type HealthHTTPHandler struct {
	service *application.HealthService
}

// NewHealthHTTPHandler creates a new HTTP handler for health checks.
func NewHealthHTTPHandler(service *application.HealthService) *HealthHTTPHandler {
	return &HealthHTTPHandler{service: service}
}

type componentResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// healthResponse represents the JSON response for health check endpoint.
type healthResponse struct {
	Status  string            `json:"status"`
	DB      componentResponse `json:"db"`
	Backend componentResponse `json:"backend"`
	Catalog componentResponse `json:"catalog"`
}

func toComponentResponse(c application.ComponentHealth) componentResponse {
	return componentResponse{Status: c.Status, Error: c.Error}
}

// ServeHTTP handles GET /health
func (h *HealthHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	status := h.service.Check(r.Context())

	resp := healthResponse{
		Status:  status.Status,
		DB:      toComponentResponse(status.DB),
		Backend: toComponentResponse(status.Backend),
		Catalog: toComponentResponse(status.Catalog),
	}

	httpStatus := http.StatusOK
	if status.Status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
