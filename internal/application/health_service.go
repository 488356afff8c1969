package application

import (
	"context"
	"errors"

	"github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/metrics"
)

// Pinger is implemented by dependencies that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService orchestrates health checks for the application and its dependencies.
type HealthService struct {
	db      driven.KeyValueCache
	backend Pinger
	catalog *CatalogService
}

// NewHealthService creates a new health check service. backend may be nil
// when no remote user-data service is configured.
func NewHealthService(db driven.KeyValueCache, backend Pinger, catalog *CatalogService) *HealthService {
	return &HealthService{
		db:      db,
		backend: backend,
		catalog: catalog,
	}
}

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Status string // "ok", "error" or "disabled"
	Error  string // empty if status is "ok", otherwise contains error message
}

// HealthStatus represents the overall health status of the application.
type HealthStatus struct {
	Status  string // "ok" if all components are healthy, "degraded" otherwise
	DB      ComponentHealth
	Backend ComponentHealth
	Catalog ComponentHealth
}

// Check performs health checks on all dependencies.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Status: "ok"}

	status.DB = s.component(ctx, s.db.Ping)

	if s.backend != nil {
		status.Backend = s.component(ctx, s.backend.Ping)
	} else {
		status.Backend = ComponentHealth{Status: "disabled"}
	}

	status.Catalog = s.component(ctx, func(context.Context) error {
		if !s.catalog.Status().Loaded {
			return ErrCatalogNotLoaded
		}
		return nil
	})

	for _, c := range []ComponentHealth{status.DB, status.Backend, status.Catalog} {
		if c.Status == "error" {
			status.Status = "degraded"
		}
	}
	if status.Status != "ok" {
		metrics.RecordHealthCheckFailure()
	}

	return status
}

func (s *HealthService) component(ctx context.Context, ping func(context.Context) error) ComponentHealth {
	if err := ping(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return ComponentHealth{Status: "error", Error: "check cancelled"}
		}
		return ComponentHealth{Status: "error", Error: err.Error()}
	}
	return ComponentHealth{Status: "ok"}
}
