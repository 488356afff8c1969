package driver

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/alorle/iptv-player/internal/application"
)

func TestHealthHTTPHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name        string
		dbErr       error
		backend     application.Pinger
		loaded      bool
		wantCode    int
		wantStatus  string
		wantDB      string
		wantBackend string
		wantCatalog string
	}{
		{
			name:        "GET /health returns 200 when all dependencies are healthy",
			backend:     &mockLibraryStore{},
			loaded:      true,
			wantCode:    http.StatusOK,
			wantStatus:  "ok",
			wantDB:      "ok",
			wantBackend: "ok",
			wantCatalog: "ok",
		},
		{
			name:        "GET /health reports a disabled backend",
			loaded:      true,
			wantCode:    http.StatusOK,
			wantStatus:  "ok",
			wantDB:      "ok",
			wantBackend: "disabled",
			wantCatalog: "ok",
		},
		{
			name:        "GET /health returns 503 when DB is unhealthy",
			dbErr:       errors.New("database closed"),
			loaded:      true,
			wantCode:    http.StatusServiceUnavailable,
			wantStatus:  "degraded",
			wantDB:      "error",
			wantBackend: "disabled",
			wantCatalog: "ok",
		},
		{
			name: "GET /health returns 503 when the backend is unreachable",
			backend: &mockLibraryStore{pingFunc: func(ctx context.Context) error {
				return errors.New("connection refused")
			}},
			loaded:      true,
			wantCode:    http.StatusServiceUnavailable,
			wantStatus:  "degraded",
			wantDB:      "ok",
			wantBackend: "error",
			wantCatalog: "ok",
		},
		{
			name:        "GET /health returns 503 before the catalog is loaded",
			wantCode:    http.StatusServiceUnavailable,
			wantStatus:  "degraded",
			wantDB:      "ok",
			wantBackend: "disabled",
			wantCatalog: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newMemoryKV()
			db.pingErr = tt.dbErr

			cat := newCatalogService()
			if tt.loaded {
				cat = newLoadedCatalog(t)
			}
			handler := NewHealthHTTPHandler(application.NewHealthService(db, tt.backend, cat))

			rec := serve(handler, http.MethodGet, "/health", "")
			if rec.Code != tt.wantCode {
				t.Errorf("expected status code %d, got %d", tt.wantCode, rec.Code)
			}

			var resp healthResponse
			decodeBody(t, rec.Body, &resp)
			if resp.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, resp.Status)
			}
			if resp.DB.Status != tt.wantDB {
				t.Errorf("expected db %q, got %q", tt.wantDB, resp.DB.Status)
			}
			if resp.Backend.Status != tt.wantBackend {
				t.Errorf("expected backend %q, got %q", tt.wantBackend, resp.Backend.Status)
			}
			if resp.Catalog.Status != tt.wantCatalog {
				t.Errorf("expected catalog %q, got %q", tt.wantCatalog, resp.Catalog.Status)
			}
		})
	}

	t.Run("POST /health returns 405", func(t *testing.T) {
		handler := NewHealthHTTPHandler(application.NewHealthService(newMemoryKV(), nil, newLoadedCatalog(t)))
		rec := serve(handler, http.MethodPost, "/health", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status code 405, got %d", rec.Code)
		}
	})
}
