package application

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/text/language"

	"github.com/alorle/iptv-player/fetcher"
)

func TestHealthService_Check(t *testing.T) {
	tests := []struct {
		name        string
		dbErr       error
		backend     Pinger
		loaded      bool
		wantStatus  string
		wantBackend string
	}{
		{name: "all healthy", backend: &mockLibraryStore{}, loaded: true, wantStatus: "ok", wantBackend: "ok"},
		{name: "no backend configured", loaded: true, wantStatus: "ok", wantBackend: "disabled"},
		{name: "db down", dbErr: errors.New("closed"), loaded: true, wantStatus: "degraded", wantBackend: "disabled"},
		{
			name:        "backend down",
			backend:     &mockLibraryStore{pingFunc: func(ctx context.Context) error { return errors.New("refused") }},
			loaded:      true,
			wantStatus:  "degraded",
			wantBackend: "error",
		},
		{name: "catalog not loaded", wantStatus: "degraded", wantBackend: "disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newMemoryKV()
			db.pingErr = tt.dbErr

			cat := NewCatalogService(&fetcher.MockFetcher{}, newTestParser(), "http://panel/playlist", language.Spanish, discardLogger())
			if tt.loaded {
				cat = newLoadedCatalog(t, testPlaylist)
			}

			status := NewHealthService(db, tt.backend, cat).Check(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", status.Status, tt.wantStatus)
			}
			if status.Backend.Status != tt.wantBackend {
				t.Errorf("Backend.Status = %s, want %s", status.Backend.Status, tt.wantBackend)
			}
		})
	}
}
