package driver

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alorle/iptv-player/internal/application"
	"github.com/alorle/iptv-player/internal/stream"
)

func newTestRouter(t *testing.T) (http.Handler, *application.CatalogService) {
	t.Helper()
	cat := newLoadedCatalog(t)
	userData := application.NewUserDataService(cat, nil, nil, newMemoryKV(), nil, "", discardLogger())
	return NewRouter(Handlers{
		Catalog:  NewCatalogHTTPHandler(cat, 0, 0),
		Playback: NewPlaybackHTTPHandler(newPlaybackService(t, cat), 0, discardLogger()),
		UserData: NewUserDataHTTPHandler(userData, cat),
		Health:   NewHealthHTTPHandler(application.NewHealthService(newMemoryKV(), nil, cat)),
		Playlist: NewPlaylistHTTPHandler(cat, stream.Proxy{}),
		Proxy:    NewProxyHTTPHandler(nil, "/proxy", 0, discardLogger()),
	}), cat
}

func TestOpenAPIDocument_IsValid(t *testing.T) {
	doc := NewOpenAPIDocument()
	require.NoError(t, doc.Validate(context.Background()))

	for _, path := range []string{
		"/api/catalog/summary",
		"/api/catalog/entries",
		"/api/playback",
		"/api/playback/events",
		"/api/favorites/toggle",
		"/api/progress/reset",
		"/api/health",
	} {
		assert.NotNil(t, doc.Paths.Find(path), "missing path %s", path)
	}
}

func TestRouter_ServesAPI(t *testing.T) {
	router, cat := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"catalog summary", http.MethodGet, "/api/catalog/summary", "", http.StatusOK},
		{"catalog entries", http.MethodGet, "/api/catalog/entries?type=live&limit=1", "", http.StatusOK},
		{"catalog group", http.MethodGet, "/api/catalog/group?name=Cine", "", http.StatusOK},
		{"entry lookup", http.MethodGet, "/api/catalog/entry?id=" + entryID(t, cat, "Canal 24H"), "", http.StatusOK},
		{"health", http.MethodGet, "/api/health", "", http.StatusOK},
		{"no session", http.MethodGet, "/api/playback", "", http.StatusNotFound},
		{"no profile", http.MethodGet, "/api/favorites", "", http.StatusPreconditionFailed},
		{"playlist export", http.MethodGet, "/playlist.m3u", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_ValidatesRequests(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"unknown content type", http.MethodGet, "/api/catalog/entries?type=tv", "", http.StatusBadRequest},
		{"non numeric limit", http.MethodGet, "/api/catalog/entries?limit=abc", "", http.StatusBadRequest},
		{"negative offset", http.MethodGet, "/api/catalog/group?name=Cine&offset=-1", "", http.StatusBadRequest},
		{"missing required query", http.MethodGet, "/api/catalog/entry", "", http.StatusBadRequest},
		{"missing required body field", http.MethodPost, "/api/playback", `{"from_beginning":true}`, http.StatusBadRequest},
		{"wrong body type", http.MethodPost, "/api/playback/seek", `{"position":"start"}`, http.StatusBadRequest},
		{"undocumented path", http.MethodGet, "/api/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.method, tt.target, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var resp errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestRouter_ServesOpenAPIDocument(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, http.MethodGet, "/api/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Contains(t, doc.Paths, "/api/catalog/groups")
}
