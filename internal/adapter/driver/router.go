package driver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every HTTP handler the server mounts. Nil handlers are
// left unmounted.
type Handlers struct {
	Catalog  *CatalogHTTPHandler
	Playback *PlaybackHTTPHandler
	UserData *UserDataHTTPHandler
	Health   *HealthHTTPHandler
	Playlist *PlaylistHTTPHandler
	Proxy    *ProxyHTTPHandler
}

// NewRouter mounts the JSON API under /api behind the OpenAPI request
// validator, and the playlist export, stream relay, API document and
// metrics endpoints at the root.
func NewRouter(h Handlers) http.Handler {
	doc := NewOpenAPIDocument()

	apiMux := http.NewServeMux()
	if h.Catalog != nil {
		apiMux.Handle("/catalog/", h.Catalog)
	}
	if h.Playback != nil {
		apiMux.Handle("/playback", h.Playback)
		apiMux.Handle("/playback/", h.Playback)
	}
	if h.UserData != nil {
		apiMux.Handle("/favorites", h.UserData)
		apiMux.Handle("/favorites/", h.UserData)
		apiMux.Handle("/history", h.UserData)
		apiMux.Handle("/continue-watching", h.UserData)
		apiMux.Handle("/progress/", h.UserData)
	}
	if h.Health != nil {
		apiMux.Handle("/health", h.Health)
	}

	rootMux := http.NewServeMux()
	rootMux.Handle("/api/openapi.json", NewOpenAPIHandler(doc))
	rootMux.Handle("/api/", NewRequestValidator(doc)(http.StripPrefix("/api", apiMux)))
	if h.Playlist != nil {
		rootMux.Handle("/playlist.m3u", h.Playlist)
	}
	if h.Proxy != nil {
		rootMux.Handle("/proxy", h.Proxy)
	}
	rootMux.Handle("/metrics", promhttp.Handler())

	return rootMux
}
