package driver

import (
	"bytes"
	"net/http"

	"github.com/alorle/iptv-player/internal/application"
	"github.com/alorle/iptv-player/internal/m3u"
	"github.com/alorle/iptv-player/internal/stream"
)

// PlaylistHTTPHandler exports the loaded catalog as an M3U playlist.
type PlaylistHTTPHandler struct {
	service *application.CatalogService
	proxy   stream.Proxy
}

// NewPlaylistHTTPHandler creates a new HTTP handler for playlist export.
// When proxy is enabled, ?proxied=true rewrites every stream URL through it.
func NewPlaylistHTTPHandler(service *application.CatalogService, proxy stream.Proxy) *PlaylistHTTPHandler {
	return &PlaylistHTTPHandler{service: service, proxy: proxy}
}

// ServeHTTP handles GET /playlist.m3u
func (h *PlaylistHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	scope, ok := scopeFromQuery(w, r)
	if !ok {
		return
	}
	var proxied bool
	if !bindQuery(w, r.URL.Query(), "proxied", &proxied) {
		return
	}

	index, err := h.service.Index()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	enc := m3u.NewEncoder()
	for _, e := range index.Search(scope, "") {
		item := m3u.ItemFromEntry(e)
		if proxied {
			item.URI = h.proxy.Wrap(item.URI)
		}
		enc.AddItem(item)
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "audio/mpegurl")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
