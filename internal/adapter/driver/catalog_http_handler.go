package driver

import (
	"net/http"
	"strings"
	"time"

	"github.com/alorle/iptv-player/internal/application"
	"github.com/alorle/iptv-player/internal/catalog"
)

const (
	defaultWindow   = 24
	defaultPageSize = 24
	maxPageSize     = 500
)

// CatalogHTTPHandler serves the catalog views: summary, search, single
// entries, the grouped window and per-group pages.
type CatalogHTTPHandler struct {
	service  *application.CatalogService
	window   int
	pageSize int
}

// NewCatalogHTTPHandler creates a new HTTP handler for the catalog. window is
// the number of entries shown per group in the grouped view and pageSize the
// default page length when a group is expanded.
func NewCatalogHTTPHandler(service *application.CatalogService, window, pageSize int) *CatalogHTTPHandler {
	if window <= 0 {
		window = defaultWindow
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &CatalogHTTPHandler{service: service, window: window, pageSize: pageSize}
}

// entryResponse represents a catalog entry in JSON format.
type entryResponse struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	URL      string              `json:"url"`
	Group    string              `json:"group"`
	Logo     string              `json:"logo,omitempty"`
	TvgID    string              `json:"tvg_id,omitempty"`
	Duration float64             `json:"duration,omitempty"`
	Type     catalog.ContentType `json:"type"`
	Category catalog.Category    `json:"category"`
}

type statusResponse struct {
	Loaded     bool       `json:"loaded"`
	Entries    int        `json:"entries"`
	Duplicates int        `json:"duplicates"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
	FetchedAt  *time.Time `json:"fetched_at,omitempty"`
	Stale      bool       `json:"stale"`
	ViaProxy   bool       `json:"via_proxy"`
}

type summaryResponse struct {
	Status     statusResponse              `json:"status"`
	ByType     map[catalog.ContentType]int `json:"by_type"`
	ByCategory map[catalog.Category]int    `json:"by_category"`
	WithLogo   int                         `json:"with_logo"`
	Groups     []string                    `json:"groups"`
}

type entryListResponse struct {
	Total   int             `json:"total"`
	Offset  int             `json:"offset"`
	HasMore bool            `json:"has_more"`
	Entries []entryResponse `json:"entries"`
}

type groupResponse struct {
	Name    string          `json:"name"`
	Offset  int             `json:"offset"`
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
	Entries []entryResponse `json:"entries"`
}

func toEntryResponse(e catalog.Entry) entryResponse {
	return entryResponse{
		ID:       e.ID(),
		Name:     e.Name(),
		URL:      e.URL(),
		Group:    e.Group(),
		Logo:     e.Logo(),
		TvgID:    e.TvgID(),
		Duration: e.Duration(),
		Type:     e.Type(),
		Category: e.Category(),
	}
}

func toEntryResponses(entries []catalog.Entry) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	return out
}

func toGroupResponse(p catalog.GroupPage) groupResponse {
	return groupResponse{
		Name:    p.Name,
		Offset:  p.Offset,
		Total:   p.Total,
		HasMore: p.HasMore,
		Entries: toEntryResponses(p.Entries),
	}
}

func toStatusResponse(s application.CatalogStatus) statusResponse {
	resp := statusResponse{
		Loaded:     s.Loaded,
		Entries:    s.Entries,
		Duplicates: s.Duplicates,
		Stale:      s.Stale,
		ViaProxy:   s.ViaProxy,
	}
	if !s.LoadedAt.IsZero() {
		t := s.LoadedAt
		resp.LoadedAt = &t
	}
	if !s.FetchedAt.IsZero() {
		t := s.FetchedAt
		resp.FetchedAt = &t
	}
	return resp
}

// ServeHTTP routes the request to the appropriate handler based on method and path.
func (h *CatalogHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/catalog")

	switch path {
	case "/summary":
		if requireMethod(w, r, http.MethodGet) {
			h.handleSummary(w)
		}
	case "/refresh":
		if requireMethod(w, r, http.MethodPost) {
			h.handleRefresh(w, r)
		}
	case "/entries":
		if requireMethod(w, r, http.MethodGet) {
			h.handleEntries(w, r)
		}
	case "/entry":
		if requireMethod(w, r, http.MethodGet) {
			h.handleEntry(w, r)
		}
	case "/groups":
		if requireMethod(w, r, http.MethodGet) {
			h.handleGroups(w, r)
		}
	case "/group":
		if requireMethod(w, r, http.MethodGet) {
			h.handleGroup(w, r)
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleSummary handles GET /catalog/summary
func (h *CatalogHTTPHandler) handleSummary(w http.ResponseWriter) {
	summary, err := h.service.Summary()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	groups := summary.Groups
	if groups == nil {
		groups = []string{}
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Status:     toStatusResponse(summary.Status),
		ByType:     summary.ByType,
		ByCategory: summary.ByCategory,
		WithLogo:   summary.WithLogo,
		Groups:     groups,
	})
}

// handleRefresh handles POST /catalog/refresh
func (h *CatalogHTTPHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(status))
}

// handleEntries handles GET /catalog/entries
func (h *CatalogHTTPHandler) handleEntries(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromQuery(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	var q string
	offset, limit := 0, h.pageSize
	if !bindQuery(w, query, "q", &q) || !bindQuery(w, query, "offset", &offset) || !bindQuery(w, query, "limit", &limit) {
		return
	}
	offset, limit = clampPage(offset, limit)

	index, err := h.service.Index()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	matched := index.Search(scope, q)
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	writeJSON(w, http.StatusOK, entryListResponse{
		Total:   total,
		Offset:  offset,
		HasMore: end < total,
		Entries: toEntryResponses(matched[offset:end]),
	})
}

// handleEntry handles GET /catalog/entry?id=
func (h *CatalogHTTPHandler) handleEntry(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}
	entry, err := h.service.Entry(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

// handleGroups handles GET /catalog/groups
func (h *CatalogHTTPHandler) handleGroups(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromQuery(w, r)
	if !ok {
		return
	}
	window := h.window
	if !bindQuery(w, r.URL.Query(), "window", &window) {
		return
	}
	if window <= 0 || window > maxPageSize {
		window = h.window
	}

	index, err := h.service.Index()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pages := index.Window(scope, window)
	resp := make([]groupResponse, len(pages))
	for i, p := range pages {
		resp[i] = toGroupResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGroup handles GET /catalog/group?name=
func (h *CatalogHTTPHandler) handleGroup(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromQuery(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	if !query.Has("name") {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}
	name := query.Get("name")
	offset, limit := 0, h.pageSize
	if !bindQuery(w, query, "offset", &offset) || !bindQuery(w, query, "limit", &limit) {
		return
	}
	offset, limit = clampPage(offset, limit)

	index, err := h.service.Index()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	p, found := index.GroupPage(scope, name, offset, limit)
	if !found {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(p))
}

// scopeFromQuery reads the optional type and category filters.
func scopeFromQuery(w http.ResponseWriter, r *http.Request) (catalog.Scope, bool) {
	scope := catalog.AllScope()
	query := r.URL.Query()

	if v := query.Get("type"); v != "" {
		t, ok := catalog.ParseContentType(v)
		if !ok {
			writeError(w, http.StatusBadRequest, catalog.ErrUnknownType.Error())
			return scope, false
		}
		scope = scope.WithType(t)
	}
	if v := query.Get("category"); v != "" {
		c, ok := catalog.ParseCategory(v)
		if !ok {
			writeError(w, http.StatusBadRequest, catalog.ErrUnknownCategory.Error())
			return scope, false
		}
		scope = scope.WithCategory(c)
	}
	return scope, true
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}
