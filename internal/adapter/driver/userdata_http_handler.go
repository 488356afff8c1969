package driver

import (
	"net/http"
	"time"

	"github.com/alorle/iptv-player/internal/application"
	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/userdata"
)

// UserDataHTTPHandler serves favorites, history, continue-watching and
// progress resets of the active profile.
type UserDataHTTPHandler struct {
	service *application.UserDataService
	catalog *application.CatalogService
}

// NewUserDataHTTPHandler creates a new HTTP handler for user data. The
// catalog resolves remote content references back to entry ids.
func NewUserDataHTTPHandler(service *application.UserDataService, catalogService *application.CatalogService) *UserDataHTTPHandler {
	return &UserDataHTTPHandler{service: service, catalog: catalogService}
}

type entryIDRequest struct {
	EntryID string `json:"entry_id"`
}

type contentResponse struct {
	EntryID string              `json:"entry_id,omitempty"`
	URL     string              `json:"url"`
	Name    string              `json:"name"`
	Logo    string              `json:"logo,omitempty"`
	Group   string              `json:"group,omitempty"`
	Type    catalog.ContentType `json:"type"`
}

type favoriteResponse struct {
	Content   contentResponse `json:"content"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

type historyResponse struct {
	Content   contentResponse `json:"content"`
	WatchedAt *time.Time      `json:"watched_at,omitempty"`
}

type progressResponse struct {
	Content   contentResponse `json:"content"`
	Seconds   float64         `json:"seconds"`
	Duration  float64         `json:"duration"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

type toggleResponse struct {
	EntryID  string `json:"entry_id"`
	Favorite bool   `json:"favorite"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// content converts a remote reference, attaching the entry id when the URL
// is present in the loaded catalog.
func (h *UserDataHTTPHandler) content(index *catalog.Index, ref userdata.ContentRef) contentResponse {
	resp := contentResponse{
		URL:   ref.URL,
		Name:  ref.Name,
		Logo:  ref.Logo,
		Group: ref.Group,
		Type:  ref.Type,
	}
	if index != nil {
		if e, ok := index.LookupURL(ref.URL); ok {
			resp.EntryID = e.ID()
		}
	}
	return resp
}

func (h *UserDataHTTPHandler) index() *catalog.Index {
	if h.catalog == nil {
		return nil
	}
	index, err := h.catalog.Index()
	if err != nil {
		return nil
	}
	return index
}

// ServeHTTP routes the request to the appropriate handler based on method and path.
func (h *UserDataHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/favorites":
		if requireMethod(w, r, http.MethodGet) {
			h.handleFavorites(w, r)
		}
	case "/favorites/toggle":
		if requireMethod(w, r, http.MethodPost) {
			h.handleToggle(w, r)
		}
	case "/history":
		if requireMethod(w, r, http.MethodGet) {
			h.handleHistory(w, r)
		}
	case "/continue-watching":
		if requireMethod(w, r, http.MethodGet) {
			h.handleContinueWatching(w, r)
		}
	case "/progress/reset":
		if requireMethod(w, r, http.MethodPost) {
			h.handleReset(w, r)
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleFavorites handles GET /favorites
func (h *UserDataHTTPHandler) handleFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.service.Favorites(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	index := h.index()
	resp := make([]favoriteResponse, len(favs))
	for i, f := range favs {
		resp[i] = favoriteResponse{Content: h.content(index, f.Content), CreatedAt: timePtr(f.CreatedAt)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleToggle handles POST /favorites/toggle
func (h *UserDataHTTPHandler) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req entryIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EntryID == "" {
		writeError(w, http.StatusBadRequest, "entry_id is required")
		return
	}
	favorite, err := h.service.ToggleFavorite(r.Context(), req.EntryID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{EntryID: req.EntryID, Favorite: favorite})
}

// handleHistory handles GET /history?limit=
func (h *UserDataHTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	var limit int
	if !bindQuery(w, r.URL.Query(), "limit", &limit) {
		return
	}
	items, err := h.service.History(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	index := h.index()
	resp := make([]historyResponse, len(items))
	for i, it := range items {
		resp[i] = historyResponse{Content: h.content(index, it.Content), WatchedAt: timePtr(it.WatchedAt)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleContinueWatching handles GET /continue-watching
func (h *UserDataHTTPHandler) handleContinueWatching(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ContinueWatching(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	index := h.index()
	resp := make([]progressResponse, len(items))
	for i, it := range items {
		resp[i] = progressResponse{
			Content:   h.content(index, it.Content),
			Seconds:   it.Position.Seconds,
			Duration:  it.Position.Duration,
			UpdatedAt: timePtr(it.UpdatedAt),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReset handles POST /progress/reset
func (h *UserDataHTTPHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	var req entryIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EntryID == "" {
		writeError(w, http.StatusBadRequest, "entry_id is required")
		return
	}
	if err := h.service.ResetProgress(r.Context(), req.EntryID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
