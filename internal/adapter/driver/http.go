package driver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/oapi-codegen/runtime"

	"github.com/alorle/iptv-player/circuitbreaker"
	"github.com/alorle/iptv-player/internal/application"
	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/playback"
	"github.com/alorle/iptv-player/internal/stream"
	"github.com/alorle/iptv-player/internal/userdata"
)

const maxBodyBytes = 1 << 16

// errorResponse represents a JSON error response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a service error onto a status code.
func writeServiceError(w http.ResponseWriter, err error) {
	var netErr *stream.NetworkError
	switch {
	case errors.Is(err, catalog.ErrEntryNotFound),
		errors.Is(err, application.ErrNoActiveSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrEmptyID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, userdata.ErrNoProfile):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, playback.ErrSessionClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrCatalogNotLoaded),
		errors.Is(err, circuitbreaker.ErrCircuitOpen),
		errors.Is(err, circuitbreaker.ErrHalfOpenLimitReached):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, userdata.ErrRemoteState),
		errors.As(err, &netErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a bounded JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// bindQuery binds an optional form-style query parameter into dest, leaving
// dest untouched when the parameter is absent.
func bindQuery(w http.ResponseWriter, query url.Values, name string, dest interface{}) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, query, dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter "+name)
		return false
	}
	return true
}

// requireMethod writes 405 unless r uses one of the allowed methods.
func requireMethod(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	for _, m := range allowed {
		if r.Method == m {
			return true
		}
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
