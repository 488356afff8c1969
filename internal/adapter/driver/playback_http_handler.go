package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alorle/iptv-player/internal/application"
	"github.com/alorle/iptv-player/internal/playback"
	"github.com/alorle/iptv-player/internal/stream"
	"github.com/alorle/iptv-player/internal/streaming"
)

// DefaultEventWriteTimeout bounds a single write to an event subscriber.
const DefaultEventWriteTimeout = 10 * time.Second

// PlaybackHTTPHandler drives the active playback session and streams its
// notifications as server-sent events.
type PlaybackHTTPHandler struct {
	service      *application.PlaybackService
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewPlaybackHTTPHandler creates a new HTTP handler for playback.
func NewPlaybackHTTPHandler(service *application.PlaybackService, writeTimeout time.Duration, logger *slog.Logger) *PlaybackHTTPHandler {
	if writeTimeout <= 0 {
		writeTimeout = DefaultEventWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaybackHTTPHandler{service: service, writeTimeout: writeTimeout, logger: logger}
}

type startRequest struct {
	EntryID       string `json:"entry_id"`
	FromBeginning bool   `json:"from_beginning"`
}

type seekRequest struct {
	Position float64 `json:"position"`
}

type skipRequest struct {
	Delta float64 `json:"delta"`
}

// snapshotResponse represents the observable state of a session in JSON format.
type snapshotResponse struct {
	SessionID          string              `json:"session_id"`
	EntryID            string              `json:"entry_id"`
	State              playback.State      `json:"state"`
	Detected           stream.Kind         `json:"detected"`
	Strategy           stream.Kind         `json:"strategy"`
	UsingProxy         bool                `json:"using_proxy"`
	Attempts           int                 `json:"attempts"`
	RetryCount         int                 `json:"retry_count"`
	MediaRecoveryUsed  bool                `json:"media_recovery_used"`
	DirectFallbackUsed bool                `json:"direct_fallback_used"`
	Position           float64             `json:"position"`
	Duration           float64             `json:"duration"`
	LastError          stream.FailureClass `json:"last_error"`
	Terminal           bool                `json:"terminal"`
}

type eventResponse struct {
	Kind     string           `json:"kind"`
	Message  string           `json:"message,omitempty"`
	At       time.Time        `json:"at"`
	Snapshot snapshotResponse `json:"snapshot"`
}

func toSnapshotResponse(sessionID, entryID string, s playback.Snapshot) snapshotResponse {
	return snapshotResponse{
		SessionID:          sessionID,
		EntryID:            entryID,
		State:              s.State,
		Detected:           s.Detected,
		Strategy:           s.Strategy,
		UsingProxy:         s.UsingProxy,
		Attempts:           s.Attempts,
		RetryCount:         s.RetryCount(),
		MediaRecoveryUsed:  s.MediaRecoveryUsed,
		DirectFallbackUsed: s.DirectFallbackUsed,
		Position:           s.Position,
		Duration:           s.Duration,
		LastError:          s.LastError,
		Terminal:           s.Terminal,
	}
}

func sessionResponse(session *playback.Session, snap playback.Snapshot) snapshotResponse {
	return toSnapshotResponse(session.ID(), session.Entry().ID(), snap)
}

// ServeHTTP routes the request to the appropriate handler based on method and path.
func (h *PlaybackHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/playback")

	switch path {
	case "":
		switch r.Method {
		case http.MethodPost:
			h.handleStart(w, r)
		case http.MethodGet:
			h.handleState(w)
		case http.MethodDelete:
			h.handleStop(w)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "/events":
		if requireMethod(w, r, http.MethodGet) {
			h.handleEvents(w, r)
		}
	case "/play", "/pause", "/toggle", "/retry", "/seek", "/skip":
		if requireMethod(w, r, http.MethodPost) {
			h.handleCommand(w, r, strings.TrimPrefix(path, "/"))
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// handleStart handles POST /playback
func (h *PlaybackHTTPHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EntryID == "" {
		writeError(w, http.StatusBadRequest, "entry_id is required")
		return
	}

	session, err := h.service.Start(r.Context(), application.StartRequest{
		EntryID:       req.EntryID,
		FromBeginning: req.FromBeginning,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse(session, session.Snapshot()))
}

// handleState handles GET /playback
func (h *PlaybackHTTPHandler) handleState(w http.ResponseWriter) {
	session, err := h.service.Current()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(session, session.Snapshot()))
}

// handleStop handles DELETE /playback
func (h *PlaybackHTTPHandler) handleStop(w http.ResponseWriter) {
	if err := h.service.Stop(); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCommand handles POST /playback/{play,pause,toggle,retry,seek,skip}
func (h *PlaybackHTTPHandler) handleCommand(w http.ResponseWriter, r *http.Request, command string) {
	session, err := h.service.Current()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var snap playback.Snapshot
	switch command {
	case "play":
		snap, err = session.Play()
	case "pause":
		snap, err = session.Pause()
	case "toggle":
		snap, err = session.Toggle()
	case "retry":
		snap, err = session.Retry()
	case "seek":
		var req seekRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		snap, err = session.Seek(req.Position)
	case "skip":
		var req skipRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		snap, err = session.Skip(req.Delta)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse(session, snap))
}

// handleEvents handles GET /playback/events. The current state, when a
// session is active, is sent first; every later notification follows in
// publish order until the client disconnects.
func (h *PlaybackHTTPHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	subscriberID := uuid.NewString()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	tw := streaming.NewTimeoutWriter(w, h.writeTimeout, h.logger, subscriberID)

	if session, err := h.service.Current(); err == nil {
		initial := eventResponse{
			Kind:     playback.NotifyState.String(),
			At:       time.Now(),
			Snapshot: sessionResponse(session, session.Snapshot()),
		}
		if err := writeEvent(tw, initial); err != nil {
			return
		}
	} else if _, err := fmt.Fprint(tw, ": connected\n\n"); err != nil {
		return
	}

	h.logger.Debug("event subscriber connected", "subscriber_id", subscriberID)

	err := h.service.Hub().Subscribe(r.Context(), subscriberID, func(n playback.Notification) error {
		return writeEvent(tw, eventResponse{
			Kind:     n.Kind.String(),
			Message:  n.Message,
			At:       n.At,
			Snapshot: toSnapshotResponse(n.SessionID, n.EntryID, n.Snapshot),
		})
	})
	if err != nil && !errors.Is(err, r.Context().Err()) {
		h.logger.Warn("event subscriber ended", "subscriber_id", subscriberID, "error", err)
		return
	}
	h.logger.Debug("event subscriber disconnected", "subscriber_id", subscriberID)
}

func writeEvent(tw *streaming.TimeoutWriter, ev eventResponse) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(tw, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}
