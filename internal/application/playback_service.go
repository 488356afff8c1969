package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alorle/iptv-player/internal/playback"
	"github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/internal/userdata"
)

const historyTimeout = 5 * time.Second

// PlaybackService owns the single active playback session. Starting a new
// session closes the previous one before the new one touches shared state.
type PlaybackService struct {
	catalog *CatalogService
	library driven.LibraryStore
	token   string
	base    playback.Config
	hub     *playback.Hub
	logger  *slog.Logger

	mu      sync.Mutex
	current *playback.Session
	wg      sync.WaitGroup
}

// StartRequest selects what to play.
type StartRequest struct {
	EntryID       string
	FromBeginning bool
}

// NewPlaybackService creates a new playback service. base carries the
// collaborators shared by every session; its Entry and FromBeginning fields
// are ignored. library may be nil when no remote user-data service is
// configured.
func NewPlaybackService(catalog *CatalogService, library driven.LibraryStore, token string, base playback.Config, logger *slog.Logger) *PlaybackService {
	if logger == nil {
		logger = slog.Default()
	}
	if base.Hub == nil {
		base.Hub = playback.NewHub(logger)
	}
	base.ProfileToken = token
	base.Logger = logger
	return &PlaybackService{
		catalog: catalog,
		library: library,
		token:   token,
		base:    base,
		hub:     base.Hub,
		logger:  logger,
	}
}

// Hub returns the hub every session publishes to.
func (s *PlaybackService) Hub() *playback.Hub { return s.hub }

// Start closes the active session, if any, and starts playing the entry.
// The session outlives ctx; it ends with Stop, a later Start or Shutdown.
func (s *PlaybackService) Start(ctx context.Context, req StartRequest) (*playback.Session, error) {
	entry, err := s.catalog.Entry(req.EntryID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Close()
		s.current = nil
	}

	cfg := s.base
	cfg.Entry = entry
	cfg.FromBeginning = req.FromBeginning

	session, err := playback.Start(context.WithoutCancel(ctx), cfg)
	if err != nil {
		return nil, err
	}
	s.current = session

	if s.library != nil && s.token != "" {
		ref := userdata.RefFromEntry(entry)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
			defer cancel()
			if err := s.library.AddHistory(hctx, s.token, ref); err != nil {
				s.logger.Warn("failed to record history", "entry_id", entry.ID(), "error", err)
			}
		}()
	}

	return session, nil
}

// Current returns the active session.
func (s *PlaybackService) Current() (*playback.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrNoActiveSession
	}
	select {
	case <-s.current.Done():
		s.current = nil
		return nil, ErrNoActiveSession
	default:
		return s.current, nil
	}
}

// Stop closes the active session.
func (s *PlaybackService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ErrNoActiveSession
	}
	s.current.Close()
	s.current = nil
	return nil
}

// Shutdown closes the active session, waits for pending history writes and
// closes the hub.
func (s *PlaybackService) Shutdown() {
	_ = s.Stop()
	s.wg.Wait()
	s.hub.Close()
}
