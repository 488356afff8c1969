package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/internal/progress"
	"github.com/alorle/iptv-player/internal/userdata"
)

const (
	favoritesMirrorKey = "favorites"
	defaultHistorySize = 50
)

// UserDataService exposes favorites, history and saved positions of the
// active profile. Favorites are mirrored into the local cache so they stay
// available while the remote service is unreachable.
type UserDataService struct {
	catalog    *CatalogService
	library    driven.LibraryStore
	progress   driven.ProgressStore
	local      driven.KeyValueCache
	reconciler *progress.Reconciler
	token      string
	logger     *slog.Logger
}

// NewUserDataService creates a new user-data service.
func NewUserDataService(catalog *CatalogService, library driven.LibraryStore, progressStore driven.ProgressStore, local driven.KeyValueCache, reconciler *progress.Reconciler, token string, logger *slog.Logger) *UserDataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserDataService{
		catalog:    catalog,
		library:    library,
		progress:   progressStore,
		local:      local,
		reconciler: reconciler,
		token:      token,
		logger:     logger,
	}
}

func (s *UserDataService) remote() error {
	if s.token == "" || s.library == nil || s.progress == nil {
		return userdata.ErrNoProfile
	}
	return nil
}

// Favorites lists the profile's favorites, falling back to the local mirror
// when the remote service fails.
func (s *UserDataService) Favorites(ctx context.Context) ([]userdata.Favorite, error) {
	if err := s.remote(); err != nil {
		return nil, err
	}

	favs, err := s.library.Favorites(ctx, s.token)
	if err == nil {
		s.saveMirror(favs)
		return favs, nil
	}

	mirrored, ok := s.loadMirror()
	if !ok {
		return nil, err
	}
	s.logger.Warn("serving mirrored favorites", "error", err)
	return mirrored, nil
}

// ToggleFavorite adds the entry to the favorites or removes it when it is
// already there. It reports whether the entry is a favorite afterwards.
func (s *UserDataService) ToggleFavorite(ctx context.Context, entryID string) (bool, error) {
	if err := s.remote(); err != nil {
		return false, err
	}
	entry, err := s.catalog.Entry(entryID)
	if err != nil {
		return false, err
	}

	favs, err := s.library.Favorites(ctx, s.token)
	if err != nil {
		return false, fmt.Errorf("listing favorites: %w", err)
	}

	kept := favs[:0:0]
	for _, f := range favs {
		if f.Content.URL != entry.URL() {
			kept = append(kept, f)
		}
	}

	if len(kept) != len(favs) {
		if err := s.library.RemoveFavorite(ctx, s.token, entry.URL()); err != nil {
			return true, fmt.Errorf("removing favorite: %w", err)
		}
		s.saveMirror(kept)
		return false, nil
	}

	ref := userdata.RefFromEntry(entry)
	if err := s.library.AddFavorite(ctx, s.token, ref); err != nil {
		return false, fmt.Errorf("adding favorite: %w", err)
	}
	s.saveMirror(append(favs, userdata.Favorite{Content: ref}))
	return true, nil
}

// History lists recently opened content, newest first.
func (s *UserDataService) History(ctx context.Context, limit int) ([]userdata.HistoryItem, error) {
	if err := s.remote(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistorySize
	}
	return s.library.History(ctx, s.token, limit)
}

// ContinueWatching lists content with a saved position that is not finished.
func (s *UserDataService) ContinueWatching(ctx context.Context) ([]userdata.ProgressItem, error) {
	if err := s.remote(); err != nil {
		return nil, err
	}
	items, err := s.progress.ContinueWatching(ctx, s.token)
	if err != nil {
		return nil, err
	}
	open := items[:0]
	for _, it := range items {
		if !it.Position.Completed {
			open = append(open, it)
		}
	}
	return open, nil
}

// ResetProgress forgets the saved position of an entry locally and remotely.
// The local position is always cleared; a remote failure is returned.
func (s *UserDataService) ResetProgress(ctx context.Context, entryID string) error {
	entry, err := s.catalog.Entry(entryID)
	if err != nil {
		return err
	}

	if s.reconciler != nil {
		if err := s.reconciler.Forget(entry.ID()); err != nil {
			s.logger.Warn("failed to clear local progress", "entry_id", entry.ID(), "error", err)
		}
	}

	if s.remote() != nil {
		return nil
	}
	if err := s.progress.ResetProgress(ctx, s.token, entry.URL()); err != nil {
		return fmt.Errorf("resetting remote progress: %w", err)
	}
	return nil
}

func (s *UserDataService) saveMirror(favs []userdata.Favorite) {
	if s.local == nil {
		return
	}
	data, err := json.Marshal(favs)
	if err != nil {
		s.logger.Warn("failed to encode favorites mirror", "error", err)
		return
	}
	if err := s.local.Set(favoritesMirrorKey, string(data)); err != nil {
		s.logger.Warn("failed to store favorites mirror", "error", err)
	}
}

func (s *UserDataService) loadMirror() ([]userdata.Favorite, bool) {
	if s.local == nil {
		return nil, false
	}
	raw, found, err := s.local.Get(favoritesMirrorKey)
	if err != nil || !found {
		return nil, false
	}
	var favs []userdata.Favorite
	if err := json.Unmarshal([]byte(raw), &favs); err != nil {
		s.logger.Warn("discarding corrupt favorites mirror", "error", err)
		return nil, false
	}
	return favs, true
}
