package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/m3u"
	"github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/metrics"
)

// CatalogService loads the profile playlist and serves the resulting index.
type CatalogService struct {
	source      driven.PlaylistSource
	parser      *m3u.Parser
	playlistURL string
	locale      language.Tag
	logger      *slog.Logger
	now         func() time.Time

	refreshMu sync.Mutex

	mu     sync.RWMutex
	index  *catalog.Index
	status CatalogStatus
}

// CatalogStatus describes the last successful load.
type CatalogStatus struct {
	Loaded     bool
	Entries    int
	Duplicates int
	LoadedAt   time.Time
	FetchedAt  time.Time
	Stale      bool
	ViaProxy   bool
}

// CatalogSummary aggregates the loaded catalog for overview screens.
type CatalogSummary struct {
	Status     CatalogStatus
	ByType     map[catalog.ContentType]int
	ByCategory map[catalog.Category]int
	WithLogo   int
	Groups     []string
}

// NewCatalogService creates a new catalog service. playlistURL is the fully
// resolved playlist location of the active profile.
func NewCatalogService(source driven.PlaylistSource, parser *m3u.Parser, playlistURL string, locale language.Tag, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		source:      source,
		parser:      parser,
		playlistURL: playlistURL,
		locale:      locale,
		logger:      logger,
		now:         time.Now,
	}
}

// Refresh downloads, parses and indexes the playlist. The previous index is
// kept when any step fails. Concurrent refreshes are serialized.
func (s *CatalogService) Refresh(ctx context.Context) (CatalogStatus, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := s.now()
	text, err := s.source.FetchPlaylist(ctx, s.playlistURL)
	if err != nil {
		return CatalogStatus{}, fmt.Errorf("fetching playlist: %w", err)
	}

	entries, err := s.parser.Parse(text.Body)
	if err != nil {
		return CatalogStatus{}, fmt.Errorf("parsing playlist: %w", err)
	}

	index := catalog.NewIndex(entries, catalog.WithLocale(s.locale))
	status := CatalogStatus{
		Loaded:     true,
		Entries:    index.Len(),
		Duplicates: index.Duplicates(),
		LoadedAt:   s.now(),
		FetchedAt:  text.FetchedAt,
		Stale:      text.Stale,
		ViaProxy:   text.ViaProxy,
	}

	s.mu.Lock()
	s.index = index
	s.status = status
	s.mu.Unlock()

	for t, n := range index.CountByType() {
		metrics.SetCatalogEntries(t.String(), n)
	}

	s.logger.Info("catalog loaded",
		"entries", status.Entries,
		"duplicates", status.Duplicates,
		"stale", status.Stale,
		"via_proxy", status.ViaProxy,
		"duration", s.now().Sub(start).String())

	return status, nil
}

// Index returns the current index.
func (s *CatalogService) Index() (*catalog.Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil, ErrCatalogNotLoaded
	}
	return s.index, nil
}

// Status returns the state of the last load.
func (s *CatalogService) Status() CatalogStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Entry looks up one entry by id.
func (s *CatalogService) Entry(id string) (catalog.Entry, error) {
	index, err := s.Index()
	if err != nil {
		return catalog.Entry{}, err
	}
	return index.Lookup(id)
}

// Summary aggregates counts over the loaded catalog.
func (s *CatalogService) Summary() (CatalogSummary, error) {
	index, err := s.Index()
	if err != nil {
		return CatalogSummary{}, err
	}

	summary := CatalogSummary{
		Status:     s.Status(),
		ByType:     index.CountByType(),
		ByCategory: index.CountByCategory(),
	}
	for _, e := range index.Entries() {
		if e.Logo() != "" {
			summary.WithLogo++
		}
	}
	for _, g := range index.Groups(catalog.AllScope()) {
		summary.Groups = append(summary.Groups, g.Name)
	}
	return summary, nil
}
