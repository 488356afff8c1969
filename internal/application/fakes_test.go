package application

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"golang.org/x/text/language"

	"github.com/alorle/iptv-player/fetcher"
	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/m3u"
	"github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/internal/userdata"
)

const testPlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="news1" tvg-logo="/logos/news.png" group-title="Noticias",Canal 24H
http://cdn.example/live/news/index.m3u8
#EXTINF:5400 tvg-type="movie" group-title="Cine",Gran Película (2019)
http://cdn.example/movie/1234.mp4
#EXTINF:-1 group-title="Deportes",Fútbol Total
http://cdn.example/live/sport/index.m3u8
#EXTINF:-1 group-title="Noticias",Canal 24H copia
http://cdn.example/live/news/index.m3u8
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestParser() *m3u.Parser {
	return m3u.NewParser(catalog.NewClassifier(nil), m3u.DefaultLogoBase)
}

// newLoadedCatalog returns a catalog service already refreshed with body.
func newLoadedCatalog(t *testing.T, body string) *CatalogService {
	t.Helper()
	source := &fetcher.MockFetcher{
		FetchPlaylistFunc: func(ctx context.Context, url string) (driven.PlaylistText, error) {
			return driven.PlaylistText{Body: body}, nil
		},
	}
	svc := NewCatalogService(source, newTestParser(), "http://panel/playlist", language.Spanish, discardLogger())
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return svc
}

func entryByName(t *testing.T, svc *CatalogService, name string) catalog.Entry {
	t.Helper()
	index, err := svc.Index()
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	for _, e := range index.Entries() {
		if e.Name() == name {
			return e
		}
	}
	t.Fatalf("entry %q not found", name)
	return catalog.Entry{}
}

// mockLibraryStore is a mock implementation of driven.LibraryStore for testing.
type mockLibraryStore struct {
	favoritesFunc      func(ctx context.Context, token string) ([]userdata.Favorite, error)
	addFavoriteFunc    func(ctx context.Context, token string, ref userdata.ContentRef) error
	removeFavoriteFunc func(ctx context.Context, token, url string) error
	historyFunc        func(ctx context.Context, token string, limit int) ([]userdata.HistoryItem, error)
	addHistoryFunc     func(ctx context.Context, token string, ref userdata.ContentRef) error
	pingFunc           func(ctx context.Context) error
}

func (m *mockLibraryStore) Favorites(ctx context.Context, token string) ([]userdata.Favorite, error) {
	if m.favoritesFunc != nil {
		return m.favoritesFunc(ctx, token)
	}
	return nil, nil
}

func (m *mockLibraryStore) AddFavorite(ctx context.Context, token string, ref userdata.ContentRef) error {
	if m.addFavoriteFunc != nil {
		return m.addFavoriteFunc(ctx, token, ref)
	}
	return nil
}

func (m *mockLibraryStore) RemoveFavorite(ctx context.Context, token, url string) error {
	if m.removeFavoriteFunc != nil {
		return m.removeFavoriteFunc(ctx, token, url)
	}
	return nil
}

func (m *mockLibraryStore) History(ctx context.Context, token string, limit int) ([]userdata.HistoryItem, error) {
	if m.historyFunc != nil {
		return m.historyFunc(ctx, token, limit)
	}
	return nil, nil
}

func (m *mockLibraryStore) AddHistory(ctx context.Context, token string, ref userdata.ContentRef) error {
	if m.addHistoryFunc != nil {
		return m.addHistoryFunc(ctx, token, ref)
	}
	return nil
}

func (m *mockLibraryStore) Ping(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

// mockProgressStore is a mock implementation of driven.ProgressStore for testing.
type mockProgressStore struct {
	getProgressFunc      func(ctx context.Context, token, url string) (userdata.Position, bool, error)
	saveProgressFunc     func(ctx context.Context, token string, rec userdata.ProgressRecord) (bool, error)
	resetProgressFunc    func(ctx context.Context, token, url string) error
	continueWatchingFunc func(ctx context.Context, token string) ([]userdata.ProgressItem, error)
}

func (m *mockProgressStore) GetProgress(ctx context.Context, token, url string) (userdata.Position, bool, error) {
	if m.getProgressFunc != nil {
		return m.getProgressFunc(ctx, token, url)
	}
	return userdata.Position{}, false, nil
}

func (m *mockProgressStore) SaveProgress(ctx context.Context, token string, rec userdata.ProgressRecord) (bool, error) {
	if m.saveProgressFunc != nil {
		return m.saveProgressFunc(ctx, token, rec)
	}
	return false, nil
}

func (m *mockProgressStore) ResetProgress(ctx context.Context, token, url string) error {
	if m.resetProgressFunc != nil {
		return m.resetProgressFunc(ctx, token, url)
	}
	return nil
}

func (m *mockProgressStore) ContinueWatching(ctx context.Context, token string) ([]userdata.ProgressItem, error) {
	if m.continueWatchingFunc != nil {
		return m.continueWatchingFunc(ctx, token)
	}
	return nil, nil
}

// memoryKV is an in-memory driven.KeyValueCache.
type memoryKV struct {
	mu      sync.Mutex
	values  map[string]string
	pingErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string]string)}
}

func (m *memoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *memoryKV) Ping(ctx context.Context) error { return m.pingErr }

// idleTransport attaches bindings that never report anything.
type idleTransport struct {
	mu       sync.Mutex
	attaches []driven.AttachRequest
}

func (t *idleTransport) Attach(ctx context.Context, req driven.AttachRequest, sink driven.EventSink) (driven.Binding, error) {
	t.mu.Lock()
	t.attaches = append(t.attaches, req)
	t.mu.Unlock()
	return idleBinding{}, nil
}

func (t *idleTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.attaches)
}

type idleBinding struct{}

func (idleBinding) Play() error         { return nil }
func (idleBinding) Pause() error        { return nil }
func (idleBinding) Seek(float64) error  { return nil }
func (idleBinding) RecoverMedia() error { return nil }
func (idleBinding) Detach() error       { return nil }
