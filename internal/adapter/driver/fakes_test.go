package driver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/text/language"

	"github.com/alorle/iptv-player/fetcher"
	"github.com/alorle/iptv-player/internal/application"
	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/m3u"
	"github.com/alorle/iptv-player/internal/playback"
	"github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/internal/stream"
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

func newCatalogService() *application.CatalogService {
	source := &fetcher.MockFetcher{
		FetchPlaylistFunc: func(ctx context.Context, url string) (driven.PlaylistText, error) {
			return driven.PlaylistText{Body: testPlaylist}, nil
		},
	}
	parser := m3u.NewParser(catalog.NewClassifier(nil), m3u.DefaultLogoBase)
	return application.NewCatalogService(source, parser, "http://panel/playlist", language.Spanish, discardLogger())
}

// newLoadedCatalog returns a catalog service already refreshed with testPlaylist.
func newLoadedCatalog(t *testing.T) *application.CatalogService {
	t.Helper()
	svc := newCatalogService()
	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return svc
}

func entryID(t *testing.T, svc *application.CatalogService, name string) string {
	t.Helper()
	index, err := svc.Index()
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	for _, e := range index.Entries() {
		if e.Name() == name {
			return e.ID()
		}
	}
	t.Fatalf("entry %q not found", name)
	return ""
}

func decodeBody(t *testing.T, body io.Reader, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// mockLibraryStore is a mock implementation of driven.LibraryStore for testing.
type mockLibraryStore struct {
	favoritesFunc      func(ctx context.Context, token string) ([]userdata.Favorite, error)
	addFavoriteFunc    func(ctx context.Context, token string, ref userdata.ContentRef) error
	removeFavoriteFunc func(ctx context.Context, token, url string) error
	historyFunc        func(ctx context.Context, token string, limit int) ([]userdata.HistoryItem, error)
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
	resetProgressFunc    func(ctx context.Context, token, url string) error
	continueWatchingFunc func(ctx context.Context, token string) ([]userdata.ProgressItem, error)
}

func (m *mockProgressStore) GetProgress(ctx context.Context, token, url string) (userdata.Position, bool, error) {
	return userdata.Position{}, false, nil
}

func (m *mockProgressStore) SaveProgress(ctx context.Context, token string, rec userdata.ProgressRecord) (bool, error) {
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

// readyTransport attaches bindings that report ready right away.
type readyTransport struct{}

func (readyTransport) Attach(ctx context.Context, req driven.AttachRequest, sink driven.EventSink) (driven.Binding, error) {
	go sink(driven.TransportEvent{Kind: driven.TransportReady, Duration: req.DurationHint})
	return nopBinding{}, nil
}

type nopBinding struct{}

func (nopBinding) Play() error         { return nil }
func (nopBinding) Pause() error        { return nil }
func (nopBinding) Seek(float64) error  { return nil }
func (nopBinding) RecoverMedia() error { return nil }
func (nopBinding) Detach() error       { return nil }

func newPlaybackService(t *testing.T, cat *application.CatalogService) *application.PlaybackService {
	t.Helper()
	svc := application.NewPlaybackService(cat, nil, "", playback.Config{
		Policy: playback.DefaultPolicy(),
		Transports: driven.TransportSet{
			stream.KindHLS:    readyTransport{},
			stream.KindDirect: readyTransport{},
		},
		LoadTimeout: -1,
		Logger:      discardLogger(),
	}, discardLogger())
	t.Cleanup(svc.Shutdown)
	return svc
}
