package application

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/text/language"

	"github.com/alorle/iptv-player/fetcher"
	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/m3u"
	"github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/internal/stream"
)

func TestCatalogService_Refresh(t *testing.T) {
	svc := newLoadedCatalog(t, testPlaylist)

	status := svc.Status()
	if !status.Loaded || status.Entries != 3 || status.Duplicates != 1 {
		t.Errorf("Status() = %+v, want 3 entries and 1 duplicate", status)
	}

	summary, err := svc.Summary()
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.ByType[catalog.TypeLive] != 2 || summary.ByType[catalog.TypeMovie] != 1 {
		t.Errorf("ByType = %v", summary.ByType)
	}
	if summary.ByCategory[catalog.CategoryDeportes] != 1 {
		t.Errorf("ByCategory = %v", summary.ByCategory)
	}
	if summary.WithLogo != 1 {
		t.Errorf("WithLogo = %d, want 1", summary.WithLogo)
	}
	want := []string{"Cine", "Deportes", "Noticias"}
	if len(summary.Groups) != len(want) {
		t.Fatalf("Groups = %v, want %v", summary.Groups, want)
	}
	for i := range want {
		if summary.Groups[i] != want[i] {
			t.Errorf("Groups[%d] = %s, want %s", i, summary.Groups[i], want[i])
		}
	}

	movie := entryByName(t, svc, "Gran Película (2019)")
	got, err := svc.Entry(movie.ID())
	if err != nil || got.URL() != "http://cdn.example/movie/1234.mp4" {
		t.Errorf("Entry() = %v, %v", got, err)
	}
	if _, err := svc.Entry("missing"); !errors.Is(err, catalog.ErrEntryNotFound) {
		t.Errorf("Entry(missing) error = %v, want ErrEntryNotFound", err)
	}
}

func TestCatalogService_NotLoaded(t *testing.T) {
	svc := NewCatalogService(&fetcher.MockFetcher{}, newTestParser(), "http://panel/playlist", language.Spanish, discardLogger())

	if _, err := svc.Index(); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("Index() error = %v, want ErrCatalogNotLoaded", err)
	}
	if _, err := svc.Summary(); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("Summary() error = %v, want ErrCatalogNotLoaded", err)
	}
	if _, err := svc.Entry("x"); !errors.Is(err, ErrCatalogNotLoaded) {
		t.Errorf("Entry() error = %v, want ErrCatalogNotLoaded", err)
	}
}

func TestCatalogService_RefreshFailureKeepsIndex(t *testing.T) {
	tests := []struct {
		name    string
		text    driven.PlaylistText
		fetch   error
		wantErr error
	}{
		{name: "fetch failure", fetch: stream.StatusError("http://panel/playlist", 503), wantErr: nil},
		{name: "invalid playlist", text: driven.PlaylistText{Body: "<html></html>"}, wantErr: m3u.ErrInvalidFormat},
		{name: "empty playlist", text: driven.PlaylistText{Body: "   "}, wantErr: m3u.ErrEmptyInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			source := &fetcher.MockFetcher{
				FetchPlaylistFunc: func(ctx context.Context, url string) (driven.PlaylistText, error) {
					calls++
					if calls == 1 {
						return driven.PlaylistText{Body: testPlaylist}, nil
					}
					return tt.text, tt.fetch
				},
			}
			svc := NewCatalogService(source, newTestParser(), "http://panel/playlist", language.Spanish, discardLogger())
			if _, err := svc.Refresh(context.Background()); err != nil {
				t.Fatalf("first Refresh() error = %v", err)
			}

			_, err := svc.Refresh(context.Background())
			if err == nil {
				t.Fatal("expected error on second refresh")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Refresh() error = %v, want %v", err, tt.wantErr)
			}
			if tt.fetch != nil && stream.Classify(err) != stream.FailureNetwork {
				t.Errorf("expected network failure, got %v", err)
			}

			index, err := svc.Index()
			if err != nil || index.Len() != 3 {
				t.Errorf("expected previous index to be kept, got %v, %v", index, err)
			}
		})
	}
}

func TestCatalogService_StaleFlag(t *testing.T) {
	source := &fetcher.MockFetcher{
		FetchPlaylistFunc: func(ctx context.Context, url string) (driven.PlaylistText, error) {
			if url != "http://panel/playlist" {
				t.Errorf("unexpected url %s", url)
			}
			return driven.PlaylistText{Body: testPlaylist, Stale: true}, nil
		},
	}
	svc := NewCatalogService(source, newTestParser(), "http://panel/playlist", language.Spanish, discardLogger())

	status, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !status.Stale {
		t.Error("expected stale status")
	}
}
