package fetcher

import (
	"context"

	"github.com/alorle/iptv-player/internal/port/driven"
)

// MockFetcher is a mock implementation of driven.PlaylistSource for testing
type MockFetcher struct {
	FetchPlaylistFunc func(ctx context.Context, url string) (driven.PlaylistText, error)
}

// FetchPlaylist implements driven.PlaylistSource.FetchPlaylist
func (m *MockFetcher) FetchPlaylist(ctx context.Context, url string) (driven.PlaylistText, error) {
	if m.FetchPlaylistFunc != nil {
		return m.FetchPlaylistFunc(ctx, url)
	}
	return driven.PlaylistText{}, nil
}
