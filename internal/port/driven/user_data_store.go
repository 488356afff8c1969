package driven

import (
	"context"

	"github.com/alorle/iptv-player/internal/userdata"
)

// ProgressStore is the remote store of playback positions, keyed by profile
// token and stream URL.
type ProgressStore interface {
	// GetProgress returns the saved position. found is false when nothing was
	// saved for url.
	GetProgress(ctx context.Context, token, url string) (pos userdata.Position, found bool, err error)

	// SaveProgress stores a position and reports whether the remote side
	// considers the content completed.
	SaveProgress(ctx context.Context, token string, rec userdata.ProgressRecord) (completed bool, err error)

	// ResetProgress forgets the saved position for url.
	ResetProgress(ctx context.Context, token, url string) error

	// ContinueWatching lists content with a saved, uncompleted position.
	ContinueWatching(ctx context.Context, token string) ([]userdata.ProgressItem, error)
}

// LibraryStore is the remote store of favorites and watch history.
type LibraryStore interface {
	Favorites(ctx context.Context, token string) ([]userdata.Favorite, error)
	AddFavorite(ctx context.Context, token string, ref userdata.ContentRef) error
	RemoveFavorite(ctx context.Context, token, url string) error
	History(ctx context.Context, token string, limit int) ([]userdata.HistoryItem, error)
	AddHistory(ctx context.Context, token string, ref userdata.ContentRef) error

	// Ping checks if the user-data service is reachable.
	Ping(ctx context.Context) error
}
