package driven

import (
	"context"
	"time"
)

// PlaylistText is a downloaded playlist body.
type PlaylistText struct {
	Body      string
	FetchedAt time.Time
	// Stale is set when the body was served from cache after a failed fetch.
	Stale bool
	// ViaProxy is set when the body came through the fallback relay.
	ViaProxy bool
}

// PlaylistSource downloads playlist text.
type PlaylistSource interface {
	FetchPlaylist(ctx context.Context, url string) (PlaylistText, error)
}
