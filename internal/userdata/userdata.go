package userdata

import (
	"errors"
	"time"

	"github.com/alorle/iptv-player/internal/catalog"
)

// Domain errors
var (
	ErrNoProfile   = errors.New("no profile token configured")
	ErrRemoteState = errors.New("user data service rejected the request")
)

// ContentRef identifies a piece of content in the user-data service. The
// stream URL is the join key; the other fields are display hints.
type ContentRef struct {
	URL   string
	Name  string
	Logo  string
	Group string
	Type  catalog.ContentType
}

// RefFromEntry builds a ContentRef for a catalog entry.
func RefFromEntry(e catalog.Entry) ContentRef {
	return ContentRef{
		URL:   e.URL(),
		Name:  e.Name(),
		Logo:  e.Logo(),
		Group: e.Group(),
		Type:  e.Type(),
	}
}

// Position is a saved playback position.
type Position struct {
	Seconds   float64
	Duration  float64
	Completed bool
}

// ProgressRecord is one position report sent to the remote store.
type ProgressRecord struct {
	Content  ContentRef
	Seconds  float64
	Duration float64
}

// ProgressItem is a continue-watching row.
type ProgressItem struct {
	Content   ContentRef
	Position  Position
	UpdatedAt time.Time
}

// Favorite is a bookmarked piece of content.
type Favorite struct {
	Content   ContentRef
	CreatedAt time.Time
}

// HistoryItem records that content was opened.
type HistoryItem struct {
	Content   ContentRef
	WatchedAt time.Time
}
