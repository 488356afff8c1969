package catalog

import (
	"errors"
	"strings"
)

// DefaultGroup is the group label used when the feed does not provide one.
const DefaultGroup = "General"

// Domain errors
var (
	ErrEmptyID         = errors.New("entry id cannot be empty")
	ErrEmptyURL        = errors.New("entry url cannot be empty")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrUnknownType     = errors.New("unknown content type")
	ErrUnknownCategory = errors.New("unknown category")
)

// Entry is one playable unit of the catalog.
// Entries are immutable: classification happens once, when the entry is built.
type Entry struct {
	id       string
	name     string
	url      string
	group    string
	logo     string
	tvgID    string
	duration float64
	typ      ContentType
	category Category
}

// EntryParams carries the fields used to build an Entry.
type EntryParams struct {
	ID       string
	Name     string
	URL      string
	Group    string
	Logo     string
	TvgID    string
	Duration float64
	Type     ContentType
	Category Category
}

// NewEntry creates a new Entry. ID and URL are required; an empty group falls
// back to DefaultGroup.
func NewEntry(p EntryParams) (Entry, error) {
	if strings.TrimSpace(p.ID) == "" {
		return Entry{}, ErrEmptyID
	}
	if strings.TrimSpace(p.URL) == "" {
		return Entry{}, ErrEmptyURL
	}
	group := p.Group
	if group == "" {
		group = DefaultGroup
	}
	return Entry{
		id:       p.ID,
		name:     p.Name,
		url:      p.URL,
		group:    group,
		logo:     p.Logo,
		tvgID:    p.TvgID,
		duration: p.Duration,
		typ:      p.Type,
		category: p.Category,
	}, nil
}

// ID returns the identifier generated at parse time.
func (e Entry) ID() string { return e.id }

// Name returns the display title as given by the feed.
func (e Entry) Name() string { return e.name }

// URL returns the stream endpoint.
func (e Entry) URL() string { return e.url }

// Group returns the raw group label.
func (e Entry) Group() string { return e.group }

// Logo returns the absolute thumbnail URL, or "" when the feed has none.
func (e Entry) Logo() string { return e.logo }

// TvgID returns the guide identifier, if any.
func (e Entry) TvgID() string { return e.tvgID }

// Duration returns the EXTINF duration in seconds; -1 or 0 means unknown.
func (e Entry) Duration() float64 { return e.duration }

// Type returns the content type.
func (e Entry) Type() ContentType { return e.typ }

// Category returns the thematic category.
func (e Entry) Category() Category { return e.category }
