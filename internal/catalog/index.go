package catalog

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Group is a named, ordered run of entries sharing the same group label.
type Group struct {
	Name    string
	Entries []Entry
}

// GroupPage is a window into a group.
type GroupPage struct {
	Name    string
	Entries []Entry
	Offset  int
	Total   int
	HasMore bool
}

// Scope selects one of the precomputed views of an Index.
type Scope struct {
	typ      *ContentType
	category *Category
}

// AllScope covers the whole catalog.
func AllScope() Scope { return Scope{} }

// TypeScope covers entries of one content type.
func TypeScope(t ContentType) Scope { return Scope{typ: &t} }

// CategoryScope covers entries of one category.
func CategoryScope(c Category) Scope { return Scope{category: &c} }

// WithType narrows the scope to one content type.
func (s Scope) WithType(t ContentType) Scope {
	s.typ = &t
	return s
}

// WithCategory narrows the scope to one category.
func (s Scope) WithCategory(c Category) Scope {
	s.category = &c
	return s
}

func (s Scope) key() string {
	switch {
	case s.typ != nil && s.category != nil:
		return "type:" + s.typ.String() + "/category:" + s.category.String()
	case s.typ != nil:
		return "type:" + s.typ.String()
	case s.category != nil:
		return "category:" + s.category.String()
	default:
		return "all"
	}
}

// Match reports whether e belongs to the scope.
func (s Scope) Match(e Entry) bool {
	if s.typ != nil && e.Type() != *s.typ {
		return false
	}
	if s.category != nil && e.Category() != *s.category {
		return false
	}
	return true
}

// IndexOption configures an Index.
type IndexOption func(*indexOptions)

type indexOptions struct {
	locale language.Tag
}

// WithLocale sets the collation locale used to order group names.
func WithLocale(tag language.Tag) IndexOption {
	return func(o *indexOptions) {
		o.locale = tag
	}
}

// Index is an immutable, precomputed view of a parsed catalog. It answers
// lookups by id, type and category, and exposes entries grouped by label with
// group names sorted by locale-aware collation. Entries keep parse order
// inside their group.
type Index struct {
	entries    []Entry
	byID       map[string]Entry
	byType     map[ContentType][]Entry
	byCategory map[Category][]Entry
	grouped    map[string][]Group
	duplicates int
	locale     language.Tag
}

// NewIndex builds an index from parsed entries. Entries sharing a stream URL
// are collapsed, the first occurrence wins.
func NewIndex(entries []Entry, opts ...IndexOption) *Index {
	o := indexOptions{locale: language.Spanish}
	for _, opt := range opts {
		opt(&o)
	}

	ix := &Index{
		entries:    make([]Entry, 0, len(entries)),
		byID:       make(map[string]Entry, len(entries)),
		byType:     make(map[ContentType][]Entry),
		byCategory: make(map[Category][]Entry),
		grouped:    make(map[string][]Group),
		locale:     o.locale,
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.URL()]; dup {
			ix.duplicates++
			continue
		}
		seen[e.URL()] = struct{}{}
		ix.entries = append(ix.entries, e)
		ix.byID[e.ID()] = e
		ix.byType[e.Type()] = append(ix.byType[e.Type()], e)
		ix.byCategory[e.Category()] = append(ix.byCategory[e.Category()], e)
	}

	ix.grouped[AllScope().key()] = ix.group(ix.entries)
	for _, t := range ContentTypes {
		ix.grouped[TypeScope(t).key()] = ix.group(ix.byType[t])
	}
	for _, c := range Categories {
		ix.grouped[CategoryScope(c).key()] = ix.group(ix.byCategory[c])
	}
	return ix
}

func (ix *Index) group(entries []Entry) []Group {
	byName := make(map[string]int)
	var groups []Group
	for _, e := range entries {
		pos, ok := byName[e.Group()]
		if !ok {
			pos = len(groups)
			byName[e.Group()] = pos
			groups = append(groups, Group{Name: e.Group()})
		}
		groups[pos].Entries = append(groups[pos].Entries, e)
	}
	// Collators are not safe for concurrent use.
	collate.New(ix.locale).Sort(groupSorter(groups))
	return groups
}

type groupSorter []Group

func (g groupSorter) Len() int           { return len(g) }
func (g groupSorter) Swap(i, j int)      { g[i], g[j] = g[j], g[i] }
func (g groupSorter) Bytes(i int) []byte { return []byte(g[i].Name) }

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Duplicates returns how many entries were dropped because their URL was
// already indexed.
func (ix *Index) Duplicates() int { return ix.duplicates }

// Entries returns all entries in parse order.
func (ix *Index) Entries() []Entry { return ix.entries }

// Lookup finds an entry by id.
func (ix *Index) Lookup(id string) (Entry, error) {
	e, ok := ix.byID[id]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

// LookupURL finds an entry by stream URL.
func (ix *Index) LookupURL(url string) (Entry, bool) {
	for _, e := range ix.entries {
		if e.URL() == url {
			return e, true
		}
	}
	return Entry{}, false
}

// ByType returns entries of one content type in parse order.
func (ix *Index) ByType(t ContentType) []Entry { return ix.byType[t] }

// ByCategory returns entries of one category in parse order.
func (ix *Index) ByCategory(c Category) []Entry { return ix.byCategory[c] }

// CountByType returns the number of entries per content type.
func (ix *Index) CountByType() map[ContentType]int {
	counts := make(map[ContentType]int, len(ContentTypes))
	for _, t := range ContentTypes {
		counts[t] = len(ix.byType[t])
	}
	return counts
}

// CountByCategory returns the number of entries per category.
func (ix *Index) CountByCategory() map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		counts[c] = len(ix.byCategory[c])
	}
	return counts
}

// Groups returns the grouped view of a scope. Single-dimension scopes are
// precomputed; combined scopes are grouped on demand.
func (ix *Index) Groups(s Scope) []Group {
	if groups, ok := ix.grouped[s.key()]; ok {
		return groups
	}
	var matched []Entry
	for _, e := range ix.entries {
		if s.Match(e) {
			matched = append(matched, e)
		}
	}
	return ix.group(matched)
}

// Window returns every group of a scope truncated to its first n entries.
func (ix *Index) Window(s Scope, n int) []GroupPage {
	groups := ix.Groups(s)
	pages := make([]GroupPage, 0, len(groups))
	for _, g := range groups {
		pages = append(pages, page(g, 0, n))
	}
	return pages
}

// GroupPage slices one group of a scope. ok is false when the group does not
// exist in that scope.
func (ix *Index) GroupPage(s Scope, name string, offset, limit int) (GroupPage, bool) {
	for _, g := range ix.Groups(s) {
		if g.Name == name {
			return page(g, offset, limit), true
		}
	}
	return GroupPage{}, false
}

func page(g Group, offset, limit int) GroupPage {
	total := len(g.Entries)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit >= 0 && offset+limit < total {
		end = offset + limit
	}
	return GroupPage{
		Name:    g.Name,
		Entries: g.Entries[offset:end],
		Offset:  offset,
		Total:   total,
		HasMore: end < total,
	}
}

// Search returns entries in scope whose name or group contains query,
// case-insensitively, in parse order.
func (ix *Index) Search(s Scope, query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Entry
	for _, e := range ix.entries {
		if !s.Match(e) {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(e.Name()), q) || strings.Contains(strings.ToLower(e.Group()), q) {
			out = append(out, e)
		}
	}
	return out
}
