package catalog

import (
	"fmt"
	"strings"
)

// ContentType is the exclusive kind of a catalog entry.
// The zero value is TypeLive, which is also the classification fallback.
type ContentType int

const (
	TypeLive ContentType = iota
	TypeMovie
	TypeSeries
	TypeRadio
)

// ContentTypes lists every content type in navigation order.
var ContentTypes = []ContentType{TypeLive, TypeMovie, TypeSeries, TypeRadio}

func (t ContentType) String() string {
	switch t {
	case TypeLive:
		return "live"
	case TypeMovie:
		return "movie"
	case TypeSeries:
		return "series"
	case TypeRadio:
		return "radio"
	default:
		return fmt.Sprintf("ContentType(%d)", int(t))
	}
}

// ParseContentType converts the wire name of a content type ("live", "movie",
// "series", "radio") into a ContentType. Matching is case-insensitive.
func ParseContentType(s string) (ContentType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live":
		return TypeLive, true
	case "movie":
		return TypeMovie, true
	case "series":
		return TypeSeries, true
	case "radio":
		return TypeRadio, true
	default:
		return TypeLive, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ContentType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ContentType) UnmarshalText(text []byte) error {
	parsed, ok := ParseContentType(string(text))
	if !ok {
		return fmt.Errorf("unknown content type %q", string(text))
	}
	*t = parsed
	return nil
}

// Category is a best-effort thematic tag. The zero value is CategoryGeneral.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryInfantil
	CategoryDeportes
	CategoryTerror
	CategoryDocumentales
)

// Categories lists every category, general last.
var Categories = []Category{CategoryInfantil, CategoryDeportes, CategoryTerror, CategoryDocumentales, CategoryGeneral}

func (c Category) String() string {
	switch c {
	case CategoryGeneral:
		return "general"
	case CategoryInfantil:
		return "infantil"
	case CategoryDeportes:
		return "deportes"
	case CategoryTerror:
		return "terror"
	case CategoryDocumentales:
		return "documentales"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// ParseCategory converts a category wire name into a Category.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general":
		return CategoryGeneral, true
	case "infantil":
		return CategoryInfantil, true
	case "deportes":
		return CategoryDeportes, true
	case "terror":
		return CategoryTerror, true
	case "documentales":
		return CategoryDocumentales, true
	default:
		return CategoryGeneral, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, ok := ParseCategory(string(text))
	if !ok {
		return fmt.Errorf("unknown category %q", string(text))
	}
	*c = parsed
	return nil
}
