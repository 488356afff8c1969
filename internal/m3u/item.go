package m3u

import (
	"fmt"
	"io"
	"strings"

	"github.com/alorle/iptv-player/internal/catalog"
)

// Item is one #EXTINF record of an exported playlist.
type Item struct {
	Title    string
	URI      string
	Duration float64
	Attrs    *Attributes
}

// ItemFromEntry converts a catalog entry into an exportable item.
func ItemFromEntry(e catalog.Entry) *Item {
	duration := e.Duration()
	if duration <= 0 {
		duration = -1
	}
	return &Item{
		Title:    e.Name(),
		URI:      e.URL(),
		Duration: duration,
		Attrs: &Attributes{
			ID:         e.TvgID(),
			Name:       e.Name(),
			Logo:       e.Logo(),
			Type:       e.Type().String(),
			GroupTitle: e.Group(),
		},
	}
}

func (it *Item) encode(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "#EXTINF:%0.0f", it.Duration); err != nil {
		return err
	}

	if it.Attrs != nil {
		if err := it.Attrs.encode(w); err != nil {
			return err
		}
	}

	title := strings.ReplaceAll(it.Title, "\n", " ")
	if _, err := fmt.Fprintf(w, ",%s\n%s\n", title, it.URI); err != nil {
		return err
	}

	return nil
}

// Attributes are the key="value" pairs written between the duration and the
// title of an #EXTINF line.
type Attributes struct {
	ID         string
	Name       string
	Logo       string
	Type       string
	GroupTitle string
}

func (a *Attributes) encode(w io.Writer) error {
	pairs := []struct{ key, value string }{
		{"tvg-id", a.ID},
		{"tvg-name", a.Name},
		{"tvg-logo", a.Logo},
		{"tvg-type", a.Type},
		{"group-title", a.GroupTitle},
	}
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, " %s=\"%s\"", p.key, quoteSafe(p.value)); err != nil {
			return err
		}
	}
	return nil
}

// quoteSafe keeps attribute values parseable by swapping embedded double
// quotes for single ones.
func quoteSafe(v string) string {
	return strings.ReplaceAll(v, `"`, "'")
}
