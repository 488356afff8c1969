package m3u

import (
	"fmt"
	"io"

	"github.com/alorle/iptv-player/internal/catalog"
)

type Encoder struct {
	items []*Item
}

func NewEncoder() *Encoder {
	return &Encoder{items: []*Item{}}
}

func (e *Encoder) AddItem(item *Item) {
	e.items = append(e.items, item)
}

// AddEntries appends every entry in order.
func (e *Encoder) AddEntries(entries []catalog.Entry) {
	for _, entry := range entries {
		e.AddItem(ItemFromEntry(entry))
	}
}

func (e *Encoder) Encode(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "#EXTM3U\n"); err != nil {
		return err
	}

	for _, item := range e.items {
		if err := item.encode(w); err != nil {
			return err
		}
	}

	return nil
}
