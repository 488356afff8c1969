package m3u_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/m3u"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-logo="/img/a.png" group-title="News",Channel A
http://x/live/1
#EXTINF:-1 tvg-type="movie" group-title="Cine",Movie (2020)
http://x/movie/5
`

func TestParser_Parse(t *testing.T) {
	p := m3u.NewParser(nil, "")

	entries, err := p.Parse(samplePlaylist)
	if err != nil {
		t.Fatalf("Parse() unexpected error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Parse() returned %d entries, want 2", len(entries))
	}

	a := entries[0]
	if a.Name() != "Channel A" || a.Group() != "News" || a.URL() != "http://x/live/1" {
		t.Errorf("entry[0] = %q/%q/%q", a.Name(), a.Group(), a.URL())
	}
	if a.Logo() != "http://myservicego.info:80/img/a.png" {
		t.Errorf("entry[0].Logo() = %q", a.Logo())
	}
	if a.Type() != catalog.TypeLive || a.Category() != catalog.CategoryGeneral {
		t.Errorf("entry[0] classified as %v/%v", a.Type(), a.Category())
	}

	m := entries[1]
	if m.Type() != catalog.TypeMovie {
		t.Errorf("entry[1].Type() = %v, want movie", m.Type())
	}
	if m.Logo() != "" {
		t.Errorf("entry[1].Logo() = %q, want empty", m.Logo())
	}
	if a.ID() == m.ID() {
		t.Error("entry ids must be unique")
	}
}

func TestParser_Errors(t *testing.T) {
	p := m3u.NewParser(nil, "")

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: m3u.ErrEmptyInput},
		{name: "whitespace", input: " \n\t ", wantErr: m3u.ErrEmptyInput},
		{name: "no extinf", input: "#EXTM3U\nhttp://x/1\n", wantErr: m3u.ErrInvalidFormat},
		{name: "extinf without url", input: "#EXTM3U\n#EXTINF:-1,Lonely\n", wantErr: m3u.ErrNoEntries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParser_LineHandling(t *testing.T) {
	input := "#EXTM3U\r\n" +
		"#EXTINF:-1 group-title=\"Films, Classic\",Title, with comma\r\n" +
		"#EXTVLCOPT:http-user-agent=foo\r\n" +
		"\r\n" +
		"http://x/stream/1\r\n" +
		"#EXTINF:-1,Dropped\r\n" +
		"#EXTINF:120 logo=\"thumbs/b.png\",\r\n" +
		"http://x/stream/2\r\n" +
		"#EXTINF:-1,Trailing without url\r\n"

	entries, err := m3u.NewParser(nil, "http://logos.example/").Parse(input)
	if err != nil {
		t.Fatalf("Parse() unexpected error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Parse() returned %d entries, want 2", len(entries))
	}

	if got := entries[0].Name(); got != "Title, with comma" {
		t.Errorf("entry[0].Name() = %q", got)
	}
	if got := entries[0].Group(); got != "Films, Classic" {
		t.Errorf("entry[0].Group() = %q", got)
	}

	second := entries[1]
	if second.Name() != m3u.UnnamedEntry {
		t.Errorf("entry[1].Name() = %q, want %q", second.Name(), m3u.UnnamedEntry)
	}
	if second.Group() != catalog.DefaultGroup {
		t.Errorf("entry[1].Group() = %q, want %q", second.Group(), catalog.DefaultGroup)
	}
	if second.Logo() != "http://logos.example/thumbs/b.png" {
		t.Errorf("entry[1].Logo() = %q", second.Logo())
	}
	if second.Duration() != 120 {
		t.Errorf("entry[1].Duration() = %v, want 120", second.Duration())
	}
}

func TestParser_AttributeQuotingAndCase(t *testing.T) {
	tests := []struct {
		name      string
		extinf    string
		url       string
		wantGroup string
		wantLogo  string
		wantType  catalog.ContentType
	}{
		{
			name:      "upper case keys with single quotes",
			extinf:    `#EXTINF:-1 GROUP-TITLE='Kids' TVG-LOGO='/l.png' TVG-TYPE='tvshow',Cartoons`,
			url:       "http://x/stream/1",
			wantGroup: "Kids",
			wantLogo:  "http://logos.example/l.png",
			wantType:  catalog.TypeSeries,
		},
		{
			name:      "mixed case keys and quote styles",
			extinf:    `#EXTINF:-1 Tvg-Type="LIVE" Group-Title='Series Clásicas' Logo="img/n.png",Noticias Season 1`,
			url:       "http://x/stream/2",
			wantGroup: "Series Clásicas",
			wantLogo:  "http://logos.example/img/n.png",
			wantType:  catalog.TypeLive,
		},
		{
			name:      "apostrophe inside double quotes",
			extinf:    `#EXTINF:-1 group-title="Kids' Corner" tvg-logo='http://cdn.example/k.png' tvg-type="movie",Toy, the film`,
			url:       "http://x/stream/3",
			wantGroup: "Kids' Corner",
			wantLogo:  "http://cdn.example/k.png",
			wantType:  catalog.TypeMovie,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := m3u.NewParser(nil, "http://logos.example").Parse(tt.extinf + "\n" + tt.url + "\n")
			if err != nil {
				t.Fatalf("Parse() unexpected error = %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("Parse() returned %d entries, want 1", len(entries))
			}
			e := entries[0]
			if e.Group() != tt.wantGroup {
				t.Errorf("Group() = %q, want %q", e.Group(), tt.wantGroup)
			}
			if e.Logo() != tt.wantLogo {
				t.Errorf("Logo() = %q, want %q", e.Logo(), tt.wantLogo)
			}
			if e.Type() != tt.wantType {
				t.Errorf("Type() = %v, want %v", e.Type(), tt.wantType)
			}
			if e.URL() != tt.url {
				t.Errorf("URL() = %q, want %q", e.URL(), tt.url)
			}
		})
	}
}

func TestParser_StableIDs(t *testing.T) {
	input := "#EXTINF:-1,One\nhttp://x/same\n#EXTINF:-1,Two\nhttp://x/same\n"
	p := m3u.NewParser(nil, "")

	first, err := p.Parse(input)
	if err != nil {
		t.Fatalf("Parse() unexpected error = %v", err)
	}
	second, err := p.Parse(input)
	if err != nil {
		t.Fatalf("Parse() unexpected error = %v", err)
	}

	if first[0].ID() == first[1].ID() {
		t.Error("repeated URLs must get distinct ids")
	}
	for i := range first {
		if first[i].ID() != second[i].ID() {
			t.Errorf("id of entry %d changed between parses", i)
		}
	}
	if first[0].ID() != m3u.EntryID("http://x/same", 0) {
		t.Error("EntryID() does not match parsed id")
	}
}

func TestEncoder_RoundTrip(t *testing.T) {
	p := m3u.NewParser(nil, "")
	entries, err := p.Parse(samplePlaylist)
	if err != nil {
		t.Fatalf("Parse() unexpected error = %v", err)
	}

	enc := m3u.NewEncoder()
	enc.AddEntries(entries)

	var buf bytes.Buffer
	if err := enc.Encode(&buf); err != nil {
		t.Fatalf("Encode() unexpected error = %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "#EXTM3U\n") {
		t.Errorf("output missing header: %q", out)
	}
	if !strings.Contains(out, `tvg-type="movie" group-title="Cine",Movie (2020)`) {
		t.Errorf("output missing movie attributes: %q", out)
	}

	reparsed, err := p.Parse(out)
	if err != nil {
		t.Fatalf("Parse(exported) unexpected error = %v", err)
	}
	if len(reparsed) != len(entries) {
		t.Fatalf("reparsed %d entries, want %d", len(reparsed), len(entries))
	}
	for i := range entries {
		if reparsed[i].ID() != entries[i].ID() || reparsed[i].Type() != entries[i].Type() {
			t.Errorf("entry %d changed after round trip", i)
		}
	}
}
