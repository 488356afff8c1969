package m3u

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/alorle/iptv-player/internal/catalog"
)

const (
	extinfPrefix = "#EXTINF:"

	// DefaultLogoBase is the host prefixed to relative logo paths.
	DefaultLogoBase = "http://myservicego.info:80"

	// UnnamedEntry is the display name of entries with an empty title.
	UnnamedEntry = "Sin nombre"
)

// Parse errors
var (
	ErrEmptyInput    = errors.New("playlist is empty")
	ErrInvalidFormat = errors.New("playlist has no #EXTINF entries")
	ErrNoEntries     = errors.New("playlist has no playable entries")
)

var attributeRegex = regexp.MustCompile(`([A-Za-z0-9_-]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)

// entryNamespace seeds the deterministic entry ids.
var entryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("iptv-player/catalog-entry"))

// Parser turns extended M3U text into classified catalog entries.
type Parser struct {
	classifier *catalog.Classifier
	logoBase   string
}

// NewParser creates a Parser. A nil classifier uses the default brand list and
// an empty logoBase uses DefaultLogoBase.
func NewParser(classifier *catalog.Classifier, logoBase string) *Parser {
	if classifier == nil {
		classifier = catalog.NewClassifier(nil)
	}
	if logoBase == "" {
		logoBase = DefaultLogoBase
	}
	return &Parser{
		classifier: classifier,
		logoBase:   strings.TrimRight(logoBase, "/"),
	}
}

type pending struct {
	duration float64
	attrs    map[string]string
	name     string
}

// Parse reads the playlist text and returns its entries in input order.
// An #EXTINF line is paired with the next non-empty, non-directive line; an
// #EXTINF line that is never paired is dropped. Entry ids are derived from the
// stream URL and its occurrence count, so reparsing the same text yields the
// same ids.
func (p *Parser) Parse(raw string) ([]catalog.Entry, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}
	if !strings.Contains(raw, extinfPrefix) {
		return nil, ErrInvalidFormat
	}

	var (
		entries     []catalog.Entry
		current     *pending
		occurrences = make(map[string]int)
	)

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, extinfPrefix):
			current = parseExtinf(line)
		case strings.HasPrefix(line, "#"):
			continue
		case current != nil:
			n := occurrences[line]
			occurrences[line] = n + 1

			entry, err := p.buildEntry(current, line, n)
			current = nil
			if err != nil {
				continue
			}
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}

	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return entries, nil
}

func (p *Parser) buildEntry(meta *pending, streamURL string, occurrence int) (catalog.Entry, error) {
	group := meta.attrs["group-title"]
	if group == "" {
		group = catalog.DefaultGroup
	}
	logo := meta.attrs["tvg-logo"]
	if logo == "" {
		logo = meta.attrs["logo"]
	}

	typ, category := p.classifier.Classify(catalog.Signals{
		TypeHint: meta.attrs["tvg-type"],
		Name:     meta.name,
		Group:    group,
		URL:      streamURL,
	})

	return catalog.NewEntry(catalog.EntryParams{
		ID:       EntryID(streamURL, occurrence),
		Name:     meta.name,
		URL:      streamURL,
		Group:    group,
		Logo:     p.normalizeLogo(logo),
		TvgID:    meta.attrs["tvg-id"],
		Duration: meta.duration,
		Type:     typ,
		Category: category,
	})
}

// EntryID returns the id of the n-th (zero based) occurrence of a stream URL.
func EntryID(streamURL string, occurrence int) string {
	return uuid.NewSHA1(entryNamespace, []byte(streamURL+"\x00"+strconv.Itoa(occurrence))).String()
}

func (p *Parser) normalizeLogo(logo string) string {
	if logo == "" {
		return ""
	}
	if u, err := url.Parse(logo); err == nil && u.IsAbs() {
		return logo
	}
	if strings.HasPrefix(logo, "/") {
		return p.logoBase + logo
	}
	return p.logoBase + "/" + logo
}

func parseExtinf(line string) *pending {
	info := strings.TrimPrefix(line, extinfPrefix)

	attrBlock, name := splitTitle(info)
	name = strings.TrimSpace(name)
	if name == "" {
		name = UnnamedEntry
	}

	duration := -1.0
	if fields := strings.Fields(attrBlock); len(fields) > 0 {
		if d, err := strconv.ParseFloat(fields[0], 64); err == nil {
			duration = d
		}
	}

	attrs := make(map[string]string)
	for _, m := range attributeRegex.FindAllStringSubmatch(attrBlock, -1) {
		value := m[2]
		if value == "" {
			value = m[3]
		}
		key := strings.ToLower(m[1])
		if _, ok := attrs[key]; !ok && value != "" {
			attrs[key] = value
		}
	}

	return &pending{duration: duration, attrs: attrs, name: name}
}

// splitTitle splits the text after "#EXTINF:" on the first comma that is not
// inside a quoted attribute value.
func splitTitle(info string) (attrs, title string) {
	var quote rune
	for i, r := range info {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == ',':
			return info[:i], info[i+1:]
		}
	}
	return info, ""
}
