package catalog

import (
	"regexp"
	"strings"
)

// DefaultLiveBrands are series-branded channel names that force an entry to
// be live even though the name looks like a series. Matched against the name
// only.
var DefaultLiveBrands = []string{
	"tnt series", "warner series", "hbo series", "fox series", "universal series",
	"sony series", "fx series", "axn series", "space series",
}

var seriesPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)s\d{1,2}\s*e\d{1,2}`),
	regexp.MustCompile(`(?i)\d{1,2}x\d{1,2}`),
	regexp.MustCompile(`(?i)t\d{1,2}\s*e\d{1,2}`),
	regexp.MustCompile(`(?i)temporada\s*\d+`),
	regexp.MustCompile(`(?i)cap[ií]tulo\s*\d+`),
	regexp.MustCompile(`(?i)episodio\s*\d+`),
	regexp.MustCompile(`(?i)season\s*\d+`),
}

var yearPattern = regexp.MustCompile(`\(\d{4}\)|\[\d{4}\]`)

var (
	seriesGroupKeywords = []string{"serie", "series", "season"}
	seriesNameKeywords  = []string{"serie", "series"}
	movieGroupKeywords  = []string{"movie", "pelicula", "cine", "film", "vod", "4k"}
	movieNameKeywords   = []string{"pelicula", "movie"}
	radioGroupKeywords  = []string{"radio", "audio", "music"}
	radioNameKeywords   = []string{"radio", "fm"}
)

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryInfantil, []string{"infantil", "niños", "kids", "cartoon", "animación", "anime", "disney", "nick", "junior"}},
	{CategoryDeportes, []string{"deporte", "sport", "futbol", "soccer", "espn", "fox sport", "nba", "f1", "formula 1", "ufc", "wwe", "liga", "campeonato", "vivo"}},
	{CategoryTerror, []string{"terror", "horror", "miedo", "thriller", "suspenso", "paranormal"}},
	{CategoryDocumentales, []string{"documental", "documentary", "docu", "naturaleza", "historia", "ciencia", "discovery", "animal planet", "nat geo", "history"}},
}

// Classifier assigns a content type and a category to raw entry signals.
// Matching is substring based and deliberately coarse; a brand from the list
// in the name wins over any series-looking title.
type Classifier struct {
	liveBrands []string
}

// NewClassifier builds a Classifier. An empty brand list falls back to
// DefaultLiveBrands.
func NewClassifier(liveBrands []string) *Classifier {
	if len(liveBrands) == 0 {
		liveBrands = DefaultLiveBrands
	}
	brands := make([]string, 0, len(liveBrands))
	for _, b := range liveBrands {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			brands = append(brands, b)
		}
	}
	return &Classifier{liveBrands: brands}
}

// Signals are the raw fields a classification decision is made from.
type Signals struct {
	TypeHint string
	Name     string
	Group    string
	URL      string
}

// Classify returns the content type and category for the given signals.
func (c *Classifier) Classify(s Signals) (ContentType, Category) {
	return c.ClassifyType(s), ClassifyCategory(s.Name, s.Group)
}

// ClassifyType runs the type rules in priority order, then lets the URL shape
// override the result.
func (c *Classifier) ClassifyType(s Signals) ContentType {
	typ := c.baseType(s)
	if override, ok := urlType(s.URL); ok {
		return override
	}
	return typ
}

func (c *Classifier) baseType(s Signals) ContentType {
	name := strings.ToLower(s.Name)
	group := strings.ToLower(s.Group)

	if containsAny(name, c.liveBrands) {
		return TypeLive
	}

	switch strings.ToLower(strings.TrimSpace(s.TypeHint)) {
	case "movie", "movies", "vod":
		return TypeMovie
	case "series", "serie", "tvshow":
		return TypeSeries
	case "live":
		return TypeLive
	}

	for _, p := range seriesPatterns {
		if p.MatchString(s.Name) {
			return TypeSeries
		}
	}
	if containsAny(group, seriesGroupKeywords) || containsAny(name, seriesNameKeywords) {
		return TypeSeries
	}

	if yearPattern.MatchString(s.Name) {
		return TypeMovie
	}
	if containsAny(group, movieGroupKeywords) || containsAny(name, movieNameKeywords) {
		return TypeMovie
	}

	if containsAny(group, radioGroupKeywords) || containsAny(name, radioNameKeywords) {
		return TypeRadio
	}

	return TypeLive
}

func urlType(rawURL string) (ContentType, bool) {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "radio_streams"):
		return TypeRadio, true
	case strings.Contains(u, "created_live"):
		return TypeLive, true
	case strings.Contains(u, "/movie"), strings.Contains(u, "vod"):
		return TypeMovie, true
	case strings.Contains(u, "/series"), strings.Contains(u, "/episode"), strings.Contains(u, "/season"):
		return TypeSeries, true
	}
	return TypeLive, false
}

// ClassifyCategory matches the combined group and name against the category
// keyword sets. The first set with a hit wins.
func ClassifyCategory(name, group string) Category {
	combined := strings.ToLower(group + " " + name)
	for _, ck := range categoryKeywords {
		if containsAny(combined, ck.keywords) {
			return ck.category
		}
	}
	return CategoryGeneral
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
