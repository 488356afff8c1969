package stream

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the delivery mechanism guessed from a stream URL.
type Kind int

const (
	KindUnknown Kind = iota
	KindHLS
	KindDirect
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindHLS:
		return "hls"
	case KindDirect:
		return "direct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

var directMarkers = []string{
	".mp4", ".ts", ".mkv", ".avi", ".webm", ".mov",
	"/live/", "/movie/", "/series/",
}

var segmentPattern = regexp.MustCompile(`/\d+\.ts|output\.ts`)

// Detect classifies a stream URL by its shape alone. Anything mentioning
// m3u8 is HLS; container extensions and provider path markers are direct.
func Detect(rawURL string) Kind {
	u := strings.ToLower(rawURL)
	if strings.Contains(u, "m3u8") {
		return KindHLS
	}
	for _, m := range directMarkers {
		if strings.Contains(u, m) {
			return KindDirect
		}
	}
	if segmentPattern.MatchString(u) {
		return KindDirect
	}
	return KindUnknown
}
