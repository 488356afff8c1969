package driven

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	port "github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/internal/stream"
)

// DirectTransport plays progressive files and raw transport streams. It
// probes the URL with a one byte range request before reporting ready.
type DirectTransport struct {
	httpClient *http.Client
	tick       time.Duration
	logger     *slog.Logger
}

// NewDirectTransport creates a direct transport. A nil client uses a client
// with a 15 second timeout.
func NewDirectTransport(client *http.Client, tick time.Duration, logger *slog.Logger) *DirectTransport {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectTransport{httpClient: client, tick: tick, logger: logger}
}

// Attach implements driven.Transport.
func (t *DirectTransport) Attach(ctx context.Context, req port.AttachRequest, sink port.EventSink) (port.Binding, error) {
	logger := t.logger.With("strategy", "direct", "via_proxy", req.ViaProxy)
	load := func(ctx context.Context) (float64, error) {
		if err := t.probe(ctx, req.URL); err != nil {
			return 0, err
		}
		if req.DurationHint > 0 {
			return req.DurationHint, nil
		}
		return 0, nil
	}
	return newMediaBinding(ctx, load, sink, t.tick, logger), nil
}

func (t *DirectTransport) probe(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &stream.UnsupportedFormatError{URL: target}
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return stream.NewNetworkError(target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return stream.StatusError(target, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !playableContentType(contentType) {
		return &stream.UnsupportedFormatError{URL: target, ContentType: contentType}
	}
	return nil
}

// playableContentType rejects documents and playlists served where media was
// expected. An empty or unparsable type is accepted.
func playableContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return false
	case mediaType == "application/json":
		return false
	case strings.Contains(mediaType, "mpegurl"):
		return false
	}
	return true
}
