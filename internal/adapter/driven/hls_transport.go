package driven

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/grafov/m3u8"

	port "github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/internal/stream"
)

const maxManifestSize = 4 << 20

// HLSTransport plays adaptive streams. It loads the manifest, follows the
// best variant of a master playlist and derives the duration of finished
// (VOD) playlists.
type HLSTransport struct {
	httpClient *http.Client
	tick       time.Duration
	logger     *slog.Logger
}

// NewHLSTransport creates an HLS transport. A nil client uses a client with
// a 15 second timeout.
func NewHLSTransport(client *http.Client, tick time.Duration, logger *slog.Logger) *HLSTransport {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HLSTransport{httpClient: client, tick: tick, logger: logger}
}

// Attach implements driven.Transport.
func (t *HLSTransport) Attach(ctx context.Context, req port.AttachRequest, sink port.EventSink) (port.Binding, error) {
	if _, err := url.Parse(req.URL); err != nil {
		return nil, &stream.UnsupportedFormatError{URL: req.URL}
	}
	logger := t.logger.With("strategy", "hls", "via_proxy", req.ViaProxy)
	load := func(ctx context.Context) (float64, error) {
		return t.load(ctx, req.URL)
	}
	return newMediaBinding(ctx, load, sink, t.tick, logger), nil
}

func (t *HLSTransport) load(ctx context.Context, manifestURL string) (float64, error) {
	playlist, kind, err := FetchManifest(ctx, t.httpClient, manifestURL)
	if err != nil {
		return 0, err
	}

	if kind == m3u8.MASTER {
		master := playlist.(*m3u8.MasterPlaylist)
		variant := bestVariant(master)
		if variant == nil {
			return 0, fmt.Errorf("%w: master playlist without variants", stream.ErrMediaDecode)
		}
		variantURL, err := ResolveReference(manifestURL, variant.URI)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", stream.ErrMediaDecode, err)
		}
		playlist, kind, err = FetchManifest(ctx, t.httpClient, variantURL)
		if err != nil {
			return 0, err
		}
		if kind != m3u8.MEDIA {
			return 0, fmt.Errorf("%w: nested master playlist", stream.ErrMediaDecode)
		}
	}

	return mediaDuration(playlist.(*m3u8.MediaPlaylist))
}

// FetchManifest downloads and decodes an HLS playlist.
func FetchManifest(ctx context.Context, client *http.Client, manifestURL string) (m3u8.Playlist, m3u8.ListType, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, 0, &stream.UnsupportedFormatError{URL: manifestURL}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, stream.NewNetworkError(manifestURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, stream.StatusError(manifestURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return nil, 0, stream.NewNetworkError(manifestURL, err)
	}

	playlist, kind, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, 0, &stream.UnsupportedFormatError{URL: manifestURL, ContentType: resp.Header.Get("Content-Type")}
	}
	return playlist, kind, nil
}

// ResolveReference resolves ref against the URL of the manifest that holds it.
func ResolveReference(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

func bestVariant(master *m3u8.MasterPlaylist) *m3u8.Variant {
	var best *m3u8.Variant
	for _, v := range master.Variants {
		if v == nil || v.URI == "" {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best
}

func mediaDuration(media *m3u8.MediaPlaylist) (float64, error) {
	var total float64
	segments := 0
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		segments++
		total += seg.Duration
	}
	if segments == 0 {
		return 0, fmt.Errorf("%w: playlist has no segments", stream.ErrMediaDecode)
	}
	if !media.Closed {
		return 0, nil
	}
	return total, nil
}
