package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alorle/iptv-player/cache"
	"github.com/alorle/iptv-player/internal/port/driven"
	"github.com/alorle/iptv-player/internal/stream"
	"github.com/alorle/iptv-player/metrics"
)

const (
	// DefaultTimeout bounds the direct playlist request.
	DefaultTimeout       = 15 * time.Second
	// DefaultProxyTimeout bounds the request through the relay.
	DefaultProxyTimeout  = 20 * time.Second
	// DefaultProxyTemplate is the public relay used when the origin refuses
	// the direct request.
	DefaultProxyTemplate = "https://api.allorigins.win/raw?url=" + stream.URLPlaceholder

	acceptPlaylist  = "application/vnd.apple.mpegurl, application/x-mpegURL, text/plain, */*"
	maxPlaylistSize = 64 << 20
)

// ErrPlaylistTooLarge is returned when a playlist body exceeds the size limit.
var ErrPlaylistTooLarge = errors.New("playlist too large")

// Config configures a Fetcher.
type Config struct {
	Timeout       time.Duration
	ProxyTemplate string
	ProxyTimeout  time.Duration
	Storage       cache.Storage
	Client        *http.Client
	Logger        *slog.Logger
}

// Fetcher downloads playlist text. A failed direct request is retried once
// through the relay, and when both fail the last good copy is served stale.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	proxy        stream.Proxy
	proxyTimeout time.Duration
	storage      cache.Storage
	logger       *slog.Logger
	now          func() time.Time
	maxSize      int64
}

// New creates a new Fetcher. Zero timeouts use the defaults; an empty proxy
// template disables the relay step and a nil storage disables the stale copy.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ProxyTimeout <= 0 {
		cfg.ProxyTimeout = DefaultProxyTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		client:       cfg.Client,
		timeout:      cfg.Timeout,
		proxy:        stream.NewProxy(cfg.ProxyTemplate),
		proxyTimeout: cfg.ProxyTimeout,
		storage:      cfg.Storage,
		logger:       cfg.Logger,
		now:          time.Now,
		maxSize:      maxPlaylistSize,
	}
}

// FetchPlaylist implements driven.PlaylistSource.
func (f *Fetcher) FetchPlaylist(ctx context.Context, url string) (driven.PlaylistText, error) {
	body, err := f.fetch(ctx, url, f.timeout)
	if err == nil {
		metrics.RecordPlaylistFetch("direct")
		return f.fresh(url, body, false), nil
	}
	f.logger.Warn("direct playlist fetch failed", "error", err)

	if f.proxy.Enabled() && ctx.Err() == nil {
		body, proxyErr := f.fetch(ctx, f.proxy.Wrap(url), f.proxyTimeout)
		if proxyErr == nil {
			metrics.RecordPlaylistFetch("proxy")
			return f.fresh(url, body, true), nil
		}
		f.logger.Warn("proxied playlist fetch failed", "error", proxyErr)
		err = proxyErr
	}

	if f.storage != nil {
		entry, cacheErr := f.storage.Get(cache.PlaylistKey(url))
		if cacheErr == nil {
			f.logger.Warn("serving stale playlist",
				"cached_at", entry.Timestamp.Format(time.RFC3339),
				"age", f.now().Sub(entry.Timestamp).String())
			metrics.RecordPlaylistFetch("stale")
			return driven.PlaylistText{Body: string(entry.Content), FetchedAt: entry.Timestamp, Stale: true}, nil
		}
	}

	metrics.RecordPlaylistFetch("error")
	return driven.PlaylistText{}, fmt.Errorf("playlist fetch failed: %w", err)
}

func (f *Fetcher) fresh(url string, body []byte, viaProxy bool) driven.PlaylistText {
	if f.storage != nil {
		if err := f.storage.Set(cache.PlaylistKey(url), body); err != nil {
			f.logger.Warn("failed to update playlist cache", "error", err)
		}
	}
	return driven.PlaylistText{Body: string(body), FetchedAt: f.now(), ViaProxy: viaProxy}
}

func (f *Fetcher) fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid playlist url: %w", err)
	}
	req.Header.Set("Accept", acceptPlaylist)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, stream.NewNetworkError(url, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Debug("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, stream.StatusError(url, resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, stream.NewNetworkError(url, err)
	}
	if int64(len(content)) > f.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrPlaylistTooLarge, url, f.maxSize)
	}
	if strings.TrimSpace(string(content)) == "" {
		return nil, fmt.Errorf("empty playlist body from %s", url)
	}
	return content, nil
}
