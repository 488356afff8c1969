package driver

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grafov/m3u8"

	"github.com/alorle/iptv-player/internal/stream"
	"github.com/alorle/iptv-player/internal/streaming"
)

const (
	maxRelayManifest = 4 << 20
	hlsContentType   = "application/vnd.apple.mpegurl"
	relayLookupLimit = 5 * time.Second
)

// relayedHeaders are copied from the upstream response.
var relayedHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"Last-Modified",
	"ETag",
}

// ProxyHTTPHandler relays remote streams for clients that cannot reach them
// directly. HLS manifests are rewritten so every playlist, segment, key and
// init section they reference is fetched through the relay as well.
type ProxyHTTPHandler struct {
	client       *http.Client
	mountPath    string
	writeTimeout time.Duration
	allow        func(target string) bool
	lookup       func(ctx context.Context, host string) ([]net.IPAddr, error)
	logger       *slog.Logger
}

// NewProxyHTTPHandler creates a relay handler mounted at mountPath.
func NewProxyHTTPHandler(client *http.Client, mountPath string, writeTimeout time.Duration, logger *slog.Logger) *ProxyHTTPHandler {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &ProxyHTTPHandler{
		client:       client,
		mountPath:    mountPath,
		writeTimeout: writeTimeout,
		lookup:       net.DefaultResolver.LookupIPAddr,
		logger:       logger,
	}
	h.allow = h.publicTarget
	return h
}

// publicTarget reports whether target resolves only to public addresses.
// Loopback, private, link-local and unspecified addresses are refused so the
// relay cannot be used to reach the local network. A host that does not
// resolve is let through; the upstream request then fails on its own.
func (h *ProxyHTTPHandler) publicTarget(target string) bool {
	if !stream.Proxiable(target) {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		return publicIP(ip)
	}

	ctx, cancel := context.WithTimeout(context.Background(), relayLookupLimit)
	defer cancel()
	addrs, err := h.lookup(ctx, host)
	if err != nil {
		h.logger.Debug("relay host lookup failed", "host", host, "error", err)
		return true
	}
	for _, a := range addrs {
		if !publicIP(a.IP) {
			return false
		}
	}
	return true
}

func publicIP(ip net.IP) bool {
	return !ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsInterfaceLocalMulticast() &&
		!ip.IsUnspecified()
}

// ServeHTTP handles GET and HEAD /proxy?url=
func (h *ProxyHTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !requireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	target := r.URL.Query().Get("url")
	u, err := url.Parse(target)
	if target == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}
	if !h.allow(target) {
		writeError(w, http.StatusForbidden, "refusing to relay local address")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}
	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("relay upstream failed", "url", target, "error", err)
		writeError(w, http.StatusBadGateway, stream.NewNetworkError(target, err).Error())
		return
	}
	defer func() { _ = resp.Body.Close() }()

	body := bufio.NewReader(resp.Body)
	if resp.StatusCode == http.StatusOK && r.Method == http.MethodGet && isManifest(resp, body) {
		h.relayManifest(w, target, resp, body)
		return
	}

	h.relayBody(w, resp, body)
}

func (h *ProxyHTTPHandler) relayManifest(w http.ResponseWriter, target string, resp *http.Response, body io.Reader) {
	raw, err := io.ReadAll(io.LimitReader(body, maxRelayManifest))
	if err != nil {
		writeError(w, http.StatusBadGateway, stream.NewNetworkError(target, err).Error())
		return
	}

	rewritten, err := h.rewriteManifest(target, raw)
	if err != nil {
		h.logger.Debug("relaying manifest unchanged", "url", target, "error", err)
		rewritten = raw
	}

	w.Header().Set("Content-Type", hlsContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(rewritten)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(rewritten)
}

func (h *ProxyHTTPHandler) relayBody(w http.ResponseWriter, resp *http.Response, body io.Reader) {
	for _, name := range relayedHeaders {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	tw := streaming.NewTimeoutWriter(w, h.writeTimeout, h.logger, uuid.NewString())
	if _, err := io.Copy(tw, body); err != nil {
		h.logger.Debug("relay ended", "bytes_written", tw.BytesWritten(), "error", err)
	}
}

// rewriteManifest decodes an HLS playlist and points every URI it references
// at the relay.
func (h *ProxyHTTPHandler) rewriteManifest(base string, raw []byte) ([]byte, error) {
	playlist, kind, err := m3u8.DecodeFrom(bytes.NewReader(raw), false)
	if err != nil {
		return nil, err
	}

	switch kind {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		for _, v := range master.Variants {
			if v == nil {
				continue
			}
			v.URI = h.relayURI(base, v.URI)
			for _, alt := range v.Alternatives {
				if alt != nil {
					alt.URI = h.relayURI(base, alt.URI)
				}
			}
		}
		return master.Encode().Bytes(), nil
	default:
		media := playlist.(*m3u8.MediaPlaylist)
		if media.Key != nil {
			media.Key.URI = h.relayURI(base, media.Key.URI)
		}
		if media.Map != nil {
			media.Map.URI = h.relayURI(base, media.Map.URI)
		}
		for _, seg := range media.Segments {
			if seg == nil {
				continue
			}
			seg.URI = h.relayURI(base, seg.URI)
			if seg.Key != nil {
				seg.Key.URI = h.relayURI(base, seg.Key.URI)
			}
			if seg.Map != nil {
				seg.Map.URI = h.relayURI(base, seg.Map.URI)
			}
		}
		return media.Encode().Bytes(), nil
	}
}

// relayURI resolves ref against base and wraps the result in a relay URL.
// Empty and data: references are kept as they are.
func (h *ProxyHTTPHandler) relayURI(base, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return h.mountPath + "?url=" + url.QueryEscape(baseURL.ResolveReference(refURL).String())
}

// isManifest reports whether an upstream response carries an HLS playlist,
// peeking at the body when the headers are inconclusive.
func isManifest(resp *http.Response, body *bufio.Reader) bool {
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "mpegurl") {
		return true
	}
	if strings.HasSuffix(strings.ToLower(resp.Request.URL.Path), ".m3u8") {
		return true
	}
	head, _ := body.Peek(len("#EXTM3U"))
	return string(head) == "#EXTM3U"
}
