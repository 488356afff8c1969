package stream

import (
	"net/url"
	"strings"
)

// URLPlaceholder marks where the escaped target goes in a proxy template.
const URLPlaceholder = "{url}"

// Proxy rewrites stream URLs so they are fetched through a relay endpoint.
// The zero value is a disabled proxy.
type Proxy struct {
	endpoint string
}

// NewProxy creates a Proxy for the given endpoint. The endpoint is either a
// template containing {url} or a base URL that receives a url query
// parameter.
func NewProxy(endpoint string) Proxy {
	return Proxy{endpoint: strings.TrimSpace(endpoint)}
}

// Enabled reports whether a relay endpoint is configured.
func (p Proxy) Enabled() bool {
	return p.endpoint != ""
}

// Wrap returns the relayed form of target. Relative URLs, loopback targets
// and every URL when the proxy is disabled are returned unchanged.
func (p Proxy) Wrap(target string) string {
	if !p.Enabled() || !Proxiable(target) {
		return target
	}
	escaped := url.QueryEscape(target)
	if strings.Contains(p.endpoint, URLPlaceholder) {
		return strings.ReplaceAll(p.endpoint, URLPlaceholder, escaped)
	}
	sep := "?"
	if strings.Contains(p.endpoint, "?") {
		sep = "&"
	}
	return p.endpoint + sep + "url=" + escaped
}

// Proxiable reports whether a URL points at a remote host.
func Proxiable(target string) bool {
	if strings.HasPrefix(target, "/") {
		return false
	}
	lower := strings.ToLower(target)
	return !strings.Contains(lower, "localhost") && !strings.Contains(lower, "127.0.0.1")
}
