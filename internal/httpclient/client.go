// Package httpclient builds the single *http.Client shared by every
// provider adapter and the pricing service, constructed once at startup from
// the process environment. This replaces the teacher's per-request fetch
// monkey-patching with an explicit dependency, per the Design Note in
// spec.md §9 ("Proxy injection via monkey-patched fetch").
package httpclient

import (
	"net/http"
	"net/url"
	"os"
	"time"
)

// Option configures the client returned by New.
type Option func(*http.Transport, *http.Client)

// WithTimeout overrides the default 60s client timeout.
func WithTimeout(d time.Duration) Option {
	return func(_ *http.Transport, c *http.Client) {
		c.Timeout = d
	}
}

// New builds an *http.Client honoring HTTP_PROXY/HTTPS_PROXY/NO_PROXY via
// the standard environment-proxy resolution, plus the legacy
// GLOBAL_AGENT_HTTPS_PROXY variable some of the upstream tooling in spec.md
// §6 still reads.
func New(opts ...Option) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxyFunc()

	client := &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}

	for _, opt := range opts {
		opt(transport, client)
	}

	return client
}

// proxyFunc returns http.ProxyFromEnvironment. When GLOBAL_AGENT_HTTPS_PROXY
// is set and neither HTTPS_PROXY nor https_proxy is, it first sets
// HTTPS_PROXY in this process's environment to that value.
func proxyFunc() func(*http.Request) (*url.URL, error) {
	if os.Getenv("HTTPS_PROXY") == "" && os.Getenv("https_proxy") == "" {
		if legacy := os.Getenv("GLOBAL_AGENT_HTTPS_PROXY"); legacy != "" {
			os.Setenv("HTTPS_PROXY", legacy)
		}
	}
	return http.ProxyFromEnvironment
}
