package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc builds the transport proxy callback from explicit proxy URLs.
// Empty URLs fall back to the process environment. Hosts matched by noProxy
// (comma-separated names or domain suffixes) bypass both.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	skip := parseNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypassProxy(req.URL, skip) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func parseNoProxy(noProxy string) []string {
	var entries []string
	for _, part := range strings.Split(noProxy, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), ".")
		if part != "" {
			entries = append(entries, strings.ToLower(part))
		}
	}
	return entries
}

// bypassProxy reports whether the request host matches a noProxy entry,
// exactly or as a parent domain.
func bypassProxy(u *url.URL, skip []string) bool {
	host := strings.ToLower(u.Hostname())
	for _, entry := range skip {
		if entry == "*" || host == entry || strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}
