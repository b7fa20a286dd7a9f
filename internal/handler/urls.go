package handler

import (
	"net/http"
	"strings"
)

// BaseURL resolves the scheme://host prefix hyperlinks in responses are built on.
//
// A configured value wins. Otherwise it is derived from the request: https when
// the connection is TLS or a proxy says so in X-Forwarded-Proto, then r.Host.
type BaseURL string

func (b BaseURL) For(r *http.Request) string {
	if b != "" {
		return strings.TrimRight(string(b), "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return scheme + "://" + r.Host
}

// pageURL is the absolute URL of the list endpoint at path, without a query.
func (b BaseURL) pageURL(r *http.Request, path string) string {
	return b.For(r) + path
}
