// Package tenant derives, from an explicit ambient context, which backend
// origin to call and which public URL a store or product resolves to.
//
// Nothing in this package reads global state: the current navigation host,
// the runtime-injected API URL and the compiled-in default are all passed in
// through an Ambient value, so resolution is deterministic and side-effect
// free.
package tenant

import (
	"net"
	"net/url"
	"strings"
)

const (
	// FallbackAPIBase is the final, hard-coded link of the API base chain.
	FallbackAPIBase = "http://localhost:8000"

	// DefaultBackendLabel replaces the leading host label when the API
	// origin is derived from the navigation host.
	DefaultBackendLabel = "api"

	// DefaultBaseDomain is used when no base domain can be derived.
	DefaultBaseDomain = "localhost"

	// DefaultScheme is used for public URLs when the ambient scheme is unset.
	DefaultScheme = "https"

	// ProductPathPrefix is the public landing page prefix for products.
	ProductPathPrefix = "/p/"
)

// Sources reported by ResolveAPIBaseSource, one per link of the chain.
const (
	SourceRuntime    = "runtime-config"
	SourceDefault    = "compiled-default"
	SourceHost       = "derived-from-host"
	SourceSameOrigin = "same-origin"
	SourceFallback   = "fallback"
)

// Ambient is the information available about the current navigation
// context. The zero value is valid and resolves to the hard-coded defaults.
type Ambient struct {
	// Scheme of the current navigation ("http" or "https").
	Scheme string
	// Host of the current navigation, optionally with a port.
	Host string
	// RuntimeAPIURL is the externally injected API URL (config file,
	// environment or .env). Placeholders are ignored.
	RuntimeAPIURL string
	// DefaultAPIURL is the compile-time default API URL.
	DefaultAPIURL string
	// BackendLabel overrides DefaultBackendLabel.
	BackendLabel string
	// DefaultBaseDomain overrides the package DefaultBaseDomain.
	DefaultBaseDomain string
}

func (a Ambient) scheme() string {
	s := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(a.Scheme), ":"))
	if s == "http" || s == "https" {
		return s
	}
	return DefaultScheme
}

func (a Ambient) backendLabel() string {
	if a.BackendLabel != "" {
		return a.BackendLabel
	}
	return DefaultBackendLabel
}

func (a Ambient) defaultBaseDomain() string {
	if a.DefaultBaseDomain != "" {
		return a.DefaultBaseDomain
	}
	return DefaultBaseDomain
}

// ResolveAPIBase returns the backend origin for the given ambient context.
// See ResolveAPIBaseSource for the resolution order.
func ResolveAPIBase(a Ambient) *url.URL {
	u, _ := ResolveAPIBaseSource(a)
	return u
}

// ResolveAPIBaseSource implements the full resolution chain and also reports
// which link matched. First match wins:
//
//  1. RuntimeAPIURL, when it is an absolute http/https URL (used verbatim)
//  2. DefaultAPIURL, under the same rule
//  3. the navigation host with its leading label replaced by the backend
//     label, when the host has at least three labels and is not an IP
//  4. the navigation origin itself (same-origin)
//  5. FallbackAPIBase
func ResolveAPIBaseSource(a Ambient) (*url.URL, string) {
	if u, ok := ParseAPIURL(a.RuntimeAPIURL); ok {
		return u, SourceRuntime
	}
	if u, ok := ParseAPIURL(a.DefaultAPIURL); ok {
		return u, SourceDefault
	}

	host := strings.TrimSpace(a.Host)
	if host != "" {
		hostname, port := splitHostPort(host)
		labels := strings.Split(hostname, ".")
		if len(labels) >= 3 && !isIP(hostname) && validLabels(labels) {
			labels[0] = a.backendLabel()
			derived := joinHostPort(strings.Join(labels, "."), port)
			if u, ok := ParseAPIURL(a.scheme() + "://" + derived); ok {
				return u, SourceHost
			}
		}
		if u, ok := ParseAPIURL(a.scheme() + "://" + host); ok {
			return u, SourceSameOrigin
		}
	}

	u, _ := url.Parse(FallbackAPIBase)
	return u, SourceFallback
}

// ParseAPIURL reports whether raw is usable as an API base: an absolute
// http or https URL with a host, and not an unresolved template placeholder.
// The returned URL is raw parsed unchanged, except that the scheme is
// lowercased. Host, path and query keep their case.
func ParseAPIURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || IsPlaceholder(raw) {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	if u.Host == "" || u.Hostname() == "" || u.Opaque != "" {
		return nil, false
	}
	return u, true
}

// Template delimiters left behind when a deploy step fails to substitute a
// configuration value. Embedded markers may appear anywhere in the value;
// wrapping markers only count when they enclose the whole value, since a
// literal "%" or "_" is legal inside a URL.
var (
	embeddedMarkers = [][2]string{{"${", "}"}, {"{{", "}}"}, {"#{", "}"}}
	wrappingMarkers = [][2]string{{"%", "%"}, {"__", "__"}, {"<", ">"}}
)

// IsPlaceholder reports whether s contains an unresolved template marker
// such as ${API_URL}, {{API_URL}}, __API_URL__, %API_URL% or <API_URL>.
func IsPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	for _, m := range embeddedMarkers {
		i := strings.Index(s, m[0])
		if i < 0 {
			continue
		}
		rest := s[i+len(m[0]):]
		if j := strings.Index(rest, m[1]); j > 0 && isPlaceholderName(rest[:j]) {
			return true
		}
	}
	for _, m := range wrappingMarkers {
		if len(s) > len(m[0])+len(m[1]) && strings.HasPrefix(s, m[0]) && strings.HasSuffix(s, m[1]) &&
			isPlaceholderName(s[len(m[0]):len(s)-len(m[1])]) {
			return true
		}
	}
	return false
}

// isPlaceholderName matches the variable names used in templates: letters,
// digits, underscores and dots, with at least one letter.
func isPlaceholderName(s string) bool {
	s = strings.TrimSpace(s)
	hasLetter := false
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
			hasLetter = true
		case r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}
	return hasLetter
}

// ResolveBaseDomain returns the root domain shared by all tenant subdomains.
//
// It prefers the hostname of the resolved API base with its leftmost label
// stripped (backend-x.example.com → example.com). Failing that it takes the
// last three labels of the navigation host, and finally the default base
// domain.
func ResolveBaseDomain(a Ambient) string {
	if d, ok := stripLeadingLabel(ResolveAPIBase(a).Hostname()); ok {
		return d
	}
	hostname, _ := splitHostPort(strings.TrimSpace(a.Host))
	if labels := strings.Split(hostname, "."); len(labels) >= 3 && validLabels(labels) {
		return strings.ToLower(strings.Join(labels[len(labels)-3:], "."))
	}
	return a.defaultBaseDomain()
}

func stripLeadingLabel(hostname string) (string, bool) {
	if hostname == "" || isIP(hostname) {
		return "", false
	}
	i := strings.IndexByte(hostname, '.')
	if i <= 0 {
		return "", false
	}
	rest := hostname[i+1:]
	if !strings.Contains(rest, ".") || !validLabels(strings.Split(rest, ".")) {
		return "", false
	}
	return strings.ToLower(rest), true
}

func splitHostPort(host string) (string, string) {
	if h, p, err := net.SplitHostPort(host); err == nil {
		return h, p
	}
	return strings.Trim(host, "[]"), ""
}

func joinHostPort(hostname, port string) string {
	if port == "" {
		return hostname
	}
	return net.JoinHostPort(hostname, port)
}

func isIP(hostname string) bool {
	return net.ParseIP(strings.Trim(hostname, "[]")) != nil
}

func validLabels(labels []string) bool {
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}
