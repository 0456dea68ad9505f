package tenant

import (
	"net/url"
	"strings"
)

// reservedLabels are leading labels that address platform services rather
// than a store.
var reservedLabels = map[string]bool{
	"api":   true,
	"admin": true,
	"www":   true,
}

// IsReservedLabel reports whether label addresses a platform service. A store
// with such a subdomain could not be recovered from its own URL.
func IsReservedLabel(label string) bool {
	return reservedLabels[strings.ToLower(label)]
}

// Context is the tenant context derived from an Ambient value. It is an
// immutable value; derive a new one when the ambient host changes.
type Context struct {
	apiBase    url.URL
	apiSource  string
	subdomain  string
	baseDomain string
	scheme     string
}

// Derive resolves the API base, base domain and tenant subdomain for a.
func Derive(a Ambient) Context {
	u, source := ResolveAPIBaseSource(a)
	baseDomain := ResolveBaseDomain(a)
	return Context{
		apiBase:    *u,
		apiSource:  source,
		subdomain:  SubdomainFromHost(a.Host, baseDomain),
		baseDomain: baseDomain,
		scheme:     a.scheme(),
	}
}

// APIBaseURL returns a copy of the resolved backend origin.
func (c Context) APIBaseURL() *url.URL {
	u := c.apiBase
	return &u
}

// APISource names the resolution link that produced the API base.
func (c Context) APISource() string { return c.apiSource }

// Subdomain returns the tenant label of the navigation host, or "".
func (c Context) Subdomain() string { return c.subdomain }

// BaseDomain returns the root domain shared by all tenants.
func (c Context) BaseDomain() string { return c.baseDomain }

// Scheme returns the scheme used for public URLs.
func (c Context) Scheme() string { return c.scheme }

// StoreURL is BuildStoreURL against this context.
func (c Context) StoreURL(subdomain string) string {
	return buildURL(c.scheme, subdomain, c.baseDomain, "")
}

// ProductURL is BuildProductURL against this context.
func (c Context) ProductURL(subdomain, slug string) string {
	return buildURL(c.scheme, subdomain, c.baseDomain, slug)
}

// BuildStoreURL returns the canonical public URL of a store:
// scheme://{subdomain}.{baseDomain}, or scheme://{baseDomain} when the store
// has no subdomain.
func BuildStoreURL(subdomain string, a Ambient) string {
	return buildURL(a.scheme(), subdomain, ResolveBaseDomain(a), "")
}

// BuildProductURL returns the canonical public URL of a product landing
// page: the store URL followed by /p/{slug}.
func BuildProductURL(subdomain, slug string, a Ambient) string {
	return buildURL(a.scheme(), subdomain, ResolveBaseDomain(a), slug)
}

func buildURL(scheme, subdomain, baseDomain, slug string) string {
	host := baseDomain
	if sub := strings.ToLower(strings.TrimSpace(subdomain)); sub != "" {
		host = sub + "." + baseDomain
	}
	u := url.URL{Scheme: scheme, Host: host}
	if slug != "" {
		u.Path = ProductPathPrefix + slug
	}
	return u.String()
}

// SubdomainFromHost extracts the tenant label from host relative to
// baseDomain. Any port and a leading "www." are ignored. Hosts outside the
// base domain, the base domain itself and reserved labels (api, admin, www)
// yield "".
func SubdomainFromHost(host, baseDomain string) string {
	hostname, _ := splitHostPort(strings.TrimSpace(host))
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	hostname = strings.TrimPrefix(hostname, "www.")
	baseDomain = strings.ToLower(baseDomain)
	if hostname == "" || baseDomain == "" || hostname == baseDomain {
		return ""
	}
	suffix := "." + baseDomain
	if !strings.HasSuffix(hostname, suffix) {
		return ""
	}
	sub := strings.TrimSuffix(hostname, suffix)
	// The tenant is always the leading label.
	if i := strings.IndexByte(sub, '.'); i >= 0 {
		sub = sub[:i]
	}
	if sub == "" || IsReservedLabel(sub) {
		return ""
	}
	return sub
}
