package catalog

import (
	"regexp"
	"strings"

	"github.com/joeycumines/storefront/internal/apierr"
	"github.com/joeycumines/storefront/internal/tenant"
)

const maxSlugLength = 200

var (
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
	subdomainRe  = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
)

// Slugify derives the URL slug the backend assigns to a new product title.
// The backend appends -1, -2, ... on collision, which is not predicted here.
func Slugify(title string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(title), "")
	s = slugCollapse.ReplaceAllString(s, "-")
	if r := []rune(s); len(r) > maxSlugLength {
		s = string(r[:maxSlugLength])
	}
	return s
}

// Subdomain length bounds.
const (
	MinSubdomainLength = 3
	MaxSubdomainLength = 50
)

// ValidateSubdomain checks s against the rules the backend enforces when a
// store is created. Labels reserved for platform hosts (api, admin, www) are
// refused too, since the store's URL would resolve to no tenant.
func ValidateSubdomain(s string) error {
	const op = "validate subdomain"
	if len(s) < MinSubdomainLength || len(s) > MaxSubdomainLength {
		return apierr.Validation(op, "subdomain must be between 3 and 50 characters")
	}
	if !subdomainRe.MatchString(s) {
		return apierr.Validation(op, "subdomain may contain lowercase letters, digits and inner hyphens only")
	}
	if tenant.IsReservedLabel(s) {
		return apierr.Validation(op, "subdomain "+s+" is reserved")
	}
	return nil
}
