package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LocalizedLanguage is the language of the *_bn fields carried by stores,
// products and shipping classes.
var LocalizedLanguage = language.Bengali

var localeMatcher = language.NewMatcher([]language.Tag{language.English, LocalizedLanguage})

// WantsLocalized reports whether lang, a BCP 47 tag or Accept-Language
// list, prefers the localized variant.
func WantsLocalized(lang string) bool {
	if strings.TrimSpace(lang) == "" {
		return false
	}
	_, idx := language.MatchStrings(localeMatcher, lang)
	return idx == 1
}

func pick(lang, base, localized string) string {
	if localized != "" && WantsLocalized(lang) {
		return localized
	}
	return base
}

// DisplayName is the store name in lang. An empty lang uses the store's
// default language.
func (s *Store) DisplayName(lang string) string {
	if lang == "" {
		lang = s.DefaultLanguage
	}
	return pick(lang, s.Name, s.NameLocalized)
}

// DisplayTitle is the product title in lang, falling back to Title.
func (p *Product) DisplayTitle(lang string) string {
	return pick(lang, p.Title, p.TitleLocalized)
}

// DisplayDescription is the product description in lang, falling back to
// Description.
func (p *Product) DisplayDescription(lang string) string {
	return pick(lang, p.Description, p.DescriptionLocalized)
}

// DisplayName is the shipping class name in lang.
func (c *ShippingClass) DisplayName(lang string) string {
	return pick(lang, c.Name, c.NameLocalized)
}

// Label is the status as shown to people, e.g. "Shipped".
func (s OrderStatus) Label() string {
	// Casers carry state and are not shared.
	return cases.Title(language.English).String(string(s))
}
