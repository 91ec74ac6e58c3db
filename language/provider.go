package language

import (
	"net/http"

	"golang.org/x/text/language"
)

// Provider is the multilingual-system capability behind the resolver. It is
// probed once at startup; call sites never check for its presence again.
type Provider interface {
	// Default returns the site default language, or "" when the provider
	// is absent.
	Default() string
	// Current returns the provider's own notion of the request language,
	// or "" when it has none.
	Current(r *http.Request) string
	// Match resolves the request's Accept-Language header against the
	// supported set, or returns "" when nothing matches.
	Match(r *http.Request) string
	// Languages lists the supported set for UI display.
	Languages() []Language
}

// NewProvider probes the configured language set and returns the matching
// capability: a matcher-backed provider for multilingual deployments, the
// none provider otherwise.
func NewProvider(defaultLang string, supported []string) Provider {
	if len(supported) == 0 {
		return noneProvider{}
	}

	def := Normalize(defaultLang)

	codes := make([]string, 0, len(supported))
	tags := make([]language.Tag, 0, len(supported))
	seen := map[string]bool{}

	// The default language leads the set so the matcher falls back to it.
	ordered := append([]string{defaultLang}, supported...)
	for _, raw := range ordered {
		code := Normalize(raw)
		if code == "" || seen[code] {
			continue
		}
		tag, err := language.Parse(code)
		if err != nil {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
		tags = append(tags, tag)
	}

	if len(codes) == 0 {
		return noneProvider{}
	}
	if def == "" || !seen[def] {
		def = codes[0]
	}

	return &matcherProvider{
		defaultLang: def,
		codes:       codes,
		matcher:     language.NewMatcher(tags),
	}
}

// noneProvider is the single-language capability: every accessor reports
// that no multilingual system is active.
type noneProvider struct{}

func (noneProvider) Default() string                { return "" }
func (noneProvider) Current(_ *http.Request) string { return "" }
func (noneProvider) Match(_ *http.Request) string   { return "" }
func (noneProvider) Languages() []Language          { return nil }

// matcherProvider serves multilingual deployments from a configured language
// set, using the x/text matcher for Accept-Language negotiation.
type matcherProvider struct {
	defaultLang string
	codes       []string
	matcher     language.Matcher
}

func (p *matcherProvider) Default() string {
	return p.defaultLang
}

// Current reads the provider's own posted language field, the signal a
// multilingual admin UI submits alongside settings forms.
func (p *matcherProvider) Current(r *http.Request) string {
	if r == nil {
		return ""
	}
	return p.supportedOnly(Normalize(r.PostFormValue("language")))
}

func (p *matcherProvider) Match(r *http.Request) string {
	if r == nil {
		return ""
	}

	header := r.Header.Get("Accept-Language")
	if header == "" {
		return ""
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}

	_, idx, conf := p.matcher.Match(tags...)
	if conf == language.No {
		return ""
	}
	return p.codes[idx]
}

func (p *matcherProvider) Languages() []Language {
	langs := make([]Language, 0, len(p.codes))
	for _, code := range p.codes {
		langs = append(langs, Language{
			Code:    code,
			Name:    displayName(code),
			Default: code == p.defaultLang,
		})
	}
	return langs
}

func (p *matcherProvider) supportedOnly(code string) string {
	for _, known := range p.codes {
		if code == known {
			return code
		}
	}
	return ""
}
