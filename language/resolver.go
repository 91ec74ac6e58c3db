package language

import "net/http"

const (
	// MarkerField is the explicit language marker submitted with a
	// settings-save request. It is the most authoritative signal during a
	// write: concurrent admin-UI state can disagree with the true target
	// language, the marker cannot.
	MarkerField = "chatkit_locale"

	// QueryParam carries the language on administrative requests.
	QueryParam = "locale"
)

// Source yields a language candidate for a request, or "" when it has none.
type Source interface {
	Detect(r *http.Request) string
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(r *http.Request) string

func (f SourceFunc) Detect(r *http.Request) string { return f(r) }

// Resolver determines the active language for a request by trying every
// source in strict priority order and returning the first usable result.
type Resolver struct {
	provider       Provider
	adminSources   []Source
	visitorSources []Source
}

// NewResolver wires the admin and visitor detection chains around the probed
// provider. adminCookie names the administrative-language cookie;
// defaultLang is the last-resort constant.
func NewResolver(provider Provider, adminCookie, defaultLang string) *Resolver {
	r := &Resolver{provider: provider}

	r.adminSources = []Source{
		formSource(MarkerField),
		querySource(QueryParam),
		SourceFunc(provider.Current),
		cookieSource(adminCookie),
		constantSource(defaultLang, provider),
	}

	r.visitorSources = []Source{
		formSource(MarkerField),
		querySource(QueryParam),
		SourceFunc(provider.Match),
		constantSource(defaultLang, provider),
	}

	return r
}

// Current returns the active admin-context language, or "" for a
// single-language site.
func (rs *Resolver) Current(r *http.Request) string {
	return rs.detect(r, rs.adminSources)
}

// Visitor returns the display language for an anonymous request, or "" for a
// single-language site.
func (rs *Resolver) Visitor(r *http.Request) string {
	return rs.detect(r, rs.visitorSources)
}

// Default returns the site default language, or "" when no multilingual
// system is active.
func (rs *Resolver) Default() string {
	return rs.provider.Default()
}

// Languages lists the supported languages with the request's active one
// flagged, for settings-UI display only.
func (rs *Resolver) Languages(r *http.Request) []Language {
	langs := rs.provider.Languages()
	active := rs.Current(r)
	if active == "" {
		active = rs.Default()
	}
	for i := range langs {
		langs[i].Active = langs[i].Code == active
	}
	return langs
}

func (rs *Resolver) detect(r *http.Request, sources []Source) string {
	// A resolver without a provider serves a single-language site; no
	// source may override that.
	if rs.provider.Default() == "" {
		return ""
	}
	for _, src := range sources {
		if code := src.Detect(r); code != "" {
			return code
		}
	}
	return ""
}

func formSource(field string) Source {
	return SourceFunc(func(r *http.Request) string {
		if r == nil {
			return ""
		}
		return Normalize(r.PostFormValue(field))
	})
}

func querySource(param string) Source {
	return SourceFunc(func(r *http.Request) string {
		if r == nil {
			return ""
		}
		return Normalize(r.URL.Query().Get(param))
	})
}

// cookieSource reads the administrative-language cookie. It outranks the
// configured constant when both disagree.
func cookieSource(name string) Source {
	return SourceFunc(func(r *http.Request) string {
		if r == nil || name == "" {
			return ""
		}
		cookie, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return Normalize(cookie.Value)
	})
}

func constantSource(code string, provider Provider) Source {
	return SourceFunc(func(_ *http.Request) string {
		if c := Normalize(code); c != "" {
			return c
		}
		return provider.Default()
	})
}
