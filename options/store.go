package options

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pitabwire/util"

	"github.com/chatkitd/chatkitd/cache"
	"github.com/chatkitd/chatkitd/language"
)

const keyPrefix = "options:"

// LegacyTranslator is the external string-translation extension point. It is
// consulted for translatable options that have no stored override and no
// base value, keeping deployments that registered their strings with an
// older translation system working.
type LegacyTranslator interface {
	Translate(ctx context.Context, name, base, lang string) string
}

// Store persists named settings keyed by (name, language) and resolves one
// effective value per language.
//
// The per-language storage key for a translatable name is the name itself
// for the default language and name + "_" + lang otherwise. The base value
// is always the default language's value, never an arbitrary "current" one.
type Store struct {
	kv       cache.Store
	resolver *language.Resolver
	legacy   LegacyTranslator
}

// Option configures a Store.
type Option func(*Store)

// WithLegacyTranslator wires the external string-translation fallback.
func WithLegacyTranslator(lt LegacyTranslator) Option {
	return func(s *Store) {
		s.legacy = lt
	}
}

// NewStore creates an option store over the supplied key-value facility.
func NewStore(kv cache.Store, resolver *language.Resolver, opts ...Option) *Store {
	s := &Store{kv: kv, resolver: resolver}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// storageKey derives the composite (name, language) key. An empty or
// default-language code lands on the base key.
func (s *Store) storageKey(name, lang string) string {
	if !Translatable(name) || lang == "" || lang == s.resolver.Default() {
		return name
	}
	return name + "_" + lang
}

func (s *Store) read(ctx context.Context, key string) string {
	raw, found, err := s.kv.Get(ctx, keyPrefix+key)
	if err != nil {
		util.Log(ctx).WithError(err).WithField("option", key).Error("option read failed")
		return ""
	}
	if !found {
		return ""
	}
	return string(raw)
}

// GetDisplay resolves the effective value of name for the given display
// language: per-language override, then base value, then the legacy
// translation hook, then the caller's default.
func (s *Store) GetDisplay(ctx context.Context, name, lang, def string) string {
	if !Translatable(name) {
		if v := s.read(ctx, name); v != "" {
			return v
		}
		return def
	}

	// Fallback chain as an ordered candidate list.
	key := s.storageKey(name, lang)
	if v := s.read(ctx, key); v != "" {
		return v
	}

	base := ""
	if key != name {
		base = s.read(ctx, name)
		if base != "" {
			return base
		}
	}

	if s.legacy != nil {
		if v := s.legacy.Translate(ctx, name, base, lang); v != "" {
			return v
		}
	}

	return def
}

// GetAdmin resolves name for the admin-context current language, so an
// editor viewing a secondary language sees that language's stored value.
// The base value only serves admins editing the default language; a
// secondary language with no override resolves to def, never to another
// language's value.
func (s *Store) GetAdmin(ctx context.Context, name, def string) string {
	if !Translatable(name) {
		if v := s.read(ctx, name); v != "" {
			return v
		}
		return def
	}

	lang := language.FromContext(ctx)
	key := s.storageKey(name, lang)

	if v := s.read(ctx, key); v != "" {
		return v
	}
	if key != name {
		// Secondary language without an override: def, not the base value.
		return def
	}
	return def
}

// Save writes value for name. Translatable names land on the base key when
// the current language is the default (or none is active) and on the
// per-language key otherwise; this asymmetry is what routes "editing in the
// default language" and "editing in a secondary language" to different
// storage slots. Any successful save invalidates the request's resolved
// snapshot.
func (s *Store) Save(ctx context.Context, name, value string) error {
	key := name
	if Translatable(name) {
		key = s.storageKey(name, language.FromContext(ctx))
	}

	if err := s.kv.Set(ctx, keyPrefix+key, []byte(value), 0); err != nil {
		return fmt.Errorf("options: save %s: %w", name, err)
	}

	InvalidateSnapshot(ctx)
	return nil
}

// Global reads a language-independent option straight from raw storage.
func (s *Store) Global(ctx context.Context, name string) string {
	return s.read(ctx, name)
}

// GetBool resolves a global option as a boolean.
func (s *Store) GetBool(ctx context.Context, name string, def bool) bool {
	v := s.read(ctx, name)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

// GetInt resolves a global option as an integer.
func (s *Store) GetInt(ctx context.Context, name string, def int) int {
	v := s.read(ctx, name)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}
