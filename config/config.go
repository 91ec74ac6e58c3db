// Package config loads service configuration from the environment.
package config

import (
	"context"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type contextKey string

func (c contextKey) String() string {
	return "chatkitd/config/" + string(c)
}

const ctxKeyConfiguration = contextKey("configurationKey")

// ToContext adds service configuration to the current supplied context.
func ToContext(ctx context.Context, cfg *Service) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, cfg)
}

// FromContext extracts service configuration from the supplied context if any exist.
func FromContext(ctx context.Context) *Service {
	cfg, ok := ctx.Value(ctxKeyConfiguration).(*Service)
	if !ok {
		return nil
	}
	return cfg
}

// FromEnv convenience method to process configs.
func FromEnv() (*Service, error) {
	cfg, err := env.ParseAs[Service]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Service is the environment-backed configuration for chatkitd.
type Service struct {
	ServiceName string `envDefault:"chatkitd" env:"SERVICE_NAME"`

	LogLevel      string `envDefault:"info"                      env:"LOG_LEVEL"`
	LogTimeFormat string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT"`
	LogColored    bool   `envDefault:"true"                      env:"LOG_COLORED"`

	HTTPServerPort string `envDefault:":8080" env:"HTTP_PORT"`

	CacheDSN string `envDefault:"memory://" env:"CACHE_DSN"`

	UpstreamBaseURL string `envDefault:"https://api.openai.com" env:"UPSTREAM_BASE_URL"`

	// AdminKeys holds bearer keys accepted on the administrative surface.
	AdminKeys []string `env:"ADMIN_API_KEYS" envSeparator:","`

	DefaultLanguage    string   `envDefault:"en" env:"DEFAULT_LANGUAGE"`
	SupportedLanguages []string `env:"SUPPORTED_LANGUAGES" envSeparator:","`

	VisitorCookieName string `envDefault:"chatkit_visitor" env:"VISITOR_COOKIE_NAME"`
	AdminLangCookie   string `envDefault:"chatkit_admin_lang" env:"ADMIN_LANG_COOKIE"`

	SessionRateLimit      int `envDefault:"10" env:"SESSION_RATE_LIMIT"`
	AdminSessionRateLimit int `envDefault:"60" env:"ADMIN_SESSION_RATE_LIMIT"`

	SessionTimeout time.Duration `envDefault:"30s" env:"SESSION_TIMEOUT"`
	TestTimeout    time.Duration `envDefault:"10s" env:"TEST_TIMEOUT"`
}

func (s *Service) Name() string {
	return s.ServiceName
}

func (s *Service) LoggingLevel() string {
	return s.LogLevel
}

func (s *Service) LoggingTimeFormat() string {
	return s.LogTimeFormat
}

func (s *Service) LoggingColored() bool {
	return s.LogColored
}

// IsAdminKey reports whether the supplied bearer key belongs to an
// administrator. Empty keys never match.
func (s *Service) IsAdminKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	for _, known := range s.AdminKeys {
		if key == strings.TrimSpace(known) {
			return true
		}
	}
	return false
}

// Multilingual reports whether more than one language is configured. When it
// is false the site runs single-language and locale resolution yields "".
func (s *Service) Multilingual() bool {
	return len(s.SupportedLanguages) > 0
}

// SessionLimitFor returns the per-minute session quota for the caller class.
func (s *Service) SessionLimitFor(privileged bool) int {
	if privileged {
		return s.AdminSessionRateLimit
	}
	return s.SessionRateLimit
}
