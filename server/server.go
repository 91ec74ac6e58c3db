// Package server exposes the HTTP surface: the public session and widget
// endpoints plus the administrator settings surface.
package server

import (
	"context"
	"net/http"

	"github.com/chatkitd/chatkitd/broker"
	"github.com/chatkitd/chatkitd/config"
	"github.com/chatkitd/chatkitd/identity"
	"github.com/chatkitd/chatkitd/language"
	"github.com/chatkitd/chatkitd/localization"
	"github.com/chatkitd/chatkitd/options"
)

// Server wires the HTTP handlers around the session broker and the option
// store.
type Server struct {
	cfg       *config.Service
	broker    *broker.Broker
	store     *options.Store
	resolver  *language.Resolver
	issuer    *identity.Issuer
	localizer *localization.Manager
}

// New creates the HTTP surface.
func New(cfg *config.Service, b *broker.Broker, store *options.Store,
	resolver *language.Resolver, issuer *identity.Issuer,
	localizer *localization.Manager) *Server {
	return &Server{
		cfg:       cfg,
		broker:    b,
		store:     store,
		resolver:  resolver,
		issuer:    issuer,
		localizer: localizer,
	}
}

// Handler builds the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /session", s.visitorContext(http.HandlerFunc(s.handleCreateSession)))
	mux.Handle("POST /test", s.adminOnly(http.HandlerFunc(s.handleTestConnection)))

	mux.Handle("GET /widget/config", s.visitorContext(http.HandlerFunc(s.handleWidgetConfig)))

	mux.Handle("GET /admin/options", s.adminOnly(s.adminContext(http.HandlerFunc(s.handleGetOptions))))
	mux.Handle("PUT /admin/options", s.adminOnly(s.adminContext(http.HandlerFunc(s.handleSaveOptions))))
	mux.Handle("GET /admin/languages", s.adminOnly(s.adminContext(http.HandlerFunc(s.handleLanguages))))

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.requestLogger(mux)
}

// visitorContext resolves the visitor display language and arms the
// request-scoped configuration snapshot.
func (s *Server) visitorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := s.resolver.Visitor(r)
		ctx := language.ToContext(r.Context(), lang)
		ctx = options.WithSnapshot(ctx, s.store, func() string { return lang })
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminContext resolves the admin-context language so option reads and
// writes land on the editor's target language.
func (s *Server) adminContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := s.resolver.Current(r)
		ctx := language.ToContext(r.Context(), lang)
		ctx = options.WithSnapshot(ctx, s.store, func() string { return lang })
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isPrivileged reports whether the request carries an administrator key.
func (s *Server) isPrivileged(r *http.Request) bool {
	return s.cfg.IsAdminKey(bearerToken(r))
}

func (s *Server) message(ctx context.Context, r *http.Request, id string) string {
	langs := make([]string, 0, 2)
	if code := language.FromContext(ctx); code != "" {
		langs = append(langs, code)
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		langs = append(langs, header)
	}
	return s.localizer.Translate(ctx, langs, id)
}
