// chatkitd backs an embeddable chat widget: it stores per-language widget
// settings and brokers short-lived chat-session credentials from the
// upstream API on behalf of anonymous visitors.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/pitabwire/util"

	"github.com/chatkitd/chatkitd/broker"
	"github.com/chatkitd/chatkitd/cache"
	_ "github.com/chatkitd/chatkitd/cache/redis"
	_ "github.com/chatkitd/chatkitd/cache/valkey"
	"github.com/chatkitd/chatkitd/chatkit"
	"github.com/chatkitd/chatkitd/client"
	"github.com/chatkitd/chatkitd/config"
	"github.com/chatkitd/chatkitd/identity"
	"github.com/chatkitd/chatkitd/language"
	"github.com/chatkitd/chatkitd/localization"
	"github.com/chatkitd/chatkitd/options"
	"github.com/chatkitd/chatkitd/quota"
	"github.com/chatkitd/chatkitd/server"
)

const shutdownGrace = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		util.Log(ctx).WithError(err).Fatal("could not load configuration")
	}

	logLevel, err := util.ParseLevel(cfg.LoggingLevel())
	if err != nil {
		logLevel = slog.LevelInfo
	}

	logger := util.NewLogger(ctx, util.WithLogHandler(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: cfg.LoggingTimeFormat(),
		NoColor:    !cfg.LoggingColored(),
	})))
	logger = logger.WithField("service", cfg.Name())
	ctx = util.ContextWithLogger(ctx, logger)
	ctx = config.ToContext(ctx, cfg)

	kv, err := cache.Open(cfg.CacheDSN)
	if err != nil {
		logger.WithError(err).Fatal("could not open cache backend")
	}
	defer func() { _ = kv.Close() }()

	provider := language.NewProvider(cfg.DefaultLanguage, cfg.SupportedLanguages)
	resolver := language.NewResolver(provider, cfg.AdminLangCookie, cfg.DefaultLanguage)

	store := options.NewStore(kv, resolver)
	limiter := quota.NewLimiter(kv, quota.DefaultConfig())
	issuer := identity.NewIssuer(cfg.VisitorCookieName)
	localizer := localization.NewManager()

	upstream := chatkit.New(client.NewManager(ctx), cfg.UpstreamBaseURL)

	sessions := broker.New(store, limiter, issuer, upstream, broker.Config{
		SessionLimit:   cfg.SessionLimitFor,
		SessionTimeout: cfg.SessionTimeout,
		TestTimeout:    cfg.TestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPServerPort,
		Handler:           server.New(cfg, sessions, store, resolver, issuer, localizer).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.WithField("addr", cfg.HTTPServerPort).Info("chatkitd listening")
	if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("http server terminated")
	}
}
