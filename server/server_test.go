package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatkitd/chatkitd/broker"
	"github.com/chatkitd/chatkitd/cache"
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

const adminKey = "admin-key-1"

type upstreamStub struct {
	status  int
	payload string
	calls   atomic.Int32

	srv *httptest.Server
}

func newUpstream(t *testing.T, status int, payload string) *upstreamStub {
	t.Helper()

	stub := &upstreamStub{status: status, payload: payload}
	stub.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		stub.calls.Add(1)
		w.WriteHeader(stub.status)
		_, _ = w.Write([]byte(stub.payload))
	}))
	t.Cleanup(stub.srv.Close)
	return stub
}

type fixture struct {
	handler  http.Handler
	store    *options.Store
	resolver *language.Resolver
}

func newFixture(t *testing.T, upstream *upstreamStub, sessionLimit int) *fixture {
	t.Helper()

	cfg := &config.Service{
		ServiceName:           "chatkitd-test",
		AdminKeys:             []string{adminKey},
		DefaultLanguage:       "en",
		SupportedLanguages:    []string{"en", "it"},
		VisitorCookieName:     "chatkit_visitor",
		AdminLangCookie:       "chatkit_admin_lang",
		SessionRateLimit:      sessionLimit,
		AdminSessionRateLimit: 60,
	}

	kv := cache.NewInMemory()
	t.Cleanup(func() { _ = kv.Close() })

	provider := language.NewProvider(cfg.DefaultLanguage, cfg.SupportedLanguages)
	resolver := language.NewResolver(provider, cfg.AdminLangCookie, cfg.DefaultLanguage)
	store := options.NewStore(kv, resolver)

	b := broker.New(
		store,
		quota.NewLimiter(kv, nil),
		identity.NewIssuer(cfg.VisitorCookieName),
		chatkit.New(client.NewManager(context.Background()), upstream.srv.URL),
		broker.Config{SessionLimit: cfg.SessionLimitFor},
	)

	srv := server.New(cfg, b, store, resolver, identity.NewIssuer(cfg.VisitorCookieName), localization.NewManager())

	return &fixture{handler: srv.Handler(), store: store, resolver: resolver}
}

// seed writes an option directly into storage for the given language.
func (f *fixture) seed(t *testing.T, lang, name, value string) {
	t.Helper()
	ctx := language.ToContext(context.Background(), lang)
	require.NoError(t, f.store.Save(ctx, name, value))
}

func (f *fixture) configure(t *testing.T) {
	f.seed(t, "", options.APIKey, "sk-test")
	f.seed(t, "", options.WorkflowID, "wf_abc123")
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := map[string]any{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func sessionRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/session", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	return req
}

func asAdmin(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+adminKey)
	return req
}

func TestSessionEndpointMintsCredential(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{"client_secret":"ek_live_1"}`)
	f := newFixture(t, upstream, 10)
	f.configure(t)

	rec := f.do(sessionRequest())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ek_live_1", decode(t, rec)["client_secret"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "chatkit_visitor", cookie.Name)
	assert.True(t, strings.HasPrefix(cookie.Value, "user_"))
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
}

func TestSessionEndpointMissingConfig(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{"client_secret":"ek"}`)
	f := newFixture(t, upstream, 10)

	rec := f.do(sessionRequest())

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "missing_config", body["code"])
	assert.Contains(t, body["message"], "not configured")
	assert.Equal(t, int32(0), upstream.calls.Load())
}

func TestSessionEndpointRateLimited(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{"client_secret":"ek"}`)
	f := newFixture(t, upstream, 1)
	f.configure(t)

	first := f.do(sessionRequest())
	require.Equal(t, http.StatusOK, first.Code)

	second := f.do(sessionRequest())
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "rate_limit_exceeded", decode(t, second)["code"])
	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestSessionErrorLocalizedByAcceptLanguage(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{"client_secret":"ek"}`)
	f := newFixture(t, upstream, 10)

	req := sessionRequest()
	req.Header.Set("Accept-Language", "it-IT,it;q=0.9")
	rec := f.do(req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "non è ancora configurato")
}

func TestTestEndpointRequiresAdminKey(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{"client_secret":"ek"}`)
	f := newFixture(t, upstream, 10)
	f.configure(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/test", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode(t, rec)["code"])

	wrong := httptest.NewRequest(http.MethodPost, "/test", nil)
	wrong.Header.Set("Authorization", "Bearer nope")
	require.Equal(t, http.StatusUnauthorized, f.do(wrong).Code)

	assert.Equal(t, int32(0), upstream.calls.Load())
}

func TestTestEndpointReportsMissingConfig(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{"client_secret":"ek"}`)
	f := newFixture(t, upstream, 10)

	rec := f.do(asAdmin(httptest.NewRequest(http.MethodPost, "/test", nil)))

	// Administrator diagnostics are client errors, not server errors.
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_config", decode(t, rec)["code"])
}

func TestTestEndpointSuccess(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{"client_secret":"ek_test"}`)
	f := newFixture(t, upstream, 10)
	f.configure(t)

	rec := f.do(asAdmin(httptest.NewRequest(http.MethodPost, "/test", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "Connection established")
	assert.Equal(t, int32(1), upstream.calls.Load())
}

func TestWidgetConfigResolvesVisitorLanguage(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{}`)
	f := newFixture(t, upstream, 10)

	f.seed(t, "", options.ButtonLabel, "Chat with us")
	f.seed(t, "", options.Greeting, "Hello!")
	f.seed(t, "it", options.ButtonLabel, "Chatta con noi")

	req := httptest.NewRequest(http.MethodGet, "/widget/config", nil)
	req.Header.Set("Accept-Language", "it")
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "it", body["language"])

	values, ok := body["values"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Chatta con noi", values[options.ButtonLabel])
	// No Italian override for the greeting, so the base value serves.
	assert.Equal(t, "Hello!", values[options.Greeting])
}

func TestAdminOptionsRoundTrip(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{}`)
	f := newFixture(t, upstream, 10)

	form := url.Values{}
	form.Set(language.MarkerField, "it")
	form.Set(options.ButtonLabel, "Ciao")
	form.Set(options.AttachmentsEnabled, "true")

	put := asAdmin(httptest.NewRequest(http.MethodPut, "/admin/options", strings.NewReader(form.Encode())))
	put.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, f.do(put).Code)

	get := asAdmin(httptest.NewRequest(http.MethodGet, "/admin/options?locale=it", nil))
	body := decode(t, f.do(get))
	assert.Equal(t, "it", body["language"])

	values := body["values"].(map[string]any)
	assert.Equal(t, "Ciao", values[options.ButtonLabel])

	globals := body["globals"].(map[string]any)
	assert.Equal(t, "true", globals[options.AttachmentsEnabled])

	// The Italian override never shows through the default-language view.
	base := decode(t, f.do(asAdmin(httptest.NewRequest(http.MethodGet, "/admin/options?locale=en", nil))))
	assert.Equal(t, "", base["values"].(map[string]any)[options.ButtonLabel])
}

func TestAdminOptionsNeverReturnAPIKey(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{}`)
	f := newFixture(t, upstream, 10)

	get := func() map[string]any {
		return decode(t, f.do(asAdmin(httptest.NewRequest(http.MethodGet, "/admin/options", nil))))
	}

	body := get()
	assert.Equal(t, false, body["has_api_key"])
	assert.NotContains(t, body["globals"].(map[string]any), options.APIKey)

	f.seed(t, "", options.APIKey, "sk-secret")

	body = get()
	assert.Equal(t, true, body["has_api_key"])
	assert.NotContains(t, body["globals"].(map[string]any), options.APIKey)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-secret")
}

func TestAdminSaveRejectsBadWorkflowID(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{}`)
	f := newFixture(t, upstream, 10)

	form := url.Values{}
	form.Set(options.WorkflowID, "bad id!")
	form.Set(options.ButtonLabel, "Should not land")

	put := asAdmin(httptest.NewRequest(http.MethodPut, "/admin/options", strings.NewReader(form.Encode())))
	put.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := f.do(put)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_config", decode(t, rec)["code"])

	// The rejection happens before any write.
	ctx := language.ToContext(context.Background(), "")
	assert.Empty(t, f.store.Global(ctx, options.WorkflowID))
	assert.Empty(t, f.store.GetAdmin(ctx, options.ButtonLabel, ""))
}

func TestAdminSaveIgnoresUnknownFields(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{}`)
	f := newFixture(t, upstream, 10)

	form := url.Values{}
	form.Set("not_an_option", "x")
	form.Set(options.Greeting, "Hi there")

	put := asAdmin(httptest.NewRequest(http.MethodPut, "/admin/options", strings.NewReader(form.Encode())))
	put.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, f.do(put).Code)

	ctx := language.ToContext(context.Background(), "")
	assert.Equal(t, "Hi there", f.store.GetAdmin(ctx, options.Greeting, ""))
	assert.Empty(t, f.store.Global(ctx, "not_an_option"))
}

func TestLanguagesEndpoint(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{}`)
	f := newFixture(t, upstream, 10)

	rec := f.do(asAdmin(httptest.NewRequest(http.MethodGet, "/admin/languages?locale=it", nil)))
	require.Equal(t, http.StatusOK, rec.Code)

	var langs []language.Language
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&langs))
	require.Len(t, langs, 2)

	byCode := map[string]language.Language{}
	for _, l := range langs {
		byCode[l.Code] = l
	}
	assert.True(t, byCode["en"].Default)
	assert.True(t, byCode["it"].Active)
	assert.False(t, byCode["en"].Active)
}

func TestHealthEndpoint(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `{}`)
	f := newFixture(t, upstream, 10)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	raw, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "ok")
}
