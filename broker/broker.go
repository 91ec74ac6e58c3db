// Package broker orchestrates chat-session requests: quota enforcement,
// identity issuance, configuration validation and the single upstream call
// that mints a session credential.
package broker

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/pitabwire/util"

	"github.com/chatkitd/chatkitd/chatkit"
	"github.com/chatkitd/chatkitd/identity"
	"github.com/chatkitd/chatkitd/options"
	"github.com/chatkitd/chatkitd/quota"
)

// workflowShape guards against injecting arbitrary values into the upstream
// request.
var workflowShape = regexp.MustCompile(`^wf_[A-Za-z0-9_-]+$`)

const (
	defaultSessionTimeout = 30 * time.Second
	defaultTestTimeout    = 10 * time.Second

	defaultMaxFileSizeMB = 10
	defaultMaxFiles      = 5
)

// Session is a successfully minted chat session: the opaque upstream
// credential plus the visitor identity it was minted for.
type Session struct {
	ClientSecret string
	Identity     identity.Identity
}

// Broker validates configuration, enforces quotas and relays credentials
// from the upstream session API.
type Broker struct {
	store    *options.Store
	limiter  *quota.Limiter
	issuer   *identity.Issuer
	upstream *chatkit.Client

	sessionLimit   func(privileged bool) int
	sessionTimeout time.Duration
	testTimeout    time.Duration
}

// Config carries the deployment knobs the broker needs.
type Config struct {
	// SessionLimit yields the per-minute quota for the caller class.
	SessionLimit   func(privileged bool) int
	SessionTimeout time.Duration
	TestTimeout    time.Duration
}

// New wires a broker from its collaborators.
func New(store *options.Store, limiter *quota.Limiter, issuer *identity.Issuer,
	upstream *chatkit.Client, cfg Config) *Broker {
	b := &Broker{
		store:          store,
		limiter:        limiter,
		issuer:         issuer,
		upstream:       upstream,
		sessionLimit:   cfg.SessionLimit,
		sessionTimeout: cfg.SessionTimeout,
		testTimeout:    cfg.TestTimeout,
	}
	if b.sessionLimit == nil {
		b.sessionLimit = func(bool) int { return 0 }
	}
	if b.sessionTimeout <= 0 {
		b.sessionTimeout = defaultSessionTimeout
	}
	if b.testTimeout <= 0 {
		b.testTimeout = defaultTestTimeout
	}
	return b
}

// CreateSession handles one visitor session request, short-circuiting on the
// first failure.
func (b *Broker) CreateSession(ctx context.Context, r *http.Request, privileged bool) (*Session, *Error) {
	fingerprint := quota.FingerprintRequest(r)
	if !b.limiter.Allow(ctx, fingerprint, b.sessionLimit(privileged)) {
		util.Log(ctx).WithField("remote_addr", r.RemoteAddr).Warn("session quota exceeded")
		return nil, rateLimited()
	}

	apiKey := b.store.Global(ctx, options.APIKey)
	workflowID := b.store.Global(ctx, options.WorkflowID)
	if apiKey == "" || workflowID == "" {
		return nil, missingConfig(http.StatusInternalServerError)
	}

	if !workflowShape.MatchString(workflowID) {
		util.Log(ctx).WithField("workflow_id", workflowID).Error("stored workflow id is malformed")
		return nil, invalidConfig(http.StatusInternalServerError)
	}

	persistent := b.store.GetBool(ctx, options.PersistentSessions, true)
	visitor := b.issuer.ResolveOrCreate(r, persistent)

	req := &chatkit.SessionRequest{
		Workflow: chatkit.Workflow{ID: workflowID},
		User:     visitor.ID,
	}
	if b.store.GetBool(ctx, options.AttachmentsEnabled, false) {
		req.Configuration = &chatkit.Configuration{
			FileUpload: chatkit.FileUpload{
				Enabled:     true,
				MaxFileSize: b.store.GetInt(ctx, options.AttachmentsMaxSize, defaultMaxFileSizeMB),
				MaxFiles:    b.store.GetInt(ctx, options.AttachmentsMaxFiles, defaultMaxFiles),
			},
		}
	}

	secret, brokerErr := b.mint(ctx, apiKey, req, b.sessionTimeout)
	if brokerErr != nil {
		return nil, brokerErr
	}

	return &Session{ClientSecret: secret, Identity: visitor}, nil
}

// TestConnection lets an administrator verify stored configuration: it runs
// the config checks and the upstream call only, with a synthetic disposable
// identity, no rate limiting and no attachment semantics.
func (b *Broker) TestConnection(ctx context.Context) *Error {
	apiKey := b.store.Global(ctx, options.APIKey)
	workflowID := b.store.Global(ctx, options.WorkflowID)
	if apiKey == "" || workflowID == "" {
		return missingConfig(http.StatusBadRequest)
	}

	if !workflowShape.MatchString(workflowID) {
		return invalidConfig(http.StatusBadRequest)
	}

	req := &chatkit.SessionRequest{
		Workflow: chatkit.Workflow{ID: workflowID},
		User:     identity.Disposable().ID,
	}

	_, brokerErr := b.mint(ctx, apiKey, req, b.testTimeout)
	return brokerErr
}

// mint performs the single outbound call and classifies its outcome. The
// upstream status and body are logged server-side for diagnosis; only the
// opaque credential ever travels back to the caller.
func (b *Broker) mint(ctx context.Context, apiKey string, req *chatkit.SessionRequest,
	timeout time.Duration) (string, *Error) {
	resp, err := b.upstream.CreateSession(ctx, apiKey, req, timeout)
	if err != nil {
		util.Log(ctx).WithError(err).Error("upstream session call failed")
		return "", apiError()
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := resp.ToContent(ctx)
		util.Log(ctx).WithField("status", resp.StatusCode).
			WithField("body", string(body)).Error("upstream rejected session request")
		return "", invalidResponse(resp.StatusCode)
	}

	var session chatkit.SessionResponse
	if decodeErr := resp.Decode(ctx, &session); decodeErr != nil || session.ClientSecret == "" {
		util.Log(ctx).WithError(decodeErr).Error("upstream response missing client secret")
		return "", invalidResponse(resp.StatusCode)
	}

	return session.ClientSecret, nil
}

// ValidWorkflowID reports whether id matches the accepted workflow format.
func ValidWorkflowID(id string) bool {
	return workflowShape.MatchString(id)
}
