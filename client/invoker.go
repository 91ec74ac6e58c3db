// Package client issues outbound HTTP calls. Every call is single-shot:
// timeouts and failures surface to the caller as classified errors and are
// never retried automatically.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pitabwire/util"
)

const defaultMaxResponseBodyLen = 1 << 20 // upstream bodies are tiny; 1MB is a safety cap

// Manager invokes HTTP endpoints and hands back raw results.
type Manager interface {
	Invoke(ctx context.Context,
		method string, endpointURL string, payload any,
		headers http.Header, opts ...HTTPOption) (*InvokeResponse, error)
}

// InvokeResponse is the raw outcome of one outbound call. The caller owns
// the body lifecycle.
type InvokeResponse struct {
	StatusCode int
	Headers    http.Header
	Body       io.ReadCloser
}

func (s *InvokeResponse) Close() error {
	if s.Body != nil {
		return s.Body.Close()
	}
	return nil
}

// ToContent drains the response body, bounded by the configured cap.
func (s *InvokeResponse) ToContent(ctx context.Context) ([]byte, error) {
	defer util.CloseAndLogOnError(ctx, s)
	return io.ReadAll(io.LimitReader(s.Body, defaultMaxResponseBodyLen))
}

// Decode streams a JSON response directly into v. The response body is
// closed after decoding.
func (s *InvokeResponse) Decode(ctx context.Context, v any) error {
	defer util.CloseAndLogOnError(ctx, s.Body)
	return json.NewDecoder(io.LimitReader(s.Body, defaultMaxResponseBodyLen)).Decode(v)
}

type invoker struct {
	client *http.Client
}

// NewManager creates an invoker. TLS verification stays on: the zero
// http.Transport configuration is deliberate.
func NewManager(_ context.Context) Manager {
	return &invoker{client: &http.Client{}}
}

// HTTPOption adjusts one outbound call.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	timeout time.Duration
}

// WithTimeout bounds the whole call, connection establishment included.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(cfg *httpConfig) {
		cfg.timeout = timeout
	}
}

// cancelOnCloseBody ties the call context's lifetime to the response body so
// the context is not cancelled before the caller finishes reading.
type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// Invoke sends payload as JSON to the endpoint and returns the raw response.
func (s *invoker) Invoke(ctx context.Context,
	method string, endpointURL string, payload any,
	headers http.Header, opts ...HTTPOption) (*InvokeResponse, error) {
	httpCfg := &httpConfig{}
	for _, opt := range opts {
		opt(httpCfg)
	}

	if headers == nil {
		headers = http.Header{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
		}
	}

	var body io.Reader
	if payload != nil {
		postBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(postBody)
	}

	var cancel context.CancelFunc
	if httpCfg.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, httpCfg.timeout)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpointURL, body)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	req.Header = headers

	resp, err := s.client.Do(req) //nolint:bodyclose // InvokeResponse owns the body
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}

	respBody := resp.Body
	if cancel != nil {
		respBody = &cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}
	}

	return &InvokeResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}
