// Package chatkit talks to the upstream chat-session API. It requests and
// relays opaque credentials and nothing more.
package chatkit

import (
	"context"
	"net/http"
	"time"

	"github.com/chatkitd/chatkitd/client"
)

const (
	sessionsPath = "/v1/chatkit/sessions"

	betaHeader      = "OpenAI-Beta"
	betaHeaderValue = "chatkit_beta=v1"
)

// FileUpload is the attachment capability block. It is only sent when
// attachments are enabled.
type FileUpload struct {
	Enabled     bool `json:"enabled"`
	MaxFileSize int  `json:"max_file_size"`
	MaxFiles    int  `json:"max_files"`
}

// Configuration nests optional widget capabilities in a session request.
type Configuration struct {
	FileUpload FileUpload `json:"file_upload"`
}

// Workflow names the upstream workflow a session binds to.
type Workflow struct {
	ID string `json:"id"`
}

// SessionRequest is the upstream session-creation body.
type SessionRequest struct {
	Workflow      Workflow       `json:"workflow"`
	User          string         `json:"user"`
	Configuration *Configuration `json:"chatkit_configuration,omitempty"`
}

// SessionResponse carries the one field this system relays.
type SessionResponse struct {
	ClientSecret string `json:"client_secret"`
}

// Client mints sessions against the upstream API.
type Client struct {
	invoker client.Manager
	baseURL string
}

// New creates an upstream client rooted at baseURL.
func New(invoker client.Manager, baseURL string) *Client {
	return &Client{invoker: invoker, baseURL: baseURL}
}

// CreateSession issues the single outbound session-creation call, bounded by
// timeout, and returns the raw response for the caller to classify. The
// transport error (if any) indicates a connection-level failure; any HTTP
// status comes back in the response.
func (c *Client) CreateSession(
	ctx context.Context,
	apiKey string,
	req *SessionRequest,
	timeout time.Duration,
) (*client.InvokeResponse, error) {
	headers := http.Header{
		"Authorization": {"Bearer " + apiKey},
		"Content-Type":  {"application/json"},
		betaHeader:      {betaHeaderValue},
	}

	return c.invoker.Invoke(ctx, http.MethodPost, c.baseURL+sessionsPath, req, headers,
		client.WithTimeout(timeout))
}
