package server

import (
	"encoding/json"
	"net/http"

	"github.com/pitabwire/util"

	"github.com/chatkitd/chatkitd/broker"
	"github.com/chatkitd/chatkitd/language"
	"github.com/chatkitd/chatkitd/options"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sessionBody struct {
	ClientSecret string `json:"client_secret"`
}

type messageBody struct {
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) writeBrokerError(w http.ResponseWriter, r *http.Request, brokerErr *broker.Error) {
	s.writeJSON(w, brokerErr.Status, errorBody{
		Code:    brokerErr.Code,
		Message: s.message(r.Context(), r, brokerErr.Code),
	})
}

// handleCreateSession mints a chat-session credential for the visitor.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, brokerErr := s.broker.CreateSession(ctx, r, s.isPrivileged(r))
	if brokerErr != nil {
		s.writeBrokerError(w, r, brokerErr)
		return
	}

	// Persistent identities always travel back so the client-side expiry
	// is refreshed; the value itself only changes when freshly minted.
	if session.Identity.Persistent {
		http.SetCookie(w, s.issuer.Cookie(session.Identity, r.TLS != nil))
	}

	s.writeJSON(w, http.StatusOK, sessionBody{ClientSecret: session.ClientSecret})
}

// handleTestConnection verifies stored configuration against the upstream
// API, administrator-only.
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if brokerErr := s.broker.TestConnection(r.Context()); brokerErr != nil {
		s.writeBrokerError(w, r, brokerErr)
		return
	}

	s.writeJSON(w, http.StatusOK, messageBody{Message: s.message(r.Context(), r, "test_success")})
}

// handleWidgetConfig serves the resolved configuration snapshot the
// browser-side widget renders from.
func (s *Server) handleWidgetConfig(w http.ResponseWriter, r *http.Request) {
	snapshot := options.SnapshotFromContext(r.Context())
	if snapshot == nil {
		s.writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    "internal_error",
			Message: s.message(r.Context(), r, "internal_error"),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

type adminOptionsBody struct {
	Language  string            `json:"language"`
	Values    map[string]string `json:"values"`
	Globals   map[string]string `json:"globals"`
	HasAPIKey bool              `json:"has_api_key"`
}

// handleGetOptions serves every known option resolved for the admin-context
// language. The API key itself never leaves the server; only its presence
// is reported.
func (s *Server) handleGetOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	values := map[string]string{}
	for _, name := range options.TranslatableNames() {
		values[name] = s.store.GetAdmin(ctx, name, "")
	}

	globals := map[string]string{}
	for _, name := range options.GlobalNames() {
		if name == options.APIKey {
			continue
		}
		globals[name] = s.store.Global(ctx, name)
	}

	s.writeJSON(w, http.StatusOK, adminOptionsBody{
		Language:  language.FromContext(ctx),
		Values:    values,
		Globals:   globals,
		HasAPIKey: s.store.Global(ctx, options.APIKey) != "",
	})
}

// handleSaveOptions persists submitted settings. The request is form
// encoded so the explicit language marker rides alongside the values, the
// way the resolver chain expects during a write.
func (s *Server) handleSaveOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    "invalid_request",
			Message: s.message(ctx, r, "invalid_request"),
		})
		return
	}

	submitted := map[string]string{}
	for name, values := range r.PostForm {
		if name == language.MarkerField || !options.Known(name) {
			continue
		}
		value := ""
		if len(values) > 0 {
			value = values[0]
		}
		submitted[name] = value
	}

	// Nothing is written until every submitted value validates.
	if value, ok := submitted[options.WorkflowID]; ok && value != "" && !broker.ValidWorkflowID(value) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{
			Code:    broker.CodeInvalidConfig,
			Message: s.message(ctx, r, broker.CodeInvalidConfig),
		})
		return
	}

	for name, value := range submitted {
		if err := s.store.Save(ctx, name, value); err != nil {
			util.Log(ctx).WithError(err).WithField("option", name).Error("option save failed")
			s.writeJSON(w, http.StatusInternalServerError, errorBody{
				Code:    "storage_error",
				Message: s.message(ctx, r, "storage_error"),
			})
			return
		}
	}

	s.writeJSON(w, http.StatusOK, messageBody{Message: "saved"})
}

// handleLanguages lists the configured languages for the settings UI.
func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.resolver.Languages(r))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, messageBody{Message: "ok"})
}
