// Package localization translates the caller-facing status and error
// messages of the service. Message bundles are compiled in; a deployment
// never depends on files next to the binary.
package localization

import (
	"context"
	"embed"
	"net/http"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pitabwire/util"
	"golang.org/x/text/language"
)

//go:embed messages/messages.*.toml
var messagesFS embed.FS

// Manager resolves message ids against the embedded bundles.
type Manager struct {
	bundle *i18n.Bundle
}

// NewManager loads every embedded message bundle.
func NewManager() *Manager {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := messagesFS.ReadDir("messages")
	if err != nil {
		panic(err)
	}
	for _, entry := range entries {
		if _, loadErr := bundle.LoadMessageFileFS(messagesFS, "messages/"+entry.Name()); loadErr != nil {
			panic(loadErr)
		}
	}

	return &Manager{bundle: bundle}
}

// Bundle exposes the translation bundle.
func (m *Manager) Bundle() *i18n.Bundle {
	return m.bundle
}

// Translate resolves messageID for the language carried by request, which
// may be a string, a []string or an *http.Request.
func (m *Manager) Translate(ctx context.Context, request any, messageID string) string {
	return m.TranslateWithMap(ctx, request, messageID, nil)
}

// TranslateWithMap resolves messageID with template variables.
func (m *Manager) TranslateWithMap(ctx context.Context, request any, messageID string,
	variables map[string]any) string {
	var languages []string

	switch v := request.(type) {
	case *http.Request:
		languages = languagesFromHTTPRequest(v)
	case string:
		languages = []string{v}
	case []string:
		languages = v
	default:
		util.Log(ctx).WithField("messageID", messageID).
			Warn("no valid request object found, use string, []string or http.Request")
		return messageID
	}

	localizer := i18n.NewLocalizer(m.bundle, languages...)

	translated, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:      messageID,
		DefaultMessage: &i18n.Message{ID: messageID},
		TemplateData:   variables,
	})
	if err != nil {
		util.Log(ctx).WithError(err).WithField("messageID", messageID).
			Error("could not perform translation")
	}

	return translated
}

func languagesFromHTTPRequest(r *http.Request) []string {
	var languages []string
	if r == nil {
		return languages
	}

	if lang := r.FormValue("lang"); lang != "" {
		languages = append(languages, lang)
	}

	if header := r.Header.Get("Accept-Language"); header != "" {
		languages = append(languages, strings.Split(header, ",")...)
	}

	return languages
}
