package localization_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatkitd/chatkitd/localization"
)

func TestTranslateByLanguageCode(t *testing.T) {
	mgr := localization.NewManager()
	ctx := context.Background()

	assert.Equal(t,
		"Too many requests. Please wait a moment and try again.",
		mgr.Translate(ctx, "en", "rate_limit_exceeded"))

	assert.Equal(t,
		"Troppe richieste. Attendi un momento e riprova.",
		mgr.Translate(ctx, "it", "rate_limit_exceeded"))
}

func TestTranslateFromHTTPRequest(t *testing.T) {
	mgr := localization.NewManager()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.5")

	assert.Equal(t,
		"Trop de requêtes. Veuillez patienter un instant puis réessayer.",
		mgr.Translate(context.Background(), req, "rate_limit_exceeded"))
}

func TestOperationalMessagesTranslated(t *testing.T) {
	mgr := localization.NewManager()
	ctx := context.Background()

	assert.Equal(t,
		"Something went wrong on our side. Please try again.",
		mgr.Translate(ctx, "en", "internal_error"))
	assert.Equal(t,
		"Si è verificato un errore interno. Riprova.",
		mgr.Translate(ctx, "it", "internal_error"))
	assert.Equal(t,
		"Impossibile salvare le impostazioni. Riprova.",
		mgr.Translate(ctx, "it", "storage_error"))
	assert.Equal(t,
		"The request could not be read. Please check it and try again.",
		mgr.Translate(ctx, "en", "invalid_request"))
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	mgr := localization.NewManager()

	assert.Equal(t,
		"Connection established. The workflow accepted a test session.",
		mgr.Translate(context.Background(), "zh", "test_success"))
}

func TestUnknownMessageIDEchoesID(t *testing.T) {
	mgr := localization.NewManager()

	assert.Equal(t, "no_such_message",
		mgr.Translate(context.Background(), "en", "no_such_message"))
}

func TestInvalidRequestObjectEchoesID(t *testing.T) {
	mgr := localization.NewManager()

	assert.Equal(t, "api_error", mgr.Translate(context.Background(), 42, "api_error"))
}
