// Package identity derives or recalls the stable anonymous identity a
// visitor presents when requesting a chat session.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"regexp"
	"time"
)

const (
	persistentPrefix = "user_"
	guestPrefix      = "guest_"

	persistentRandBytes = 16
	guestRandBytes      = 6

	// CookieTTL is the client-side lifetime of a persistent identity.
	CookieTTL = 30 * 24 * time.Hour
)

// persistentShape is the only token shape ever trusted from the client.
var persistentShape = regexp.MustCompile(`^user_[a-f0-9]{32}$`)

// Identity is an anonymous visitor identity.
type Identity struct {
	ID string
	// Persistent marks identities that live in a client-side cookie.
	Persistent bool
	// Minted marks freshly generated persistent identities that still
	// need to be written client-side.
	Minted bool
}

// Issuer resolves visitor identities backed by a named cookie.
type Issuer struct {
	cookieName string
}

// NewIssuer creates an issuer reading and scheduling the named cookie.
func NewIssuer(cookieName string) *Issuer {
	return &Issuer{cookieName: cookieName}
}

// ResolveOrCreate returns the request's identity. With persistence disabled
// it mints a disposable guest identity and never touches storage. Otherwise
// a well-shaped client token is returned unchanged; anything absent or
// malformed is replaced with a fresh token, never echoed back.
func (i *Issuer) ResolveOrCreate(r *http.Request, persistent bool) Identity {
	if !persistent {
		return Identity{ID: guestPrefix + randomHex(guestRandBytes)}
	}

	if r != nil {
		if cookie, err := r.Cookie(i.cookieName); err == nil && Valid(cookie.Value) {
			return Identity{ID: cookie.Value, Persistent: true}
		}
	}

	return Identity{
		ID:         persistentPrefix + randomHex(persistentRandBytes),
		Persistent: true,
		Minted:     true,
	}
}

// Disposable mints a throwaway identity for synthetic calls such as the
// administrator connectivity test.
func Disposable() Identity {
	return Identity{ID: guestPrefix + randomHex(guestRandBytes)}
}

// Valid reports whether value matches the trusted persistent token shape.
func Valid(value string) bool {
	return persistentShape.MatchString(value)
}

// Cookie builds the client-side carrier for a persistent identity: 30-day
// lifetime, Strict same-site, HTTP-only, Secure on encrypted connections.
func (i *Issuer) Cookie(id Identity, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     i.cookieName,
		Value:    id.ID,
		Path:     "/",
		MaxAge:   int(CookieTTL.Seconds()),
		Expires:  time.Now().Add(CookieTTL),
		SameSite: http.SameSiteStrictMode,
		HttpOnly: true,
		Secure:   secure,
	}
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand is documented never to fail on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
