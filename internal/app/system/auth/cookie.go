package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// CookieName carries the token for browser clients that cannot set headers
// (image/map tiles, EventSource, plain links).
const CookieName = "aramove_token"

// Cookies signs and optionally encrypts the token cookie.
type Cookies struct {
	sc     *securecookie.SecureCookie
	secure bool
}

// NewCookies builds the codec. hashKey must be at least 32 bytes; blockKey
// is optional and must be 16, 24, or 32 bytes when set.
func NewCookies(hashKey, blockKey string, secure bool) (*Cookies, error) {
	if len(hashKey) < 32 {
		return nil, errors.New("cookie hash key must be at least 32 bytes")
	}
	var block []byte
	if blockKey != "" {
		switch len(blockKey) {
		case 16, 24, 32:
			block = []byte(blockKey)
		default:
			return nil, errors.New("cookie block key must be 16, 24, or 32 bytes")
		}
	}
	sc := securecookie.New([]byte(hashKey), block)
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &Cookies{sc: sc, secure: secure}, nil
}

// Set writes the token cookie, expiring with the token.
func (c *Cookies) Set(w http.ResponseWriter, token string, expires time.Time) error {
	encoded, err := c.sc.Encode(CookieName, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite(),
	})
	return nil
}

// Read returns the decoded token from the request cookie.
func (c *Cookies) Read(r *http.Request) (string, bool) {
	ck, err := r.Cookie(CookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	var token string
	if err := c.sc.Decode(CookieName, ck.Value, &token); err != nil {
		return "", false
	}
	return token, token != ""
}

// Clear expires the token cookie.
func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite(),
	})
}

// Secure cookies are used cross-site in prod; dev over http needs Lax.
func (c *Cookies) sameSite() http.SameSite {
	if c.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}
